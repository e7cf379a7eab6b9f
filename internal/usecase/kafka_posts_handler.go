package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"BuzzRadar/internal/domain/models"
	domrepo "BuzzRadar/internal/domain/repository"
	pkgkafka "BuzzRadar/pkg/kafka"
	"BuzzRadar/pkg/logger"
)

// KafkaPostsHandler consumes scored forum posts and stores them as
// observations. Upstream scoring is expected to have run already: posts
// without a sentiment score are dropped and logged, never stored.
type KafkaPostsHandler struct {
	topic   string
	store   domrepo.ObservationStore
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewKafkaPostsHandler(topic string, store domrepo.ObservationStore, metrics domrepo.Metrics, log *logger.Logger) *KafkaPostsHandler {
	return &KafkaPostsHandler{topic: topic, store: store, metrics: metrics, log: log}
}

func (h *KafkaPostsHandler) Topic() string { return h.topic }

// incoming message schema:
// {post_id, ticker, forum, ts, sentiment_score, confidence}
func (h *KafkaPostsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		PostID         string   `json:"post_id"`
		Ticker         string   `json:"ticker"`
		Forum          string   `json:"forum"`
		TS             string   `json:"ts"`
		SentimentScore *float64 `json:"sentiment_score"`
		Confidence     float64  `json:"confidence"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Ticker == "" || m.PostID == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("post missing ticker or post_id")
	}
	if m.SentimentScore == nil {
		// Unscored posts are a scoring-stage defect, not ours to retry.
		h.metrics.RecordError("consumer_unscored")
		h.log.Warn("dropping unscored post",
			logger.String("post_id", m.PostID),
			logger.String("ticker", m.Ticker),
		)
		return nil
	}

	ts, err := time.Parse(time.RFC3339, m.TS)
	if err != nil {
		h.metrics.RecordError("consumer_bad_timestamp")
		return fmt.Errorf("parse post timestamp %q: %w", m.TS, err)
	}

	start := time.Now()
	err = h.store.Insert(ctx, []*models.Observation{{
		PostID:         m.PostID,
		Ticker:         strings.ToUpper(m.Ticker),
		Forum:          m.Forum,
		Timestamp:      ts.UTC(),
		SentimentScore: *m.SentimentScore,
		Confidence:     m.Confidence,
	}})
	h.metrics.RecordLatency("observation_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaPostsHandler)(nil)
