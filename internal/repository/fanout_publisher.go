package repository

import (
	"context"
	"errors"

	"BuzzRadar/internal/domain/models"
	domrepo "BuzzRadar/internal/domain/repository"
)

// FanoutPublisher delivers each transition to every registered publisher.
// One failing sink does not block the others; errors are joined.
type FanoutPublisher struct {
	sinks []domrepo.AlertPublisher
}

func NewFanoutPublisher(sinks ...domrepo.AlertPublisher) *FanoutPublisher {
	filtered := make([]domrepo.AlertPublisher, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &FanoutPublisher{sinks: filtered}
}

func (f *FanoutPublisher) Publish(ctx context.Context, tr *models.AlertTransition) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, tr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FanoutPublisher) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
