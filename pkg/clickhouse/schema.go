package clickhouse

// SchemaStatements returns idempotent DDL for the analytics tables.
//
// sentiment_agg, alerts and watermarks use ReplacingMergeTree(updated_at):
// re-inserting a row with the same ordering key and a newer updated_at
// supersedes the old version, which gives upsert semantics on a merge-tree
// engine. Readers must query with FINAL to collapse versions.
func SchemaStatements(database string) []string {
	return []string{
		`CREATE DATABASE IF NOT EXISTS ` + database,

		`CREATE TABLE IF NOT EXISTS ` + database + `.posts (
			post_id         String,
			ticker          LowCardinality(String),
			forum           LowCardinality(String),
			ts              DateTime64(3, 'UTC'),
			sentiment_score Float64,
			confidence      Float64,
			ingested_at     DateTime64(3, 'UTC') DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(ingested_at)
		PARTITION BY toYYYYMM(ts)
		ORDER BY (ticker, ts, post_id)`,

		`CREATE TABLE IF NOT EXISTS ` + database + `.sentiment_agg (
			ticker         LowCardinality(String),
			interval_start DateTime64(3, 'UTC'),
			interval_end   DateTime64(3, 'UTC'),
			avg_score      Float64,
			post_count     UInt64,
			updated_at     DateTime64(3, 'UTC') DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		PARTITION BY toYYYYMM(interval_start)
		ORDER BY (ticker, interval_start)`,

		`CREATE TABLE IF NOT EXISTS ` + database + `.alerts (
			ticker        LowCardinality(String),
			rule          LowCardinality(String),
			triggered_at  DateTime64(3, 'UTC'),
			is_active     UInt8,
			z_score       Float64,
			normal_streak UInt32,
			resolved_at   Nullable(DateTime64(3, 'UTC')),
			updated_at    DateTime64(3, 'UTC') DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (ticker, rule, triggered_at)`,

		`CREATE TABLE IF NOT EXISTS ` + database + `.watermarks (
			ticker     LowCardinality(String),
			processed  DateTime64(3, 'UTC'),
			updated_at DateTime64(3, 'UTC') DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (ticker)`,
	}
}
