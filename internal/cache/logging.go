package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tailwise-insights/pkg/logging/logging"
)

// LoggingStore wraps a Store with structured logging.
type LoggingStore struct {
	inner Store
}

// NewLoggingStore returns a store that logs every get/set with latency.
func NewLoggingStore(inner Store) Store {
	return &LoggingStore{inner: inner}
}

func (s *LoggingStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	start := time.Now()
	entry, ok, err := s.inner.Get(ctx, key)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := logging.L(ctx)

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.Bool("found", ok),
		zap.Float64("latency_ms", latencyMs),
	}
	if parsed, valid := ParseKey(key); valid {
		fields = append(fields,
			zap.String("feature", parsed.Feature),
			zap.String("subject_id", parsed.SubjectID),
		)
	}

	if err != nil {
		logger.Error("insight_cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("insight_cache_get", fields...)
	}

	return entry, ok, err
}

func (s *LoggingStore) Set(ctx context.Context, key string, data []byte, storedAt time.Time) error {
	start := time.Now()
	err := s.inner.Set(ctx, key, data, storedAt)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := logging.L(ctx)

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.Int("size_bytes", len(data)),
		zap.Float64("latency_ms", latencyMs),
	}
	if parsed, valid := ParseKey(key); valid {
		fields = append(fields,
			zap.String("feature", parsed.Feature),
			zap.String("subject_id", parsed.SubjectID),
		)
	}

	if err != nil {
		logger.Error("insight_cache_set", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("insight_cache_set", fields...)
	}

	return err
}
