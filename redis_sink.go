package prioexec

import (
	"context"
	"fmt"
	"time"

	ikeys "github.com/UniQw/prioexec/internal/keys"
	"github.com/UniQw/prioexec/internal/store"
	"github.com/redis/go-redis/v9"
)

// RedisSinkConfig defines how a RedisSink stores completion records.
type RedisSinkConfig struct {
	// Namespace separates the records of different executors. Default "default".
	Namespace string
	// Retention is how long succeeded records are kept.
	// Zero stores nothing; negative keeps them forever.
	Retention time.Duration
	// ErrRetention is how long failed and cancelled records are kept.
	// Zero keeps them forever (default); negative stores nothing.
	ErrRetention time.Duration
	// WriteTimeout bounds each Notify. Default 2s.
	WriteTimeout time.Duration
	// Logger receives write failures. Default FmtLogger.
	Logger Logger
	// Encoder serializes records and task results. Default JSONEncoder.
	Encoder Encoder
}

// RedisSink is a CompletionSink that records every completion in Redis.
// Write failures are logged; they never reach the executor.
type RedisSink struct {
	rdb  redis.UniversalClient
	cfg  RedisSinkConfig
	keys ikeys.Namespace
}

// NewRedisSink creates a RedisSink on top of rdb.
func NewRedisSink(rdb redis.UniversalClient, cfg RedisSinkConfig) *RedisSink {
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = NewFmtLogger()
	}
	if cfg.Encoder == nil {
		cfg.Encoder = &JSONEncoder{}
	}
	return &RedisSink{rdb: rdb, cfg: cfg, keys: ikeys.For(cfg.Namespace)}
}

// Notify stores c under the key matching its state.
func (s *RedisSink) Notify(c Completion) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	if err := s.Record(ctx, c); err != nil {
		s.cfg.Logger.Errorf("redis sink: record failed: id=%s ns=%s err=%v", c.TaskID, s.cfg.Namespace, err)
	}
}

// Record stores c and returns any write error. Notify is Record with the
// configured timeout and errors logged.
func (s *RedisSink) Record(ctx context.Context, c Completion) error {
	rec, resErr := newRecord(c, s.cfg.Encoder)
	if resErr != nil {
		s.cfg.Logger.Warnf("redis sink: result not encodable, stored without it: id=%s err=%v", c.TaskID, resErr)
	}
	raw, err := s.cfg.Encoder.Encode(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	completedAt := c.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	switch rec.State {
	case StateSucceeded:
		return store.TrackSucceeded(ctx, s.rdb, s.keys, raw, completedAt, s.cfg.Retention)
	case StateCancelled:
		return store.TrackCancelled(ctx, s.rdb, s.keys, raw, completedAt, s.cfg.ErrRetention)
	default:
		return store.TrackFailed(ctx, s.rdb, s.keys, raw, completedAt, s.cfg.ErrRetention)
	}
}

// List returns the records stored for a terminal state. Only succeeded,
// failed and cancelled are recorded; other states return ErrUnknownState.
// Records that fail to decode are skipped.
func (s *RedisSink) List(ctx context.Context, state State, filter RecordFilter) ([]*Record, error) {
	var key string
	switch state {
	case StateSucceeded:
		key = s.keys.Succeeded
	case StateFailed:
		key = s.keys.Failed
	case StateCancelled:
		key = s.keys.Cancelled
	default:
		return nil, fmt.Errorf("%w: %q is not recorded", ErrUnknownState, state)
	}

	strs, err := store.List(ctx, s.rdb, key)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(strs))
	for _, str := range strs {
		var r Record
		if err := s.cfg.Encoder.Decode([]byte(str), &r); err == nil {
			if filter == nil || filter(&r) {
				out = append(out, &r)
			}
		}
	}
	return out, nil
}

// Purge removes expired records and returns how many were removed.
func (s *RedisSink) Purge(ctx context.Context) (int64, error) {
	return store.Purge(ctx, s.rdb, s.keys, time.Now())
}

// RunPurger calls Purge every interval until ctx is done.
func (s *RedisSink) RunPurger(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Purge(ctx)
			if err != nil && ctx.Err() == nil {
				s.cfg.Logger.Warnf("redis sink: purge failed ns=%s err=%v", s.cfg.Namespace, err)
				continue
			}
			if n > 0 {
				s.cfg.Logger.Debugf("redis sink: purged=%d ns=%s", n, s.cfg.Namespace)
			}
		}
	}
}
