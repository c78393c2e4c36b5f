package prioexec

import (
	"context"
	"errors"
	"testing"
	"time"

	ikeys "github.com/UniQw/prioexec/internal/keys"
	mrd "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniClient(t *testing.T) (*redis.Client, *mrd.Miniredis) {
	t.Helper()
	s := mrd.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, s
}

func TestRedisSink_Defaults(t *testing.T) {
	rdb, _ := newMiniClient(t)
	s := NewRedisSink(rdb, RedisSinkConfig{})
	require.Equal(t, "default", s.cfg.Namespace)
	require.Equal(t, 2*time.Second, s.cfg.WriteTimeout)
	require.NotNil(t, s.cfg.Logger)
	require.NotNil(t, s.cfg.Encoder)
	require.Equal(t, ikeys.For("default"), s.keys)
}

func TestRedisSink_RecordsByState(t *testing.T) {
	rdb, _ := newMiniClient(t)
	ctx := context.Background()
	s := NewRedisSink(rdb, RedisSinkConfig{Namespace: "jobs", Retention: time.Minute, Logger: &testLogger{}})
	now := time.Now()

	s.Notify(Completion{TaskID: "ok", Name: "thumb", Priority: PriorityHigh, Outcome: Success(map[string]int{"n": 3}),
		StartedAt: now.Add(-time.Second), CompletedAt: now, Duration: time.Second})
	s.Notify(Completion{TaskID: "bad", Priority: PriorityMedium, Outcome: Failure(&TaskError{Err: errors.New("boom")}), CompletedAt: now})
	s.Notify(Completion{TaskID: "late", Outcome: Failure(ErrTimedOut), CompletedAt: now})
	s.Notify(Completion{TaskID: "gone", Outcome: Failure(ErrCancelled), CompletedAt: now})

	succeeded, err := s.List(ctx, StateSucceeded, nil)
	require.NoError(t, err)
	require.Len(t, succeeded, 1)
	require.Equal(t, "ok", succeeded[0].TaskID)
	require.Equal(t, "thumb", succeeded[0].Name)
	require.Equal(t, "high", succeeded[0].Priority)
	require.JSONEq(t, `{"n":3}`, string(succeeded[0].Result))
	require.Equal(t, time.Second, succeeded[0].Duration())

	failed, err := s.List(ctx, StateFailed, nil)
	require.NoError(t, err)
	require.Len(t, failed, 2)

	only, err := s.List(ctx, StateFailed, func(r *Record) bool { return r.TaskID == "bad" })
	require.NoError(t, err)
	require.Len(t, only, 1)
	require.Equal(t, "prioexec: task failed: boom", only[0].Error)

	cancelled, err := s.List(ctx, StateCancelled, nil)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	require.Equal(t, StateCancelled, cancelled[0].State)

	_, err = s.List(ctx, StatePending, nil)
	require.ErrorIs(t, err, ErrUnknownState)

	// nothing indexed for purge when failures are kept forever
	n, _ := rdb.ZCard(ctx, ikeys.FailedExpiry("jobs")).Result()
	require.Zero(t, n)
}

func TestRedisSink_RetentionPolicies(t *testing.T) {
	rdb, _ := newMiniClient(t)
	ctx := context.Background()
	now := time.Now()

	// Retention zero and negative ErrRetention store nothing
	s := NewRedisSink(rdb, RedisSinkConfig{Namespace: "none", ErrRetention: -1, Logger: &testLogger{}})
	s.Notify(Completion{TaskID: "a", Outcome: Success(1), CompletedAt: now})
	s.Notify(Completion{TaskID: "b", Outcome: Failure(ErrExpired), CompletedAt: now})
	s.Notify(Completion{TaskID: "c", Outcome: Failure(ErrCancelled), CompletedAt: now})
	for _, st := range []State{StateSucceeded, StateFailed, StateCancelled} {
		recs, err := s.List(ctx, st, nil)
		require.NoError(t, err)
		require.Empty(t, recs, "state %s", st)
	}
}

func TestRedisSink_Purge(t *testing.T) {
	rdb, _ := newMiniClient(t)
	ctx := context.Background()
	s := NewRedisSink(rdb, RedisSinkConfig{Namespace: "p", Retention: time.Second, ErrRetention: time.Second, Logger: &testLogger{}})
	old := time.Now().Add(-time.Minute)

	s.Notify(Completion{TaskID: "s", Outcome: Success("v"), CompletedAt: old})
	s.Notify(Completion{TaskID: "f", Outcome: Failure(ErrTimedOut), CompletedAt: old})
	s.Notify(Completion{TaskID: "c", Outcome: Failure(ErrCancelled), CompletedAt: old})
	s.Notify(Completion{TaskID: "fresh", Outcome: Success("v"), CompletedAt: time.Now()})

	removed, err := s.Purge(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), removed)

	left, err := s.List(ctx, StateSucceeded, nil)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, "fresh", left[0].TaskID)
}

func TestRedisSink_RunPurger(t *testing.T) {
	rdb, _ := newMiniClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	s := NewRedisSink(rdb, RedisSinkConfig{Namespace: "bg", Retention: time.Millisecond, Logger: &testLogger{}})
	s.Notify(Completion{TaskID: "s", Outcome: Success("v"), CompletedAt: time.Now().Add(-time.Second)})

	done := make(chan struct{})
	go func() {
		s.RunPurger(ctx, 10*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool {
		n, _ := rdb.ZCard(context.Background(), ikeys.Succeeded("bg")).Result()
		return n == 0
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestRedisSink_WriteFailureIsLogged(t *testing.T) {
	rdb, srv := newMiniClient(t)
	l := &testLogger{}
	s := NewRedisSink(rdb, RedisSinkConfig{Retention: time.Minute, WriteTimeout: 200 * time.Millisecond, Logger: l})
	srv.Close()

	// must not panic or block beyond the write timeout
	s.Notify(Completion{TaskID: "x", Outcome: Success(1), CompletedAt: time.Now()})
	require.True(t, l.contains("record failed"))
}

func TestRedisSink_UnencodableResultStillRecorded(t *testing.T) {
	rdb, _ := newMiniClient(t)
	l := &testLogger{}
	s := NewRedisSink(rdb, RedisSinkConfig{Retention: time.Minute, Logger: l})
	s.Notify(Completion{TaskID: "ch", Outcome: Success(make(chan int)), CompletedAt: time.Now()})

	recs, err := s.List(context.Background(), StateSucceeded, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Nil(t, recs[0].Result)
	require.True(t, l.contains("not encodable"))
}

func TestRedisSink_WithExecutor(t *testing.T) {
	rdb, _ := newMiniClient(t)
	ctx := context.Background()
	sink := NewRedisSink(rdb, RedisSinkConfig{Namespace: "e2e", Retention: 10 * time.Second, Logger: &testLogger{}})
	e, err := New(Config{Concurrency: 2, Logger: &testLogger{}, Sinks: []CompletionSink{sink}})
	require.NoError(t, err)

	_, _ = e.Submit(PriorityHigh, func(context.Context) (any, error) { return "done", nil })
	_, _ = e.Submit(PriorityLow, func(context.Context) (any, error) { return nil, errors.New("boom") })
	e.Start()
	require.Equal(t, Drained, e.WaitUntilDrained(5*time.Second))
	_, _ = e.Submit(PriorityLow, ok)
	e.Shutdown()

	succeeded, err := sink.List(ctx, StateSucceeded, nil)
	require.NoError(t, err)
	failed, err := sink.List(ctx, StateFailed, nil)
	require.NoError(t, err)
	cancelled, err := sink.List(ctx, StateCancelled, nil)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	// the last task either ran before Shutdown or was cancelled
	require.Equal(t, 3, len(succeeded)+len(failed)+len(cancelled))
}
