package prioexec

import (
	"encoding/json"
	"time"

	"github.com/bytedance/sonic"
)

// Encoder defines the interface for completion record serialization.
type Encoder interface {
	// Encode serializes a value to bytes.
	Encode(any) ([]byte, error)
	// Decode deserializes bytes to a value.
	Decode([]byte, any) error
}

// JSONEncoder is the default implementation of Encoder using JSON.
// Encoding goes through the standard library so arbitrary task results
// marshal the usual way; decoding of stored records uses sonic.
type JSONEncoder struct{}

// Encode serializes a value to JSON.
func (*JSONEncoder) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode deserializes JSON bytes using sonic.
func (*JSONEncoder) Decode(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// Record is the persisted form of a Completion.
type Record struct {
	// TaskID is the executor-assigned task ID.
	TaskID string `json:"task_id"`
	// Name is the task label, if one was given.
	Name string `json:"name,omitempty"`
	// Priority is the priority name (low, medium, high).
	Priority string `json:"priority"`
	// State is succeeded, failed or cancelled.
	State State `json:"state"`
	// Result is the success value encoded as JSON.
	Result json.RawMessage `json:"result,omitempty"`
	// Error is the failure message.
	Error string `json:"error,omitempty"`
	// StartedAt is the timestamp (ms) when a slot picked the task up.
	StartedAt int64 `json:"started_at,omitempty"`
	// CompletedAt is the timestamp (ms) when the outcome was recorded.
	CompletedAt int64 `json:"completed_at"`
	// DurationMs is the execution time in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// RecordFilter is a function used to filter records during List.
type RecordFilter func(*Record) bool

// Duration returns the execution time as a time.Duration.
func (r *Record) Duration() time.Duration { return time.Duration(r.DurationMs) * time.Millisecond }

// newRecord converts c into a Record. A success value the encoder cannot
// handle is left out and reported through resultErr.
func newRecord(c Completion, enc Encoder) (rec Record, resultErr error) {
	rec = Record{
		TaskID:      c.TaskID,
		Name:        c.Name,
		Priority:    c.Priority.String(),
		State:       c.State(),
		CompletedAt: c.CompletedAt.UnixMilli(),
		DurationMs:  c.Duration.Milliseconds(),
	}
	if !c.StartedAt.IsZero() {
		rec.StartedAt = c.StartedAt.UnixMilli()
	}
	if c.Outcome.Err != nil {
		rec.Error = c.Outcome.Err.Error()
		return rec, nil
	}
	if c.Outcome.Value != nil {
		b, err := enc.Encode(c.Outcome.Value)
		if err != nil {
			return rec, err
		}
		rec.Result = b
	}
	return rec, nil
}
