package prioexec

import (
	"context"

	"github.com/UniQw/prioexec/internal/hctx"
)

// SetProgress allows running work to report progress (0..100); values are clamped.
// The latest value is visible through Executor.InFlight.
// It is a no-op if the context is not provided by the executor.
func SetProgress(ctx context.Context, p int) {
	st, ok := hctx.From(ctx)
	if !ok || st == nil {
		return
	}
	st.SetProgress(p)
}

// TaskIDFromContext returns the ID of the task whose work is running with ctx.
func TaskIDFromContext(ctx context.Context) (string, bool) {
	st, ok := hctx.From(ctx)
	if !ok || st == nil {
		return "", false
	}
	return st.TaskID, true
}
