package prioexec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOptions_Setters(t *testing.T) {
	var o options

	TaskID("id-1")(&o)
	require.Equal(t, "id-1", o.id, "TaskID not set")

	Name("resize")(&o)
	require.Equal(t, "resize", o.name, "Name not set")

	Description("resize thumbnails")(&o)
	require.Equal(t, "resize thumbnails", o.description, "Description not set")

	Timeout(3 * time.Second)(&o)
	require.Equal(t, 3*time.Second, o.timeout, "Timeout not set")

	// non-positive timeouts are ignored
	Timeout(-time.Second)(&o)
	require.Equal(t, 3*time.Second, o.timeout)

	// Deadline relative
	ExpireIn(1 * time.Second)(&o)
	require.False(t, o.deadline.IsZero(), "ExpireIn should set deadline")

	// Absolute deadline overrides
	t0 := time.Now().Add(10 * time.Second)
	Deadline(t0)(&o)
	require.Equal(t, t0, o.deadline, "Deadline not set correctly")

	// Zero values should not reset deadline
	Deadline(time.Time{})(&o)
	require.Equal(t, t0, o.deadline, "Zero Deadline should not set")
}
