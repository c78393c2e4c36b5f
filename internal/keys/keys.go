package keys

// Package keys centralizes Redis key construction for completion records.
// It is kept in internal to avoid leaking key formats to public API.

func Succeeded(ns string) string { return "prioexec:{" + ns + "}:succeeded" }
func Failed(ns string) string    { return "prioexec:{" + ns + "}:failed" }
func Cancelled(ns string) string { return "prioexec:{" + ns + "}:cancelled" }

// FailedExpiry is a ZSET index that tracks when failed-list members should be purged.
// Members are the raw record JSON; scores are absolute expiration timestamps in ms.
func FailedExpiry(ns string) string { return "prioexec:{" + ns + "}:failed_expiry" }

// CancelledExpiry is the FailedExpiry counterpart for the cancelled list.
func CancelledExpiry(ns string) string { return "prioexec:{" + ns + "}:cancelled_expiry" }

// Namespace holds all precomputed keys for a namespace to avoid repeated concatenations.
type Namespace struct {
	Succeeded       string
	Failed          string
	FailedExpiry    string
	Cancelled       string
	CancelledExpiry string
}

// For returns a set of precomputed keys for the provided namespace.
func For(ns string) Namespace {
	prefix := "prioexec:{" + ns + "}:"
	return Namespace{
		Succeeded:       prefix + "succeeded",
		Failed:          prefix + "failed",
		FailedExpiry:    prefix + "failed_expiry",
		Cancelled:       prefix + "cancelled",
		CancelledExpiry: prefix + "cancelled_expiry",
	}
}
