package core

import "github.com/google/uuid"

// NewRunID returns a unique identifier for one pipeline run. Run IDs scope
// per-run state such as name-level load dedup and analysis idempotency.
func NewRunID() string {
	return uuid.NewString()
}
