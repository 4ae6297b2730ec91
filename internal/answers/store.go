// Package answers owns durable persistence of in-progress answer sets so a
// session can be resumed after an interruption. The store is the sole
// writer of its keyspace and every write replaces the complete set for one
// exam in a single call.
package answers

import (
	"context"
	"fmt"
)

// Set maps question id -> selected option index.
type Set map[int64]int

// Store persists one answer set per exam identity.
type Store interface {
	// Save writes the complete set atomically.
	Save(ctx context.Context, examID int64, set Set) error
	// Load returns the persisted set, or an empty set when none exists.
	Load(ctx context.Context, examID int64) (Set, error)
	// Clear erases the persisted set.
	Clear(ctx context.Context, examID int64) error
}

// StorageKey derives the persistence key from exam identity. Every backend
// routes through this one function so sets from different exams can never
// collide.
func StorageKey(examID int64) string {
	return fmt.Sprintf("exam:%d:answers", examID)
}
