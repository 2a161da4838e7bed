// Package arena implements the materialization and scheduling engine:
// final-list materialization under the active policy, pair and task
// generation, atomic task claiming for concurrent raters, and judgment
// recording against shared counters.
package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTasks means no eligible task exists for the rater — global
	// completion from this rater's point of view. Distinct from
	// ErrCapacityExceeded.
	ErrNoTasks = errors.New("arena: no eligible tasks")

	// ErrCapacityExceeded means the rater hit its total cap. Terminal for
	// this rater, not system-wide.
	ErrCapacityExceeded = errors.New("arena: rater capacity exceeded")

	// ErrAlreadySubmitted rejects a duplicate submission against a
	// completed assignment.
	ErrAlreadySubmitted = errors.New("arena: judgment already submitted")

	// ErrConflict means a claim or counter update lost a race after
	// retries. Recoverable: the caller may simply ask again.
	ErrConflict = errors.New("arena: lost race")

	// ErrNotFound means a referenced task, assignment, pair or rater does
	// not exist.
	ErrNotFound = errors.New("arena: not found")

	// ErrNoActivePolicy means materialization or scheduling was attempted
	// with no active policy set.
	ErrNoActivePolicy = errors.New("arena: no active policy")
)

// ValidationError reports one malformed input item with field detail.
// Batch uploads apply all valid items and report the rest.
type ValidationError struct {
	Index int
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("item %d: %s: %s", e.Index, e.Field, e.Msg)
}
