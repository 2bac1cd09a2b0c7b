// Package coreerr defines the typed error taxonomy every mutation-engine
// operation reports through (spec §7). Callers use errors.As to branch
// on category; every error also carries a human-readable message for
// display.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure reported by the mutation engine.
type Kind int

const (
	// KindPreconditionViolated means the operation's preconditions were
	// not met against the current projected state (e.g. applying a
	// stack that is already applied).
	KindPreconditionViolated Kind = iota

	// KindValidationFailed means caller-supplied input failed a static
	// check (e.g. an illegal reference name).
	KindValidationFailed

	// KindHunkMismatch means a DiffSpec named a path or hunk header that
	// does not match the current worktree diff.
	KindHunkMismatch

	// KindWorkspaceMergeConflict means re-deriving the workspace commit
	// after a mutation produced conflicts among applied stacks.
	KindWorkspaceMergeConflict

	// KindCommitConflict means a single mutation (cherry-pick, rebase
	// step) produced a conflicted commit.
	KindCommitConflict

	// KindFailedToMergeBases means the engine could not compute a usable
	// merge base for a workspace with more than one candidate.
	KindFailedToMergeBases

	// KindNotFound means a referenced commit, stack, or branch does not
	// exist in the current projection.
	KindNotFound

	// KindIntegrityFault means an invariant the engine relies on did not
	// hold (e.g. a reference moved underneath a transaction). Indicates
	// a bug or concurrent external mutation, not a user error.
	KindIntegrityFault

	// KindExternalFailure means an underlying Git or storage operation
	// failed for reasons outside the engine's model (disk full, Git
	// subprocess crashed).
	KindExternalFailure
)

func (k Kind) String() string {
	switch k {
	case KindPreconditionViolated:
		return "precondition_violated"
	case KindValidationFailed:
		return "validation_failed"
	case KindHunkMismatch:
		return "hunk_mismatch"
	case KindWorkspaceMergeConflict:
		return "workspace_merge_conflict"
	case KindCommitConflict:
		return "commit_conflict"
	case KindFailedToMergeBases:
		return "failed_to_merge_bases"
	case KindNotFound:
		return "not_found"
	case KindIntegrityFault:
		return "integrity_fault"
	case KindExternalFailure:
		return "external_failure"
	default:
		return "unknown"
	}
}

// Error is the concrete error type every typed failure in the engine
// wraps itself in.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports equality by Kind, so errors.Is(err, coreerr.New(KindNotFound, "")) works
// as a category test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error that chains an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Of extracts the Kind of err if it is (or wraps) a *Error, reporting
// ok=false otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
