package git

import (
	"strings"

	"github.com/google/uuid"
)

// ChangeIDTrailer is the commit trailer key the core uses to track a
// commit's identity across rebases and cherry-picks (spec §3, §6).
const ChangeIDTrailer = "change-id"

// NewChangeID generates a fresh, opaque change id.
func NewChangeID() string {
	return uuid.NewString()
}

// WithChangeIDTrailer appends a change-id trailer to a commit message,
// unless one is already present.
func WithChangeIDTrailer(message, changeID string) string {
	if extractTrailer(message, ChangeIDTrailer) != "" {
		return message
	}
	message = strings.TrimRight(message, "\n")
	return message + "\n\n" + ChangeIDTrailer + ": " + changeID + "\n"
}

// ChangeIDOf extracts the change-id trailer from a commit message, or
// the empty string if none is present.
func ChangeIDOf(message string) string {
	return extractTrailer(message, ChangeIDTrailer)
}
