package git

import "strings"

// ConflictedTrailer is the commit trailer key marking a commit as a
// conflicted commit (spec §4.4 "Conflicted-commit representation"):
// its tree follows the reserved .conflict-base-N / .conflict-side-0 /
// .conflict-side-1 / .auto-resolution layout rather than holding real
// content directly.
const ConflictedTrailer = "conflicted"

// WithConflictedTrailer appends the conflicted marker to a commit
// message, unless one is already present.
func WithConflictedTrailer(message string) string {
	if extractTrailer(message, ConflictedTrailer) != "" {
		return message
	}
	message = strings.TrimRight(message, "\n")
	return message + "\n\n" + ConflictedTrailer + ": true\n"
}

// IsConflicted reports whether a commit message carries the conflicted
// marker.
func IsConflicted(message string) bool {
	return extractTrailer(message, ConflictedTrailer) != ""
}
