// Package assign implements the worktree change assignment store
// (spec §4.5, C5): the mapping from a hunk in the uncommitted working
// tree to the stack it should be committed into, tracked independently
// of line numbers so that unrelated edits elsewhere in the file don't
// invalidate an assignment.
package assign

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.gitbutler.dev/core/internal/git"
)

// ContextLines is how many lines of unchanged context around a hunk
// contribute to its fingerprint.
const ContextLines = 3

// Locator identifies a hunk in a way that survives small shifts
// elsewhere in the file: the file path plus a content fingerprint of
// the hunk's changed lines and immediate context, rather than its line
// numbers.
type Locator struct {
	Path        string
	Header      git.HunkHeader
	Fingerprint uint64
}

// NewLocator derives a Locator from a parsed hunk.
func NewLocator(path string, hunk git.Hunk) Locator {
	return Locator{
		Path:        path,
		Header:      hunk.Header,
		Fingerprint: Fingerprint(hunk.Lines),
	}
}

// Fingerprint hashes a hunk's content lines (including the leading
// +/-/space marker, so context and changed lines are distinguished)
// into a single value stable across line-number shifts.
func Fingerprint(lines []string) uint64 {
	h := xxhash.New()
	for _, line := range lines {
		_, _ = h.WriteString(line)
		_, _ = h.WriteString("\n")
	}
	return h.Sum64()
}

// Matches reports whether two locators refer to what is plausibly the
// same logical hunk: same path and fingerprint (an exact content
// match), regardless of where the hunk now sits in the file.
func (l Locator) Matches(other Locator) bool {
	return l.Path == other.Path && l.Fingerprint == other.Fingerprint
}

// SamePath reports whether two locators are in the same file, ignoring
// content.
func (l Locator) SamePath(other Locator) bool {
	return l.Path == other.Path
}

// overlaps reports whether two hunk headers address overlapping line
// ranges on the "new" side, used to rank fallback candidates by
// proximity when no content fingerprint matches.
func overlaps(a, b git.HunkHeader) bool {
	aEnd := a.NewStart + max(a.NewLines, 1)
	bEnd := b.NewStart + max(b.NewLines, 1)
	return a.NewStart < bEnd && b.NewStart < aEnd
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func distance(a, b git.HunkHeader) int {
	d := a.NewStart - b.NewStart
	if d < 0 {
		return -d
	}
	return d
}

func normalizePath(p string) string {
	return strings.TrimPrefix(p, "./")
}
