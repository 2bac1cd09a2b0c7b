// Package graph implements the commit-graph projection (spec §4.2): it
// walks a repository's DAG from an entrypoint and partitions it into
// named, linearly-ordered segments, classifying every commit relative
// to its remote-tracking branch and the integration target.
package graph

import (
	"go.gitbutler.dev/core/internal/git"
)

// Classification is a commit's relationship to its remote-tracking
// branch and the integration target (spec §3 "Commit classification").
type Classification int

// Recognized classifications. Integrated dominates LocalAndRemote: a
// commit that has landed on target is reported as Integrated even if it
// is also present, unchanged, on the segment's own remote branch.
const (
	LocalOnly Classification = iota
	LocalAndRemote
	Integrated
)

func (c Classification) String() string {
	switch c {
	case LocalOnly:
		return "local-only"
	case LocalAndRemote:
		return "local-and-remote"
	case Integrated:
		return "integrated"
	default:
		return "unknown"
	}
}

// CommitState is the classification of a single commit plus the extra
// identifier each non-trivial classification carries.
type CommitState struct {
	Kind Classification

	// RemoteCommit is set when Kind == LocalAndRemote: the commit on the
	// segment's remote-tracking branch recognized as the same change.
	RemoteCommit git.Hash

	// ContainerCommit is set when Kind == Integrated: the commit on the
	// target branch recognized as the same change (spec §3: "the second
	// carries the *remote* id because the local commit may have been
	// rebased").
	ContainerCommit git.Hash
}

// Commit is a single commit as seen by the projection, decorated with
// its classification.
type Commit struct {
	Hash      git.Hash
	Parents   []git.Hash
	ChangeID  string
	Message   git.CommitMessage
	Author    git.Signature
	Committer git.Signature
	State     CommitState
}

// ID identifies a Segment within a single Graph. IDs are only valid for
// the Graph that produced them.
type ID int

// NoID is the zero value of ID, used where a Segment reference is
// optional (e.g. a segment with no sibling).
const NoID ID = -1

// Segment is a maximal run of commits along a first-parent walk that
// share a single naming reference at the tip (spec §3 "Segment").
type Segment struct {
	id ID

	// RefName is the fully-qualified local ref naming this segment's
	// tip, or "" if the segment is anonymous (e.g. the synthetic
	// workspace merge segment, or a segment between two named refs that
	// was never closed by a ref boundary).
	RefName string

	// RemoteRefName is the remote-tracking ref associated with RefName,
	// or "" if none is configured.
	RemoteRefName string

	// Commits holds the segment's commits, tip first.
	Commits []Commit

	// Base is the hash of the parent of the segment's last commit: the
	// commit the next segment down begins at. It is the zero hash if
	// the segment's last commit is a root commit.
	Base git.Hash

	// BaseSegment is the segment reached by continuing the first-parent
	// walk past Base, or NoID if the walk stopped there (the target's tip
	// commit, hard limit, or a root commit).
	BaseSegment ID

	// MergeParents holds, for a segment whose first commit is a merge,
	// the segments of the non-first-parent sides. First-parent ancestry
	// continues through BaseSegment as normal.
	MergeParents []ID

	// Sibling points to another segment that shares this segment's
	// commits because more than one ref resolves to the same history
	// (spec §3 invariant: never duplicate commits across segments of the
	// same stack; record the fact via a sibling pointer instead).
	Sibling ID

	IsEntrypoint       bool
	IsWorkspaceSegment bool

	// Partial marks a segment whose last commit has parents that were
	// never visited because traversal was cut off by a hard limit
	// (spec §4.2 walk rule 5).
	Partial bool
}

// ID reports the segment's identity within its Graph.
func (s *Segment) ID() ID { return s.id }

// Tip returns the segment's first (topmost) commit, or a zero Commit if
// the segment is empty.
func (s *Segment) Tip() (Commit, bool) {
	if len(s.Commits) == 0 {
		return Commit{}, false
	}
	return s.Commits[0], true
}

// TipHash returns the hash of the segment's tip commit, or "" if the
// segment is empty.
func (s *Segment) TipHash() git.Hash {
	if c, ok := s.Tip(); ok {
		return c.Hash
	}
	return ""
}
