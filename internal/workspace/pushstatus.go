package workspace

import (
	"go.gitbutler.dev/core/internal/graph"
)

// derivePushStatuses fills in PushStatus for every branch, from the
// already-classified commits of its segment (spec §3, §4.3). This is
// pure post-processing over graph.Project's output: it never talks to
// the repository again.
func derivePushStatuses(g *graph.Graph, targetRef string, stacks []Stack) {
	for si := range stacks {
		for bi := range stacks[si].Branches {
			b := &stacks[si].Branches[bi]
			if b.SegmentID == graph.NoID {
				continue
			}
			b.PushStatus = pushStatusFor(g.Segment(b.SegmentID), targetRef)
		}
	}
}

func pushStatusFor(seg *graph.Segment, targetRef string) PushStatus {
	if len(seg.Commits) == 0 {
		return NothingToPush
	}

	// A targetless workspace never reports Integrated (spec §9 Open
	// Question decision: degrade to remote-only classification).
	if targetRef != "" {
		allIntegrated := true
		for _, c := range seg.Commits {
			if c.State.Kind != graph.Integrated {
				allIntegrated = false
				break
			}
		}
		if allIntegrated {
			return Integrated
		}
	}

	if seg.RemoteRefName == "" {
		return CompletelyUnpushed
	}

	// If none of the branch's commits are recognized on the remote at
	// all, the remote-tracking branch's own commits were rewritten out
	// from under it (e.g. a local rebase): a plain push would be
	// rejected.
	hasRemoteMatch := false
	for _, c := range seg.Commits {
		if c.State.Kind == graph.LocalAndRemote || c.State.Kind == graph.Integrated {
			hasRemoteMatch = true
			break
		}
	}
	if !hasRemoteMatch {
		return UnpushedCommitsRequiringForce
	}

	for _, c := range seg.Commits {
		if c.State.Kind == graph.LocalOnly {
			return UnpushedCommits
		}
	}
	return NothingToPush
}
