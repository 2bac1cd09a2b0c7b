package engine

import (
	"context"

	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/graph"
	"go.gitbutler.dev/core/internal/rebase"
	"go.gitbutler.dev/core/internal/workspace"
)

// findBranch returns the stack and segment for a branch by name, or
// false if the workspace has no such branch applied.
func findBranch(ws *workspace.Workspace, branch string) (workspace.Stack, *graph.Segment, bool) {
	for _, stack := range ws.Stacks {
		for _, b := range stack.Branches {
			if b.Name == branch && b.SegmentID != graph.NoID {
				return stack, ws.Graph.Segment(b.SegmentID), true
			}
		}
	}
	return workspace.Stack{}, nil, false
}

// findCommit locates a commit within the workspace's graph, returning
// its owning segment and tip-first index within that segment.
func findCommit(ws *workspace.Workspace, hash git.Hash) (*graph.Segment, int, bool) {
	id, ok := ws.Graph.SegmentContaining(hash)
	if !ok {
		return nil, 0, false
	}
	seg := ws.Graph.Segment(id)
	for i, c := range seg.Commits {
		if c.Hash == hash {
			return seg, i, true
		}
	}
	return nil, 0, false
}

// descendantSteps returns the rebase steps, oldest first, needed to
// replay every commit above index idx in seg (tip-first) onto a new
// base. idx == len(seg.Commits) rebases the entire segment.
func descendantSteps(seg *graph.Segment, idx int) []rebase.Step {
	if idx <= 0 {
		return nil
	}
	steps := make([]rebase.Step, 0, idx)
	for i := idx - 1; i >= 0; i-- {
		steps = append(steps, rebase.Step{Hash: seg.Commits[i].Hash})
	}
	return steps
}

// rebaseOnto replays steps onto newBase and updates seg's ref to the
// resulting tip, returning the new tip hash. If steps is empty, newBase
// itself becomes the new tip.
func rebaseOnto(ctx context.Context, repo *git.Repository, seg *graph.Segment, steps []rebase.Step, newBase git.Hash) (git.Hash, error) {
	newTip, err := computeRebaseTip(ctx, repo, steps, newBase)
	if err != nil {
		return git.ZeroHash, err
	}
	return newTip, updateSegRef(ctx, repo, seg, newTip)
}

// computeRebaseTip is rebaseOnto without the ref update, for callers
// that need to know what the new tip would be before committing to it
// (e.g. probing for a workspace merge conflict first).
func computeRebaseTip(ctx context.Context, repo *git.Repository, steps []rebase.Step, newBase git.Hash) (git.Hash, error) {
	if len(steps) == 0 {
		return newBase, nil
	}
	results, err := rebase.Sequence(ctx, repo, steps, newBase)
	if err != nil {
		return git.ZeroHash, err
	}
	return results[len(results)-1].New, nil
}

func updateSegRef(ctx context.Context, repo *git.Repository, seg *graph.Segment, newTip git.Hash) error {
	if seg.RefName == "" {
		return nil
	}
	return repo.SetRef(ctx, git.SetRefRequest{Ref: seg.RefName, Hash: newTip, OldHash: seg.TipHash()})
}
