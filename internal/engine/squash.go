package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/graph"
	"go.gitbutler.dev/core/internal/oplog"
	"go.gitbutler.dev/core/internal/rebase"
	"go.gitbutler.dev/core/internal/workspace"
)

// SquashRequest is the input to Squash (spec §4.4 "Squash").
type SquashRequest struct {
	WorkspaceID uuid.UUID
	// Sources are folded, in order, into Destination. All must live in
	// the same stack as Destination.
	Sources     []git.Hash
	Destination git.Hash
	Message     string
}

// SquashOutcome is the result of a successful Squash call.
type SquashOutcome struct {
	Workspace *workspace.Workspace
	NewCommit git.Hash
}

// Squash folds Sources into Destination, producing a single commit
// whose tree is Destination's post-image and whose parent is the
// earliest source commit's parent (spec §4.4 "Squash": "produce a
// single commit whose tree is the destination's post-image ... remove
// all sources; rebase descendants").
func (e *Engine) Squash(ctx context.Context, req SquashRequest) (*SquashOutcome, error) {
	if len(req.Sources) == 0 {
		return nil, coreerr.New(coreerr.KindValidationFailed, "squash requires at least one source commit")
	}

	t, err := e.begin(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	defer t.end()

	destSeg, destIdx, ok := findCommit(t.ws, req.Destination)
	if !ok {
		return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("destination commit %s not found in workspace", req.Destination.Short()))
	}

	// The earliest source, tip-first, has the largest index; its
	// original parent becomes the squashed commit's parent.
	minIdx := destIdx
	earliestIdx := destIdx
	for _, src := range req.Sources {
		seg, idx, ok := findCommit(t.ws, src)
		if !ok {
			return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("source commit %s not found in workspace", src.Short()))
		}
		if seg != destSeg {
			return nil, coreerr.New(coreerr.KindValidationFailed, "squash sources must be in the same stack as the destination")
		}
		if idx < minIdx {
			minIdx = idx
		}
		if idx > earliestIdx {
			earliestIdx = idx
		}
	}

	earliest := destSeg.Commits[earliestIdx]
	if len(earliest.Parents) > 1 {
		return nil, coreerr.New(coreerr.KindValidationFailed, "cannot squash a merge commit")
	}
	newParent := destSeg.Base
	if len(earliest.Parents) == 1 {
		newParent = earliest.Parents[0]
	}

	destInfo, err := e.repo.ReadCommit(ctx, string(req.Destination))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "read destination commit", err)
	}
	destTree, err := e.repo.PeelToTree(ctx, string(req.Destination))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "resolve destination tree", err)
	}

	message := req.Message
	if message == "" {
		message = destInfo.Message.String()
	}
	if git.ChangeIDOf(message) == "" {
		message = git.WithChangeIDTrailer(message, git.NewChangeID())
	}

	newCommit, err := e.repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree: destTree, Message: message, Parents: []git.Hash{newParent},
		Author: &destInfo.Author,
	})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "commit-tree", err)
	}

	steps := rebuildAboveSquash(destSeg, minIdx, req.Sources, req.Destination)

	before := destSeg.TipHash()
	newTip, err := rebaseOnto(ctx, e.repo, destSeg, steps, newCommit)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindCommitConflict, "rebase descendants onto squashed commit", err)
	}

	if _, err := oplog.Append(ctx, e.repo, "", "squash", before, newTip); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "append oplog entry", err)
	}

	ws, err := t.reproject(ctx)
	if err != nil {
		return nil, err
	}
	return &SquashOutcome{Workspace: ws, NewCommit: newCommit}, nil
}

// rebuildAboveSquash returns the rebase steps, oldest first, for every
// commit above minIdx in seg excluding the sources and destination
// themselves (those are replaced wholesale by the squashed commit).
func rebuildAboveSquash(seg *graph.Segment, minIdx int, sources []git.Hash, dest git.Hash) []rebase.Step {
	folded := make(map[git.Hash]bool, len(sources)+1)
	for _, s := range sources {
		folded[s] = true
	}
	folded[dest] = true

	var steps []rebase.Step
	for i := minIdx - 1; i >= 0; i-- {
		c := seg.Commits[i]
		if folded[c.Hash] {
			continue
		}
		steps = append(steps, rebase.Step{Hash: c.Hash})
	}
	return steps
}
