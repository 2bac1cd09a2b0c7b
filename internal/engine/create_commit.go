package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/oplog"
	"go.gitbutler.dev/core/internal/workspace"
)

// CreateCommitRequest is the input to CreateCommit (spec §4.4 "Create
// commit").
type CreateCommitRequest struct {
	WorkspaceID uuid.UUID
	Branch      string

	// Parent, if set, is the commit the new commit is inserted above;
	// any commits currently above it in the branch are rebased on top
	// of the new commit. Defaults to the branch's current tip.
	Parent git.Hash

	Specs   []DiffSpec
	Message string
	Author  *git.Signature
}

// CreateCommitOutcome is the result of a successful CreateCommit call.
// Per-spec rejections are returned alongside a successful commit
// (spec §4.4 "specified hunk does not match ... rejection"), not as an
// error: the commit still happens with whatever specs did apply.
type CreateCommitOutcome struct {
	Workspace  *workspace.Workspace
	NewCommit  git.Hash
	Rejections []Rejection
}

// CreateCommit builds a new commit from the current worktree content
// and inserts it into branch, rebasing any commits already above the
// insertion point (spec §4.4 "Create commit").
func (e *Engine) CreateCommit(ctx context.Context, req CreateCommitRequest) (*CreateCommitOutcome, error) {
	t, err := e.begin(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	defer t.end()

	stack, seg, ok := findBranch(t.ws, req.Branch)
	if !ok {
		return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("branch %q not applied in workspace", req.Branch))
	}

	parent := req.Parent
	if parent == "" {
		parent = seg.TipHash()
	}
	if parent == "" {
		parent = seg.Base
	}

	parentTree, err := e.repo.PeelToTree(ctx, string(parent))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "resolve parent tree", err)
	}

	tree, rejections, err := applySpecs(ctx, e.repo, e.repo.RootDir(), parentTree, req.Specs)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "apply worktree changes", err)
	}

	message := req.Message
	if git.ChangeIDOf(message) == "" {
		message = git.WithChangeIDTrailer(message, git.NewChangeID())
	}

	before := seg.TipHash()
	newCommit, err := e.repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree: tree, Message: message, Parents: []git.Hash{parent}, Author: req.Author,
	})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "commit-tree", err)
	}

	// Find where parent sits in the segment: idx == len(seg.Commits)
	// means parent is the segment's Base (inserting below everything);
	// otherwise every commit above that index is a descendant that
	// must be rebased onto the new commit (spec §4.4 "if the new commit
	// sits underneath other commits of the stack, rebase those commits
	// on top").
	idx := len(seg.Commits)
	for i, c := range seg.Commits {
		if c.Hash == parent {
			idx = i
			break
		}
	}
	steps := descendantSteps(seg, idx)

	prospectiveTip, err := computeRebaseTip(ctx, e.repo, steps, newCommit)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindCommitConflict, "rebase descendants onto new commit", err)
	}

	// Re-merge the prospective new workspace state against every other
	// applied stack before moving anything: if it would conflict, the
	// specs are rejected wholesale and nothing about the workspace
	// changes (spec §4.4 "reject the new commit's specs with reason
	// WorkspaceMergeConflict"), leaving newCommit as an unreferenced,
	// harmless dangling object.
	conflicts, err := probeWorkspaceMergeConflict(ctx, e.repo, t.ws, stack.ID, prospectiveTip)
	if err != nil {
		return nil, err
	}
	if conflicts {
		rejections = rejections[:0:0]
		for _, spec := range req.Specs {
			rejections = append(rejections, Rejection{Spec: spec, Reason: coreerr.KindWorkspaceMergeConflict})
		}
		return &CreateCommitOutcome{Workspace: t.ws, NewCommit: git.ZeroHash, Rejections: rejections}, nil
	}

	if err := updateSegRef(ctx, e.repo, seg, prospectiveTip); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "update branch ref", err)
	}
	newTip := prospectiveTip

	if _, err := oplog.Append(ctx, e.repo, "", "create_commit", before, newTip); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "append oplog entry", err)
	}

	for _, spec := range req.Specs {
		applied := true
		for _, r := range rejections {
			if r.Spec.Path == spec.Path {
				applied = false
				break
			}
		}
		if applied {
			_ = e.assigns.Forget(ctx, spec.Path)
		}
	}

	ws, err := t.reproject(ctx)
	if err != nil {
		return nil, err
	}

	return &CreateCommitOutcome{Workspace: ws, NewCommit: newCommit, Rejections: rejections}, nil
}

// probeWorkspaceMergeConflict re-runs the same octopus merge used to
// synthesize the workspace commit (internal/workspace/project.go's
// synthesizeWorkspaceCommit), substituting newTip for ownStackID's
// current tip, and reports whether any step of that merge would
// conflict against another applied stack. It writes nothing; every
// MergeTree call is a probe.
func probeWorkspaceMergeConflict(ctx context.Context, repo *git.Repository, ws *workspace.Workspace, ownStackID uuid.UUID, newTip git.Hash) (bool, error) {
	tips := []git.Hash{newTip}
	for _, other := range ws.Stacks {
		if other.ID == ownStackID {
			continue
		}
		tipBranch, ok := other.Tip()
		if !ok {
			continue
		}
		tip := ws.Graph.Segment(tipBranch.SegmentID).TipHash()
		if tip == "" {
			continue
		}
		tips = append(tips, tip)
	}
	if len(tips) < 2 {
		return false, nil
	}

	ours := string(tips[0])
	for _, theirs := range tips[1:] {
		merged, err := repo.MergeTree(ctx, git.MergeTreeRequest{Ours: ours, Theirs: string(theirs)})
		if err != nil {
			var conflictErr *git.MergeTreeConflictError
			if errors.As(err, &conflictErr) {
				return true, nil
			}
			return false, coreerr.Wrap(coreerr.KindExternalFailure, "probe workspace merge", err)
		}
		ours = string(merged)
	}
	return false, nil
}
