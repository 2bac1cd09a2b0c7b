package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/assign"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/oplog"
	"go.gitbutler.dev/core/internal/workspace"
)

// UndoCommitRequest is the input to UndoCommit (spec §4.4 "Undo
// commit").
type UndoCommitRequest struct {
	WorkspaceID uuid.UUID
	Branch      string
}

// UndoCommitOutcome is the result of a successful UndoCommit call.
type UndoCommitOutcome struct {
	Workspace *workspace.Workspace
	// RestoredPaths lists the worktree files the removed commit's
	// changes were written back into.
	RestoredPaths []string
}

// UndoCommit removes the topmost commit of a stack, moving its changes
// back into the worktree and re-assigning them to that stack (spec
// §4.4 "Undo commit": "remove the topmost commit of a stack; move its
// changes back into the worktree and into the assignment store against
// that stack").
func (e *Engine) UndoCommit(ctx context.Context, req UndoCommitRequest) (*UndoCommitOutcome, error) {
	t, err := e.begin(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	defer t.end()

	stack, seg, ok := findBranch(t.ws, req.Branch)
	if !ok {
		return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("branch %q not applied in workspace", req.Branch))
	}
	if len(seg.Commits) == 0 {
		return nil, coreerr.New(coreerr.KindPreconditionViolated, fmt.Sprintf("branch %q has no commits to undo", req.Branch))
	}

	removed := seg.Commits[0]
	newTip := seg.Base
	if len(removed.Parents) == 1 {
		newTip = removed.Parents[0]
	} else if len(removed.Parents) > 1 {
		return nil, coreerr.New(coreerr.KindValidationFailed, "cannot undo a merge commit")
	}

	parentTree, err := e.repo.PeelToTree(ctx, string(newTip))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "resolve parent tree", err)
	}
	removedTree, err := e.repo.PeelToTree(ctx, string(removed.Hash))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "resolve removed commit tree", err)
	}

	diffs, err := e.repo.TreeDiff(ctx, string(parentTree), string(removedTree), git.DiffWorktreeOptions{})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "diff removed commit against its parent", err)
	}

	restored := make([]string, 0, len(diffs))
	for _, fd := range diffs {
		if err := restoreFile(ctx, e.repo, removedTree, fd); err != nil {
			return nil, coreerr.Wrap(coreerr.KindExternalFailure, fmt.Sprintf("restore %s", fd.Path), err)
		}
		restored = append(restored, fd.Path)
		for _, h := range fd.Hunks {
			loc := assign.NewLocator(fd.Path, h)
			if err := e.assigns.Reassign(ctx, loc, stack.ID); err != nil {
				return nil, coreerr.Wrap(coreerr.KindExternalFailure, "reassign restored hunk", err)
			}
		}
	}

	if err := updateSegRef(ctx, e.repo, seg, newTip); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "move branch ref past undone commit", err)
	}

	if _, err := oplog.Append(ctx, e.repo, "", "undo_commit", removed.Hash, newTip); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "append oplog entry", err)
	}

	ws, err := t.reproject(ctx)
	if err != nil {
		return nil, err
	}
	return &UndoCommitOutcome{Workspace: ws, RestoredPaths: restored}, nil
}

func restoreFile(ctx context.Context, repo *git.Repository, removedTree git.Hash, fd git.FileDiff) error {
	hash, err := repo.HashAt(ctx, string(removedTree), fd.Path)
	if err != nil {
		// The file was deleted by the removed commit; nothing to write
		// back, the parent's version is already what Git tracked.
		return nil
	}
	content, err := repo.ReadObjectString(ctx, git.BlobType, hash)
	if err != nil {
		return err
	}
	dst := filepath.Join(repo.RootDir(), fd.Path)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte(content), 0o644)
}
