package rebase

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/git"
)

// Step describes one commit to replay during a Sequence rebase; steps
// are supplied oldest first, in application order.
type Step struct {
	Hash git.Hash
}

// StepResult records how a single Step resolved.
type StepResult struct {
	Old     git.Hash
	New     git.Hash
	Kind    Kind
	Skipped bool
}

// Sequence replays a list of commits (oldest first) onto newBase,
// returning the new hash of each, and carries change-id trailers
// forward so downstream consumers can recognize identity across the
// rebase (spec §6 "change-id preservation").
//
// Steps must be supplied in application order: the first step's parent
// becomes newBase, and each subsequent step is picked onto the previous
// step's result.
func Sequence(ctx context.Context, repo *git.Repository, steps []Step, newBase git.Hash) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))
	onto := newBase

	for _, step := range steps {
		info, err := repo.ReadCommit(ctx, string(step.Hash))
		if err != nil {
			return results, fmt.Errorf("read commit %s: %w", step.Hash.Short(), err)
		}

		message := info.Message.String()
		if changeID := git.ChangeIDOf(message); changeID == "" {
			message = git.WithChangeIDTrailer(message, git.NewChangeID())
		}

		outcome, err := cherryPickWithMessage(ctx, repo, info, onto, message)
		if err != nil {
			return results, fmt.Errorf("pick %s onto %s: %w", step.Hash.Short(), onto.Short(), err)
		}

		results = append(results, StepResult{Old: step.Hash, New: outcome.Hash, Kind: outcome.Kind})
		onto = outcome.Hash
	}

	return results, nil
}

// cherryPickWithMessage is CherryPick's single-parent path, reused by
// Sequence so the rewritten message (carrying a change-id trailer) is
// committed instead of the original.
func cherryPickWithMessage(ctx context.Context, repo *git.Repository, info *git.CommitInfo, onto git.Hash, message string) (Outcome, error) {
	base := git.ZeroHash
	if len(info.Parents) > 0 {
		base = info.Parents[0]
	}

	ours, err := effectiveTreeOf(ctx, repo, onto)
	if err != nil {
		return Outcome{}, err
	}
	theirs, err := effectiveTree(ctx, repo, info)
	if err != nil {
		return Outcome{}, err
	}

	tree, mergeErr := repo.MergeTree(ctx, git.MergeTreeRequest{
		Base:   string(base),
		Ours:   ours,
		Theirs: theirs,
	})

	conflict, isConflict := asConflictError(mergeErr)
	if mergeErr != nil && !isConflict {
		return Outcome{}, fmt.Errorf("merge-tree: %w", mergeErr)
	}

	if !isConflict {
		commit, err := repo.CommitTree(ctx, git.CommitTreeRequest{
			Tree: tree, Message: message, Parents: []git.Hash{onto},
			Author: &info.Author, Committer: &info.Committer,
		})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeCommit, Hash: commit}, nil
	}

	conflictTree, err := buildConflictTree(ctx, repo, conflictInputs{
		bases: []git.Hash{base}, ours: onto, theirs: info.Hash, autoTree: tree, conflicts: conflict,
	})
	if err != nil {
		return Outcome{}, err
	}

	commit, err := repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree: conflictTree, Message: git.WithConflictedTrailer(message), Parents: []git.Hash{onto},
		Author: &info.Author, Committer: &info.Committer,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeConflictedCommit, Hash: commit}, nil
}
