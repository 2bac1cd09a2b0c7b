// Package rebase implements the single-commit cherry-pick/rebase
// primitive every mutation (spec §4.4 "reproject with overlay") is
// ultimately built on top of: take a commit, move it onto a new set of
// parents, and represent the result — clean, conflicted, or a no-op —
// as a tree the rest of the engine can reason about uniformly.
package rebase

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/git"
)

// OutcomeKind distinguishes the three shapes a cherry-pick can produce
// (grounded on the original implementation's CherryPickOutcome enum:
// Commit / ConflictedCommit / Identity).
type OutcomeKind int

const (
	// OutcomeCommit means the pick applied cleanly; Hash is a new,
	// unconflicted commit.
	OutcomeCommit OutcomeKind = iota

	// OutcomeConflictedCommit means the pick produced conflicts; Hash is
	// a commit whose tree is the reserved conflicted-commit
	// representation (spec §4.4), not the content it appears to have.
	OutcomeConflictedCommit

	// OutcomeIdentity means the commit is already exactly where it
	// would land (its current parents already equal the requested
	// parents): Hash is the original, untouched commit.
	OutcomeIdentity
)

// Outcome is the result of a single CherryPick.
type Outcome struct {
	Kind Kind
	Hash git.Hash
}

// Kind is an alias kept for readability at call sites
// (rebase.Outcome{Kind: rebase.OutcomeCommit, ...}).
type Kind = OutcomeKind

// Reserved paths within a conflicted-commit tree (spec §4.4; confirmed
// against the original implementation's cherry-pick test fixtures).
const (
	ConflictFilesPath = ".conflict-files"
	AutoResolutionDir = ".auto-resolution"
	ReadmePath        = "README.txt"
)

// ConflictBaseDir returns the reserved subtree path for the nth merge
// base of a conflicted commit (most commits have exactly one: index 0).
func ConflictBaseDir(n int) string {
	return fmt.Sprintf(".conflict-base-%d", n)
}

// ConflictSideDir returns the reserved subtree path for one side of a
// conflicted merge: side 0 is "ours" (the destination Q0's tree), side
// 1 is "theirs" (the commit being picked's tree) — spec §4.6 step 3:
// "ours = tree of Q0 ... theirs = tree of C".
func ConflictSideDir(side int) string {
	return fmt.Sprintf(".conflict-side-%d", side)
}

const conflictReadmeBody = "You have checked out a GitButler Conflicted commit. " +
	"You probably didn't mean to do this.\n"

// CherryPick moves the commit at target onto newParents, preserving its
// message (with change-id trailer carried forward) and authorship.
//
//   - If target's current parents already equal newParents, CherryPick
//     returns OutcomeIdentity with target's own hash unchanged.
//   - If the merge applies without conflicts, it returns OutcomeCommit
//     with a freshly created commit.
//   - If the merge leaves conflicts, it returns OutcomeConflictedCommit
//     with a commit whose tree is the reserved conflicted-commit layout:
//     one ".conflict-base-N" subtree per base, ".conflict-side-0"
//     (ours) and ".conflict-side-1" (theirs), ".auto-resolution" (the
//     best-effort merged tree), a ".conflict-files" TOML manifest
//     listing which paths are unresolved on which side, and a
//     informational README.txt.
func CherryPick(ctx context.Context, repo *git.Repository, target git.Hash, newParents []git.Hash) (Outcome, error) {
	if len(newParents) == 0 {
		return Outcome{}, fmt.Errorf("cherry-pick %s: at least one parent required", target.Short())
	}

	info, err := repo.ReadCommit(ctx, string(target))
	if err != nil {
		return Outcome{}, fmt.Errorf("read commit %s: %w", target.Short(), err)
	}

	if sameParents(info.Parents, newParents) {
		return Outcome{Kind: OutcomeIdentity, Hash: target}, nil
	}

	if len(newParents) == 1 && len(info.Parents) >= 1 {
		return cherryPickOntoSingle(ctx, repo, info, newParents[0])
	}
	return cherryPickOntoMultiple(ctx, repo, info, newParents)
}

func sameParents(a, b []git.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// cherryPickOntoSingle handles the common case of moving a
// (non-merge-aware) commit onto a single new parent, using the
// commit's first parent as the merge base.
func cherryPickOntoSingle(ctx context.Context, repo *git.Repository, info *git.CommitInfo, onto git.Hash) (Outcome, error) {
	base := info.Parents[0]

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

	var conflict *git.MergeTreeConflictError
	if mergeErr != nil {
		var ok bool
		conflict, ok = asConflictError(mergeErr)
		if !ok {
			return Outcome{}, fmt.Errorf("merge-tree: %w", mergeErr)
		}
	}

	if conflict == nil {
		commit, err := commitAs(ctx, repo, info, info.Message.String(), tree, []git.Hash{onto})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeCommit, Hash: commit}, nil
	}

	conflictTree, err := buildConflictTree(ctx, repo, conflictInputs{
		bases:     []git.Hash{base},
		ours:      onto,
		theirs:    info.Hash,
		autoTree:  tree,
		conflicts: conflict,
	})
	if err != nil {
		return Outcome{}, err
	}

	commit, err := commitAs(ctx, repo, info, git.WithConflictedTrailer(info.Message.String()), conflictTree, []git.Hash{onto})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeConflictedCommit, Hash: commit}, nil
}

// cherryPickOntoMultiple handles re-parenting a commit onto several new
// parents at once (e.g. re-homing a merge commit). The merge base is
// that of the commit's first own parent and the first new parent; the
// other parents are not considered.
func cherryPickOntoMultiple(ctx context.Context, repo *git.Repository, info *git.CommitInfo, newParents []git.Hash) (Outcome, error) {
	onto := newParents[0]
	var base git.Hash
	if len(info.Parents) > 0 {
		b, err := repo.MergeBase(ctx, string(info.Parents[0]), string(onto))
		if err == nil {
			base = b
		}
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
		commit, err := commitAs(ctx, repo, info, info.Message.String(), tree, newParents)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeCommit, Hash: commit}, nil
	}

	conflictTree, err := buildConflictTree(ctx, repo, conflictInputs{
		bases:     []git.Hash{base},
		ours:      onto,
		theirs:    info.Hash,
		autoTree:  tree,
		conflicts: conflict,
	})
	if err != nil {
		return Outcome{}, err
	}

	commit, err := commitAs(ctx, repo, info, git.WithConflictedTrailer(info.Message.String()), conflictTree, newParents)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeConflictedCommit, Hash: commit}, nil
}

func commitAs(ctx context.Context, repo *git.Repository, info *git.CommitInfo, message string, tree git.Hash, parents []git.Hash) (git.Hash, error) {
	return repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:      tree,
		Message:   message,
		Parents:   parents,
		Author:    &info.Author,
		Committer: &info.Committer,
	})
}

func asConflictError(err error) (*git.MergeTreeConflictError, bool) {
	if err == nil {
		return nil, false
	}
	ce, ok := err.(*git.MergeTreeConflictError)
	return ce, ok
}

// effectiveTree resolves the tree-ish MergeTree should use to stand in
// for a commit on one side of a three-way merge. A conflicted commit's
// own tree is the reserved representation, not real content, so its
// .auto-resolution subtree is used instead (spec §4.4: "the
// auto-resolution tree is used for further merges"); MergeTree accepts
// a bare tree hash just as it does a commit-ish.
func effectiveTree(ctx context.Context, repo *git.Repository, info *git.CommitInfo) (string, error) {
	if !git.IsConflicted(info.Message.String()) {
		return string(info.Hash), nil
	}
	tree, err := repo.HashAt(ctx, string(info.Hash), AutoResolutionDir)
	if err != nil {
		return "", fmt.Errorf("resolve auto-resolution tree of %s: %w", info.Hash.Short(), err)
	}
	return string(tree), nil
}

// effectiveTreeOf is effectiveTree for a hash not already read into a
// *git.CommitInfo.
func effectiveTreeOf(ctx context.Context, repo *git.Repository, hash git.Hash) (string, error) {
	info, err := repo.ReadCommit(ctx, string(hash))
	if err != nil {
		return "", fmt.Errorf("read commit %s: %w", hash.Short(), err)
	}
	return effectiveTree(ctx, repo, info)
}
