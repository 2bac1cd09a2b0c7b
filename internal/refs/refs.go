// Package refs validates reference names proposed by the mutation
// engine against both Git's own naming rules and the core's metadata
// store, so a CreateReference or RenameBranch never collides with an
// existing physical ref or a tracked-but-unborn one (spec §4.3, C7).
package refs

import (
	"context"
	"fmt"
	"strings"

	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/meta"
)

// Reserved name components that would collide with the conflicted-
// commit tree representation (spec §4.4) if used as a branch's literal
// worktree path; kept here because reference validation is the natural
// choke point to reject them.
var reservedPrefixes = []string{".conflict-", ".auto-resolution", ".conflict-files"}

// Checker validates proposed reference names against a repository and
// its metadata store.
type Checker struct {
	repo  *git.Repository
	store *meta.Store
}

// NewChecker builds a Checker bound to a repository and its metadata
// store.
func NewChecker(repo *git.Repository, store *meta.Store) *Checker {
	return &Checker{repo: repo, store: store}
}

// ValidateName checks that name is a legal, available branch short
// name: syntactically legal per Git's own rules, not already a local
// branch, not already tracked in the metadata store, and not equal to the workspace's own target ref (spec §4.7:
// a stack branch can never shadow the branch the workspace integrates
// onto). targetRef is the owning workspace's configured target ref
// (short name or fully-qualified, e.g. "main" or "refs/heads/main");
// pass "" when no workspace context applies.
func (c *Checker) ValidateName(ctx context.Context, name, targetRef string) error {
	if name == "" {
		return coreerr.New(coreerr.KindValidationFailed, "reference name must not be empty")
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return coreerr.New(coreerr.KindValidationFailed,
				fmt.Sprintf("reference name %q collides with the conflicted-commit tree layout", name))
		}
	}
	if !c.repo.CheckRefFormat(ctx, name) {
		return coreerr.New(coreerr.KindValidationFailed, fmt.Sprintf("illegal reference name: %q", name))
	}
	if short := strings.TrimPrefix(targetRef, "refs/heads/"); short != "" && name == short {
		return coreerr.New(coreerr.KindValidationFailed,
			fmt.Sprintf("reference name %q collides with the workspace's target branch", name))
	}

	if c.repo.RefExists(ctx, "refs/heads/"+name) {
		return coreerr.New(coreerr.KindPreconditionViolated, fmt.Sprintf("branch %q already exists", name))
	}

	if _, err := c.store.GetBranch(ctx, name); err == nil {
		return coreerr.New(coreerr.KindPreconditionViolated,
			fmt.Sprintf("branch %q is already tracked in the metadata store", name))
	} else if err != meta.ErrNotExist {
		return coreerr.Wrap(coreerr.KindExternalFailure, "query metadata store", err)
	}

	return nil
}
