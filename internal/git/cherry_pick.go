package git

import (
	"context"
	"fmt"
)

// RenameBranchRequest renames a local branch.
type RenameBranchRequest struct {
	Old, New string
}

// RenameBranch renames a local branch ref.
func (r *Repository) RenameBranch(ctx context.Context, req RenameBranchRequest) error {
	if err := r.gitCmd(ctx, "branch", "-m", req.Old, req.New).Run(r.exec); err != nil {
		return fmt.Errorf("rename branch %s -> %s: %w", req.Old, req.New, err)
	}
	return nil
}

// BranchDeleteOptions configures DeleteBranch.
type BranchDeleteOptions struct {
	// Force deletes the branch even if it is not fully merged.
	Force bool
}

// DeleteBranch deletes a local branch ref.
func (r *Repository) DeleteBranch(ctx context.Context, name string, opts BranchDeleteOptions) error {
	flag := "-d"
	if opts.Force {
		flag = "-D"
	}
	if err := r.gitCmd(ctx, "branch", flag, name).Run(r.exec); err != nil {
		return fmt.Errorf("delete branch %s: %w", name, err)
	}
	return nil
}
