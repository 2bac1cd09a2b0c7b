package git

import (
	"context"
	"fmt"
	"strings"
)

// SetRefRequest is a request to atomically update a ref.
type SetRefRequest struct {
	// Ref is the fully-qualified name of the ref to update
	// (e.g. "refs/heads/foo").
	Ref string

	// Hash is the new value of the ref. Set to ZeroHash to delete it.
	Hash Hash

	// OldHash, if set, is the expected current value of the ref. The
	// update is rejected if the ref does not currently hold this value,
	// giving the core's reference-transaction ordering guarantee
	// (spec §5) a compare-and-swap primitive.
	OldHash Hash
}

// SetRef changes the value of a ref, optionally gated on its previous
// value, using a single-ref reference transaction.
func (r *Repository) SetRef(ctx context.Context, req SetRefRequest) error {
	args := []string{"update-ref", req.Ref, string(req.Hash)}
	if req.OldHash != "" {
		args = append(args, string(req.OldHash))
	}
	if err := r.gitCmd(ctx, args...).Run(r.exec); err != nil {
		return fmt.Errorf("update-ref %s: %w", req.Ref, err)
	}
	return nil
}

// DeleteRef removes a ref.
func (r *Repository) DeleteRef(ctx context.Context, ref string) error {
	if err := r.gitCmd(ctx, "update-ref", "-d", ref).Run(r.exec); err != nil {
		return fmt.Errorf("update-ref -d %s: %w", ref, err)
	}
	return nil
}

// RefExists reports whether the given fully-qualified ref currently
// resolves to an object.
func (r *Repository) RefExists(ctx context.Context, ref string) bool {
	_, err := r.revParse(ctx, ref)
	return err == nil
}

// LocalBranch describes a local branch ref.
type LocalBranch struct {
	Name string // short name, e.g. "main"
	Head Hash
}

// LocalBranches lists all local branch refs.
func (r *Repository) LocalBranches(ctx context.Context) ([]LocalBranch, error) {
	out, err := r.gitCmd(ctx,
		"for-each-ref", "--format=%(refname:short)%00%(objectname)", "refs/heads/",
	).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("for-each-ref: %w", err)
	}
	if out == "" {
		return nil, nil
	}

	var branches []LocalBranch
	for _, line := range splitLines(out) {
		name, hash, ok := strings.Cut(line, "\x00")
		if !ok {
			continue
		}
		branches = append(branches, LocalBranch{Name: name, Head: Hash(hash)})
	}
	return branches, nil
}

// RemoteBranches lists all remote-tracking branches for the given
// remote (short form, without the "refs/remotes/<remote>/" prefix).
func (r *Repository) RemoteBranches(ctx context.Context, remote string) ([]LocalBranch, error) {
	out, err := r.gitCmd(ctx,
		"for-each-ref", "--format=%(refname:short)%00%(objectname)", "refs/remotes/"+remote+"/",
	).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("for-each-ref: %w", err)
	}
	if out == "" {
		return nil, nil
	}

	prefix := remote + "/"
	var branches []LocalBranch
	for _, line := range splitLines(out) {
		name, hash, ok := strings.Cut(line, "\x00")
		if !ok {
			continue
		}
		branches = append(branches, LocalBranch{
			Name: strings.TrimPrefix(name, prefix),
			Head: Hash(hash),
		})
	}
	return branches, nil
}

// CurrentBranch returns the short name of the branch checked out in the
// repository's worktree, or ErrNotExist if HEAD is detached.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.gitCmd(ctx, "symbolic-ref", "--short", "HEAD").OutputString(r.exec)
	if err != nil {
		return "", ErrNotExist
	}
	return out, nil
}

// DefaultBranch reports the default branch of a remote, as recorded by
// the remote's HEAD symref (populated by `git remote set-head`/clone).
func (r *Repository) DefaultBranch(ctx context.Context, remote string) (string, error) {
	ref, err := r.gitCmd(ctx, "symbolic-ref", "--short", "refs/remotes/"+remote+"/HEAD").
		OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("symbolic-ref: %w", err)
	}
	return strings.TrimPrefix(ref, remote+"/"), nil
}

// CheckRefFormat reports whether name is a legal ref name component when
// appended to "refs/heads/", per `git check-ref-format`.
func (r *Repository) CheckRefFormat(ctx context.Context, name string) bool {
	return r.gitCmd(ctx, "check-ref-format", "--branch", name).Run(r.exec) == nil
}
