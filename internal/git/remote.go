package git

import (
	"context"
	"fmt"
	"strings"
)

// ListRemotes returns the names of all known remotes.
func (r *Repository) ListRemotes(ctx context.Context) ([]string, error) {
	out, err := r.gitCmd(ctx, "remote").OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("git remote: %w", err)
	}
	if out == "" {
		return nil, nil
	}
	return splitLines(out), nil
}

// RemoteDefaultBranch is an alias of DefaultBranch kept for interface
// parity with callers that refer to "remote's default branch" rather
// than a raw symbolic ref lookup.
func (r *Repository) RemoteDefaultBranch(ctx context.Context, remote string) (string, error) {
	return r.DefaultBranch(ctx, remote)
}

// FetchResult is the outcome of a Fetch operation: which remote-tracking
// refs moved, and from/to where.
type FetchResult struct {
	Updated map[string]struct{ Old, New Hash }
}

// Fetch updates a remote's tracking refs. It never modifies local
// branches, matching the external collaborator contract in spec §6.
func (r *Repository) Fetch(ctx context.Context, remote string) (*FetchResult, error) {
	out, err := r.gitCmd(ctx, "fetch", "--prune", "--porcelain", remote).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("git fetch %s: %w", remote, err)
	}

	res := &FetchResult{Updated: map[string]struct{ Old, New Hash }{}}
	for _, line := range splitLines(out) {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		// porcelain format: <flag> <old-oid> <new-oid> <local-ref> <remote-ref>
		oldH, newH, ref := fields[1], fields[2], fields[3]
		res.Updated[ref] = struct{ Old, New Hash }{Hash(oldH), Hash(newH)}
	}
	return res, nil
}

// PushRef is a single (local ref, force) pair for a push operation.
type PushRef struct {
	LocalRef string
	Force    bool
}

// PushResult reports per-ref push outcomes.
type PushResult struct {
	// Failed maps local ref name to the failure reason reported by Git.
	Failed map[string]string
}

// Push pushes a batch of refs to a remote. Each ref either succeeds or
// is reported individually in Failed; Push itself only errors for
// transport-level failures that abort the whole operation (matching the
// ExternalFailure error kind in spec §7).
func (r *Repository) Push(ctx context.Context, remote string, refs []PushRef) (*PushResult, error) {
	if len(refs) == 0 {
		return &PushResult{}, nil
	}

	args := []string{"push", "--porcelain", remote}
	for _, ref := range refs {
		spec := ref.LocalRef
		if ref.Force {
			spec = "+" + spec
		}
		args = append(args, spec)
	}

	out, runErr := r.gitCmd(ctx, args...).OutputString(r.exec)
	res := &PushResult{Failed: map[string]string{}}

	for _, line := range splitLines(out) {
		if !strings.HasPrefix(line, "!\t") {
			continue
		}
		fields := strings.SplitN(strings.TrimPrefix(line, "!\t"), "\t", 2)
		if len(fields) != 2 {
			continue
		}
		localRemote, reason := fields[0], fields[1]
		local, _, _ := strings.Cut(localRemote, ":")
		res.Failed[local] = reason
	}

	if runErr != nil && len(res.Failed) == 0 {
		// The command failed for a reason the porcelain lines didn't
		// capture (e.g. network/auth failure) -- surface it verbatim.
		return nil, fmt.Errorf("git push %s: %w", remote, runErr)
	}

	return res, nil
}
