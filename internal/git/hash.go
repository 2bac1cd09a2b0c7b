package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotExist is returned when a Git object or ref does not exist.
var ErrNotExist = errors.New("does not exist")

// Hash is a Git object id, hex encoded. It is valid for either a 20-byte
// (SHA-1) or 32-byte (SHA-256) object hash; the core never assumes a
// fixed width.
type Hash string

// ZeroHash represents the absence of a hash (e.g. the "old" side of a ref
// update that is being created for the first time).
const ZeroHash Hash = ""

func (h Hash) String() string { return string(h) }

// LogValue reports how the hash should be logged.
func (h Hash) LogValue() slog.Value {
	return slog.StringValue(h.Short())
}

// Short reports the short form of the hash, for display.
func (h Hash) Short() string {
	if len(h) < 9 {
		return string(h)
	}
	return string(h[:9])
}

// IsZero reports whether h represents the absence of a commit.
func (h Hash) IsZero() bool {
	if h == "" {
		return true
	}
	for _, b := range h {
		if b != '0' {
			return false
		}
	}
	return true
}

// PeelToCommit resolves a commit-ish to its commit hash.
// Returns ErrNotExist if the object does not exist.
func (r *Repository) PeelToCommit(ctx context.Context, ref string) (Hash, error) {
	return r.revParse(ctx, ref+"^{commit}")
}

// PeelToTree resolves a tree-ish to its tree hash.
func (r *Repository) PeelToTree(ctx context.Context, ref string) (Hash, error) {
	return r.revParse(ctx, ref+"^{tree}")
}

// HashAt resolves the object at path within treeish.
func (r *Repository) HashAt(ctx context.Context, treeish, path string) (Hash, error) {
	return r.revParse(ctx, treeish+":"+path)
}

// MergeBase reports the best common ancestor of a and b.
func (r *Repository) MergeBase(ctx context.Context, a, b string) (Hash, error) {
	s, err := r.gitCmd(ctx, "merge-base", a, b).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("merge-base: %w", err)
	}
	return Hash(s), nil
}

// MergeBaseAll reports every common ancestor of a and b, ordered from
// best (lowest / most recent) to worst by commit generation number, per
// `git merge-base --all`. Callers that need the *lowest* merge base
// (see spec §9 open question on first- vs lowest-merge-base selection)
// should take the first element.
func (r *Repository) MergeBaseAll(ctx context.Context, refs ...string) ([]Hash, error) {
	args := append([]string{"merge-base", "--all"}, refs...)
	out, err := r.gitCmd(ctx, args...).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("merge-base --all: %w", err)
	}
	if out == "" {
		return nil, nil
	}

	var bases []Hash
	for _, line := range splitLines(out) {
		bases = append(bases, Hash(line))
	}
	return bases, nil
}

// ForkPoint reports the point at which b diverged from a, using Git's
// reflog-assisted fork-point heuristic.
func (r *Repository) ForkPoint(ctx context.Context, a, b string) (Hash, error) {
	s, err := r.gitCmd(ctx, "merge-base", "--fork-point", a, b).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("merge-base --fork-point: %w", err)
	}
	return Hash(s), nil
}

// IsAncestor reports whether a is an ancestor of (or equal to) b.
func (r *Repository) IsAncestor(ctx context.Context, a, b Hash) bool {
	return r.gitCmd(ctx, "merge-base", "--is-ancestor", string(a), string(b)).Run(r.exec) == nil
}

// PatchID computes the stable patch-id of a commit: a hash of its diff
// content against its first parent (or against the empty tree for a
// root commit), insensitive to the commit's position, message, or
// parent hash. Used as the last-resort rung of commit-identity
// classification, below commit hash and change-id trailer (spec §3/
// §4.2).
func (r *Repository) PatchID(ctx context.Context, commit string) (string, error) {
	diff, err := r.gitCmd(ctx, "diff-tree", "-p", "--no-color", "--root", commit).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("diff-tree: %w", err)
	}
	if diff == "" {
		return "", nil
	}

	out, err := r.gitCmd(ctx, "patch-id", "--stable").StdinString(diff).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("patch-id: %w", err)
	}
	id, _, _ := cutField(out)
	return id, nil
}

func cutField(s string) (field, rest string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' || s[i] == '\n' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func (r *Repository) revParse(ctx context.Context, ref string) (Hash, error) {
	out, err := r.gitCmd(ctx,
		"rev-parse", "--verify", "--quiet", "--end-of-options", ref,
	).OutputString(r.exec)
	if err != nil {
		return "", ErrNotExist
	}
	return Hash(out), nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
