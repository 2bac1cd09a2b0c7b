package engine

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
)

// DiffSpec names a worktree change to fold into a commit (spec §4.4
// "Create commit"): a whole file when HunkHeaders is empty, or only the
// listed hunks of it otherwise.
type DiffSpec struct {
	Path         string
	PreviousPath string
	HunkHeaders  []git.HunkHeader
}

// Rejection pairs a DiffSpec the engine could not fold in with why
// (spec §4.4 "specified hunk does not match current worktree").
type Rejection struct {
	Spec   DiffSpec
	Reason coreerr.Kind
}

// applySpecs builds a new tree from parentTree by folding the current
// worktree content named by specs on top of it. Specs that can't be
// matched against the live worktree diff are reported as rejections
// rather than failing the whole tree build, so the caller can still
// commit whatever did apply (spec §4.4 "rejection with reason
// HunkMismatch").
func applySpecs(ctx context.Context, repo *git.Repository, worktreeDir string, parentTree git.Hash, specs []DiffSpec) (git.Hash, []Rejection, error) {
	if len(specs) == 0 {
		return parentTree, nil, nil
	}

	diffs, err := repo.WorktreeDiff(ctx, string(parentTree), git.DiffWorktreeOptions{})
	if err != nil {
		return git.ZeroHash, nil, fmt.Errorf("diff worktree: %w", err)
	}
	byPath := make(map[string]git.FileDiff, len(diffs))
	for _, d := range diffs {
		byPath[d.Path] = d
	}

	var writes []git.BlobInfo
	var deletes []string
	var rejections []Rejection

	for _, spec := range specs {
		fd, ok := byPath[spec.Path]
		if !ok {
			rejections = append(rejections, Rejection{Spec: spec, Reason: coreerr.KindHunkMismatch})
			continue
		}

		var newContent string
		if len(spec.HunkHeaders) == 0 {
			content, err := os.ReadFile(filepath.Join(worktreeDir, spec.Path))
			if err != nil {
				if os.IsNotExist(err) {
					deletes = append(deletes, spec.Path)
					continue
				}
				return git.ZeroHash, nil, fmt.Errorf("read worktree file %s: %w", spec.Path, err)
			}
			newContent = string(content)
		} else {
			base, err := readParentFile(ctx, repo, parentTree, spec.Path)
			if err != nil {
				return git.ZeroHash, nil, fmt.Errorf("read parent blob %s: %w", spec.Path, err)
			}
			selected, ok := selectHunks(fd, spec.HunkHeaders)
			if !ok {
				rejections = append(rejections, Rejection{Spec: spec, Reason: coreerr.KindHunkMismatch})
				continue
			}
			newContent, err = applyHunks(base, selected)
			if err != nil {
				rejections = append(rejections, Rejection{Spec: spec, Reason: coreerr.KindHunkMismatch})
				continue
			}
		}

		if newContent == "" {
			deletes = append(deletes, spec.Path)
			continue
		}

		blob, err := repo.WriteObject(ctx, git.BlobType, strings.NewReader(newContent))
		if err != nil {
			return git.ZeroHash, nil, fmt.Errorf("write blob %s: %w", spec.Path, err)
		}
		writes = append(writes, git.BlobInfo{Hash: blob, Path: spec.Path})
	}

	if len(writes) == 0 && len(deletes) == 0 {
		return parentTree, rejections, nil
	}

	tree, err := repo.UpdateTree(ctx, git.UpdateTreeRequest{
		Tree:    parentTree,
		Writes:  sliceSeq(writes),
		Deletes: stringSeq(deletes),
	})
	if err != nil {
		return git.ZeroHash, nil, fmt.Errorf("update tree: %w", err)
	}
	return tree, rejections, nil
}

// readParentFile returns a path's content in tree, or "" if the path
// did not exist there (a spec adding a new file).
func readParentFile(ctx context.Context, repo *git.Repository, tree git.Hash, path string) (string, error) {
	hash, err := repo.HashAt(ctx, string(tree), path)
	if err != nil {
		return "", nil
	}
	return repo.ReadObjectString(ctx, git.BlobType, hash)
}

func selectHunks(fd git.FileDiff, headers []git.HunkHeader) ([]git.Hunk, bool) {
	out := make([]git.Hunk, 0, len(headers))
	for _, h := range headers {
		found := false
		for _, hunk := range fd.Hunks {
			if hunk.Header == h {
				out = append(out, hunk)
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return out, true
}

// applyHunks reconstructs a file's content by replacing each selected
// hunk's old line range in base with its new lines, processing hunks in
// ascending OldStart order and tracking the cumulative line-count delta
// so later hunks' offsets stay correct (ordinary unified-diff patch
// application; no library in the retrieved pack does this).
func applyHunks(base string, hunks []git.Hunk) (string, error) {
	sort.Slice(hunks, func(i, j int) bool { return hunks[i].Header.OldStart < hunks[j].Header.OldStart })

	lines := splitKeepEnds(base)
	offset := 0
	for _, hunk := range hunks {
		start := hunk.Header.OldStart - 1 + offset
		if hunk.Header.OldLines == 0 {
			start++
		}
		if start < 0 || start > len(lines) {
			return "", fmt.Errorf("hunk %s out of range for %d lines", hunk.Header, len(lines))
		}
		end := start + hunk.Header.OldLines
		if end > len(lines) {
			return "", fmt.Errorf("hunk %s out of range for %d lines", hunk.Header, len(lines))
		}

		added := addedLines(hunk)
		rest := append([]string{}, lines[end:]...)
		lines = append(lines[:start], append(added, rest...)...)

		offset += hunk.Header.NewLines - hunk.Header.OldLines
	}
	return strings.Join(lines, ""), nil
}

// addedLines extracts the lines of a hunk's body that land in the new
// file: "+" lines and context lines (the replaced old line range covers
// the context too), in order; "-" lines are dropped.
func addedLines(hunk git.Hunk) []string {
	var out []string
	for _, l := range hunk.Lines {
		if len(l) > 0 && (l[0] == '+' || l[0] == ' ') {
			// hunk.Lines come from line-oriented scanning and so carry
			// no trailing newline; splitKeepEnds' lines all do, so add
			// it back to keep the reassembled content well-formed.
			out = append(out, l[1:]+"\n")
		}
	}
	return out
}

// splitKeepEnds splits s into lines, each retaining its trailing
// newline (if any), matching how applyHunks reassembles content with
// strings.Join.
func splitKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func sliceSeq(items []git.BlobInfo) iter.Seq[git.BlobInfo] {
	return func(yield func(git.BlobInfo) bool) {
		for _, it := range items {
			if !yield(it) {
				return
			}
		}
	}
}

func stringSeq(items []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, it := range items {
			if !yield(it) {
				return
			}
		}
	}
}
