package git

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// HunkHeader is the parsed form of a unified diff "@@ ... @@" line.
type HunkHeader struct {
	// OldStart is the 1-based line at which the previous version of the
	// file started.
	OldStart int
	// OldLines is the number of lines from the previous version covered
	// by this hunk.
	OldLines int
	// NewStart is the 1-based line at which the new version of the file
	// starts.
	NewStart int
	// NewLines is the number of lines from the new version covered by
	// this hunk.
	NewLines int
}

func (h HunkHeader) String() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}

// ParseHunkHeader parses a "@@ -l,s +l,s @@..." line.
func ParseHunkHeader(line string) (HunkHeader, error) {
	line = strings.TrimPrefix(line, "@@ ")
	end := strings.Index(line, " @@")
	if end < 0 {
		return HunkHeader{}, fmt.Errorf("malformed hunk header: %q", line)
	}
	line = line[:end]

	oldPart, newPart, ok := strings.Cut(line, " ")
	if !ok {
		return HunkHeader{}, fmt.Errorf("malformed hunk header: %q", line)
	}

	old, err := parseHunkRange(oldPart, "-")
	if err != nil {
		return HunkHeader{}, err
	}
	nw, err := parseHunkRange(newPart, "+")
	if err != nil {
		return HunkHeader{}, err
	}

	return HunkHeader{
		OldStart: old[0], OldLines: old[1],
		NewStart: nw[0], NewLines: nw[1],
	}, nil
}

func parseHunkRange(s, sign string) ([2]int, error) {
	s = strings.TrimPrefix(s, sign)
	startStr, lenStr, ok := strings.Cut(s, ",")
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return [2]int{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	length := 1
	if ok {
		length, err = strconv.Atoi(lenStr)
		if err != nil {
			return [2]int{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
	}
	return [2]int{start, length}, nil
}

// Hunk is a single hunk of a unified diff for one file.
type Hunk struct {
	Header HunkHeader
	// Lines holds the hunk body, including leading " "/"+"/"-" markers,
	// excluding the "@@...@@" header line.
	Lines []string
}

// FileDiff is the set of hunks that change a single path.
type FileDiff struct {
	Path         string
	PreviousPath string // set when the file was renamed/copied
	Hunks        []Hunk
}

// DiffWorktreeOptions configures WorktreeDiff.
type DiffWorktreeOptions struct {
	// Context is the number of context lines around each hunk.
	Context int
	// RenameThreshold is the minimum percentage of content similarity
	// (0-100) for a pair of add+delete to be reported as a rename. Git's
	// own default of 50% is used when this is zero (see spec §9 open
	// question on rename-detection thresholds).
	RenameThreshold int
}

// WorktreeDiff computes the unified diff between the worktree and the
// given tree-ish, parsed into per-file hunks suitable for DiffSpec
// hunk-header matching.
func (r *Repository) WorktreeDiff(ctx context.Context, treeish string, opts DiffWorktreeOptions) ([]FileDiff, error) {
	return r.diff(ctx, opts, treeish)
}

// TreeDiff computes the unified diff between two tree-ish values,
// e.g. a commit and its parent, with the same parsing WorktreeDiff uses
// (spec §4.4 "Undo commit" needs this to recover a removed commit's
// changes; it is otherwise the same operation against two trees instead
// of the worktree).
func (r *Repository) TreeDiff(ctx context.Context, from, to string, opts DiffWorktreeOptions) ([]FileDiff, error) {
	return r.diff(ctx, opts, from, to)
}

func (r *Repository) diff(ctx context.Context, opts DiffWorktreeOptions, treeishes ...string) ([]FileDiff, error) {
	context := opts.Context
	if context <= 0 {
		context = 3
	}
	threshold := opts.RenameThreshold
	if threshold <= 0 {
		threshold = 50
	}

	args := []string{
		"diff", "--no-color", "--no-ext-diff",
		fmt.Sprintf("-U%d", context),
		fmt.Sprintf("-M%d%%", threshold),
	}
	args = append(args, treeishes...)

	out, err := r.gitCmd(ctx, args...).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("git diff: %w", err)
	}
	return parseUnifiedDiff(out), nil
}

func parseUnifiedDiff(raw string) []FileDiff {
	var files []FileDiff
	var cur *FileDiff
	var curHunk *Hunk

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "diff --git "):
			if cur != nil {
				if curHunk != nil {
					cur.Hunks = append(cur.Hunks, *curHunk)
					curHunk = nil
				}
				files = append(files, *cur)
			}
			cur = &FileDiff{}
		case strings.HasPrefix(line, "--- a/"):
			if cur != nil {
				cur.PreviousPath = strings.TrimPrefix(line, "--- a/")
			}
		case strings.HasPrefix(line, "+++ b/"):
			if cur != nil {
				cur.Path = strings.TrimPrefix(line, "+++ b/")
				if cur.PreviousPath == cur.Path {
					cur.PreviousPath = ""
				}
			}
		case strings.HasPrefix(line, "@@ "):
			if cur == nil {
				continue
			}
			if curHunk != nil {
				cur.Hunks = append(cur.Hunks, *curHunk)
			}
			hdr, err := ParseHunkHeader(line)
			if err != nil {
				curHunk = nil
				continue
			}
			curHunk = &Hunk{Header: hdr}
		default:
			if curHunk != nil && (strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, " ")) {
				curHunk.Lines = append(curHunk.Lines, line)
			}
		}
	}

	if cur != nil {
		if curHunk != nil {
			cur.Hunks = append(cur.Hunks, *curHunk)
		}
		files = append(files, *cur)
	}

	return files
}
