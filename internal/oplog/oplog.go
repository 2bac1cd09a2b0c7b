// Package oplog implements the mutation engine's undo log: a
// Git-ref-backed append-only chain of snapshot_before/snapshot_after
// pairs (spec §4.4 "every mutation records enough to be undone"),
// recorded as ordinary commits so the history can be walked, diffed,
// and garbage-collected with plain Git tooling.
package oplog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.gitbutler.dev/core/internal/git"
)

// DefaultRef is the ref the oplog chain is appended to, analogous to a
// reflog but addressable and walkable like any other branch.
const DefaultRef = "refs/gitbutler/oplog"

const (
	trailerOperation = "gitbutler-operation"
	trailerBefore     = "gitbutler-before"
	trailerAfter      = "gitbutler-after"
	trailerSeq        = "gitbutler-seq"
)

// Entry is one recorded mutation.
type Entry struct {
	Hash      git.Hash
	Seq       int
	Operation string
	Before    git.Hash
	After     git.Hash
	Time      time.Time
}

// Append records a new entry at the tip of ref (DefaultRef if ref is
// "", creating the chain on first use), returning the new tip.
func Append(ctx context.Context, repo *git.Repository, ref, operation string, before, after git.Hash) (git.Hash, error) {
	if ref == "" {
		ref = DefaultRef
	}

	var parents []git.Hash
	seq := 0
	if head, err := repo.PeelToCommit(ctx, ref); err == nil {
		parents = []git.Hash{head}
		if prev, err := latestEntry(ctx, repo, head); err == nil {
			seq = prev.Seq + 1
		}
	}

	tree, err := repo.PeelToTree(ctx, string(after))
	if err != nil {
		return git.ZeroHash, fmt.Errorf("peel after-commit to tree: %w", err)
	}

	message := fmt.Sprintf(
		"oplog: %s\n\n%s: %s\n%s: %s\n%s: %s\n%s: %d\n",
		operation,
		trailerOperation, operation,
		trailerBefore, before,
		trailerAfter, after,
		trailerSeq, seq,
	)

	newHash, err := repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree: tree, Message: message, Parents: parents,
	})
	if err != nil {
		return git.ZeroHash, fmt.Errorf("commit oplog entry: %w", err)
	}

	oldHash := git.ZeroHash
	if len(parents) > 0 {
		oldHash = parents[0]
	}
	if err := repo.SetRef(ctx, git.SetRefRequest{Ref: ref, Hash: newHash, OldHash: oldHash}); err != nil {
		return git.ZeroHash, fmt.Errorf("update oplog ref: %w", err)
	}

	return newHash, nil
}

// Walk returns every entry in ref's chain, most recent first.
func Walk(ctx context.Context, repo *git.Repository, ref string) ([]Entry, error) {
	if ref == "" {
		ref = DefaultRef
	}

	commits, err := repo.WalkCommits(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("walk oplog: %w", err)
	}

	entries := make([]Entry, 0, len(commits))
	for _, c := range commits {
		entries = append(entries, parseEntry(c))
	}
	return entries, nil
}

func latestEntry(ctx context.Context, repo *git.Repository, head git.Hash) (Entry, error) {
	info, err := repo.ReadCommit(ctx, string(head))
	if err != nil {
		return Entry{}, err
	}
	return parseEntry(info), nil
}

func parseEntry(c *git.CommitInfo) Entry {
	body := c.Message.String()
	e := Entry{
		Hash:      c.Hash,
		Operation: trailerValue(body, trailerOperation),
		Before:    git.Hash(trailerValue(body, trailerBefore)),
		After:     git.Hash(trailerValue(body, trailerAfter)),
		Time:      c.Committer.Time,
	}
	if seq, err := strconv.Atoi(trailerValue(body, trailerSeq)); err == nil {
		e.Seq = seq
	}
	return e
}

func trailerValue(body, key string) string {
	prefix := key + ": "
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}
