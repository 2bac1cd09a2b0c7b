package rebase

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"go.gitbutler.dev/core/internal/git"
)

// conflictManifest is the TOML payload written to .conflict-files,
// listing which paths were touched on each side of the merge so a UI
// can render a conflict summary without re-diffing the trees. Field
// names mirror the original implementation's manifest shape.
type conflictManifest struct {
	AncestorEntries []string `toml:"ancestorEntries"`
	OurEntries      []string `toml:"ourEntries"`
	TheirEntries    []string `toml:"theirEntries"`
}

type conflictInputs struct {
	bases     []git.Hash
	ours      git.Hash
	theirs    git.Hash
	autoTree  git.Hash
	conflicts *git.MergeTreeConflictError
}

// buildConflictTree assembles the reserved conflicted-commit tree
// layout (spec §4.4): one ".conflict-base-N" per merge base,
// ".conflict-side-0"/".conflict-side-1" for ours/theirs,
// ".auto-resolution" for the best-effort merge, ".conflict-files" for
// the manifest, and a README.
func buildConflictTree(ctx context.Context, repo *git.Repository, in conflictInputs) (git.Hash, error) {
	entries := make([]git.TreeEntry, 0, len(in.bases)+4)

	for i, base := range in.bases {
		tree, err := repo.PeelToTree(ctx, string(base))
		if err != nil {
			return git.ZeroHash, fmt.Errorf("peel base %d to tree: %w", i, err)
		}
		entries = append(entries, dirEntry(ConflictBaseDir(i), tree))
	}

	oursTree, err := repo.PeelToTree(ctx, string(in.ours))
	if err != nil {
		return git.ZeroHash, fmt.Errorf("peel ours to tree: %w", err)
	}
	theirsTree, err := repo.PeelToTree(ctx, string(in.theirs))
	if err != nil {
		return git.ZeroHash, fmt.Errorf("peel theirs to tree: %w", err)
	}

	entries = append(entries,
		dirEntry(ConflictSideDir(0), oursTree),
		dirEntry(ConflictSideDir(1), theirsTree),
		dirEntry(AutoResolutionDir, in.autoTree),
	)

	manifest := buildManifest(in.conflicts)
	manifestHash, err := writeManifest(ctx, repo, manifest)
	if err != nil {
		return git.ZeroHash, err
	}
	entries = append(entries, git.TreeEntry{
		Mode: git.RegularMode, Type: git.BlobType, Hash: manifestHash, Name: ConflictFilesPath,
	})

	readmeHash, err := repo.WriteObject(ctx, git.BlobType, strings.NewReader(conflictReadmeBody))
	if err != nil {
		return git.ZeroHash, fmt.Errorf("write README: %w", err)
	}
	entries = append(entries, git.TreeEntry{
		Mode: git.RegularMode, Type: git.BlobType, Hash: readmeHash, Name: ReadmePath,
	})

	return repo.MakeTree(ctx, sliceSeq(entries))
}

func dirEntry(name string, tree git.Hash) git.TreeEntry {
	return git.TreeEntry{Mode: git.DirMode, Type: git.TreeType, Hash: tree, Name: name}
}

func buildManifest(conflicts *git.MergeTreeConflictError) conflictManifest {
	var m conflictManifest
	if conflicts == nil {
		return m
	}

	seen := map[string]bool{}
	for _, f := range conflicts.Files {
		if seen[f.Path] {
			continue
		}
		seen[f.Path] = true
		switch f.Stage {
		case git.ConflictStageBase:
			m.AncestorEntries = append(m.AncestorEntries, f.Path)
		case git.ConflictStageOurs:
			m.OurEntries = append(m.OurEntries, f.Path)
		case git.ConflictStageTheirs:
			m.TheirEntries = append(m.TheirEntries, f.Path)
		}
	}
	return m
}

func writeManifest(ctx context.Context, repo *git.Repository, m conflictManifest) (git.Hash, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return git.ZeroHash, fmt.Errorf("encode conflict manifest: %w", err)
	}
	return repo.WriteObject(ctx, git.BlobType, &buf)
}

func sliceSeq(entries []git.TreeEntry) func(yield func(git.TreeEntry) bool) {
	return func(yield func(git.TreeEntry) bool) {
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}
}
