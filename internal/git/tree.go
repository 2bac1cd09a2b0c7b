package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
)

// Mode is the octal file mode of a Git tree entry.
type Mode int

// Recognized tree entry modes.
const (
	ZeroMode    Mode = 0o000000
	RegularMode Mode = 0o100644
	ExecMode    Mode = 0o100755
	SymlinkMode Mode = 0o120000
	DirMode     Mode = 0o40000
)

// ParseMode parses the octal textual representation of a mode.
func ParseMode(s string) (Mode, error) {
	i, err := strconv.ParseInt(s, 8, 32)
	return Mode(i), err
}

func (m Mode) String() string { return fmt.Sprintf("%06o", int(m)) }

// TreeEntry is a single entry of a Git tree object.
type TreeEntry struct {
	Mode Mode
	Type Type
	Hash Hash
	Name string
}

// MakeTree builds a new, single-level tree object from the given entries.
func (r *Repository) MakeTree(ctx context.Context, ents iter.Seq[TreeEntry]) (_ Hash, err error) {
	var stdout bytes.Buffer
	cmd := r.gitCmd(ctx, "mktree").Stdout(&stdout)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return ZeroHash, fmt.Errorf("pipe: %w", err)
	}

	if err := cmd.Start(r.exec); err != nil {
		return ZeroHash, fmt.Errorf("start mktree: %w", err)
	}
	defer func() {
		if err != nil {
			_ = cmd.Kill(r.exec)
		}
	}()

	for ent := range ents {
		if ent.Type == "" {
			return ZeroHash, fmt.Errorf("type not set for %q", ent.Name)
		}
		if strings.Contains(ent.Name, "/") {
			return ZeroHash, fmt.Errorf("name %q contains a slash", ent.Name)
		}

		if _, err := fmt.Fprintf(stdin, "%s %s %s\t%s\n", ent.Mode, ent.Type, ent.Hash, ent.Name); err != nil {
			return ZeroHash, fmt.Errorf("write: %w", err)
		}
	}

	if err := stdin.Close(); err != nil {
		return ZeroHash, fmt.Errorf("close: %w", err)
	}

	if err := cmd.Wait(r.exec); err != nil {
		return ZeroHash, fmt.Errorf("mktree: %w", err)
	}

	return Hash(bytes.TrimSpace(stdout.Bytes())), nil
}

// ListTreeOptions configures ListTree.
type ListTreeOptions struct {
	// Recurse lists entries in subtrees too, rather than stopping at the
	// first level.
	Recurse bool
}

// ListTree lists the entries of a tree object.
func (r *Repository) ListTree(ctx context.Context, tree Hash, opts ListTreeOptions) (iter.Seq2[TreeEntry, error], error) {
	args := []string{"ls-tree", "--full-tree"}
	if opts.Recurse {
		args = append(args, "-r")
	}
	args = append(args, tree.String())

	cmd := r.gitCmd(ctx, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start ls-tree: %w", err)
	}

	scanner := newScanner(stdout, nil)

	return func(yield func(TreeEntry, error) bool) {
		var finished bool
		defer func() {
			if finished {
				return
			}
			_ = cmd.Kill(r.exec)
			_, _ = io.Copy(io.Discard, stdout)
		}()

		for scanner.Scan() {
			line := scanner.Bytes()
			modeTypeHash, name, ok := bytes.Cut(line, []byte{'\t'})
			if !ok {
				continue
			}

			toks := bytes.SplitN(modeTypeHash, []byte{' '}, 3)
			if len(toks) != 3 {
				continue
			}

			mode, err := ParseMode(string(toks[0]))
			if err != nil {
				continue
			}

			if !yield(TreeEntry{
				Mode: mode,
				Type: Type(toks[1]),
				Hash: Hash(toks[2]),
				Name: string(name),
			}, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			if !yield(TreeEntry{}, fmt.Errorf("scan: %w", err)) {
				return
			}
		}
		if err := cmd.Wait(r.exec); err != nil {
			if !yield(TreeEntry{}, fmt.Errorf("wait: %w", err)) {
				return
			}
		}
		finished = true
	}, nil
}

// BlobInfo describes a blob write targeting a path within a tree.
type BlobInfo struct {
	Mode Mode
	Hash Hash
	Path string
}

// UpdateTreeRequest is a request to update an existing Git tree.
// Unlike MakeTree, it supports paths containing slashes.
type UpdateTreeRequest struct {
	Tree    Hash
	Writes  iter.Seq[BlobInfo]
	Deletes iter.Seq[string]
}

// UpdateTree applies writes and deletes to an existing tree, returning
// the hash of the resulting tree.
func (r *Repository) UpdateTree(ctx context.Context, req UpdateTreeRequest) (_ Hash, err error) {
	indexFile, err := os.CreateTemp("", "gitbutler-index-*")
	if err != nil {
		return ZeroHash, fmt.Errorf("create index: %w", err)
	}
	indexPath := indexFile.Name()
	_ = indexFile.Close()
	defer func() {
		err = errors.Join(err, os.Remove(indexPath))
	}()

	if req.Tree != ZeroHash {
		err = r.gitCmd(ctx, "read-tree", "--index-output", indexPath, req.Tree.String()).
			AppendEnv("GIT_INDEX_FILE=" + indexPath).
			Run(r.exec)
		if err != nil {
			return ZeroHash, fmt.Errorf("read-tree: %w", err)
		}
	}

	updateCmd := r.gitCmd(ctx, "update-index", "--index-info").
		AppendEnv("GIT_INDEX_FILE=" + indexPath)
	stdin, err := updateCmd.StdinPipe()
	if err != nil {
		return ZeroHash, fmt.Errorf("pipe: %w", err)
	}
	if err := updateCmd.Start(r.exec); err != nil {
		return ZeroHash, fmt.Errorf("start update-index: %w", err)
	}

	if req.Writes != nil {
		for blob := range req.Writes {
			if blob.Mode == ZeroMode {
				blob.Mode = RegularMode
			}
			if _, err := fmt.Fprintf(stdin, "%s %s\t%s\n", blob.Mode, blob.Hash, blob.Path); err != nil {
				return ZeroHash, fmt.Errorf("write: %w", err)
			}
		}
	}
	if req.Deletes != nil {
		for p := range req.Deletes {
			if _, err := fmt.Fprintf(stdin, "000000 %s\t%s\n", ZeroHash, p); err != nil {
				return ZeroHash, fmt.Errorf("delete: %w", err)
			}
		}
	}

	if err := stdin.Close(); err != nil {
		return ZeroHash, fmt.Errorf("close: %w", err)
	}
	if err := updateCmd.Wait(r.exec); err != nil {
		return ZeroHash, fmt.Errorf("update-index: %w", err)
	}

	treeHash, err := r.gitCmd(ctx, "write-tree").
		AppendEnv("GIT_INDEX_FILE=" + indexPath).
		OutputString(r.exec)
	if err != nil {
		return ZeroHash, fmt.Errorf("write-tree: %w", err)
	}

	return Hash(treeHash), nil
}

// TreeMaker is the subset of Repository used by MakeTreeRecursive; it
// exists so callers can be tested against a fake.
type TreeMaker interface {
	MakeTree(ctx context.Context, ents iter.Seq[TreeEntry]) (Hash, error)
}

// MakeTreeRecursive builds a tree (and any subtrees required by paths
// containing slashes) from a flat sequence of blobs.
func MakeTreeRecursive(ctx context.Context, tm TreeMaker, blobs iter.Seq[BlobInfo]) (Hash, error) {
	var root treeTreeNode
	for blob := range blobs {
		dir, name := path.Split(blob.Path)
		parent, err := root.getSubtree(dir)
		if err != nil {
			return ZeroHash, fmt.Errorf("subtree %q: %w", dir, err)
		}
		parent.putBlob(name, blob.Mode, blob.Hash)
	}
	return root.make(ctx, tm)
}

type treeNode interface {
	name() string
	typ() Type
}

type treeBlobNode struct {
	Name string
	Mode Mode
	Hash Hash
}

func (b *treeBlobNode) name() string { return b.Name }
func (b *treeBlobNode) typ() Type    { return BlobType }

type treeTreeNode struct {
	Name  string
	Items []treeNode // sorted by name
}

func (t *treeTreeNode) name() string { return t.Name }
func (t *treeTreeNode) typ() Type    { return TreeType }

func (t *treeTreeNode) make(ctx context.Context, tm TreeMaker) (_ Hash, retErr error) {
	return tm.MakeTree(ctx, func(yield func(TreeEntry) bool) {
		for _, item := range t.Items {
			ent := TreeEntry{Name: item.name(), Type: item.typ()}

			switch item := item.(type) {
			case *treeBlobNode:
				ent.Mode = item.Mode
				ent.Hash = item.Hash
			case *treeTreeNode:
				hash, err := item.make(ctx, tm)
				if err != nil {
					retErr = errors.Join(retErr, fmt.Errorf("subtree %q: %w", item.Name, err))
					return
				}
				ent.Mode = DirMode
				ent.Hash = hash
			}

			if !yield(ent) {
				return
			}
		}
	})
}

func (t *treeTreeNode) getSubtree(p string) (*treeTreeNode, error) {
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return t, nil
	}

	name, rest, _ := strings.Cut(p, "/")
	idx, ok := slices.BinarySearchFunc(t.Items, name, func(n treeNode, name string) int {
		return strings.Compare(n.name(), name)
	})
	var sub *treeTreeNode
	if ok {
		sub, ok = t.Items[idx].(*treeTreeNode)
		if !ok {
			return nil, fmt.Errorf("expected tree, got %T", t.Items[idx])
		}
	} else {
		sub = &treeTreeNode{Name: name}
		t.Items = slices.Insert(t.Items, idx, treeNode(sub))
	}

	return sub.getSubtree(rest)
}

func (t *treeTreeNode) putBlob(name string, mode Mode, hash Hash) {
	node := &treeBlobNode{Name: name, Mode: mode, Hash: hash}

	idx, ok := slices.BinarySearchFunc(t.Items, name, func(n treeNode, name string) int {
		return strings.Compare(n.name(), name)
	})
	if ok {
		t.Items[idx] = node
	} else {
		t.Items = slices.Insert(t.Items, idx, treeNode(node))
	}
}
