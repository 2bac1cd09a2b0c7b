package meta

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// TOMLBackend stores one file per record in a directory tree, using the
// key's '/'-separated components as the path (so "branch/feature-x"
// lives at "<root>/branch/feature-x.toml"). It is the durable,
// diffable, human-editable source of truth (spec §4.1).
type TOMLBackend struct {
	root string
}

// NewTOMLBackend opens (creating if necessary) a TOML-file store rooted
// at dir.
func NewTOMLBackend(dir string) (*TOMLBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &TOMLBackend{root: dir}, nil
}

func (b *TOMLBackend) path(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(key)+".toml")
}

func (b *TOMLBackend) Get(_ context.Context, key string) (Entry, error) {
	path := b.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, ErrNotExist
		}
		return Entry{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Key: key, Data: data, ModTime: info.ModTime(), Hash: xxhash.Sum64(data)}, nil
}

func (b *TOMLBackend) Put(_ context.Context, key string, data []byte) error {
	path := b.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (b *TOMLBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(b.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (b *TOMLBackend) List(_ context.Context, prefix string) ([]Entry, error) {
	root := filepath.Join(b.root, filepath.FromSlash(prefix))
	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".toml") {
			return nil
		}

		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), ".toml")

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Key: key, Data: data, ModTime: info.ModTime(), Hash: xxhash.Sum64(data)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (b *TOMLBackend) Close() error { return nil }
