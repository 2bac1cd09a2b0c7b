package git

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.gitbutler.dev/core/internal/must"
)

// Type specifies the type of a Git object.
type Type string

// Supported object types.
const (
	BlobType   Type = "blob"
	CommitType Type = "commit"
	TreeType   Type = "tree"
)

func (t Type) String() string { return string(t) }

// ReadObject reads the object with the given hash into dst.
// Not useful for tree objects; use ListTree instead.
func (r *Repository) ReadObject(ctx context.Context, typ Type, hash Hash, dst io.Writer) error {
	must.NotBeBlankf(string(typ), "object type must not be blank")
	must.NotBeBlankf(string(hash), "object hash must not be blank")

	cmd := r.gitCmd(ctx, "cat-file", string(typ), hash.String()).Stdout(dst)
	if err := cmd.Run(r.exec); err != nil {
		return fmt.Errorf("cat-file %s %s: %w", typ, hash.Short(), err)
	}
	return nil
}

// ReadObjectString is a convenience wrapper around ReadObject that
// returns the object's contents as a string.
func (r *Repository) ReadObjectString(ctx context.Context, typ Type, hash Hash) (string, error) {
	var buf bytes.Buffer
	if err := r.ReadObject(ctx, typ, hash, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteObject writes an object of the given type, returning its hash.
func (r *Repository) WriteObject(ctx context.Context, typ Type, src io.Reader) (Hash, error) {
	must.NotBeBlankf(string(typ), "object type must not be blank")

	cmd := r.gitCmd(ctx, "hash-object", "-w", "--stdin", "-t", string(typ)).Stdin(src)
	out, err := cmd.OutputString(r.exec)
	if err != nil {
		return ZeroHash, fmt.Errorf("hash-object -t %s: %w", typ, err)
	}
	return Hash(out), nil
}
