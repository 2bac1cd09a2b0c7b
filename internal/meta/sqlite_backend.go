package meta

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embeds the pure-Go SQLite engine, no cgo required
)

// SQLiteBackend is the relational mirror of a TOMLBackend: the same
// records, queryable with SQL, rebuilt lazily whenever the sync
// protocol (sync.go) finds a TOML file newer than the mirror's copy.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating and migrating if necessary) a
// SQLite-backed mirror at path. Grounded on the embedded-SQLite
// connection idiom (database/sql with the ncruces/go-sqlite3 driver
// and embed build tag, WAL mode, busy timeout).
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite mirror: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite mirror: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS records (
		key      TEXT PRIMARY KEY,
		data     BLOB NOT NULL,
		mtime    INTEGER NOT NULL,
		hash     INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite mirror: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) (Entry, error) {
	row := b.db.QueryRowContext(ctx,
		`SELECT data, mtime, hash FROM records WHERE key = ?`, key)

	var data []byte
	var mtimeUnixNano int64
	var hash int64
	if err := row.Scan(&data, &mtimeUnixNano, &hash); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, ErrNotExist
		}
		return Entry{}, err
	}

	return Entry{
		Key:     key,
		Data:    data,
		ModTime: time.Unix(0, mtimeUnixNano),
		Hash:    uint64(hash),
	}, nil
}

func (b *SQLiteBackend) Put(ctx context.Context, key string, data []byte) error {
	return b.putEntry(ctx, Entry{Key: key, Data: data})
}

// putEntry upserts an entry with an explicit ModTime/Hash, used by the
// sync composer when mirroring a TOML-sourced entry verbatim (so the
// mirror's bookkeeping fields match the file's, not the mirror write
// time).
func (b *SQLiteBackend) putEntry(ctx context.Context, e Entry) error {
	if e.ModTime.IsZero() {
		e.ModTime = time.Now()
	}
	if e.Hash == 0 {
		e.Hash = hashOf(e.Data)
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO records (key, data, mtime, hash) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, mtime = excluded.mtime, hash = excluded.hash
	`, e.Key, e.Data, e.ModTime.UnixNano(), int64(e.Hash))
	return err
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key)
	return err
}

func (b *SQLiteBackend) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT key, data, mtime, hash FROM records WHERE key LIKE ? ORDER BY key`,
		escapeLikePrefix(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var mtimeUnixNano int64
		var hash int64
		if err := rows.Scan(&e.Key, &e.Data, &mtimeUnixNano, &hash); err != nil {
			return nil, err
		}
		e.ModTime = time.Unix(0, mtimeUnixNano)
		e.Hash = uint64(hash)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }

func escapeLikePrefix(s string) string {
	r := strings.NewReplacer("%", "\\%", "_", "\\_")
	return r.Replace(s)
}
