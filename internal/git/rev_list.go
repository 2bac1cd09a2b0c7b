package git

import (
	"bufio"
	"context"
	"errors"
)

// RevList iterates lazily over the commits in a repository.
//
// Use this like bufio.Scanner:
//
//	rl, err := repo.ListCommits(ctx, "HEAD", "main")
//	for rl.Next() {
//		commit := rl.Commit()
//	}
//	if err := rl.Err(); err != nil { ... }
type RevList struct {
	cmd  *gitCmd
	out  *bufio.Scanner
	err  error
	exec execer
}

// Next reports whether there is another commit in the list.
func (r *RevList) Next() bool {
	if r.out.Scan() {
		return true
	}
	if err := r.out.Err(); err != nil {
		r.err = errors.Join(err, r.cmd.Kill(r.exec))
		return false
	}
	r.err = r.cmd.Wait(r.exec)
	return false
}

// Commit returns the commit hash at the current position.
func (r *RevList) Commit() Hash {
	return Hash(r.out.Text())
}

// Err returns any error encountered while iterating.
func (r *RevList) Err() error {
	return errors.Join(r.err, r.out.Err())
}

// ListCommits lists commits reachable from start but not from stop, in
// reverse topological (newest-first) order.
func (r *Repository) ListCommits(ctx context.Context, start string, stop ...string) (*RevList, error) {
	args := []string{"rev-list", start}
	if len(stop) > 0 {
		args = append(args, "--not")
		args = append(args, stop...)
	}

	cmd := r.gitCmd(ctx, args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(r.exec); err != nil {
		return nil, err
	}

	return &RevList{cmd: cmd, out: newScanner(out, nil), exec: r.exec}, nil
}
