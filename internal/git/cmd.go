// Package git provides access to the Git CLI with a Git library-like
// interface.
//
// All shell-to-Git interactions in the core go through this package so
// that the rest of the code never has to reason about argv construction
// or stderr plumbing.
package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.gitbutler.dev/core/internal/logx"
)

type execer interface {
	Run(*exec.Cmd) error
	Output(*exec.Cmd) ([]byte, error)
	Start(*exec.Cmd) error
	Wait(*exec.Cmd) error
	Kill(*exec.Cmd) error
}

type realExecer struct{}

var _realExec execer = realExecer{}

func (realExecer) Run(cmd *exec.Cmd) error              { return cmd.Run() }
func (realExecer) Output(cmd *exec.Cmd) ([]byte, error) { return cmd.Output() }
func (realExecer) Start(cmd *exec.Cmd) error            { return cmd.Start() }
func (realExecer) Wait(cmd *exec.Cmd) error             { return cmd.Wait() }
func (realExecer) Kill(cmd *exec.Cmd) error             { return cmd.Process.Kill() }

// gitCmd provides a fluent API around exec.Cmd, capturing stderr into
// errors unless the caller explicitly wants to see it.
type gitCmd struct {
	cmd  *exec.Cmd
	wrap func(error) error
}

func newGitCmd(ctx context.Context, log *logx.Logger, args ...string) *gitCmd {
	name := "git"
	if len(args) > 0 {
		name += " " + args[0]
	}

	stderr, wrap := stderrWriter(name, log)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stderr = stderr

	return &gitCmd{cmd: cmd, wrap: wrap}
}

func stderrWriter(name string, log *logx.Logger) (io.Writer, func(error) error) {
	var buf bytes.Buffer
	wrap := func(err error) error {
		if err == nil {
			return nil
		}
		msg := strings.TrimSpace(buf.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", name, err)
		}
		if log != nil {
			log.Debug(name, "stderr", msg)
		}
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return &buf, wrap
}

func (c *gitCmd) Dir(dir string) *gitCmd {
	if dir != "" {
		c.cmd.Dir = dir
	}
	return c
}

func (c *gitCmd) Stdout(w io.Writer) *gitCmd {
	c.cmd.Stdout = w
	return c
}

func (c *gitCmd) Stderr(w io.Writer) *gitCmd {
	c.cmd.Stderr = w
	c.wrap = func(err error) error { return err }
	return c
}

func (c *gitCmd) Stdin(r io.Reader) *gitCmd {
	c.cmd.Stdin = r
	return c
}

func (c *gitCmd) StdinString(s string) *gitCmd {
	return c.Stdin(strings.NewReader(s))
}

func (c *gitCmd) AppendEnv(env ...string) *gitCmd {
	if len(env) == 0 {
		return c
	}
	if c.cmd.Env == nil {
		c.cmd.Env = os.Environ()
	}
	c.cmd.Env = append(c.cmd.Env, env...)
	return c
}

func (c *gitCmd) StdoutPipe() (io.ReadCloser, error) {
	return c.cmd.StdoutPipe()
}

func (c *gitCmd) StdinPipe() (io.WriteCloser, error) {
	return c.cmd.StdinPipe()
}

func (c *gitCmd) Run(exec execer) error {
	return c.wrap(exec.Run(c.cmd))
}

func (c *gitCmd) Start(exec execer) error {
	return c.wrap(exec.Start(c.cmd))
}

func (c *gitCmd) Wait(exec execer) error {
	return c.wrap(exec.Wait(c.cmd))
}

func (c *gitCmd) Kill(exec execer) error {
	return c.wrap(exec.Kill(c.cmd))
}

func (c *gitCmd) Output(exec execer) ([]byte, error) {
	out, err := exec.Output(c.cmd)
	return out, c.wrap(err)
}

// OutputString runs the command and returns its stdout with the
// trailing newline removed.
func (c *gitCmd) OutputString(exec execer) (string, error) {
	out, err := c.Output(exec)
	out = bytes.TrimRight(out, "\n")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func splitNullByte(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// errExitCode reports whether err is a non-zero exit from the Git CLI.
func errExitCode(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

func newScanner(r io.Reader, split bufio.SplitFunc) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if split != nil {
		s.Split(split)
	}
	return s
}
