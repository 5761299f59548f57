package gitexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/sagarc03/packway"
)

// ExitError is returned when git ran but exited with a non-zero status.
type ExitError struct {
	Args []string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("git %s: exit status %d", strings.Join(e.Args, " "), e.Code)
}

// invocation describes one git process.
type invocation struct {
	dir  string
	args []string
	in   io.Reader
	out  io.Writer
	// started runs after the process is up and before any output is relayed.
	started func(out io.Writer) error
}

// HandlePack runs "git <verb> --stateless-rpc [--advertise-refs] <repo>".
// In advertise mode the service banner is written ahead of git's own output
// and in is not read.
func (a *Adapter) HandlePack(ctx context.Context, svc packway.Service, in io.Reader, out io.Writer, opts packway.PackOptions) error {
	args := []string{svc.Verb(), "--stateless-rpc"}
	if opts.AdvertiseRefs {
		args = append(args, "--advertise-refs")
		in = nil
	}
	args = append(args, a.repoPath)

	inv := invocation{
		args: args,
		in:   in,
		out:  out,
		started: func(out io.Writer) error {
			if opts.Started != nil {
				opts.Started()
			}
			if opts.AdvertiseRefs {
				return packway.WriteBanner(out, svc)
			}
			return nil
		},
	}

	if err := a.run(ctx, inv); err != nil {
		return fmt.Errorf("handle pack %s: %w", svc, err)
	}
	return nil
}

// Run executes git with args in dir, discarding all output.
func (a *Adapter) Run(ctx context.Context, dir string, args ...string) error {
	return a.run(ctx, invocation{dir: dir, args: args})
}

// Output executes git with args in dir and returns its standard output
// with the trailing newline removed.
func (a *Adapter) Output(ctx context.Context, dir string, args ...string) (string, error) {
	var buf bytes.Buffer
	if err := a.run(ctx, invocation{dir: dir, args: args, out: &buf}); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\r\n"), nil
}

func (a *Adapter) run(parent context.Context, inv invocation) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.binPath, inv.args...)
	cmd.Dir = inv.dir
	// Stderr stays nil: git diagnostics are discarded, never sent to clients.

	var stdin io.WriteCloser
	if inv.in != nil {
		pipe, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("stdin pipe: %w", err)
		}
		stdin = pipe
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %w", packway.ErrLaunch, a.binPath, err)
	}

	out := inv.out
	if out == nil {
		out = io.Discard
	}

	if inv.started != nil {
		if err := inv.started(out); err != nil {
			cancel()
			_, _ = io.Copy(io.Discard, stdout)
			_ = cmd.Wait()
			return err
		}
	}

	var g errgroup.Group

	if stdin != nil {
		// The copier may sit in a Read on the client input that nothing can
		// interrupt, so it is only awaited until the exchange is cancelled.
		inputDone := make(chan error, 1)
		go func() {
			inputDone <- copyInput(stdin, inv.in)
		}()
		g.Go(func() error {
			select {
			case err := <-inputDone:
				if err != nil {
					cancel()
				}
				return err
			case <-ctx.Done():
				return nil
			}
		})
	}

	g.Go(func() error {
		_, err := io.CopyBuffer(struct{ io.Writer }{out}, struct{ io.Reader }{stdout}, make([]byte, packway.ReadSize))
		if err != nil {
			cancel()
			// Keep draining so the process is never blocked on a full pipe.
			_, _ = io.Copy(io.Discard, stdout)
			return fmt.Errorf("copy output: %w", err)
		}
		return nil
	})

	copyErr := g.Wait()
	waitErr := cmd.Wait()

	if err := parent.Err(); err != nil {
		return err
	}
	if copyErr != nil {
		return copyErr
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ExitError{Args: inv.args, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("wait: %w", waitErr)
	}

	return nil
}

func copyInput(stdin io.WriteCloser, in io.Reader) error {
	_, err := io.CopyBuffer(struct{ io.Writer }{stdin}, struct{ io.Reader }{in}, make([]byte, packway.ReadSize))
	closeErr := stdin.Close()
	if err != nil && !brokenPipe(err) {
		return fmt.Errorf("copy input: %w", err)
	}
	if closeErr != nil && !brokenPipe(closeErr) {
		return fmt.Errorf("close input: %w", closeErr)
	}
	return nil
}

// brokenPipe reports whether err means git stopped reading its input,
// which happens whenever it has all it needs before the client is done.
func brokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)
}
