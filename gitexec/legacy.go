package gitexec

import (
	"bytes"
	"context"
	"io"

	"github.com/sagarc03/packway"
	"github.com/sagarc03/packway/compat"
)

// Legacy is an old-style adapter over the git binary. It takes the whole
// client message at once and hands service output to a callback.
type Legacy struct {
	binPath  string
	repoPath string
}

// NewLegacy returns a Legacy adapter whose configuration lookups read the
// repository at repoPath.
func NewLegacy(binPath, repoPath string) *Legacy {
	return &Legacy{binPath: binPath, repoPath: repoPath}
}

// NewLegacyFactory returns a packway.RepositoryFactory serving repositories
// through compat and Legacy.
func NewLegacyFactory(binPath string) packway.RepositoryFactory {
	return compat.NewFactory(func(repoPath string) compat.LegacyAdapter {
		return NewLegacy(binPath, repoPath)
	})
}

func (l *Legacy) UploadPack(ctx context.Context, repoPath string, opts compat.Options, result func(io.Reader) error) error {
	return l.pack(ctx, packway.ServiceUploadPack, repoPath, opts, result)
}

func (l *Legacy) ReceivePack(ctx context.Context, repoPath string, opts compat.Options, result func(io.Reader) error) error {
	return l.pack(ctx, packway.ServiceReceivePack, repoPath, opts, result)
}

func (l *Legacy) pack(ctx context.Context, svc packway.Service, repoPath string, opts compat.Options, result func(io.Reader) error) error {
	args := []string{svc.Verb(), "--stateless-rpc"}
	var in io.Reader
	if opts.AdvertiseRefs {
		args = append(args, "--advertise-refs")
	} else {
		in = bytes.NewReader(opts.Msg)
	}
	args = append(args, repoPath)

	pr, pw := io.Pipe()
	started := make(chan struct{})
	done := make(chan error, 1)

	a := New(l.binPath, repoPath)
	go func() {
		err := a.run(ctx, invocation{
			args: args,
			in:   in,
			out:  pw,
			started: func(io.Writer) error {
				close(started)
				return nil
			},
		})
		_ = pw.CloseWithError(err)
		done <- err
	}()

	select {
	case <-started:
	case err := <-done:
		return err
	}

	resultErr := result(pr)
	// Unblocks the relay if result returned before reading everything.
	_ = pr.Close()
	runErr := <-done

	if resultErr != nil {
		return resultErr
	}
	return runErr
}

func (l *Legacy) UpdateServerInfo(ctx context.Context, repoPath string) error {
	return New(l.binPath, repoPath).UpdateServerInfo(ctx)
}

func (l *Legacy) ConfigSetting(ctx context.Context, name string) (string, error) {
	return New(l.binPath, l.repoPath).ConfigValue(ctx, "http."+name)
}

var _ compat.LegacyAdapter = (*Legacy)(nil)
