// Package compat lets an old-style git adapter serve as a packway.Repository.
//
// Old adapters take the whole client message up front and hand their output
// back through a callback, instead of relaying streams. Prefer gitexec for
// new deployments; this package exists for adapters that predate the
// Repository interface.
package compat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sagarc03/packway"
)

// ChunkSize is the size of the chunks relayed from a legacy adapter's output.
const ChunkSize = 8 * 1024

// Options is passed to a legacy adapter's pack operations.
type Options struct {
	AdvertiseRefs bool
	// Msg is the complete client input. It is empty when advertising refs.
	Msg []byte
}

// LegacyAdapter is the interface old-style adapters implement.
//
// UploadPack and ReceivePack must call result exactly once with a reader over
// the service output, unless they fail before the service starts.
type LegacyAdapter interface {
	UploadPack(ctx context.Context, repoPath string, opts Options, result func(io.Reader) error) error
	ReceivePack(ctx context.Context, repoPath string, opts Options, result func(io.Reader) error) error
	UpdateServerInfo(ctx context.Context, repoPath string) error
	// ConfigSetting returns the value of http.<name>, or "" when unset.
	ConfigSetting(ctx context.Context, name string) (string, error)
}

// Repository wraps a LegacyAdapter bound to one repository path.
type Repository struct {
	adapter LegacyAdapter
	path    string
}

// New returns a Repository serving path through adapter.
func New(adapter LegacyAdapter, path string) *Repository {
	return &Repository{adapter: adapter, path: path}
}

// NewFactory returns a packway.RepositoryFactory that builds a fresh legacy
// adapter for every repository.
func NewFactory(newAdapter func(repoPath string) LegacyAdapter) packway.RepositoryFactory {
	return func(path string) packway.Repository {
		return New(newAdapter(path), path)
	}
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Exists() bool {
	_, err := os.Stat(r.path)
	return err == nil
}

// HandlePack reads all of in, runs the service through the legacy adapter
// and copies its output to out in ChunkSize pieces.
func (r *Repository) HandlePack(ctx context.Context, svc packway.Service, in io.Reader, out io.Writer, opts packway.PackOptions) error {
	var op func(context.Context, string, Options, func(io.Reader) error) error
	switch svc {
	case packway.ServiceUploadPack:
		op = r.adapter.UploadPack
	case packway.ServiceReceivePack:
		op = r.adapter.ReceivePack
	default:
		return fmt.Errorf("handle pack %s: %w", svc, packway.ErrNotFound)
	}

	legacyOpts := Options{AdvertiseRefs: opts.AdvertiseRefs}
	if !opts.AdvertiseRefs && in != nil {
		msg, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("handle pack %s: read input: %w", svc, err)
		}
		legacyOpts.Msg = msg
	}

	err := op(ctx, r.path, legacyOpts, func(result io.Reader) error {
		if opts.Started != nil {
			opts.Started()
		}
		if opts.AdvertiseRefs {
			if err := packway.WriteBanner(out, svc); err != nil {
				return err
			}
		}
		_, err := io.CopyBuffer(struct{ io.Writer }{out}, struct{ io.Reader }{result}, make([]byte, ChunkSize))
		return err
	})
	if err != nil {
		return fmt.Errorf("handle pack %s: %w", svc, err)
	}
	return nil
}

// File returns a streamer for path relative to the repository.
func (r *Repository) File(path string) (*packway.Streamer, error) {
	s, err := packway.OpenFile(filepath.Join(r.path, filepath.FromSlash(path)))
	if err != nil {
		if errors.Is(err, packway.ErrNotFound) {
			return nil, packway.ErrNotFound
		}
		return nil, fmt.Errorf("file %s: %w", path, err)
	}
	return s, nil
}

func (r *Repository) UpdateServerInfo(ctx context.Context) error {
	if err := r.adapter.UpdateServerInfo(ctx, r.path); err != nil {
		return fmt.Errorf("update server info: %w", err)
	}
	return nil
}

// AllowPull is true unless the adapter reports uploadpack as "false".
func (r *Repository) AllowPull(ctx context.Context) (bool, error) {
	value, err := r.adapter.ConfigSetting(ctx, "uploadpack")
	if err != nil {
		return false, fmt.Errorf("allow pull: %w", err)
	}
	return value != "false", nil
}

// AllowPush is true only when the adapter reports receivepack as "true".
func (r *Repository) AllowPush(ctx context.Context) (bool, error) {
	value, err := r.adapter.ConfigSetting(ctx, "receivepack")
	if err != nil {
		return false, fmt.Errorf("allow push: %w", err)
	}
	return value == "true", nil
}

var _ packway.Repository = (*Repository)(nil)
