// Package gitexec implements packway.Repository on top of the git binary.
//
// Pack exchanges run git in stateless RPC mode. Client input and process
// output are relayed concurrently in ReadSize chunks, so neither direction
// waits on the other and OS pipe buffers never fill up while the other side
// is blocked.
package gitexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sagarc03/packway"
)

// Adapter runs git against one repository.
type Adapter struct {
	binPath  string
	repoPath string
}

// New returns an Adapter that runs binPath against the repository at repoPath.
func New(binPath, repoPath string) *Adapter {
	if binPath == "" {
		binPath = "git"
	}
	return &Adapter{binPath: binPath, repoPath: repoPath}
}

// NewFactory returns a packway.RepositoryFactory producing Adapters for binPath.
func NewFactory(binPath string) packway.RepositoryFactory {
	return func(path string) packway.Repository {
		return New(binPath, path)
	}
}

func (a *Adapter) Path() string {
	return a.repoPath
}

func (a *Adapter) Exists() bool {
	info, err := os.Stat(a.repoPath)
	return err == nil && info.IsDir()
}

// File returns a streamer for path relative to the repository.
func (a *Adapter) File(path string) (*packway.Streamer, error) {
	return packway.OpenFile(filepath.Join(a.repoPath, filepath.FromSlash(path)))
}

// UpdateServerInfo runs git update-server-info inside the repository.
func (a *Adapter) UpdateServerInfo(ctx context.Context) error {
	if err := a.Run(ctx, a.repoPath, "update-server-info"); err != nil {
		return fmt.Errorf("update server info: %w", err)
	}
	return nil
}

// ConfigValue returns the repository-local value of key, or "" when unset.
// A lookup git could not answer, such as in a directory that is not a
// repository, also counts as unset. Only launch failures are errors.
func (a *Adapter) ConfigValue(ctx context.Context, key string) (string, error) {
	value, err := a.Output(ctx, a.repoPath, "config", "--local", key)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return "", nil
		}
		return "", fmt.Errorf("config value %s: %w", key, err)
	}
	return value, nil
}

// AllowPull is true unless http.uploadpack is set to "false".
func (a *Adapter) AllowPull(ctx context.Context) (bool, error) {
	value, err := a.ConfigValue(ctx, "http.uploadpack")
	if err != nil {
		return false, err
	}
	return value != "false", nil
}

// AllowPush is true only when http.receivepack is set to "true".
func (a *Adapter) AllowPush(ctx context.Context) (bool, error) {
	value, err := a.ConfigValue(ctx, "http.receivepack")
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

var _ packway.Repository = (*Adapter)(nil)
