// Package filesystem resolves repository identifiers to directories under a
// single repository root. All lookups go through an os.Root, so a path that
// escapes the root, including through a symlink, never reaches the caller.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sagarc03/packway"
)

// Root provides sandboxed access to the repository root directory.
type Root struct {
	root *os.Root
	dir  string
}

// Open opens dir as a repository root. dir is made absolute so every
// resolved repository path is absolute as well.
func Open(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("open repository root: %w", err)
	}

	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("open repository root: %w", err)
	}

	return &Root{root: root, dir: abs}, nil
}

// Dir returns the absolute path of the root directory.
func (r *Root) Dir() string {
	return r.dir
}

// Close releases the root directory handle.
func (r *Root) Close() error {
	return r.root.Close()
}

// Resolve maps a repository identifier to an absolute path under the root.
//
// Returns packway.ErrInvalidInput if name is empty or contains a "." or ".."
// segment, and packway.ErrNotFound if name resolves outside the root. A name
// that does not exist yet resolves normally; callers check existence through
// the repository itself.
func (r *Root) Resolve(name string) (string, error) {
	if !packway.IsValidRepoPath(name) {
		return "", fmt.Errorf("resolve %q: %w", name, packway.ErrInvalidInput)
	}

	rel := strings.Trim(name, "/")

	if _, err := r.root.Stat(rel); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("resolve %q: %w", name, packway.ErrNotFound)
	}

	return filepath.Join(r.dir, filepath.FromSlash(rel)), nil
}

// Create makes the directory for name, and any missing parents, and returns
// its absolute path. It does not initialize a repository inside it.
func (r *Root) Create(name string) (string, error) {
	path, err := r.Resolve(name)
	if err != nil {
		return "", err
	}

	if err := r.root.MkdirAll(strings.Trim(name, "/"), 0o755); err != nil {
		return "", fmt.Errorf("create %q: %w", name, err)
	}

	return path, nil
}

// List walks the root and returns the identifiers of all bare repositories
// below it, in lexical order. A directory holding both a HEAD file and an
// objects directory counts as a repository and is not descended into.
func (r *Root) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var repos []string

	if err := r.walkDir(ctx, ".", &repos); err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}

	return repos, nil
}

func (r *Root) walkDir(ctx context.Context, path string, repos *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.isRepository(path) {
		*repos = append(*repos, filepath.ToSlash(path))
		return nil
	}

	entries, err := fs.ReadDir(r.root.FS(), filepath.ToSlash(path))
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := r.walkDir(ctx, filepath.Join(path, entry.Name()), repos); err != nil {
			return err
		}
	}

	return nil
}

func (r *Root) isRepository(path string) bool {
	if path == "." {
		return false
	}

	head, err := r.root.Stat(filepath.Join(path, "HEAD"))
	if err != nil || head.IsDir() {
		return false
	}

	objects, err := r.root.Stat(filepath.Join(path, "objects"))
	return err == nil && objects.IsDir()
}
