package gitexec_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git binary not available")
	}
	return path
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Some User",
		"GIT_AUTHOR_EMAIL=some@example.com",
		"GIT_COMMITTER_NAME=Some User",
		"GIT_COMMITTER_EMAIL=some@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
		"HOME="+dir,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}

// newBareRepo creates a bare repository with one commit and returns its path.
func newBareRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)

	root := t.TempDir()
	work := filepath.Join(root, "work")
	require.NoError(t, os.Mkdir(work, 0o755))

	git(t, work, "init", "--quiet")
	require.NoError(t, os.WriteFile(filepath.Join(work, "README"), []byte("hello\n"), 0o644))
	git(t, work, "add", "README")
	git(t, work, "commit", "--quiet", "-m", "initial commit")

	bare := filepath.Join(root, "example.git")
	git(t, root, "clone", "--quiet", "--bare", work, bare)
	git(t, bare, "update-server-info")

	return bare
}
