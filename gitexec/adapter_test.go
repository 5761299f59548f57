package gitexec_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sagarc03/packway"
	"github.com/sagarc03/packway/gitexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestAdapter_LaunchFailure(t *testing.T) {
	adapter := gitexec.New("a/highly/unlikely/path/to/git", t.TempDir())

	err := adapter.HandlePack(context.Background(), packway.ServiceReceivePack, strings.NewReader(""), io.Discard, packway.PackOptions{})
	assert.ErrorIs(t, err, packway.ErrLaunch)
}

func TestAdapter_LaunchFailure_StartedNotCalled(t *testing.T) {
	adapter := gitexec.New("a/highly/unlikely/path/to/git", t.TempDir())

	called := false
	err := adapter.HandlePack(context.Background(), packway.ServiceUploadPack, nil, io.Discard, packway.PackOptions{
		AdvertiseRefs: true,
		Started:       func() { called = true },
	})
	assert.ErrorIs(t, err, packway.ErrLaunch)
	assert.False(t, called)
}

func TestAdapter_AdvertiseReceivePack(t *testing.T) {
	repo := newBareRepo(t)
	adapter := gitexec.New(requireGit(t), repo)

	var out bytes.Buffer
	err := adapter.HandlePack(context.Background(), packway.ServiceReceivePack, nil, &out, packway.PackOptions{AdvertiseRefs: true})
	require.NoError(t, err)

	body := out.String()
	assert.True(t, strings.HasPrefix(body, "001f# service=git-receive-pack\n0000"), "body: %q", body)
	assert.Contains(t, body, "report-status")
	assert.Contains(t, body, "delete-refs")
	assert.True(t, strings.HasSuffix(body, "0000"))
}

func TestAdapter_AdvertiseUploadPack_StartedBeforeOutput(t *testing.T) {
	repo := newBareRepo(t)
	adapter := gitexec.New(requireGit(t), repo)

	var out bytes.Buffer
	lenAtStart := -1
	err := adapter.HandlePack(context.Background(), packway.ServiceUploadPack, nil, &out, packway.PackOptions{
		AdvertiseRefs: true,
		Started:       func() { lenAtStart = out.Len() },
	})
	require.NoError(t, err)

	assert.Equal(t, 0, lenAtStart)
	assert.True(t, strings.HasPrefix(out.String(), "001e# service=git-upload-pack\n0000"))
}

func TestAdapter_UploadPack_FlushOnly(t *testing.T) {
	repo := newBareRepo(t)
	adapter := gitexec.New(requireGit(t), repo)

	var out bytes.Buffer
	err := adapter.HandlePack(context.Background(), packway.ServiceUploadPack, strings.NewReader("0000"), &out, packway.PackOptions{})
	require.NoError(t, err)
	assert.Equal(t, "", out.String())
}

func TestAdapter_HandlePack_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := newBareRepo(t)
	adapter := gitexec.New(requireGit(t), repo)

	// The input never ends, so upload-pack waits until the context is cancelled.
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- adapter.HandlePack(ctx, packway.ServiceUploadPack, pr, io.Discard, packway.PackOptions{})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(10 * time.Second):
		t.Fatal("exchange did not terminate after cancellation")
	}

	// Unblock the input copier, which is parked on a pipe read.
	_ = pw.Close()
	_ = pr.Close()
}

func TestAdapter_UpdateServerInfo(t *testing.T) {
	repo := newBareRepo(t)
	adapter := gitexec.New(requireGit(t), repo)

	refsFile := filepath.Join(repo, "info", "refs")
	refs, err := os.ReadFile(refsFile)
	require.NoError(t, err)
	require.NoError(t, os.Remove(refsFile))

	require.NoError(t, adapter.UpdateServerInfo(context.Background()))

	regenerated, err := os.ReadFile(refsFile)
	require.NoError(t, err)
	assert.Equal(t, refs, regenerated)
}

func TestAdapter_Exists(t *testing.T) {
	repo := newBareRepo(t)

	assert.True(t, gitexec.New("git", repo).Exists())
	assert.False(t, gitexec.New("git", filepath.Join(repo, "a/highly/unlikely/path")).Exists())
	assert.False(t, gitexec.New("git", filepath.Join(repo, "HEAD")).Exists())
}

func TestAdapter_File(t *testing.T) {
	repo := newBareRepo(t)
	adapter := gitexec.New(requireGit(t), repo)

	_, err := adapter.File("a/highly/unlikely/path/to/a/file")
	assert.ErrorIs(t, err, packway.ErrNotFound)

	sha := strings.TrimSpace(git(t, repo, "rev-parse", "HEAD"))
	objectPath := "objects/" + sha[:2] + "/" + sha[2:]
	fullPath := filepath.Join(repo, objectPath)

	s, err := adapter.File(objectPath)
	require.NoError(t, err)

	path, ok := s.Path()
	assert.True(t, ok)
	assert.Equal(t, fullPath, path)

	info, err := os.Stat(fullPath)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(s.ModTime()))
}

func TestAdapter_AllowPush(t *testing.T) {
	repo := newBareRepo(t)
	adapter := gitexec.New(requireGit(t), repo)
	ctx := context.Background()

	allowed, err := adapter.AllowPush(ctx)
	require.NoError(t, err)
	assert.False(t, allowed)

	git(t, repo, "config", "--local", "http.receivepack", "false")
	allowed, err = adapter.AllowPush(ctx)
	require.NoError(t, err)
	assert.False(t, allowed)

	git(t, repo, "config", "--local", "http.receivepack", "true")
	allowed, err = adapter.AllowPush(ctx)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAdapter_AllowPull(t *testing.T) {
	repo := newBareRepo(t)
	adapter := gitexec.New(requireGit(t), repo)
	ctx := context.Background()

	allowed, err := adapter.AllowPull(ctx)
	require.NoError(t, err)
	assert.True(t, allowed)

	git(t, repo, "config", "--local", "http.uploadpack", "false")
	allowed, err = adapter.AllowPull(ctx)
	require.NoError(t, err)
	assert.False(t, allowed)

	git(t, repo, "config", "--local", "http.uploadpack", "true")
	allowed, err = adapter.AllowPull(ctx)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAdapter_ConfigValue_Unset(t *testing.T) {
	repo := newBareRepo(t)
	adapter := gitexec.New(requireGit(t), repo)

	value, err := adapter.ConfigValue(context.Background(), "packway.nothing")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestAdapter_ConfigValue_NotARepository(t *testing.T) {
	bin := requireGit(t)
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	adapter := gitexec.New(bin, dir)
	ctx := context.Background()

	value, err := adapter.ConfigValue(ctx, "http.receivepack")
	require.NoError(t, err)
	assert.Equal(t, "", value)

	allowed, err := adapter.AllowPull(ctx)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = adapter.AllowPush(ctx)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAdapter_ConfigValue_LaunchFailure(t *testing.T) {
	adapter := gitexec.New(filepath.Join(t.TempDir(), "no-such-git"), t.TempDir())

	_, err := adapter.ConfigValue(context.Background(), "http.receivepack")
	assert.ErrorIs(t, err, packway.ErrLaunch)
}

func TestNewFactory(t *testing.T) {
	factory := gitexec.NewFactory("git")
	repo := factory("/srv/git/example.git")

	assert.Equal(t, "/srv/git/example.git", repo.Path())
}
