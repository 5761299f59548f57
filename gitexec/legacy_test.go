package gitexec_test

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sagarc03/packway"
	"github.com/sagarc03/packway/compat"
	"github.com/sagarc03/packway/gitexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacy_AdvertiseUploadPack(t *testing.T) {
	repo := newBareRepo(t)
	legacy := gitexec.NewLegacy(requireGit(t), repo)

	var out bytes.Buffer
	err := legacy.UploadPack(context.Background(), repo, compat.Options{AdvertiseRefs: true}, func(r io.Reader) error {
		_, err := io.Copy(&out, r)
		return err
	})
	require.NoError(t, err)

	// Old-style adapters leave the banner to the caller.
	assert.False(t, strings.HasPrefix(out.String(), "001e# service="))
	assert.Contains(t, out.String(), "refs/heads/")
}

func TestLegacy_LaunchFailure(t *testing.T) {
	repo := t.TempDir()
	legacy := gitexec.NewLegacy("a/highly/unlikely/path/to/git", repo)

	called := false
	err := legacy.ReceivePack(context.Background(), repo, compat.Options{AdvertiseRefs: true}, func(io.Reader) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, packway.ErrLaunch)
	assert.False(t, called)
}

func TestLegacy_ResultStopsEarly(t *testing.T) {
	repo := newBareRepo(t)
	legacy := gitexec.NewLegacy(requireGit(t), repo)

	err := legacy.UploadPack(context.Background(), repo, compat.Options{AdvertiseRefs: true}, func(io.Reader) error {
		return io.ErrShortWrite
	})
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestLegacy_ConfigSetting(t *testing.T) {
	repo := newBareRepo(t)
	legacy := gitexec.NewLegacy(requireGit(t), repo)
	ctx := context.Background()

	value, err := legacy.ConfigSetting(ctx, "receivepack")
	require.NoError(t, err)
	assert.Equal(t, "", value)

	git(t, repo, "config", "--local", "http.receivepack", "true")

	value, err = legacy.ConfigSetting(ctx, "receivepack")
	require.NoError(t, err)
	assert.Equal(t, "true", value)
}

func TestNewLegacyFactory_NotARepositoryUsesDefaults(t *testing.T) {
	bin := requireGit(t)
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	repo := gitexec.NewLegacyFactory(bin)(dir)
	ctx := context.Background()

	allowed, err := repo.AllowPull(ctx)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = repo.AllowPush(ctx)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestNewLegacyFactory_AdvertiseMatchesAdapter(t *testing.T) {
	repo := newBareRepo(t)
	bin := requireGit(t)
	ctx := context.Background()

	var direct, shimmed bytes.Buffer
	require.NoError(t, gitexec.New(bin, repo).HandlePack(ctx, packway.ServiceUploadPack, nil, &direct, packway.PackOptions{AdvertiseRefs: true}))
	require.NoError(t, gitexec.NewLegacyFactory(bin)(repo).HandlePack(ctx, packway.ServiceUploadPack, nil, &shimmed, packway.PackOptions{AdvertiseRefs: true}))

	assert.Equal(t, direct.String(), shimmed.String())
}
