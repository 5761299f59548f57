package gitexec

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireBinary(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available", name)
	}
	return path
}

// cat echoes its input, so the relay has to move both directions at once
// or the pipes fill up and the exchange deadlocks.
func TestRun_FullDuplex(t *testing.T) {
	a := New(requireBinary(t, "cat"), "")

	payload := make([]byte, 4<<20+17)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	var out bytes.Buffer
	err = a.run(context.Background(), invocation{in: bytes.NewReader(payload), out: &out})
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, out.Bytes()))
}

func TestRun_StartedRunsFirst(t *testing.T) {
	a := New(requireBinary(t, "cat"), "")

	var out bytes.Buffer
	err := a.run(context.Background(), invocation{
		in:  bytes.NewReader([]byte("body")),
		out: &out,
		started: func(w io.Writer) error {
			_, err := io.WriteString(w, "head:")
			return err
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "head:body", out.String())
}

func TestRun_StartedError(t *testing.T) {
	a := New(requireBinary(t, "cat"), "")

	boom := errors.New("boom")
	err := a.run(context.Background(), invocation{
		in:      bytes.NewReader([]byte("body")),
		out:     io.Discard,
		started: func(io.Writer) error { return boom },
	})
	assert.ErrorIs(t, err, boom)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestRun_OutputError(t *testing.T) {
	a := New(requireBinary(t, "cat"), "")

	err := a.run(context.Background(), invocation{
		in:  bytes.NewReader(make([]byte, 1<<20)),
		out: failingWriter{},
	})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestRun_ExitCode(t *testing.T) {
	a := New(requireBinary(t, "false"), "")

	err := a.run(context.Background(), invocation{})

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}
