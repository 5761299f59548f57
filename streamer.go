package packway

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"
)

// ReadSize is the number of bytes read at a time from streamed sources.
const ReadSize = 32 * 1024

// Streamer is a lazy, single-pass producer of fixed-size byte chunks.
//
// A Streamer either wraps a reader handed to NewIOStreamer or a file opened
// by OpenFile. File-backed streamers do not hold a descriptor until Chunks
// is ranged over, and release it when iteration ends for any reason.
type Streamer struct {
	path    string
	modTime time.Time
	open    func() (io.ReadCloser, error)
}

// NewIOStreamer wraps r. modTime is reported as the last modification time.
// If r implements io.Closer it is closed when iteration ends.
func NewIOStreamer(r io.Reader, modTime time.Time) *Streamer {
	return &Streamer{
		modTime: modTime,
		open: func() (io.ReadCloser, error) {
			if rc, ok := r.(io.ReadCloser); ok {
				return rc, nil
			}
			return io.NopCloser(r), nil
		},
	}
}

// OpenFile returns a file-backed Streamer for path.
// Returns ErrNotFound if path does not exist or is a directory.
func OpenFile(path string) (*Streamer, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open file streamer: %w", err)
	}

	if info.IsDir() {
		return nil, ErrNotFound
	}

	return &Streamer{
		path:    path,
		modTime: info.ModTime(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// ModTime returns the last modification time of the underlying source.
func (s *Streamer) ModTime() time.Time {
	return s.modTime
}

// Path returns the file path backing the streamer, if there is one.
// Callers may use it to hand the file to the OS directly instead of ranging over Chunks.
func (s *Streamer) Path() (string, bool) {
	return s.path, s.path != ""
}

// Chunks yields the source content in chunks of at most ReadSize bytes.
// The yielded slice is only valid until the next iteration.
func (s *Streamer) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		rc, err := s.open()
		if err != nil {
			yield(nil, fmt.Errorf("open stream: %w", err))
			return
		}
		defer func() { _ = rc.Close() }()

		buf := make([]byte, ReadSize)
		for {
			n, err := rc.Read(buf)
			if n > 0 {
				if !yield(buf[:n], nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read stream: %w", err))
				return
			}
		}
	}
}

// WriteTo drains the streamer into w.
func (s *Streamer) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for chunk, err := range s.Chunks() {
		if err != nil {
			return total, err
		}
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
