package packway

import (
	"context"
	"io"
)

// Repository defines the operations the gateway needs from a single
// repository on disk. A Repository is bound to one validated path and is
// used for the duration of one request.
//
// All blocking methods accept a context. Implementations must stop work and
// release any process or descriptor they hold when the context is cancelled.
type Repository interface {
	// Path returns the absolute path of the repository.
	Path() string

	// Exists reports whether the repository is present on disk.
	Exists() bool

	// HandlePack runs the given service against the repository.
	//
	// Parameters:
	//   - ctx: Context for cancellation; cancelling it terminates the exchange
	//   - svc: The service to run (upload-pack or receive-pack)
	//   - in: Client input; ignored when opts.AdvertiseRefs is set
	//   - out: Destination for service output
	//   - opts: Exchange options
	//
	// Returns:
	//   - error: ErrLaunch (wrapped) if the service could not be started, or
	//     any I/O or process error. Output may already have been written.
	HandlePack(ctx context.Context, svc Service, in io.Reader, out io.Writer, opts PackOptions) error

	// File returns a Streamer for the file at path, relative to the repository.
	//
	// Returns:
	//   - *Streamer: lazy reader over the file content
	//   - error: ErrNotFound if the file does not exist
	File(path string) (*Streamer, error)

	// UpdateServerInfo regenerates the auxiliary files dumb clients rely on
	// (info/refs, objects/info/packs).
	UpdateServerInfo(ctx context.Context) error

	// AllowPull reports the repository's own setting for upload-pack.
	AllowPull(ctx context.Context) (bool, error)

	// AllowPush reports the repository's own setting for receive-pack.
	AllowPush(ctx context.Context) (bool, error)
}

// RepositoryFactory creates a Repository for an absolute repository path.
// The factory is chosen once at startup and shared by all requests.
type RepositoryFactory func(path string) Repository

// ExchangeLog persists completed pack exchanges.
// Implementations must be safe for concurrent use.
type ExchangeLog interface {
	// Record stores a completed exchange.
	Record(ctx context.Context, e Exchange) error

	// List returns exchanges, most recent first, optionally filtered by repository.
	List(ctx context.Context, q ListQuery) (ListResult, error)
}
