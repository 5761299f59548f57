// Package packway implements the git "smart HTTP" transport as a gateway in
// front of the git binary.
//
// Packway maps HTTP requests onto a small, fixed set of repository operations
// (ref advertisement, fetch and push pack negotiation, and static file
// serving for dumb clients) and streams the results back without holding
// whole payloads in memory. Object and pack computation is delegated to an
// external git process running in stateless RPC mode.
//
// # Key Components
//
//   - Repository: capability interface over a single repository on disk
//   - RepositoryFactory: selects the Repository implementation at startup
//   - AccessPolicy: decides whether fetch (upload-pack) and push (receive-pack) are allowed
//   - Streamer: lazy fixed-size chunk producer backing file and process output
//   - ExchangeLog: optional persistence of completed pack exchanges
//
// # Implementations
//
// The gitexec package provides the default Repository backed by the git
// binary. The compat package adapts old-style adapters to the same
// interface. The http package implements routing and protocol dispatch.
//
// # Example Usage
//
//	root, err := filesystem.Open("/srv/git")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	handler := http.NewHandler(&http.HandlerConfig{}, root, gitexec.NewFactory("git"))
//	log.Fatal(nethttp.ListenAndServe(":8080", handler.Router()))
package packway
