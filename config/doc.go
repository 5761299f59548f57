// Package config provides configuration loading and validation for packway.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (PACKWAY_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    return err
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with PACKWAY_ prefix:
//   - server.port → PACKWAY_SERVER_PORT
//   - repos.root → PACKWAY_REPOS_ROOT
//   - access.allow_push → PACKWAY_ACCESS_ALLOW_PUSH
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port and timeouts
//   - Repos: the directory holding the served repositories
//   - Git: git binary path and the adapter used to drive it (gitexec or legacy)
//   - Access: server-wide upload-pack/receive-pack overrides
//   - Auth: basic authentication for reads and writes, and its credentials
//   - CORS: cross-origin resource sharing settings
//   - Audit: exchange log backend (sqlite or postgres)
//   - Metrics: Prometheus listener address
//   - Log: level and format
//
// Older configuration files may use repos.project_root, access.upload_pack and
// access.receive_pack. They are honoured when the current names are unset.
package config
