package packway

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service names a git transport service exposed over HTTP.
type Service string

const (
	ServiceUploadPack  Service = "git-upload-pack"
	ServiceReceivePack Service = "git-receive-pack"
)

func (s Service) IsValid() bool {
	switch s {
	case ServiceUploadPack, ServiceReceivePack:
		return true
	default:
		return false
	}
}

// ParseService returns the Service named by s. Unknown names are rejected.
func ParseService(s string) (Service, error) {
	svc := Service(s)
	if !svc.IsValid() {
		return "", fmt.Errorf("parse service %q: %w", s, ErrNotFound)
	}
	return svc, nil
}

// Verb returns the git subcommand for the service, e.g. "upload-pack".
func (s Service) Verb() string {
	return strings.TrimPrefix(string(s), "git-")
}

// RequestContentType is the content type a client must send when posting to the service.
func (s Service) RequestContentType() string {
	return "application/x-" + string(s) + "-request"
}

// ResultContentType is the content type of a pack exchange response.
func (s Service) ResultContentType() string {
	return "application/x-" + string(s) + "-result"
}

// AdvertisementContentType is the content type of a smart ref advertisement.
func (s Service) AdvertisementContentType() string {
	return "application/x-" + string(s) + "-advertisement"
}

// PackOptions controls a single pack exchange.
type PackOptions struct {
	// AdvertiseRefs runs the service in ref advertisement mode. No input is read.
	AdvertiseRefs bool
	// Started, when set, is called once the process is running and before any
	// output is written. Response headers are committed from here.
	Started func()
}

// Exchange records one completed pack exchange.
type Exchange struct {
	ID            uuid.UUID `json:"id"`
	Repository    string    `json:"repository"`
	Service       Service   `json:"service"`
	AdvertiseRefs bool      `json:"advertise_refs"`
	Status        string    `json:"status"`
	BytesIn       int64     `json:"bytes_in"`
	BytesOut      int64     `json:"bytes_out"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

const (
	ExchangeOK     = "ok"
	ExchangeFailed = "failed"
)

type ListQuery struct {
	Repository string
	Limit      int
	Cursor     string
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// PageSize returns Limit clamped to (0, MaxListLimit], defaulting to DefaultListLimit.
func (q ListQuery) PageSize() int {
	switch {
	case q.Limit <= 0:
		return DefaultListLimit
	case q.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return q.Limit
	}
}

type ListResult struct {
	Items      []Exchange `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// Tables holds configurable table names for the exchange log.
// This allows several gateways to share one database.
type Tables struct {
	Exchanges string `mapstructure:"exchanges"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Exchanges == "" {
		return errors.New("validate tables: exchanges table name cannot be empty")
	}

	if !IsValidTableName(t.Exchanges) {
		return fmt.Errorf("validate tables: invalid exchanges table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Exchanges)
	}

	return nil
}
