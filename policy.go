package packway

import (
	"context"
	"fmt"
)

// AccessPolicy decides whether a service may run against a repository.
//
// A non-nil AllowPull or AllowPush is a server-wide override. When unset the
// repository's own configuration is consulted on every call.
type AccessPolicy struct {
	AllowPull *bool
	AllowPush *bool
}

// CanUploadPack reports whether fetches are permitted for repo.
func (p AccessPolicy) CanUploadPack(ctx context.Context, repo Repository) (bool, error) {
	if p.AllowPull != nil {
		return *p.AllowPull, nil
	}

	allowed, err := repo.AllowPull(ctx)
	if err != nil {
		return false, fmt.Errorf("can upload pack: %w", err)
	}
	return allowed, nil
}

// CanReceivePack reports whether pushes are permitted for repo.
func (p AccessPolicy) CanReceivePack(ctx context.Context, repo Repository) (bool, error) {
	if p.AllowPush != nil {
		return *p.AllowPush, nil
	}

	allowed, err := repo.AllowPush(ctx)
	if err != nil {
		return false, fmt.Errorf("can receive pack: %w", err)
	}
	return allowed, nil
}

// Allowed dispatches to CanUploadPack or CanReceivePack based on svc.
func (p AccessPolicy) Allowed(ctx context.Context, repo Repository, svc Service) (bool, error) {
	switch svc {
	case ServiceUploadPack:
		return p.CanUploadPack(ctx, repo)
	case ServiceReceivePack:
		return p.CanReceivePack(ctx, repo)
	default:
		return false, nil
	}
}

// Bool returns a pointer to b, for building an AccessPolicy.
func Bool(b bool) *bool {
	return &b
}
