// Package identity materializes externally-owned identifiers (user ids,
// product ids, license ids, file ids issued by sibling services) into local
// mapping records. Mappings are append-only: created on first reference,
// never deleted.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Key spaces for external identifiers, one per owning service.
const (
	TableUser    = "user_id"
	TableProduct = "product_id"
	TableLicense = "license_id"
	TableFile    = "file_id"
)

var (
	// ErrResolutionFailed means the datastore could not look up or create a
	// mapping. Callers must treat this as a hard stop, never proceed with an
	// empty local id.
	ErrResolutionFailed = errors.New("identity resolution failed")

	ErrMappingNotFound = errors.New("identity mapping not found")

	ErrCacheMiss = errors.New("identity cache miss")
)

// Resolution is the typed outcome of a resolve call.
type Resolution struct {
	LocalID string
	Created bool
}

type Repository interface {
	// GetOrCreate returns the mapping for (table, externalKey), creating it
	// atomically when absent.
	GetOrCreate(ctx context.Context, table, externalKey string) (Resolution, error)
	// ExternalKey returns the external identifier behind a local id.
	ExternalKey(ctx context.Context, table, localID string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, table, externalKey string) (string, error)
	Set(ctx context.Context, table, externalKey, localID string) error
}

type Resolver struct {
	repo  Repository
	cache Cache
	sfg   singleflight.Group // collapses concurrent first-references
	log   *slog.Logger
}

func NewResolver(repo Repository, cache Cache, log *slog.Logger) *Resolver {
	return &Resolver{repo: repo, cache: cache, log: log}
}

// Resolve returns the local record mapping to externalKey in the given key
// space, creating it on first reference. Mappings never change once created,
// so cache hits are always authoritative.
func (r *Resolver) Resolve(ctx context.Context, table, externalKey string) (Resolution, error) {
	if externalKey == "" {
		return Resolution{}, fmt.Errorf("%w: empty external key for %s", ErrResolutionFailed, table)
	}

	v, err, _ := r.sfg.Do(table+":"+externalKey, func() (interface{}, error) {
		if localID, cacheErr := r.cache.Get(ctx, table, externalKey); cacheErr == nil {
			return Resolution{LocalID: localID}, nil
		} else if !errors.Is(cacheErr, ErrCacheMiss) {
			r.log.Warn("identity cache get failed", "table", table, "error", cacheErr)
		}

		res, repoErr := r.repo.GetOrCreate(ctx, table, externalKey)
		if repoErr != nil {
			return Resolution{}, fmt.Errorf("%w: %v", ErrResolutionFailed, repoErr)
		}

		if cacheErr := r.cache.Set(ctx, table, externalKey, res.LocalID); cacheErr != nil {
			r.log.Warn("identity cache set failed", "table", table, "error", cacheErr)
		}
		return res, nil
	})
	if err != nil {
		return Resolution{}, err
	}
	return v.(Resolution), nil
}

// ExternalKey is the reverse lookup, used when a local id must be handed to
// the service that owns the external identifier.
func (r *Resolver) ExternalKey(ctx context.Context, table, localID string) (string, error) {
	key, err := r.repo.ExternalKey(ctx, table, localID)
	if err != nil {
		if errors.Is(err, ErrMappingNotFound) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	return key, nil
}
