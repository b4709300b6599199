package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/orderdesk-backend/pkg/backend"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/redis"
)

// Source is the read side of the ledger backend.
type Source interface {
	GetOrganization(ctx context.Context, orgID uuid.UUID) (backend.Organization, error)
	ListProducts(ctx context.Context, orgID uuid.UUID) ([]backend.Product, error)
	ListAccounts(ctx context.Context, orgID uuid.UUID) ([]backend.Account, error)
	ListEntities(ctx context.Context, orgID uuid.UUID) ([]backend.Entity, error)
	GetEntity(ctx context.Context, orgID, entityID uuid.UUID) (backend.Entity, error)
}

// Cache stores serialized snapshots.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	RefDataKey(orgID string) string
}

type Service struct {
	source Source
	cache  Cache
	ttl    time.Duration
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the loader. A nil cache or non-positive ttl disables caching.
func NewService(source Source, cache Cache, ttl time.Duration, logg *logger.Logger) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("reference data source required")
	}
	return &Service{source: source, cache: cache, ttl: ttl, logg: logg, now: time.Now}, nil
}

// Load returns the organization's snapshot, served from cache while fresh.
func (s *Service) Load(ctx context.Context, orgID uuid.UUID) (*Snapshot, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	if snap, ok := s.fromCache(ctx, orgID); ok {
		return snap, nil
	}

	var (
		org      backend.Organization
		products []backend.Product
		accounts []backend.Account
		entities []backend.Entity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		org, err = s.source.GetOrganization(gctx, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.source.ListProducts(gctx, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		accounts, err = s.source.ListAccounts(gctx, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		entities, err = s.source.ListEntities(gctx, orgID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap, err := buildSnapshot(org, products, accounts, entities, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ledger backend returned malformed reference data")
	}
	s.toCache(ctx, orgID, snap)
	return snap, nil
}

// Entity reads one entity straight from the backend, bypassing the cache.
func (s *Service) Entity(ctx context.Context, orgID, entityID uuid.UUID) (Entity, error) {
	raw, err := s.source.GetEntity(ctx, orgID, entityID)
	if err != nil {
		return Entity{}, err
	}
	entity, err := entityFromBackend(raw)
	if err != nil {
		return Entity{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ledger backend returned a malformed entity")
	}
	return entity, nil
}

// Invalidate drops the cached snapshot after a write changed stock or balances.
func (s *Service) Invalidate(ctx context.Context, orgID uuid.UUID) error {
	if !s.cacheEnabled() {
		return nil
	}
	return s.cache.Del(ctx, s.cache.RefDataKey(orgID.String()))
}

func buildSnapshot(org backend.Organization, products []backend.Product, accounts []backend.Account, entities []backend.Entity, fetchedAt time.Time) (*Snapshot, error) {
	convertedProducts, err := productsFromBackend(products)
	if err != nil {
		return nil, err
	}
	convertedAccounts, err := accountsFromBackend(accounts)
	if err != nil {
		return nil, err
	}
	convertedEntities, err := entitiesFromBackend(entities)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(organizationFromBackend(org), convertedProducts, convertedAccounts, convertedEntities, fetchedAt), nil
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

func (s *Service) fromCache(ctx context.Context, orgID uuid.UUID) (*Snapshot, bool) {
	if !s.cacheEnabled() {
		return nil, false
	}
	key := s.cache.RefDataKey(orgID.String())
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !redis.IsNil(err) {
			s.warn(ctx, "refdata.cache_read_failed", err)
		}
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.warn(ctx, "refdata.cache_corrupt", err)
		_ = s.cache.Del(ctx, key)
		return nil, false
	}
	snap.reindex()
	return &snap, true
}

func (s *Service) toCache(ctx context.Context, orgID uuid.UUID, snap *Snapshot) {
	if !s.cacheEnabled() {
		return
	}
	encoded, err := json.Marshal(snap)
	if err != nil {
		s.warn(ctx, "refdata.cache_encode_failed", err)
		return
	}
	if err := s.cache.Set(ctx, s.cache.RefDataKey(orgID.String()), string(encoded), s.ttl); err != nil {
		s.warn(ctx, "refdata.cache_write_failed", err)
	}
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
