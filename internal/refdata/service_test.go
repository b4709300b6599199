package refdata

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/pkg/backend"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/redis"
)

type fakeSource struct {
	org         backend.Organization
	products    []backend.Product
	accounts    []backend.Account
	entities    []backend.Entity
	listCalls   atomic.Int32
	productsErr error
}

func (f *fakeSource) GetOrganization(context.Context, uuid.UUID) (backend.Organization, error) {
	return f.org, nil
}

func (f *fakeSource) ListProducts(context.Context, uuid.UUID) ([]backend.Product, error) {
	f.listCalls.Add(1)
	return f.products, f.productsErr
}

func (f *fakeSource) ListAccounts(context.Context, uuid.UUID) ([]backend.Account, error) {
	return f.accounts, nil
}

func (f *fakeSource) ListEntities(context.Context, uuid.UUID) ([]backend.Entity, error) {
	return f.entities, nil
}

func (f *fakeSource) GetEntity(_ context.Context, _ uuid.UUID, entityID uuid.UUID) (backend.Entity, error) {
	for _, e := range f.entities {
		if e.ID == entityID {
			return e, nil
		}
	}
	return backend.Entity{}, pkgerrors.New(pkgerrors.CodeNotFound, "entity not found")
}

func sampleSource() (*fakeSource, uuid.UUID, uuid.UUID, uuid.UUID) {
	variantID := uuid.New()
	cashID := uuid.New()
	walkInID := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older, newer := uuid.New(), uuid.New()
	src := &fakeSource{
		org: backend.Organization{ID: uuid.New(), Name: "Corner Shop", CashRegisterAccountID: &cashID, DefaultEntityID: &walkInID},
		products: []backend.Product{{
			ID:   uuid.New(),
			Name: "Rice",
			Variants: []backend.Variant{{
				ID: variantID, Name: "5kg", SellPrice: 15, BuyPrice: 11,
				StockLots: []backend.StockLot{
					{ID: newer, UnitCost: 12, OriginalQuantity: 10, AvailableQuantity: 10, CreatedAt: base.Add(48 * time.Hour)},
					{ID: older, UnitCost: 10, OriginalQuantity: 5, AvailableQuantity: 5, CreatedAt: base},
				},
			}},
		}},
		accounts: []backend.Account{{ID: cashID, Name: "Till", Type: "CASH", Balance: 250}},
		entities: []backend.Entity{{ID: walkInID, Name: "Walk-in"}},
	}
	return src, variantID, cashID, walkInID
}

func TestLoadBuildsIndexedSnapshot(t *testing.T) {
	src, variantID, cashID, walkInID := sampleSource()
	svc, err := NewService(src, nil, 0, nil)
	require.NoError(t, err)

	snap, err := svc.Load(context.Background(), uuid.New())
	require.NoError(t, err)

	variant, product, ok := snap.Variant(variantID)
	require.True(t, ok)
	require.Equal(t, "Rice", product.Name)
	require.Equal(t, 15, variant.AvailableStock())
	require.Equal(t, 10.0, variant.Lots[0].UnitCost, "lots are ordered oldest first")
	require.Equal(t, 11.0, variant.DefaultRate(enums.OrderTypeBuy))
	require.Equal(t, 15.0, variant.DefaultRate(enums.OrderTypeSell))

	register, ok := snap.CashRegister()
	require.True(t, ok)
	require.Equal(t, cashID, register.ID)
	require.True(t, snap.IsDefaultEntity(walkInID))
	require.False(t, snap.IsDefaultEntity(uuid.New()))

	def, ok := snap.DefaultEntity()
	require.True(t, ok)
	require.Equal(t, walkInID, def.ID)
}

func TestLoadServesFromCacheUntilInvalidated(t *testing.T) {
	srv := miniredis.RunT(t)
	cache := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
	src, variantID, _, _ := sampleSource()
	svc, err := NewService(src, cache, time.Minute, nil)
	require.NoError(t, err)

	orgID := uuid.New()
	ctx := context.Background()
	_, err = svc.Load(ctx, orgID)
	require.NoError(t, err)
	require.True(t, srv.Exists(cache.RefDataKey(orgID.String())))

	snap, err := svc.Load(ctx, orgID)
	require.NoError(t, err)
	require.Equal(t, int32(1), src.listCalls.Load())
	_, _, ok := snap.Variant(variantID)
	require.True(t, ok, "cached snapshot must be re-indexed")

	require.NoError(t, svc.Invalidate(ctx, orgID))
	_, err = svc.Load(ctx, orgID)
	require.NoError(t, err)
	require.Equal(t, int32(2), src.listCalls.Load())
}

func TestLoadDiscardsCorruptCacheEntry(t *testing.T) {
	srv := miniredis.RunT(t)
	cache := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
	src, _, _, _ := sampleSource()
	svc, err := NewService(src, cache, time.Minute, nil)
	require.NoError(t, err)

	orgID := uuid.New()
	require.NoError(t, srv.Set(cache.RefDataKey(orgID.String()), "{not json"))

	_, err = svc.Load(context.Background(), orgID)
	require.NoError(t, err)
	require.Equal(t, int32(1), src.listCalls.Load())
}

func TestLoadPropagatesBackendErrors(t *testing.T) {
	src, _, _, _ := sampleSource()
	src.productsErr = pkgerrors.New(pkgerrors.CodeDependency, "ledger backend unavailable")
	svc, err := NewService(src, nil, 0, nil)
	require.NoError(t, err)

	_, err = svc.Load(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestLoadRejectsUnknownAccountType(t *testing.T) {
	src, _, _, _ := sampleSource()
	src.accounts[0].Type = "CRYPTO"
	svc, err := NewService(src, nil, 0, nil)
	require.NoError(t, err)

	_, err = svc.Load(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestLoadRejectsInvalidLots(t *testing.T) {
	src, _, _, _ := sampleSource()
	src.products[0].Variants[0].StockLots[0].AvailableQuantity = 99
	svc, err := NewService(src, nil, 0, nil)
	require.NoError(t, err)

	_, err = svc.Load(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestEntityReadsFresh(t *testing.T) {
	src, _, _, walkInID := sampleSource()
	src.entities[0].Orders = []backend.EntityOrder{{ID: uuid.New(), Type: "BUY", TotalAmount: 500, PaidTillNow: 200}}
	svc, err := NewService(src, nil, 0, nil)
	require.NoError(t, err)

	entity, err := svc.Entity(context.Background(), uuid.New(), walkInID)
	require.NoError(t, err)
	require.Equal(t, 300.0, entity.Outstanding())
	require.Equal(t, enums.OrderTypeBuy, entity.Orders[0].Type)
}

func TestEntityOrderRemainingClamps(t *testing.T) {
	o := EntityOrder{TotalAmount: 100, PaidTillNow: 120}
	require.Equal(t, 0.0, o.Remaining())
}

func TestNewServiceRequiresSource(t *testing.T) {
	_, err := NewService(nil, nil, 0, nil)
	require.Error(t, err)
}
