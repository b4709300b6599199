package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/resilience"
)

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
}

func (r *recordingObserver) ObserveBackendRequest(operation, status string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, operation+":"+status)
}

func testConfig(url string) config.BackendConfig {
	return config.BackendConfig{
		BaseURL:                 url,
		APIToken:                "svc-token",
		Timeout:                 2 * time.Second,
		MaxAttempts:             3,
		BaseBackoff:             time.Millisecond,
		MaxBackoff:              5 * time.Millisecond,
		BreakerFailureThreshold: 10,
		BreakerOpenTimeout:      time.Minute,
	}
}

func TestListProductsSendsHeadersAndDecodesEnvelope(t *testing.T) {
	orgID := uuid.New()
	variantID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/organizations/"+orgID.String()+"/products", r.URL.Path)
		require.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		require.Equal(t, orgID.String(), r.Header.Get("X-Organization-Id"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{
				"id":   uuid.New(),
				"name": "Rice",
				"variants": []map[string]any{{
					"id":        variantID,
					"name":      "5kg",
					"sellPrice": 12.5,
					"stockLots": []map[string]any{{"id": uuid.New(), "unitCost": 10, "originalQuantity": 5, "availableQuantity": 5}},
				}},
			}},
		})
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	products, err := client.ListProducts(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, variantID, products[0].Variants[0].ID)
	require.Equal(t, 5, products[0].Variants[0].StockLots[0].AvailableQuantity)
}

func TestGetEntityDecodesBareDocument(t *testing.T) {
	entityID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     entityID,
			"name":   "Acme Supplies",
			"orders": []map[string]any{{"id": uuid.New(), "type": "BUY", "totalAmount": 300, "paidTillNow": 0}},
		})
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	entity, err := client.GetEntity(context.Background(), uuid.New(), entityID)
	require.NoError(t, err)
	require.Equal(t, "Acme Supplies", entity.Name)
	require.Len(t, entity.Orders, 1)
}

func TestServerErrorsAreRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	client, err := New(testConfig(srv.URL), WithObserver(obs))
	require.NoError(t, err)

	_, err = client.ListAccounts(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, int32(3), hits.Load())
	require.Equal(t, []string{"list_accounts:502", "list_accounts:502", "list_accounts:200"}, obs.statuses)
}

func TestClientErrorsMapToUpstreamRejectedWithoutRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "session-1", r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"insufficient stock for 5kg"}}`))
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.CreateOrder(context.Background(), uuid.New(), "session-1", CreateOrderRequest{Type: "SELL"})
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstreamRejected))
	require.Equal(t, "insufficient stock for 5kg", pkgerrors.As(err).Message())
	require.Equal(t, int32(1), hits.Load())
}

func TestWritesWithoutIdempotencyKeyAreNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.CreateAccountTransaction(context.Background(), uuid.New(), uuid.New(), "", AccountTransactionRequest{Amount: 10, Type: "BUY"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.Equal(t, int32(1), hits.Load())
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxAttempts = 1
	cfg.BreakerFailureThreshold = 2
	client, err := New(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.ListEntities(ctx, uuid.New())
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	}

	_, err = client.ListEntities(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	require.Equal(t, int32(2), hits.Load())
}

func TestNotFoundMapsToNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"entity not found"}`))
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.GetEntity(context.Background(), uuid.New(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New(config.BackendConfig{})
	require.Error(t, err)

	_, err = New(config.BackendConfig{BaseURL: "ftp://ledger"})
	require.Error(t, err)
}
