package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/resilience"
)

const (
	headerOrganization = "X-Organization-Id"
	headerIdempotency  = "Idempotency-Key"

	maxResponseBytes = 4 << 20
)

// Observer receives one sample per backend attempt.
type Observer interface {
	ObserveBackendRequest(operation, status string, elapsed time.Duration)
}

// Client talks to the authoritative ledger REST API.
type Client struct {
	baseURL  *url.URL
	token    string
	http     *http.Client
	breaker  *resilience.Breaker
	retry    resilience.RetryConfig
	observer Observer
	logg     *logger.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.logg = l }
}

func New(cfg config.BackendConfig, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("backend base url required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend base url must be http(s), got %q", raw)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL: base,
		token:   strings.TrimSpace(cfg.APIToken),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		retry: resilience.RetryConfig{
			MaxAttempts: cfg.MaxAttempts,
			BaseBackoff: cfg.BaseBackoff,
			MaxBackoff:  cfg.MaxBackoff,
			Jitter:      0.2,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = resilience.NewBreaker(resilience.BreakerConfig{
		Name:             "ledger-backend",
		FailureThreshold: cfg.BreakerFailureThreshold,
		OpenTimeout:      cfg.BreakerOpenTimeout,
		HalfOpenRequests: cfg.BreakerHalfOpenRequests,
	}, c.logg)
	return c, nil
}

func (c *Client) GetOrganization(ctx context.Context, orgID uuid.UUID) (Organization, error) {
	var out Organization
	err := c.do(ctx, request{
		operation: "get_organization",
		method:    http.MethodGet,
		path:      "/organizations/" + orgID.String(),
		orgID:     orgID,
		out:       &out,
	})
	return out, err
}

func (c *Client) ListProducts(ctx context.Context, orgID uuid.UUID) ([]Product, error) {
	var out []Product
	err := c.do(ctx, request{
		operation: "list_products",
		method:    http.MethodGet,
		path:      "/organizations/" + orgID.String() + "/products",
		orgID:     orgID,
		out:       &out,
	})
	return out, err
}

func (c *Client) ListAccounts(ctx context.Context, orgID uuid.UUID) ([]Account, error) {
	var out []Account
	err := c.do(ctx, request{
		operation: "list_accounts",
		method:    http.MethodGet,
		path:      "/organizations/" + orgID.String() + "/accounts",
		orgID:     orgID,
		out:       &out,
	})
	return out, err
}

func (c *Client) ListEntities(ctx context.Context, orgID uuid.UUID) ([]Entity, error) {
	var out []Entity
	err := c.do(ctx, request{
		operation: "list_entities",
		method:    http.MethodGet,
		path:      "/organizations/" + orgID.String() + "/entities",
		orgID:     orgID,
		out:       &out,
	})
	return out, err
}

func (c *Client) GetEntity(ctx context.Context, orgID, entityID uuid.UUID) (Entity, error) {
	var out Entity
	err := c.do(ctx, request{
		operation: "get_entity",
		method:    http.MethodGet,
		path:      "/organizations/" + orgID.String() + "/entities/" + entityID.String(),
		orgID:     orgID,
		out:       &out,
	})
	return out, err
}

// CreateOrder submits an order. The idempotency key lets the backend collapse retries.
func (c *Client) CreateOrder(ctx context.Context, orgID uuid.UUID, idempotencyKey string, payload CreateOrderRequest) (CreatedOrder, error) {
	var out CreatedOrder
	err := c.do(ctx, request{
		operation:      "create_order",
		method:         http.MethodPost,
		path:           "/organizations/" + orgID.String() + "/orders",
		orgID:          orgID,
		idempotencyKey: idempotencyKey,
		body:           payload,
		out:            &out,
	})
	return out, err
}

func (c *Client) CreateOrderTransaction(ctx context.Context, orgID, orderID uuid.UUID, idempotencyKey string, payload OrderTransactionRequest) (Transaction, error) {
	var out Transaction
	err := c.do(ctx, request{
		operation:      "create_order_transaction",
		method:         http.MethodPost,
		path:           "/orders/" + orderID.String() + "/transactions",
		orgID:          orgID,
		idempotencyKey: idempotencyKey,
		body:           payload,
		out:            &out,
	})
	return out, err
}

func (c *Client) CreateAccountTransaction(ctx context.Context, orgID, accountID uuid.UUID, idempotencyKey string, payload AccountTransactionRequest) (Transaction, error) {
	var out Transaction
	err := c.do(ctx, request{
		operation:      "create_account_transaction",
		method:         http.MethodPost,
		path:           "/accounts/" + accountID.String() + "/transactions",
		orgID:          orgID,
		idempotencyKey: idempotencyKey,
		body:           payload,
		out:            &out,
	})
	return out, err
}

type request struct {
	operation      string
	method         string
	path           string
	orgID          uuid.UUID
	idempotencyKey string
	body           any
	out            any
}

type rawResponse struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, req request) error {
	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode backend request")
		}
		payload = encoded
	}

	retry := c.retry
	// Writes without an idempotency key could double-post, so they get one shot.
	if req.method != http.MethodGet && req.idempotencyKey == "" {
		retry.MaxAttempts = 1
	}

	err := resilience.Retry(ctx, retry, func(attempt int) error {
		start := time.Now()
		result, err := c.breaker.Execute(func() (any, error) {
			resp, err := c.send(ctx, req, payload)
			if err != nil {
				return nil, err
			}
			if resp.status >= 500 {
				return nil, mapStatus(req.operation, resp.status, resp.body)
			}
			return resp, nil
		})
		c.observe(req.operation, result, err, time.Since(start))

		if err != nil {
			if ctx.Err() != nil {
				return resilience.Permanent(ctx.Err())
			}
			return err
		}
		resp := result.(*rawResponse)
		if resp.status >= 400 {
			return resilience.Permanent(mapStatus(req.operation, resp.status, resp.body))
		}
		if err := decodeBody(resp.body, req.out); err != nil {
			return resilience.Permanent(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode ledger backend response"))
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ledger backend unavailable")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ledger backend unavailable")
}

func (c *Client) send(ctx context.Context, req request, payload []byte) (*rawResponse, error) {
	target := *c.baseURL
	target.Path = c.baseURL.Path + req.path

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if req.orgID != uuid.Nil {
		httpReq.Header.Set(headerOrganization, req.orgID.String())
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set(headerIdempotency, req.idempotencyKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	return &rawResponse{status: resp.StatusCode, body: data}, nil
}

// decodeBody accepts either a bare JSON document or one wrapped in {"data": ...}.
func decodeBody(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if trimmed := bytes.TrimSpace(body); trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Data) > 0 {
			return json.Unmarshal(envelope.Data, out)
		}
	}
	return json.Unmarshal(body, out)
}

func (c *Client) observe(operation string, result any, err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	status := "error"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		status = "circuit_open"
	case err != nil:
		var se *statusError
		if errors.As(err, &se) {
			status = strconv.Itoa(se.status)
		}
	default:
		if resp, ok := result.(*rawResponse); ok {
			status = strconv.Itoa(resp.status)
		}
	}
	c.observer.ObserveBackendRequest(operation, status, elapsed)
}
