package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
)

func configWith(url, addr string) config.RedisConfig {
	return config.RedisConfig{URL: url, Address: addr}
}

func TestSetNXAndDelete(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "k", "v1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "v2", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected second SetNX to lose")
	}

	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "k"); !IsNil(err) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestWrapAgainstMiniredis(t *testing.T) {
	srv := miniredis.RunT(t)
	client := Wrap(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	key := client.DraftKey("org-1", "SELL", "user-1")
	if err := client.Set(ctx, key, `{"stage":"details"}`, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if ttl := srv.TTL(key); ttl != time.Minute {
		t.Fatalf("expected ttl to be applied, got %v", ttl)
	}
	got, err := client.Get(ctx, key)
	if err != nil || got != `{"stage":"details"}` {
		t.Fatalf("unexpected get result %q err=%v", got, err)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on uninitialized client should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "od:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.DraftKey("org", "SELL", "user"); got != "od:draft:org:sell:user" {
		t.Fatalf("unexpected draft key %s", got)
	}
	if got := client.LockKey("submit", "abc"); got != "od:lock:submit:abc" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.RefDataKey("org"); got != "od:refdata:org" {
		t.Fatalf("unexpected refdata key %s", got)
	}
	if got := client.DraftKey("org", "BUY", ""); got != "od:draft:org:buy" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(configWith("", "")); err == nil {
		t.Fatalf("expected error without url or address")
	}
	opts, err := optionsFromConfig(configWith("redis://localhost:6380/2", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.DB != 2 {
		t.Fatalf("unexpected parsed options addr=%s db=%d", opts.Addr, opts.DB)
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
