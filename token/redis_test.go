package token

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/identity"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "tok"), mr, rdb
}

func TestRedisStoreIssueResolveRevoke(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t)
	ctx := context.Background()

	id := &identity.Identity{UserID: "u-1", Attributes: map[string]any{"role": "admin"}}
	tok, err := store.Issue(ctx, id, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for _, k := range mr.Keys() {
		if strings.Contains(k, tok) {
			t.Fatalf("plaintext token leaked into key %q", k)
		}
	}

	got, err := store.Resolve(ctx, tok)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got == nil || got.UserID != "u-1" || got.Attr("role") != "admin" {
		t.Fatalf("unexpected identity: %+v", got)
	}

	if err := store.Revoke(ctx, tok); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, err = store.Resolve(ctx, tok)
	if err != nil || got != nil {
		t.Fatalf("revoked token must resolve to nothing, got %+v err=%v", got, err)
	}
}

func TestRedisStoreUnknownAndExpiredResolveToNil(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t)
	ctx := context.Background()

	if got, err := store.Resolve(ctx, "does-not-exist"); err != nil || got != nil {
		t.Fatalf("unknown token: got %+v err=%v", got, err)
	}
	if got, err := store.Resolve(ctx, ""); err != nil || got != nil {
		t.Fatalf("empty token: got %+v err=%v", got, err)
	}

	tok, err := store.Issue(ctx, &identity.Identity{UserID: "u-2"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if got, err := store.Resolve(ctx, tok); err != nil || got != nil {
		t.Fatalf("expired token: got %+v err=%v", got, err)
	}
}

func TestRedisStoreRecordExpiryCheckedOnRead(t *testing.T) {
	store, _, _ := newRedisStoreTest(t)
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }
	tok, err := store.Issue(ctx, &identity.Identity{UserID: "u-3"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Redis TTL has not fired, but the embedded expiry has passed.
	store.now = func() time.Time { return base.Add(time.Minute) }
	if got, err := store.Resolve(ctx, tok); err != nil || got != nil {
		t.Fatalf("expected nil identity, got %+v err=%v", got, err)
	}
}

func TestRedisStoreCorruptRecordFailsClosed(t *testing.T) {
	store, _, rdb := newRedisStoreTest(t)
	ctx := context.Background()

	tok := "corrupt-token"
	if err := rdb.Set(ctx, store.key(tok), "{not-json", time.Hour).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got, err := store.Resolve(ctx, tok); err != nil || got != nil {
		t.Fatalf("corrupt record must resolve to nothing, got %+v err=%v", got, err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t)
	mr.Close()

	_, err := store.Resolve(context.Background(), "anything")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := store.Issue(context.Background(), &identity.Identity{UserID: "u"}, time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on issue, got %v", err)
	}
}

func TestIssueValidation(t *testing.T) {
	stores := map[string]Issuer{
		"memory": NewMemoryStore(),
	}
	for name, s := range stores {
		if _, err := s.Issue(context.Background(), nil, time.Minute); !errors.Is(err, ErrInvalidIdentity) {
			t.Fatalf("%s: expected ErrInvalidIdentity, got %v", name, err)
		}
		if _, err := s.Issue(context.Background(), &identity.Identity{UserID: "u"}, 0); !errors.Is(err, ErrInvalidTTL) {
			t.Fatalf("%s: expected ErrInvalidTTL, got %v", name, err)
		}
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }

	tok, err := store.Issue(context.Background(), &identity.Identity{UserID: "u-m"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if got, _ := store.Resolve(context.Background(), tok); got == nil || got.UserID != "u-m" {
		t.Fatalf("expected identity, got %+v", got)
	}

	store.now = func() time.Time { return base.Add(time.Minute) }
	if got, _ := store.Resolve(context.Background(), tok); got != nil {
		t.Fatalf("expired token must resolve to nothing, got %+v", got)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	tok, _ := store.Issue(context.Background(), &identity.Identity{UserID: "u", Attributes: map[string]any{"k": "v"}}, time.Minute)

	first, _ := store.Resolve(context.Background(), tok)
	first.Attributes["k"] = "mutated"

	second, _ := store.Resolve(context.Background(), tok)
	if second.Attr("k") != "v" {
		t.Fatalf("stored identity was mutated through a resolved copy: %v", second.Attr("k"))
	}
}
