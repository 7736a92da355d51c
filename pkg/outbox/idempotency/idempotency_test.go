package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	claimed     map[string]bool
	setNXError  error
	lastTTL     time.Duration
	lastDeleted string
}

func newFakeStore() *fakeStore {
	return &fakeStore{claimed: map[string]bool{}}
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if f.setNXError != nil {
		return false, f.setNXError
	}
	f.lastTTL = ttl
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "kartly:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.claimed, k)
		f.lastDeleted = k
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newFakeStore()
	mgr, err := NewManager(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	ctx := context.Background()
	eventID := uuid.NewString()

	dup, err := mgr.CheckAndMarkProcessed(ctx, "notification-worker", eventID)
	if err != nil || dup {
		t.Fatalf("first delivery should be new, dup=%v err=%v", dup, err)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("ttl not forwarded: %s", store.lastTTL)
	}
	dup, err = mgr.CheckAndMarkProcessed(ctx, "notification-worker", eventID)
	if err != nil || !dup {
		t.Fatalf("second delivery should be a duplicate, dup=%v err=%v", dup, err)
	}
	dup, _ = mgr.CheckAndMarkProcessed(ctx, "audit-worker", eventID)
	if dup {
		t.Fatalf("claims are scoped per consumer")
	}
}

func TestReleaseAllowsRetry(t *testing.T) {
	store := newFakeStore()
	mgr, _ := NewManager(store, time.Hour)
	ctx := context.Background()
	eventID := uuid.NewString()

	if _, err := mgr.CheckAndMarkProcessed(ctx, "notification-worker", eventID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := mgr.Release(ctx, "notification-worker", eventID); err != nil {
		t.Fatalf("release: %v", err)
	}
	want := "kartly:idempotency:evt:notification-worker:" + eventID
	if store.lastDeleted != want {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
	dup, _ := mgr.CheckAndMarkProcessed(ctx, "notification-worker", eventID)
	if dup {
		t.Fatalf("released event should be claimable again")
	}
}

func TestManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatalf("expected nil store error")
	}
	if _, err := NewManager(newFakeStore(), -time.Second); err == nil {
		t.Fatalf("expected negative ttl error")
	}

	mgr, _ := NewManager(newFakeStore(), time.Hour)
	if _, err := mgr.CheckAndMarkProcessed(context.Background(), "", uuid.NewString()); err == nil {
		t.Fatalf("expected consumer error")
	}
	if _, err := mgr.CheckAndMarkProcessed(context.Background(), "w", "not-a-uuid"); err == nil {
		t.Fatalf("expected event id error")
	}

	failing := newFakeStore()
	failing.setNXError = errors.New("redis down")
	mgr, _ = NewManager(failing, time.Hour)
	if _, err := mgr.CheckAndMarkProcessed(context.Background(), "w", uuid.NewString()); err == nil {
		t.Fatalf("expected store error")
	}
}
