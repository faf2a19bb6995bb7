package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	sess, err := s.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.Token == "" || sess.CSRFToken == "" {
		t.Fatalf("missing tokens: %+v", sess)
	}
	if sess.UserID != 0 {
		t.Fatalf("new session has user id %d", sess.UserID)
	}

	got, err := s.Get(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CSRFToken != sess.CSRFToken {
		t.Fatal("csrf token changed across reads")
	}
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	if _, err := s.Get(context.Background(), "no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreSavePersistsUserID(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	sess, _ := s.Create(ctx)
	sess.UserID = 42
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != 42 {
		t.Fatalf("user id = %d, want 42", got.UserID)
	}

	got.UserID = 0
	if err := s.Save(ctx, got); err != nil {
		t.Fatalf("save: %v", err)
	}
	again, _ := s.Get(ctx, sess.Token)
	if again.UserID != 0 {
		t.Fatalf("user id = %d, want cleared", again.UserID)
	}
}

func TestMemoryStoreCopiesFlashes(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	sess, _ := s.Create(ctx)
	sess.Flashes = []string{"one"}
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating a read-back copy must not leak into the store.
	got, _ := s.Get(ctx, sess.Token)
	got.Flashes[0] = "mutated"
	got.Flashes = append(got.Flashes, "two")

	fresh, _ := s.Get(ctx, sess.Token)
	if len(fresh.Flashes) != 1 || fresh.Flashes[0] != "one" {
		t.Fatalf("flashes = %v, want [one]", fresh.Flashes)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	sess, _ := s.Create(ctx)
	time.Sleep(25 * time.Millisecond)
	if _, err := s.Get(ctx, sess.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after expiry", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	sess, _ := s.Create(ctx)
	if err := s.Delete(ctx, sess.Token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, sess.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
}

func TestTokensAreUnique(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		sess, err := s.Create(ctx)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[sess.Token] {
			t.Fatal("duplicate session token")
		}
		seen[sess.Token] = true
	}
}
