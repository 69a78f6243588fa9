package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-page-restore/internal/domain"
)

func TestEnsureUser_CreatesOnce_AndRefreshesProfile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := EnsureUser(ctx, db, domain.User{ID: "g-1", Email: "a@example.com", Name: "A"})
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if !u.Credits.IsZero() || u.FreePagesUsed != 0 {
		t.Fatalf("new user should start empty, got %+v", u)
	}

	// Give the user a balance; a later login must not reset it.
	if ok, err := UpdateUserBalance(ctx, db, "g-1", u.Version, decimal.RequireFromString("3.50"), 1); err != nil || !ok {
		t.Fatalf("UpdateUserBalance ok=%v err=%v", ok, err)
	}

	u2, err := EnsureUser(ctx, db, domain.User{ID: "g-1", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("EnsureUser again: %v", err)
	}
	if u2.Email != "b@example.com" || u2.Name != "A" {
		t.Fatalf("profile not refreshed correctly: %+v", u2)
	}
	if !u2.Credits.Equal(decimal.RequireFromString("3.50")) || u2.FreePagesUsed != 1 {
		t.Fatalf("balance changed by login: %+v", u2)
	}

	var n int64
	db.Model(&domain.User{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected 1 user row, got %d", n)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := GetUser(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUserBalance_VersionMismatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := EnsureUser(ctx, db, domain.User{ID: "u1"})

	ok, err := UpdateUserBalance(ctx, db, "u1", u.Version, decimal.NewFromInt(5), 0)
	if err != nil || !ok {
		t.Fatalf("first update ok=%v err=%v", ok, err)
	}
	// Stale version loses.
	ok, err = UpdateUserBalance(ctx, db, "u1", u.Version, decimal.NewFromInt(1), 0)
	if err != nil || ok {
		t.Fatalf("stale update ok=%v err=%v, want false,nil", ok, err)
	}

	got, _ := GetUser(ctx, db, "u1")
	if !got.Credits.Equal(decimal.NewFromInt(5)) || got.Version != u.Version+1 {
		t.Fatalf("unexpected state %+v", got)
	}
}

func TestUpdateUserBalance_NegativeRejectedByCheck(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := EnsureUser(ctx, db, domain.User{ID: "u1"})

	if _, err := UpdateUserBalance(ctx, db, "u1", u.Version, decimal.NewFromInt(-1), 0); err == nil {
		t.Fatalf("expected CHECK constraint error for negative credits")
	}
}
