package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"riepilogo/internal/calendar"
	"riepilogo/internal/core"
	"riepilogo/internal/log"
	"riepilogo/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	s, err := Open(context.Background(), url, log.Discard())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTransactionLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner := core.OwnerID("pg-test-" + uuid.NewString())

	at := time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)
	rec := core.TransactionRecord{
		ID:         uuid.NewString(),
		OwnerID:    owner,
		Amount:     core.ValidMoney(core.Money{Cents: 1250}),
		OccurredAt: at,
	}
	if err := s.CreateTransaction(ctx, rec); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if err := s.CreateTransaction(ctx, rec); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("duplicate: expected ErrInvalid, got %v", err)
	}

	rng := calendar.DateRange{From: at.Truncate(24 * time.Hour), To: at.Truncate(24 * time.Hour).Add(24 * time.Hour)}
	got, err := s.Query(ctx, owner, rng)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Amount.Cents != 1250 || !got[0].OccurredAt.Equal(at) {
		t.Fatalf("unexpected records: %+v", got)
	}

	if err := s.DeleteTransaction(ctx, owner, rec.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := s.DeleteTransaction(ctx, owner, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestLookupOwnership(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner := core.OwnerID("pg-test-" + uuid.NewString())

	l := core.Lookup{ID: uuid.NewString(), Kind: core.CategoryKind, Name: "Food", OwnerID: owner}
	if err := s.SaveLookup(ctx, l); err != nil {
		t.Fatalf("SaveLookup: %v", err)
	}
	l.OwnerID = "someone-else"
	if err := s.SaveLookup(ctx, l); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("cross-owner upsert: expected ErrNotFound, got %v", err)
	}

	ls, err := s.Lookups(ctx, owner)
	if err != nil {
		t.Fatalf("Lookups: %v", err)
	}
	if ls.Categories[l.ID].Name != "Food" {
		t.Errorf("expected Food, got %+v", ls.Categories)
	}
}
