package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"riepilogo/internal/calendar"
	"riepilogo/internal/core"
	"riepilogo/internal/store"
)

const owner core.OwnerID = "user-1"

func rec(id string, at time.Time, cents int64) core.TransactionRecord {
	return core.TransactionRecord{
		ID:         id,
		OwnerID:    owner,
		Amount:     core.ValidMoney(core.Money{Cents: cents}),
		OccurredAt: at,
	}
}

func TestQueryIsHalfOpenAndOwnerScoped(t *testing.T) {
	ctx := context.Background()
	s := New()

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	for _, r := range []core.TransactionRecord{
		rec("b", from.Add(time.Hour), 200),
		rec("a", from.Add(time.Hour), 100),
		rec("edge", to, 999),
		rec("before", from.Add(-time.Second), 999),
	} {
		if err := s.CreateTransaction(ctx, r); err != nil {
			t.Fatalf("create %s: %v", r.ID, err)
		}
	}
	foreign := rec("foreign", from.Add(time.Hour), 999)
	foreign.OwnerID = "other"
	if err := s.CreateTransaction(ctx, foreign); err != nil {
		t.Fatalf("create foreign: %v", err)
	}

	got, err := s.Query(ctx, owner, calendar.DateRange{From: from, To: to})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestWriteErrors(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	if err := s.CreateTransaction(ctx, rec("", now, 1)); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("missing id: expected ErrInvalid, got %v", err)
	}
	if err := s.CreateTransaction(ctx, rec("x", now, 1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateTransaction(ctx, rec("x", now, 1)); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("duplicate id: expected ErrInvalid, got %v", err)
	}
	if err := s.UpdateTransaction(ctx, rec("missing", now, 1)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update missing: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, "other", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("delete foreign: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, owner, "x"); err != nil {
		t.Errorf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, owner, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestDeletingLookupLeavesDanglingReference(t *testing.T) {
	ctx := context.Background()
	s := New()

	cat := core.Lookup{ID: "food", Kind: core.CategoryKind, Name: "Food", OwnerID: owner}
	if err := s.SaveLookup(ctx, cat); err != nil {
		t.Fatalf("SaveLookup: %v", err)
	}
	r := rec("t1", time.Now(), 100)
	r.CategoryID = &cat.ID
	if err := s.CreateTransaction(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.DeleteLookup(ctx, core.CategoryKind, owner, "food"); err != nil {
		t.Fatalf("DeleteLookup: %v", err)
	}

	ls, err := s.Lookups(ctx, owner)
	if err != nil {
		t.Fatalf("Lookups: %v", err)
	}
	if ref := ls.Resolve(core.CategoryKind, r.CategoryID); ref.IsKnown() {
		t.Errorf("expected dangling reference to resolve to Unknown")
	}
	all, _ := s.Query(ctx, owner, calendar.DateRange{From: time.Time{}, To: time.Now().Add(time.Hour)})
	if len(all) != 1 {
		t.Errorf("transaction must survive lookup deletion, got %d records", len(all))
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewFromFiles(dir, owner)
	ls, _ := s.Lookups(ctx, owner)
	if len(ls.Categories) == 0 || len(ls.PaymentMethods) == 0 {
		t.Fatalf("expected defaults when files missing")
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("seed_categories.txt", "# header\nA\nB\nA\n\n")
	mustWrite("seed_payment_methods.txt", "# header\nX\nX\nY\n\n")

	s = NewFromFiles(dir, owner)
	ls, _ = s.Lookups(ctx, owner)
	if len(ls.Categories) != 2 || len(ls.PaymentMethods) != 2 {
		t.Fatalf("unexpected seed: cats=%v methods=%v", ls.Categories, ls.PaymentMethods)
	}

	again := NewFromFiles(dir, owner)
	ls2, _ := again.Lookups(ctx, owner)
	for id := range ls.Categories {
		if _, ok := ls2.Categories[id]; !ok {
			t.Errorf("seed ids must be stable across restarts, %s missing", id)
		}
	}

	other, _ := s.Lookups(ctx, "someone-else")
	if len(other.Categories) != 0 {
		t.Errorf("seeded lookups leaked to another owner")
	}
}
