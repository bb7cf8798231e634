package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"riepilogo/internal/bus"
	"riepilogo/internal/calendar"
	"riepilogo/internal/core"
	"riepilogo/internal/log"
	"riepilogo/internal/store"
	"riepilogo/internal/store/memory"
)

const owner core.OwnerID = "user-1"

type failingWriter struct {
	store.Writer
	err error
}

func (f failingWriter) CreateTransaction(context.Context, core.TransactionRecord) error { return f.err }
func (f failingWriter) DeleteTransaction(context.Context, core.OwnerID, string) error  { return f.err }

type recordingNotifier struct {
	owners []core.OwnerID
	err    error
}

func (n *recordingNotifier) PublishInvalidation(_ context.Context, o core.OwnerID) error {
	n.owners = append(n.owners, o)
	return n.err
}

func newTestService(t *testing.T, w store.Writer, opts ...Option) (*TransactionService, *int) {
	t.Helper()
	b := bus.New(log.Discard())
	t.Cleanup(b.Close)
	publishes := 0
	b.Subscribe(func(context.Context) error { publishes++; return nil })
	return NewTransactionService(w, b, log.Discard(), opts...), &publishes
}

func TestCreateTransactionPublishesOnce(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	notifier := &recordingNotifier{}
	svc, publishes := newTestService(t, mem, WithNotifier(notifier), WithIDGenerator(func() string { return "fixed-id" }))

	at := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	rec, err := svc.CreateTransaction(ctx, owner, TransactionInput{
		Amount:      "12,50",
		Description: "  lunch ",
		OccurredAt:  at,
		CategoryID:  strPtr(" "),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if rec.ID != "fixed-id" || rec.Amount.Cents != 1250 || rec.Description != "lunch" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.CategoryID != nil {
		t.Errorf("blank reference should be nil, got %q", *rec.CategoryID)
	}
	if *publishes != 1 {
		t.Errorf("expected 1 publish, got %d", *publishes)
	}
	if len(notifier.owners) != 1 || notifier.owners[0] != owner {
		t.Errorf("expected notifier called for %s, got %v", owner, notifier.owners)
	}

	stored, _ := mem.Query(ctx, owner, calendar.DateRange{From: at.Add(-time.Hour), To: at.Add(time.Hour)})
	if len(stored) != 1 {
		t.Fatalf("expected stored record, got %d", len(stored))
	}
}

func TestValidationFailureDoesNotWriteOrPublish(t *testing.T) {
	ctx := context.Background()
	svc, publishes := newTestService(t, memory.New())

	tests := []struct {
		name string
		in   TransactionInput
	}{
		{name: "bad amount", in: TransactionInput{Amount: "abc", OccurredAt: time.Now()}},
		{name: "zero amount", in: TransactionInput{Amount: "0", OccurredAt: time.Now()}},
		{name: "negative amount", in: TransactionInput{Amount: "-3", OccurredAt: time.Now()}},
		{name: "missing date", in: TransactionInput{Amount: "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(ctx, owner, tt.in)
			if !errors.Is(err, store.ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !IsClientError(err) {
				t.Errorf("expected client error")
			}
		})
	}
	if *publishes != 0 {
		t.Errorf("expected no publish, got %d", *publishes)
	}
}

func TestFailedWriteNeverPublishes(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	svc, publishes := newTestService(t, failingWriter{err: store.ErrUnavailable}, WithNotifier(notifier))

	_, err := svc.CreateTransaction(ctx, owner, TransactionInput{Amount: "5", OccurredAt: time.Now()})
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := svc.DeleteTransaction(ctx, owner, "x"); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if *publishes != 0 || len(notifier.owners) != 0 {
		t.Errorf("failed writes published: bus=%d notifier=%d", *publishes, len(notifier.owners))
	}
}

func TestNotifierFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc, publishes := newTestService(t, memory.New(), WithNotifier(&recordingNotifier{err: errors.New("broker down")}))

	if _, err := svc.CreateTransaction(ctx, owner, TransactionInput{Amount: "5", OccurredAt: time.Now()}); err != nil {
		t.Fatalf("write must succeed when the notifier fails: %v", err)
	}
	if *publishes != 1 {
		t.Errorf("expected local publish, got %d", *publishes)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, publishes := newTestService(t, memory.New())

	rec, err := svc.CreateTransaction(ctx, owner, TransactionInput{Amount: "5", OccurredAt: time.Now()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateTransaction(ctx, owner, rec.ID, TransactionInput{Amount: "7.5", OccurredAt: time.Now()}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.UpdateTransaction(ctx, owner, "missing", TransactionInput{Amount: "7.5", OccurredAt: time.Now()}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update missing: expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteTransaction(ctx, owner, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if *publishes != 3 {
		t.Errorf("expected 3 publishes (create, update, delete), got %d", *publishes)
	}
}

func TestLookupLifecycle(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	svc, publishes := newTestService(t, mem)

	l, err := svc.SaveLookup(ctx, core.Lookup{Kind: core.CategoryKind, Name: " Food ", OwnerID: owner})
	if err != nil {
		t.Fatalf("SaveLookup: %v", err)
	}
	if l.ID == "" || l.Name != "Food" {
		t.Errorf("unexpected lookup: %+v", l)
	}

	if _, err := svc.SaveLookup(ctx, core.Lookup{Kind: core.CategoryKind, OwnerID: owner}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("empty name: expected ErrInvalid, got %v", err)
	}
	if err := svc.DeleteLookup(ctx, "bogus", owner, l.ID); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("bad kind: expected ErrInvalid, got %v", err)
	}
	if err := svc.DeleteLookup(ctx, core.CategoryKind, owner, l.ID); err != nil {
		t.Fatalf("DeleteLookup: %v", err)
	}

	ls, _ := mem.Lookups(ctx, owner)
	if len(ls.Categories) != 0 {
		t.Errorf("expected lookup removed")
	}
	if *publishes != 2 {
		t.Errorf("expected 2 publishes, got %d", *publishes)
	}
}

func strPtr(s string) *string { return &s }
