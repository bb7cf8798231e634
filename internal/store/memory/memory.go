// Package memory is an in-process store, used for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"riepilogo/internal/calendar"
	"riepilogo/internal/core"
	"riepilogo/internal/store"
)

type Store struct {
	mu      sync.Mutex
	records map[string]core.TransactionRecord
	lookups map[core.LookupKind]map[string]core.Lookup
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		records: make(map[string]core.TransactionRecord),
		lookups: map[core.LookupKind]map[string]core.Lookup{
			core.CategoryKind:      {},
			core.PaymentMethodKind: {},
			core.EstablishmentKind: {},
		},
	}
}

// NewFromFiles seeds owner's categories and payment methods from
// seed_categories.txt and seed_payment_methods.txt under base, with
// defaults when the files are missing.
func NewFromFiles(base string, owner core.OwnerID) *Store {
	s := New()
	if owner == "" {
		return s
	}
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = []string{"Food", "Home", "Transport"}
	}
	methods := readLines(filepath.Join(base, "seed_payment_methods.txt"))
	if len(methods) == 0 {
		methods = []string{"Card", "Cash"}
	}
	s.seed(owner, core.CategoryKind, cats)
	s.seed(owner, core.PaymentMethodKind, methods)
	return s
}

func (s *Store) seed(owner core.OwnerID, kind core.LookupKind, names []string) {
	for _, name := range names {
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%s/%s", owner, kind, name))).String()
		s.lookups[kind][id] = core.Lookup{ID: id, Kind: kind, Name: name, OwnerID: owner}
	}
}

func (s *Store) Query(_ context.Context, owner core.OwnerID, r calendar.DateRange) ([]core.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.TransactionRecord
	for _, rec := range s.records {
		if rec.OwnerID != owner || !r.Contains(rec.OccurredAt) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Lookups(_ context.Context, owner core.OwnerID) (core.Lookups, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls := core.NewLookups()
	for _, table := range s.lookups {
		for _, l := range table {
			if l.OwnerID == owner {
				ls.Add(l)
			}
		}
	}
	return ls, nil
}

func (s *Store) CreateTransaction(_ context.Context, rec core.TransactionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("missing id: %w", store.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("transaction %s already exists: %w", rec.ID, store.ErrInvalid)
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, rec core.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[rec.ID]
	if !ok || existing.OwnerID != rec.OwnerID {
		return fmt.Errorf("transaction %s: %w", rec.ID, store.ErrNotFound)
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, owner core.OwnerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[id]
	if !ok || existing.OwnerID != owner {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	delete(s.records, id)
	return nil
}

func (s *Store) SaveLookup(_ context.Context, l core.Lookup) error {
	if !l.Kind.IsValid() || l.ID == "" {
		return fmt.Errorf("lookup %q of kind %q: %w", l.ID, l.Kind, store.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.lookups[l.Kind][l.ID]; ok && existing.OwnerID != l.OwnerID {
		return fmt.Errorf("lookup %s: %w", l.ID, store.ErrNotFound)
	}
	s.lookups[l.Kind][l.ID] = l
	return nil
}

// DeleteLookup removes the lookup only; transactions keep their dangling reference.
func (s *Store) DeleteLookup(_ context.Context, kind core.LookupKind, owner core.OwnerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.lookups[kind]
	if !ok {
		return fmt.Errorf("lookup kind %q: %w", kind, store.ErrInvalid)
	}
	existing, ok := table[id]
	if !ok || existing.OwnerID != owner {
		return fmt.Errorf("lookup %s: %w", id, store.ErrNotFound)
	}
	delete(table, id)
	return nil
}

func (s *Store) Close() error { return nil }

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupeSorted(out)
}

func dedupeSorted(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
