package ranking

import (
	"testing"

	"github.com/shopspring/decimal"

	"riepilogo/internal/core"
)

func group(id, name string, cents int64) core.GroupTotal {
	return core.GroupTotal{
		Ref:   core.Known(core.Lookup{ID: id, Name: name, Kind: core.CategoryKind, OwnerID: "u1"}),
		Total: core.Money{Cents: cents},
		Count: 1,
	}
}

func TestTopNOrdersAndComputesShares(t *testing.T) {
	groups := []core.GroupTotal{
		group("t", "Transport", 10000),
		group("f", "Food", 30000),
	}

	top := TopN(groups, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(top))
	}

	want := []struct {
		name string
		pct  string
		rank int
	}{
		{"Food", "75", 1},
		{"Transport", "25", 2},
	}
	for i, w := range want {
		if got := top[i].Ref.SortName(); got != w.name {
			t.Errorf("position %d: expected %s, got %s", i, w.name, got)
		}
		if !top[i].Percentage.Equal(decimal.RequireFromString(w.pct)) {
			t.Errorf("%s: expected %s%%, got %s%%", w.name, w.pct, top[i].Percentage)
		}
		if top[i].Rank != w.rank {
			t.Errorf("%s: expected rank %d, got %d", w.name, w.rank, top[i].Rank)
		}
	}

	if groups[0].Ref.SortName() != "Transport" {
		t.Errorf("input slice was reordered")
	}
}

func TestTopNUsesGrandTotalOfAllGroups(t *testing.T) {
	groups := []core.GroupTotal{
		group("a", "A", 500),
		group("b", "B", 300),
		group("c", "C", 200),
	}

	top := TopN(groups, 1)
	if len(top) != 1 {
		t.Fatalf("expected 1 group, got %d", len(top))
	}
	if !top[0].Percentage.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected 50%%, got %s", top[0].Percentage)
	}
}

func TestTopNBounds(t *testing.T) {
	groups := []core.GroupTotal{group("a", "A", 1), group("b", "B", 2)}

	tests := []struct {
		n    int
		want int
	}{
		{n: 0, want: 2},
		{n: -1, want: 2},
		{n: 1, want: 1},
		{n: 5, want: 2},
	}
	for _, tt := range tests {
		if got := len(TopN(groups, tt.n)); got != tt.want {
			t.Errorf("TopN(n=%d): expected %d groups, got %d", tt.n, tt.want, got)
		}
	}

	if got := TopN(nil, 3); len(got) != 0 {
		t.Errorf("expected no groups for nil input, got %d", len(got))
	}
}

func TestTopNTiesBreakByName(t *testing.T) {
	groups := []core.GroupTotal{
		group("3", "Zoo", 100),
		group("1", "Bar", 100),
		group("2", "Bar", 100),
		{Ref: core.Unknown(), Total: core.Money{Cents: 100}, Count: 1},
	}

	top := TopN(groups, 0)
	var got []string
	for _, g := range top {
		got = append(got, g.Ref.Key())
	}
	want := []string{"", "1", "2", "3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestZeroGrandTotalYieldsZeroPercentages(t *testing.T) {
	groups := []core.GroupTotal{group("a", "A", 0), group("b", "B", 0)}

	for _, g := range Shares(groups) {
		if !g.Percentage.IsZero() {
			t.Errorf("%s: expected 0%%, got %s", g.Ref.SortName(), g.Percentage)
		}
	}
}

func TestSharesSumToHundred(t *testing.T) {
	groups := []core.GroupTotal{
		group("a", "A", 100),
		group("b", "B", 100),
		group("c", "C", 100),
	}

	sum := decimal.Zero
	for _, g := range Shares(groups) {
		sum = sum.Add(g.Percentage)
	}

	if !sum.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected shares to sum to 100, got %s", sum)
	}
}

func TestSharesLargestRemainder(t *testing.T) {
	groups := []core.GroupTotal{
		group("a", "A", 200),
		group("b", "B", 100),
		group("c", "C", 100),
		group("d", "D", 100),
		group("e", "E", 100),
		group("f", "F", 100),
	}

	want := []string{"28.57", "14.29", "14.29", "14.29", "14.28", "14.28"}
	shares := Shares(groups)
	for i, w := range want {
		if !shares[i].Percentage.Equal(decimal.RequireFromString(w)) {
			t.Errorf("%s: expected %s%%, got %s%%", shares[i].Ref.SortName(), w, shares[i].Percentage)
		}
	}
}

func TestPeriodDelta(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		previous int64
		kind     DeltaKind
		pct      string
	}{
		{name: "new spending", current: 5000, previous: 0, kind: New},
		{name: "both empty", current: 0, previous: 0, kind: Flat},
		{name: "increase", current: 15000, previous: 10000, kind: Change, pct: "50"},
		{name: "decrease", current: 2500, previous: 10000, kind: Change, pct: "-75"},
		{name: "dropped to zero", current: 0, previous: 4000, kind: Change, pct: "-100"},
		{name: "negative baseline", current: 100, previous: -100, kind: Undefined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := PeriodDelta(core.Money{Cents: tt.current}, core.Money{Cents: tt.previous})
			if d.Kind != tt.kind {
				t.Fatalf("expected kind %s, got %s", tt.kind, d.Kind)
			}
			if d.HasPercentage() != (tt.kind == Change) {
				t.Errorf("HasPercentage mismatch for kind %s", d.Kind)
			}
			if tt.pct != "" && !d.Percentage.Equal(decimal.RequireFromString(tt.pct)) {
				t.Errorf("expected %s%%, got %s%%", tt.pct, d.Percentage)
			}
		})
	}
}
