package calendar

import (
	"testing"
	"time"

	"riepilogo/internal/core"
)

func TestDailyWindowLength(t *testing.T) {
	cal := New(time.UTC)
	anchor := time.Date(2025, 3, 12, 15, 4, 0, 0, time.UTC)
	for n := 0; n <= 400; n += 7 {
		got := cal.DailyWindow(n, anchor)
		if len(got) != n {
			t.Fatalf("DailyWindow(%d) returned %d buckets", n, len(got))
		}
	}
	if got := cal.DailyWindow(-3, anchor); len(got) != 0 {
		t.Fatalf("negative n should yield no buckets, got %d", len(got))
	}
}

func TestDailyWindowLabels(t *testing.T) {
	cal := New(time.UTC)
	// Wednesday
	anchor := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	got := cal.DailyWindow(7, anchor)

	want := []string{"Thursday", "Friday", "Saturday", "Sunday", "Monday", "yesterday", "today"}
	for i, b := range got {
		if b.Label != want[i] {
			t.Errorf("bucket %d label = %q, want %q", i, b.Label, want[i])
		}
		if b.Granularity != core.Day {
			t.Errorf("bucket %d granularity = %s", i, b.Granularity)
		}
		if !b.End.Equal(b.Start.AddDate(0, 0, 1)) {
			t.Errorf("bucket %d is not one day long: %v - %v", i, b.Start, b.End)
		}
	}
	last := got[len(got)-1]
	if last.Key != 20250312 {
		t.Fatalf("last bucket key = %d, want 20250312", last.Key)
	}
	if got[0].Key != 20250306 {
		t.Fatalf("first bucket key = %d, want 20250306 (window is inclusive of today)", got[0].Key)
	}
}

func TestDailyWindowAcrossYearBoundaryAndLeapDay(t *testing.T) {
	cal := New(time.UTC)

	got := cal.DailyWindow(3, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	keys := []int{got[0].Key, got[1].Key, got[2].Key}
	want := []int{20241230, 20241231, 20250101}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}

	got = cal.DailyWindow(2, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	if got[0].Key != 20240229 {
		t.Fatalf("expected leap day bucket, got %d", got[0].Key)
	}
}

func TestDailyWindowUsesLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	cal := New(loc)
	// 23:00 UTC is already the next day at UTC+2.
	anchor := time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC)
	got := cal.DailyWindow(1, anchor)
	if got[0].Key != 20250701 {
		t.Fatalf("key = %d, want 20250701", got[0].Key)
	}
}

func TestPreviousDailyWindow(t *testing.T) {
	cal := New(time.UTC)
	anchor := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	cur := cal.DailyWindow(7, anchor)
	prev := cal.PreviousDailyWindow(7, anchor)
	if len(prev) != 7 {
		t.Fatalf("len = %d", len(prev))
	}
	if !prev[6].End.Equal(cur[0].Start) {
		t.Fatalf("previous window must end where current starts: %v vs %v", prev[6].End, cur[0].Start)
	}
	if prev[0].Label != "2025-02-27" {
		t.Fatalf("label = %q", prev[0].Label)
	}
}

func TestMonthBuckets(t *testing.T) {
	cal := New(time.UTC)
	now := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	got := cal.MonthBuckets(2024, now)
	if len(got) != 12 {
		t.Fatalf("len = %d", len(got))
	}
	wantDays := []int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	for i, b := range got {
		days := int(b.End.Sub(b.Start).Hours() / 24)
		if days != wantDays[i] {
			t.Errorf("month %d has %d days, want %d", i+1, days, wantDays[i])
		}
		wantSel := i+1 <= 5
		if b.Selectable != wantSel {
			t.Errorf("month %d selectable = %v, want %v", i+1, b.Selectable, wantSel)
		}
	}
	if got[11].End.Year() != 2025 {
		t.Fatalf("december must end on next year's first day")
	}
	if got[1].Label != "Feb 2024" {
		t.Fatalf("label = %q", got[1].Label)
	}
}

func TestYearBucketsAndSpan(t *testing.T) {
	cal := New(time.UTC)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	got := cal.YearBuckets(2023, 2026, now)
	if len(got) != 4 {
		t.Fatalf("len = %d", len(got))
	}
	if got[3].Selectable {
		t.Fatalf("future year must not be selectable")
	}
	r := Span(got)
	if !r.From.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)) || !r.To.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("span = %v - %v", r.From, r.To)
	}
	if !r.Contains(time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)) || r.Contains(r.To) {
		t.Fatalf("span must be half-open")
	}
	if len(cal.YearBuckets(2026, 2025, now)) != 0 {
		t.Fatalf("inverted range should be empty")
	}
}

func TestDaysIn(t *testing.T) {
	if DaysIn(2023, time.February) != 28 || DaysIn(2024, time.February) != 29 || DaysIn(2100, time.February) != 28 {
		t.Fatalf("leap year handling broken")
	}
}
