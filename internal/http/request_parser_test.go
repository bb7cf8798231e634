package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"riepilogo/internal/summary"
)

func TestParseOwner(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		query    string
		fallback string
		want     string
		wantErr  bool
	}{
		{"header wins", "alice", "bob", "carol", "alice", false},
		{"query", "", "bob", "carol", "bob", false},
		{"fallback", "", "", "carol", "carol", false},
		{"trimmed", "  dave ", "", "", "dave", false},
		{"missing", "", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/"
			if tt.query != "" {
				target += "?owner=" + tt.query
			}
			r := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				r.Header.Set(OwnerHeader, tt.header)
			}
			got, err := parseOwner(r, tt.fallback)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("owner = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAmountField(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`"12,34"`, "12,34", false},
		{`12.34`, "12.34", false},
		{`10`, "10", false},
		{`true`, "", true},
	}
	for _, tt := range tests {
		var a amountField
		err := json.Unmarshal([]byte(tt.in), &a)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v", tt.in, err)
			continue
		}
		if string(a) != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, a, tt.want)
		}
	}
}

func TestParseOccurredAt(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skip("tzdata not available")
	}

	got, err := parseOccurredAt("2025-03-15", rome)
	if err != nil {
		t.Fatalf("date: %v", err)
	}
	if want := time.Date(2025, 3, 15, 0, 0, 0, 0, rome); !got.Equal(want) {
		t.Errorf("date = %v, want %v", got, want)
	}

	got, err = parseOccurredAt("2025-03-15T23:30:00Z", rome)
	if err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if want := time.Date(2025, 3, 15, 23, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("rfc3339 = %v", got)
	}

	for _, bad := range []string{"", "15/03/2025", "yesterday"} {
		if _, err := parseOccurredAt(bad, rome); err == nil {
			t.Errorf("parseOccurredAt(%q) expected error", bad)
		}
	}
}

func TestParseSummaryParams(t *testing.T) {
	p, err := parseSummaryParams("daily", url.Values{"days": {"14"}, "top": {"3"}}, "alice")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if p.Kind != summary.LastDays || p.Days != 14 || p.TopN != 3 || p.Owner != "alice" {
		t.Errorf("params = %+v", p)
	}

	p, err = parseSummaryParams("annual", url.Values{"from": {"2020"}, "to": {"2024"}}, "alice")
	if err != nil || p.FromYear != 2020 || p.ToYear != 2024 {
		t.Errorf("annual params = %+v, %v", p, err)
	}

	if _, err := parseSummaryParams("hourly", nil, "alice"); err == nil {
		t.Error("expected unknown kind error")
	}
	if _, err := parseSummaryParams("monthly", url.Values{"year": {"twenty"}}, "alice"); err == nil {
		t.Error("expected invalid number error")
	}
}

func TestParseDateRange(t *testing.T) {
	now := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)

	rng, err := parseDateRange(url.Values{}, time.UTC, now)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if !rng.From.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) || !rng.To.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("default range = %+v", rng)
	}

	rng, err = parseDateRange(url.Values{"from": {"2025-01-01"}, "to": {"2025-01-31"}}, time.UTC, now)
	if err != nil {
		t.Fatalf("explicit: %v", err)
	}
	if !rng.To.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("to should be inclusive: %v", rng.To)
	}

	if _, err := parseDateRange(url.Values{"from": {"2025-13-01"}}, time.UTC, now); err == nil {
		t.Error("expected invalid date error")
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  caf\x00e\tbar\n "); got != "cafe\tbar" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
