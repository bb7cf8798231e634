package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"riepilogo/internal/clock"
	"riepilogo/internal/config"
	"riepilogo/internal/log"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("Food\nHome\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &config.Config{
		Port:               "8081",
		ShutdownTimeout:    10 * time.Second,
		DataBackend:        "memory",
		SeedDir:            dir,
		DefaultOwner:       "alice",
		Timezone:           "UTC",
		DailyWindowDays:    7,
		TopN:               5,
		SummaryMaxViews:    256,
		LookupCacheTTL:     time.Minute,
		LookupCacheSize:    16,
		RateLimitPerMinute: 60,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

var fixed = clock.NewFixed(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))

func TestRunPrintsSummary(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-days", "3"}, &out, testConfig(t), fixed, log.Discard()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	got := out.String()
	for _, want := range []string{"alice/last-days/3", "2025-03-13 - 2025-03-15", "total", "today", "yesterday", "flat"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunWritesChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monthly.png")
	var out bytes.Buffer
	err := run(context.Background(), []string{"-kind", "monthly", "-year", "2024", "-chart", path}, &out, testConfig(t), fixed, log.Discard())
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("chart not written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("chart is not a PNG")
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		cfg  func(*config.Config)
	}{
		{"unknown kind", []string{"-kind", "hourly"}, nil},
		{"unknown chart kind", []string{"-chart-kind", "radar"}, nil},
		{"stray argument", []string{"extra"}, nil},
		{"no owner", nil, func(c *config.Config) { c.DefaultOwner = "" }},
		{"invalid params", []string{"-days", "5000"}, nil},
		{"invalid config", nil, func(c *config.Config) { c.TopN = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			var out bytes.Buffer
			if err := run(context.Background(), tt.args, &out, cfg, fixed, log.Discard()); err == nil {
				t.Errorf("run(%v) expected error", tt.args)
			}
		})
	}
}

func TestRunHelp(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-h"}, &out, testConfig(t), fixed, log.Discard())
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("run(-h) error = %v, want flag.ErrHelp", err)
	}
	if !strings.Contains(out.String(), "-chart") {
		t.Errorf("usage not printed: %s", out.String())
	}
}
