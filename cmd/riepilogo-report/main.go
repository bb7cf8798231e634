// Command riepilogo-report prints one summary computed straight from the
// configured store and can render it as a PNG chart.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"riepilogo/internal/backend"
	"riepilogo/internal/calendar"
	"riepilogo/internal/charts"
	"riepilogo/internal/cli"
	"riepilogo/internal/clock"
	"riepilogo/internal/config"
	"riepilogo/internal/core"
	"riepilogo/internal/log"
	"riepilogo/internal/summary"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	cfg.LogLevel = "warn"
	logger := cli.SetupLogger(cfg)

	if err := run(context.Background(), os.Args[1:], os.Stdout, cfg, clock.NewReal(), logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "riepilogo-report:", err)
		os.Exit(1)
	}
}

type options struct {
	kind      string
	owner     string
	days      int
	year      int
	fromYear  int
	toYear    int
	top       int
	chartPath string
	chartKind string
}

func parseFlags(args []string, cfg *config.Config, out io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("riepilogo-report", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&o.kind, "kind", "last-days", "summary kind: last-days, monthly or annual")
	fs.StringVar(&o.owner, "owner", cfg.DefaultOwner, "owner id")
	fs.IntVar(&o.days, "days", 0, "window length for last-days (default DAILY_WINDOW_DAYS)")
	fs.IntVar(&o.year, "year", 0, "year for monthly (default current year)")
	fs.IntVar(&o.fromYear, "from", 0, "first year for annual")
	fs.IntVar(&o.toYear, "to", 0, "last year for annual")
	fs.IntVar(&o.top, "top", 0, "ranked list length (default TOP_N)")
	fs.StringVar(&o.chartPath, "chart", "", "write a PNG chart to this path")
	fs.StringVar(&o.chartKind, "chart-kind", "buckets", "chart to render: buckets or categories")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if strings.TrimSpace(o.owner) == "" {
		return options{}, errors.New("an owner is required: pass -owner or set DEFAULT_OWNER")
	}
	return o, nil
}

func run(ctx context.Context, args []string, out io.Writer, cfg *config.Config, clk clock.Clock, logger *log.Logger) error {
	o, err := parseFlags(args, cfg, out)
	if err != nil {
		return err
	}
	kind, err := summary.ParseKind(o.kind)
	if err != nil {
		return err
	}
	chartKind, err := charts.ParseKind(o.chartKind)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	loader := summary.NewLoader(res.Store, calendar.New(loc), logger,
		summary.WithDefaults(cfg.DailyWindowDays, cfg.TopN),
		summary.WithClock(clk))

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	snap, err := loader.Load(ctx, summary.Params{
		Kind:     kind,
		Owner:    core.OwnerID(o.owner),
		Days:     o.days,
		Year:     o.year,
		FromYear: o.fromYear,
		ToYear:   o.toYear,
		TopN:     o.top,
	})
	if err != nil {
		return err
	}

	if err := printSnapshot(out, snap); err != nil {
		return err
	}

	if o.chartPath != "" {
		f, err := os.Create(o.chartPath)
		if err != nil {
			return fmt.Errorf("create chart file: %w", err)
		}
		if err := charts.NewGenerator().Render(f, chartKind, snap); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write chart file: %w", err)
		}
		fmt.Fprintf(out, "\nchart written to %s\n", o.chartPath)
	}
	return nil
}

func printSnapshot(out io.Writer, s *summary.Snapshot) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\t%s - %s\n", s.Params.Key(),
		s.Range.From.Format("2006-01-02"),
		s.Range.To.Add(-time.Nanosecond).Format("2006-01-02"))
	fmt.Fprintf(tw, "total\t%s\t(%d transactions, avg %s)\n", s.Total, s.Count, s.Average())
	fmt.Fprintf(tw, "previous\t%s\t%s\n", s.PreviousTotal, deltaText(s))
	fmt.Fprintln(tw)

	for _, b := range s.Buckets {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", b.Bucket.Label, b.Total, b.Count)
	}

	sections := []struct {
		title  string
		groups []core.RankedGroup
	}{
		{"categories", s.TopCategories},
		{"payment methods", s.TopPaymentMethods},
		{"establishments", s.TopEstablishments},
	}
	for _, sec := range sections {
		if len(sec.groups) == 0 {
			continue
		}
		fmt.Fprintf(tw, "\n%s\n", sec.title)
		for _, g := range sec.groups {
			fmt.Fprintf(tw, "%d.\t%s\t%s\t%s%%\n", g.Rank, groupName(g.Ref), g.Total, g.Percentage.StringFixed(2))
		}
	}
	return tw.Flush()
}

func deltaText(s *summary.Snapshot) string {
	if s.Delta.HasPercentage() {
		p := s.Delta.Percentage.StringFixed(2)
		if !strings.HasPrefix(p, "-") {
			p = "+" + p
		}
		return p + "%"
	}
	return string(s.Delta.Kind)
}

func groupName(r core.Ref) string {
	if l, ok := r.Lookup(); ok {
		return l.Name
	}
	return "(unknown)"
}
