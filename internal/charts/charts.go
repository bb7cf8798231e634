// Package charts renders summary snapshots as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"

	"riepilogo/internal/core"
	"riepilogo/internal/summary"
)

// ErrNoData is returned when a snapshot has nothing to draw.
var ErrNoData = errors.New("charts: no data")

// Kind selects which chart is rendered for a snapshot.
type Kind string

const (
	Buckets    Kind = "buckets"
	Categories Kind = "categories"
)

// ParseKind accepts the chart names used in URLs and flags. Empty means Buckets.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "buckets", "bar", "totals":
		return Buckets, nil
	case "categories", "pie", "shares":
		return Categories, nil
	}
	return "", fmt.Errorf("unknown chart kind %q", s)
}

var background = chart.Style{
	Padding: chart.Box{
		Top:    50,
		Left:   50,
		Right:  50,
		Bottom: 50,
	},
	FillColor: chart.ColorWhite,
}

var labelStyle = chart.Style{
	FontSize:  12,
	FontColor: chart.ColorBlack,
}

type Generator struct {
	Width  int
	Height int
}

func NewGenerator() *Generator {
	return &Generator{Width: 1200, Height: 600}
}

// Render writes the chart of the given kind for snap to w.
func (g *Generator) Render(w io.Writer, kind Kind, snap *summary.Snapshot) error {
	var (
		img []byte
		err error
	)
	switch kind {
	case Categories:
		img, err = g.CategoryShares(snap)
	default:
		img, err = g.BucketTotals(snap)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(img)
	return err
}

// BucketTotals draws one bar per bucket, oldest first.
func (g *Generator) BucketTotals(snap *summary.Snapshot) ([]byte, error) {
	if snap == nil || len(snap.Buckets) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, 0, len(snap.Buckets))
	lo, hi := 0.0, 0.0
	for _, b := range snap.Buckets {
		v := b.Total.Euros()
		lo, hi = min(lo, v), max(hi, v)
		bars = append(bars, chart.Value{
			Label: b.Bucket.Label,
			Value: v,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				FillColor:   chart.ColorBlue,
				FontSize:    labelStyle.FontSize,
				FontColor:   labelStyle.FontColor,
			},
		})
	}
	// A flat series has no range to scale against.
	if hi == lo {
		hi = lo + 1
	}

	barWidth := 60
	if n := len(bars); n > 12 {
		barWidth = max(8, (g.Width-200)/n-4)
	}

	graph := chart.BarChart{
		Title:      fmt.Sprintf("Totale %s€", snap.Total),
		TitleStyle: labelStyle,
		Width:      g.Width,
		Height:     g.Height,
		BarWidth:   barWidth,
		Background: background,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f€", v.(float64))
			},
			Style: labelStyle,
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render bucket chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// CategoryShares draws the category breakdown of the whole period.
// Categories with a non-positive total are left out.
func (g *Generator) CategoryShares(snap *summary.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, ErrNoData
	}

	values := make([]chart.Value, 0, len(snap.CategoryShares))
	for _, grp := range snap.CategoryShares {
		if grp.Total.Cents <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %s€ (%s%%)", groupName(grp.Ref), grp.Total, grp.Percentage.StringFixed(1)),
			Value: grp.Total.Euros(),
			Style: labelStyle,
		})
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}

	pie := chart.PieChart{
		Title:      "Ripartizione per categoria",
		Width:      g.Height,
		Height:     g.Height,
		Values:     values,
		Background: background,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render category chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func groupName(r core.Ref) string {
	if l, ok := r.Lookup(); ok {
		return l.Name
	}
	return "Senza categoria"
}
