// Package chart renders the price/volatility overview for the current
// snapshot window into a single self-contained HTML file.
package chart

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"tokenpulse/internal/domain"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.opentelemetry.io/otel/trace"
)

const displayTimeLayout = "02 January 2006, 15:04 UTC"

// Price points carry [index, price, high, low] so the tooltip can show
// the 24h range alongside the price.
const tooltipFormatter = `function (params) {
	var out = '<b>' + params[0].name + '</b>';
	params.forEach(function (p) {
		if (p.seriesIndex === 0) {
			out += '<br/>Current Price: $' + Number(p.value[1]).toFixed(2);
			out += '<br/>High 24h: $' + Number(p.value[2]).toFixed(2);
			out += '<br/>Low 24h: $' + Number(p.value[3]).toFixed(2);
		} else if (p.value !== '-') {
			out += '<br/>Volatility%: ' + Number(p.value).toFixed(4);
		}
	});
	return out;
}`

type SnapshotSource interface {
	GetSince(ctx context.Context, since time.Time) ([]domain.CoinSnapshot, error)
}

// Builder reads the current snapshot window and writes the chart
// artifact, overwriting any previous one.
type Builder struct {
	source SnapshotSource
	path   string
	tracer trace.Tracer
	now    func() time.Time
}

func NewBuilder(source SnapshotSource, path string, tracer trace.Tracer) *Builder {
	return &Builder{source: source, path: path, tracer: tracer, now: time.Now}
}

// Build renders the chart for rows fetched within the look-back window.
// An empty window is soft: no artifact is written, no error returned,
// and the previously published artifact stays valid. The returned bool
// reports whether an artifact was produced.
func (b *Builder) Build(ctx context.Context, window time.Duration) (string, bool, error) {
	ctx, span := b.tracer.Start(ctx, "chart.build")
	defer span.End()

	since := b.now().UTC().Add(-window)
	rows, err := b.source.GetSince(ctx, since)
	if err != nil {
		return "", false, fmt.Errorf("load snapshot window: %w", err)
	}
	if len(rows) == 0 {
		log.Println("Warning: no snapshot rows in window, nothing to render")
		return "", false, nil
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CurrentPrice > rows[j].CurrentPrice
	})

	latest := rows[0].FetchedAt
	for _, r := range rows[1:] {
		if r.FetchedAt.After(latest) {
			latest = r.FetchedAt
		}
	}

	names := make([]string, 0, len(rows))
	priceData := make([]opts.LineData, 0, len(rows))
	volData := make([]opts.LineData, 0, len(rows))
	for i, r := range rows {
		names = append(names, r.Name)
		priceData = append(priceData, opts.LineData{
			Value: []interface{}{i, r.CurrentPrice, r.High24h, r.Low24h},
		})
		if r.Volatility != nil {
			volData = append(volData, opts.LineData{Value: *r.Volatility})
		} else {
			volData = append(volData, opts.LineData{Value: "-"})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Top Tokens: Price and Volatility",
			Width:     "1400px",
			Height:    "700px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Top %d Tokens: Price and Volatility", len(rows)),
			Subtitle: "Last updated: " + latest.UTC().Format(displayTimeLayout),
			Left:     "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "axis",
			Formatter: opts.FuncOpts(tooltipFormatter),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "0", Top: "0"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Token", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price (USD)", Type: "log"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "Volatility%", Type: "value", Position: "right"})

	line.SetXAxis(names).
		AddSeries("Current Price", priceData,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: "blue", Width: 3})).
		AddSeries("Volatility (24h)", volData,
			charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1, ShowSymbol: opts.Bool(true)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: "purple", Width: 2, Type: "dashed"}))

	f, err := os.Create(b.path)
	if err != nil {
		return "", false, &domain.RenderError{Err: err}
	}
	defer f.Close()

	if err := line.Render(f); err != nil {
		return "", false, &domain.RenderError{Err: err}
	}

	log.Printf("Chart rendered for %d tokens to %s", len(rows), b.path)
	return b.path, true, nil
}
