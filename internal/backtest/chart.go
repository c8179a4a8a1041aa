package backtest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"openclaw/internal/portfolio"
)

// RenderEquityChart writes an interactive equity-curve page for a run and
// returns the file path.
func RenderEquityChart(dir string, run Run, equity []portfolio.EquityPoint) (string, error) {
	if len(equity) == 0 {
		return "", fmt.Errorf("run %s has no equity points", run.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dates := make([]string, 0, len(equity))
	equitySeries := make([]opts.LineData, 0, len(equity))
	cashSeries := make([]opts.LineData, 0, len(equity))
	for _, pt := range equity {
		dates = append(dates, pt.Date.Format("2006-01-02"))
		equitySeries = append(equitySeries, opts.LineData{Value: pt.Equity})
		cashSeries = append(cashSeries, opts.LineData{Value: pt.Cash})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Equity Curve %s", run.ID[:8]),
			Subtitle: fmt.Sprintf("return %.2f%% / max drawdown %.2f%%", run.Stats.ReturnPct, run.Stats.MaxDrawdownPct),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetXAxis(dates).
		AddSeries("Equity", equitySeries, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})).
		AddSeries("Cash", cashSeries, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	path := filepath.Join(dir, fmt.Sprintf("equity_%s.html", run.ID))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return "", err
	}
	return path, nil
}
