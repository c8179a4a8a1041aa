package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"openclaw/internal/market"

	"github.com/tidwall/gjson"
)

// Source fetches daily bars from the Yahoo Finance chart API. The response
// is the usual deeply nested chart JSON; gjson keeps the extraction flat.
type Source struct {
	baseURL string
	client  *http.Client
}

type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
}

func New(cfg Config) *Source {
	base := cfg.BaseURL
	if base == "" {
		base = "https://query1.finance.yahoo.com"
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Source{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *Source) FetchDaily(ctx context.Context, ticker string, lookbackDays int) ([]market.Candle, error) {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d&events=div%%2Csplit",
		s.baseURL, url.PathEscape(ticker), rangeParam(lookbackDays))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; openclaw/1.0)")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo chart %s: status %d", ticker, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return parseChart(ticker, body)
}

func parseChart(ticker string, body []byte) ([]market.Candle, error) {
	root := gjson.ParseBytes(body)
	if errDesc := root.Get("chart.error.description"); errDesc.Exists() && errDesc.String() != "" {
		return nil, fmt.Errorf("yahoo chart %s: %s", ticker, errDesc.String())
	}
	result := root.Get("chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("yahoo chart %s: empty result", ticker)
	}
	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	candles := make([]market.Candle, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closes) {
			break
		}
		// Yahoo emits nulls for halted sessions; treat them as gaps.
		if !closes[i].Exists() || closes[i].Type == gjson.Null {
			continue
		}
		openMs := ts.Int() * 1000
		candles = append(candles, market.Candle{
			OpenTime:  openMs,
			CloseTime: openMs + (24*time.Hour).Milliseconds() - 1,
			Open:      at(opens, i),
			High:      at(highs, i),
			Low:       at(lows, i),
			Close:     closes[i].Float(),
			Volume:    at(volumes, i),
		})
	}
	return market.SortValid(candles), nil
}

func at(arr []gjson.Result, i int) float64 {
	if i >= len(arr) || !arr[i].Exists() {
		return 0
	}
	return arr[i].Float()
}

func rangeParam(days int) string {
	switch {
	case days <= 31:
		return "1mo"
	case days <= 93:
		return "3mo"
	case days <= 186:
		return "6mo"
	case days <= 366:
		return "1y"
	case days <= 732:
		return "2y"
	case days <= 1830:
		return "5y"
	default:
		return "10y"
	}
}
