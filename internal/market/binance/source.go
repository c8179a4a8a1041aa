package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"openclaw/internal/market"

	gobinance "github.com/adshao/go-binance/v2"
)

const maxKlineLimit = 1000

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration
}

// Source fetches daily spot klines via the go-binance SDK. It implements
// market.Source for "-USD" crypto tickers (mapped to USDT pairs).
type Source struct {
	client *gobinance.Client
}

func New(cfg Config) *Source {
	client := gobinance.NewClient("", "")
	if cfg.RESTBaseURL != "" {
		client.BaseURL = strings.TrimSpace(cfg.RESTBaseURL)
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}
	return &Source{client: client}
}

func (s *Source) FetchDaily(ctx context.Context, ticker string, lookbackDays int) ([]market.Candle, error) {
	symbol, err := pairSymbol(ticker)
	if err != nil {
		return nil, err
	}
	limit := lookbackDays
	if limit <= 0 || limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval("1d").
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}
	candles := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, market.Candle{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
		})
	}
	return market.SortValid(candles), nil
}

// pairSymbol maps a "BTC-USD" style ticker onto the Binance USDT pair.
func pairSymbol(ticker string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(ticker))
	base, ok := strings.CutSuffix(upper, "-USD")
	if !ok || base == "" {
		return "", fmt.Errorf("not a crypto ticker: %q", ticker)
	}
	return base + "USDT", nil
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}
