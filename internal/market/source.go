package market

import (
	"context"
	"strings"
)

// Source fetches daily bar history for one ticker. Implementations live in
// the binance and yahoo subpackages; the engine only sees this interface.
type Source interface {
	FetchDaily(ctx context.Context, ticker string, lookbackDays int) ([]Candle, error)
}

// Router picks a source per ticker: "-USD" suffixed tickers go to the crypto
// source, everything else to the equity source.
type Router struct {
	Crypto Source
	Equity Source
}

func (r Router) FetchDaily(ctx context.Context, ticker string, lookbackDays int) ([]Candle, error) {
	if strings.HasSuffix(strings.ToUpper(ticker), "-USD") && r.Crypto != nil {
		return r.Crypto.FetchDaily(ctx, ticker, lookbackDays)
	}
	return r.Equity.FetchDaily(ctx, ticker, lookbackDays)
}
