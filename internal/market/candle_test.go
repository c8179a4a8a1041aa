package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func dayCandle(day int, closePrice float64) Candle {
	open := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	return Candle{
		OpenTime:  open.UnixMilli(),
		CloseTime: open.Add(24*time.Hour - time.Millisecond).UnixMilli(),
		Open:      closePrice, High: closePrice + 1, Low: closePrice - 1, Close: closePrice,
		Volume: 1000,
	}
}

func TestSortValidReordersAndFilters(t *testing.T) {
	in := []Candle{
		dayCandle(2, 102),
		dayCandle(0, 100),
		{OpenTime: dayCandle(1, 0).OpenTime}, // zero prices dropped
		dayCandle(1, 101),
		dayCandle(2, 999), // duplicate timestamp, first occurrence wins
	}

	out := SortValid(in)
	assert.Len(t, out, 3)
	assert.Equal(t, 100.0, out[0].Close)
	assert.Equal(t, 101.0, out[1].Close)
	assert.Equal(t, 102.0, out[2].Close)
	for i := 1; i < len(out); i++ {
		assert.Less(t, out[i-1].OpenTime, out[i].OpenTime)
	}
}

func TestSortValidEmpty(t *testing.T) {
	assert.Empty(t, SortValid(nil))
	assert.Empty(t, SortValid([]Candle{{OpenTime: 1}}))
}

func TestCandleDay(t *testing.T) {
	c := dayCandle(0, 100)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), c.Day())
}
