package market

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candlesAt(start time.Time, ohlc ...[2]float64) []Candle {
	out := make([]Candle, 0, len(ohlc))
	for i, oc := range ohlc {
		out = append(out, Candle{
			Ts:    start.Add(time.Duration(i) * time.Hour),
			Open:  oc[0],
			High:  oc[0],
			Low:   oc[1],
			Close: oc[1],
		})
	}
	return out
}

func TestDetectGaps_ShortWindow(t *testing.T) {
	for _, n := range []int{0, 1} {
		got, err := DetectGaps(make([]Candle, n), 1.0)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestDetectGaps_FlagsSecondCandle(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cs := candlesAt(start, [2]float64{99, 100}, [2]float64{102, 101})

	got, err := DetectGaps(cs, 1.0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 2.0, got[0].GapPct, 1e-9)
	assert.Equal(t, 100.0, got[0].PrevClose)
	assert.Equal(t, 101.0, got[0].Close)
	assert.Equal(t, cs[1].Ts, got[0].Ts)
}

func TestDetectGaps_UsesAbsoluteValue(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// 第二根向下跳空 5%，第三根无缺口，第四根向上跳空 3%
	cs := candlesAt(start,
		[2]float64{100, 100},
		[2]float64{95, 96},
		[2]float64{96, 97},
		[2]float64{99.91, 99},
	)
	got, err := DetectGaps(cs, 2.5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, -5.0, got[0].GapPct, 1e-9)
	assert.InDelta(t, 3.0, got[1].GapPct, 1e-9)
	assert.True(t, got[0].Ts.Before(got[1].Ts))

	last, ok := MostRecent(got)
	require.True(t, ok)
	assert.Equal(t, got[1], last)
}

func TestDetectGaps_ThresholdIsStrict(t *testing.T) {
	cs := candlesAt(time.Now(), [2]float64{100, 100}, [2]float64{101, 101})
	got, err := DetectGaps(cs, 1.0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetectGaps_ZeroPreviousClose(t *testing.T) {
	cs := candlesAt(time.Now(), [2]float64{1, 0}, [2]float64{1, 1})
	got, err := DetectGaps(cs, 0)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrDivisionByZero), "got %v", err)
}

func TestDetectGaps_NegativeThreshold(t *testing.T) {
	_, err := DetectGaps(nil, -1)
	assert.ErrorIs(t, err, ErrNegativeThreshold)
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	assert.False(t, ok)
	cs := candlesAt(time.Now(), [2]float64{1, 2}, [2]float64{3, 4})
	c, ok := Latest(cs)
	require.True(t, ok)
	assert.Equal(t, 4.0, c.Close)
}
