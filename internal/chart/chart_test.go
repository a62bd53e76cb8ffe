package chart

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRenderPriceHistory(t *testing.T) {
	start := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	points := []Point{
		{Time: start, Price: 520},
		{Time: start.Add(5 * time.Minute), Price: 480},
		{Time: start.Add(10 * time.Minute), Price: 450},
	}

	png, err := RenderPriceHistory("Mystic Coin buy price", points)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestRenderPriceHistory_FlatSeries(t *testing.T) {
	start := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	png, err := RenderPriceHistory("flat", []Point{{Time: start, Price: 450}, {Time: start.Add(time.Minute), Price: 450}})
	require.NoError(t, err)
	require.NotEmpty(t, png)
}

func TestRenderPriceHistory_NotEnoughPoints(t *testing.T) {
	_, err := RenderPriceHistory("single", []Point{{Time: time.Now(), Price: 1}})
	require.Error(t, err)
}

func TestPaddedRange(t *testing.T) {
	lo, hi := paddedRange([]float64{100, 200})
	require.Equal(t, 90.0, lo)
	require.Equal(t, 210.0, hi)

	lo, hi = paddedRange([]float64{0, 0})
	require.Equal(t, 0.0, lo)
	require.Equal(t, 1.0, hi)
}
