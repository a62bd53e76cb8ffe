package chart

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"tp-tracker/lib/helpers"
)

var (
	backgroundColor = drawing.Color{R: 55, G: 55, B: 55, A: 255}
	textColor       = drawing.Color{R: 200, G: 200, B: 200, A: 255}
	lineColor       = drawing.Color{R: 0, G: 122, B: 255, A: 255}
	areaColor       = drawing.Color{R: 0, G: 122, B: 255, A: 25}
	gridColor       = drawing.Color{R: 100, G: 100, B: 100, A: 128}
)

// Point is one price observation
type Point struct {
	Time  time.Time
	Price int64
}

// RenderPriceHistory draws the points as a PNG line chart with gold/silver/copper labels
func RenderPriceHistory(title string, points []Point) ([]byte, error) {
	if len(points) < 2 {
		return nil, errors.New("at least two points are needed to draw a chart")
	}

	times := make([]time.Time, 0, len(points))
	prices := make([]float64, 0, len(points))
	for _, p := range points {
		times = append(times, p.Time)
		prices = append(prices, float64(p.Price))
	}

	minValue, maxValue := paddedRange(prices)

	graph := chart.Chart{
		Title:      title,
		TitleStyle: chart.Style{FontColor: textColor, FontSize: 14},
		Width:      1200,
		Height:     500,
		Background: chart.Style{
			FillColor: backgroundColor,
			Padding:   chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas: chart.Style{FillColor: backgroundColor},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeMinuteValueFormatter,
			Style:          chart.Style{FontColor: textColor, StrokeColor: textColor},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: minValue, Max: maxValue},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return helpers.FormatPrice(int64(f + 0.5))
				}
				return ""
			},
			Style:          chart.Style{FontColor: textColor, StrokeColor: textColor},
			GridMajorStyle: chart.Style{StrokeColor: gridColor, StrokeWidth: 1},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				XValues: times,
				YValues: prices,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					FillColor:   areaColor,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "could not render chart")
	}
	return buf.Bytes(), nil
}

// paddedRange returns the min and max of values widened by 10%, never an empty range
func paddedRange(values []float64) (float64, float64) {
	minValue, maxValue := values[0], values[0]
	for _, v := range values {
		if v < minValue {
			minValue = v
		}
		if v > maxValue {
			maxValue = v
		}
	}

	padding := (maxValue - minValue) * 0.1
	if padding < 1 {
		padding = 1
	}

	minValue -= padding
	if minValue < 0 {
		minValue = 0
	}
	return minValue, maxValue + padding
}
