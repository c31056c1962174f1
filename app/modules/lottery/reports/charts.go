package lotteryreports

import (
	"bytes"
	"errors"
	"strconv"

	lotteryservice "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/application"
	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to chart")

var (
	backgroundColor = drawing.ColorFromHex("0f1a14")
	barColor        = drawing.ColorFromHex("c9a227")
	textColor       = drawing.ColorFromHex("e8e6e3")
)

// EntriesChart renders a PNG bar chart of entries per number for the live
// round.
func EntriesChart(counts map[int]uint64) ([]byte, error) {
	values := make(map[int]float64, len(counts))
	for n, c := range counts {
		values[n] = float64(c)
	}
	return renderNumberBars("Entries per number", values)
}

// WinningNumbersChart renders how often each number has been drawn.
func WinningNumbersChart(draws []lotteryservice.DrawView) ([]byte, error) {
	values := make(map[int]float64)
	for _, d := range draws {
		values[int(d.WinningNumber)]++
	}
	return renderNumberBars("Winning numbers", values)
}

// renderNumberBars draws one bar per valid number. Values outside the
// number range are ignored.
func renderNumberBars(title string, values map[int]float64) ([]byte, error) {
	var total float64
	bars := make([]chart.Value, 0, lotterydomain.MaxNumber)
	for n := lotterydomain.MinNumber; n <= lotterydomain.MaxNumber; n++ {
		total += values[n]
		bars = append(bars, chart.Value{
			Label: strconv.Itoa(n),
			Value: values[n],
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor},
		})
	}
	if total == 0 {
		return nil, ErrNoData
	}

	graph := chart.BarChart{
		Title:      title,
		TitleStyle: chart.Style{FontColor: textColor},
		Width:      1400,
		Height:     400,
		BarWidth:   20,
		BarSpacing: 6,
		Background: chart.Style{
			FillColor: backgroundColor,
			Padding:   chart.Box{Top: 40},
		},
		Canvas: chart.Style{FillColor: backgroundColor},
		XAxis:  chart.Style{FontColor: textColor},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: textColor},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
