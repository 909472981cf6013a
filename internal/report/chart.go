package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/xblk-report/internal/xblk"
)

// ErrNoSamples is returned when a chart or plot is requested for a run
// without tracking records.
var ErrNoSamples = errors.New("no tracking records to chart")

// WriteChart renders the difference columns against elapsed time as an
// HTML line chart.
func WriteChart(w io.Writer, s *Series, title string) error {
	if s.Len() == 0 {
		return ErrNoSamples
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "640px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("records=%d", s.Len())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "elapsed (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "NCO difference", NameLocation: "middle", NameGap: 60}),
	)

	x := make([]string, s.Len())
	for i, v := range s.Elapsed {
		x[i] = xblk.FormatFloat(v)
	}
	line.SetXAxis(x)

	names, cols := s.Columns()
	for i, col := range cols {
		data := make([]opts.LineData, len(col))
		for j, v := range col {
			data[j] = opts.LineData{Value: v}
		}
		line.AddSeries(names[i], data)
	}
	return line.Render(w)
}
