// Package charts renders the insights chart images as PNGs: a bar chart of
// recent job durations and pie charts of the status and per-config job
// distributions. Rendering is pure: callers fetch the aggregates from the
// repo layer and pass them in.
package charts

import (
	"errors"
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
	"github.com/plugtrack/go-plugtrack-backend/internal/repo"
)

// ErrNoData is returned when there is nothing to chart. Handlers map it to a
// response the UI can treat as "no chart yet" instead of a broken image.
var ErrNoData = errors.New("no chart data")

// Fixed status colors, shared by the duration bars and the status pie.
var (
	colorStarted  = drawing.Color{R: 0x00, G: 0x00, B: 0xFF, A: 0xFF} // blue
	colorStopped  = drawing.Color{R: 0xFF, G: 0xFF, B: 0x00, A: 0xFF} // yellow
	colorFailed   = drawing.Color{R: 0xFF, G: 0x00, B: 0x00, A: 0xFF} // red
	colorFinished = drawing.Color{R: 0x00, G: 0xFF, B: 0x00, A: 0xFF} // green

	// Bars distinguish stopped jobs with orange so they stand apart from
	// finished (green) and failed (red) at a glance.
	barStopped = drawing.Color{R: 0xFF, G: 0xA5, B: 0x00, A: 0xFF}
)

// barColor maps a terminal status to its bar fill.
func barColor(s domain.JobStatus) drawing.Color {
	switch s {
	case domain.StatusFailed:
		return colorFailed
	case domain.StatusStopped:
		return barStopped
	default:
		return colorFinished
	}
}

// Durations writes a PNG bar chart of completed job durations (minutes),
// one bar per job ordered by end time, colored by terminal status.
func Durations(w io.Writer, points []repo.DurationPoint) error {
	if len(points) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, 0, len(points))
	for _, p := range points {
		bars = append(bars, chart.Value{
			Value: p.Duration / 60,
			Label: p.EndTime.Format("15:04:05"),
			Style: chart.Style{
				FillColor:   barColor(p.Status),
				StrokeColor: barColor(p.Status),
			},
		})
	}

	bc := chart.BarChart{
		Title:    fmt.Sprintf("Duration of Last %d Completed Jobs", len(bars)),
		Width:    1000,
		Height:   750,
		BarWidth: 12,
		XAxis:    chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Name: "Duration (min)",
		},
		Bars: bars,
	}
	return bc.Render(chart.PNG, w)
}

// StatusPie writes a PNG pie chart of the job status distribution using the
// fixed color mapping (started blue, stopped yellow, failed red, finished
// green). Empty slices are omitted; an entirely empty population returns
// ErrNoData.
func StatusPie(w io.Writer, counts map[domain.JobStatus]int64) error {
	type slice struct {
		status domain.JobStatus
		label  string
		color  drawing.Color
	}
	order := []slice{
		{domain.StatusStarted, "Started", colorStarted},
		{domain.StatusStopped, "Stopped", colorStopped},
		{domain.StatusFailed, "Failed", colorFailed},
		{domain.StatusFinished, "Finished", colorFinished},
	}

	values := make([]chart.Value, 0, len(order))
	for _, s := range order {
		if n := counts[s.status]; n > 0 {
			values = append(values, chart.Value{
				Value: float64(n),
				Label: s.label,
				Style: chart.Style{FillColor: s.color},
			})
		}
	}
	if len(values) == 0 {
		return ErrNoData
	}

	pc := chart.PieChart{
		Title:  "Status of Jobs",
		Width:  500,
		Height: 400,
		Values: values,
	}
	return pc.Render(chart.PNG, w)
}

// ConfigPie writes a PNG pie chart of jobs per configuration. Configs with
// no jobs are omitted; no jobs at all returns ErrNoData.
func ConfigPie(w io.Writer, counts []repo.ConfigJobCount) error {
	values := make([]chart.Value, 0, len(counts))
	for _, c := range counts {
		if c.Jobs > 0 {
			values = append(values, chart.Value{
				Value: float64(c.Jobs),
				Label: c.Name,
			})
		}
	}
	if len(values) == 0 {
		return ErrNoData
	}

	pc := chart.PieChart{
		Title:  "Jobs by Configuration",
		Width:  500,
		Height: 400,
		Values: values,
	}
	return pc.Render(chart.PNG, w)
}
