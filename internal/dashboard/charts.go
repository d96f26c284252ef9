package dashboard

import (
	"fmt"

	"github.com/verte-zerg/recdash/internal/chart"
)

// Chart mount identifiers.
const (
	LatencyChartID = "latencyChart"
	ModelChartID   = "modelChart"
)

const (
	chartGridColor = "#3B3F4A"
	chartTickColor = "#CBD5E1"
)

// Charts owns the two dashboard charts for the lifetime of the program.
type Charts struct {
	Latency *chart.Chart
	Model   *chart.Chart
}

// InitCharts builds the latency line chart and the model accuracy bar chart
// from their fixed sample data.
func InitCharts() (*Charts, error) {
	latency, err := chart.New(LatencyChartID, LatencyChartConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to init latency chart: %w", err)
	}
	accuracy, err := chart.New(ModelChartID, ModelChartConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to init model chart: %w", err)
	}
	return &Charts{Latency: latency, Model: accuracy}, nil
}

// LatencyChartConfig is the response time line chart over one day.
func LatencyChartConfig() chart.Config {
	return chart.Config{
		Kind:   chart.KindLine,
		Labels: []string{"00:00", "04:00", "08:00", "12:00", "16:00", "20:00", "24:00"},
		Datasets: []chart.Dataset{{
			Label:           "Response Time (ms)",
			Values:          []float64{25, 28, 22, 30, 27, 24, 26},
			BorderColor:     []string{"#6366f1"},
			BackgroundColor: []string{"#312E81"},
			Fill:            true,
		}},
		Options: chartOptions(40),
	}
}

// ModelChartConfig is the per-model accuracy bar chart.
func ModelChartConfig() chart.Config {
	return chart.Config{
		Kind:   chart.KindBar,
		Labels: []string{"Collaborative", "Content-Based", "Neural Net", "Hybrid"},
		Datasets: []chart.Dataset{{
			Label:           "Accuracy (%)",
			Values:          []float64{89.5, 87.2, 91.8, 92.3},
			BorderColor:     []string{"#a855f7", "#3b82f6", "#22c55e", "#f97316"},
			BackgroundColor: []string{"#a855f7", "#3b82f6", "#22c55e", "#f97316"},
		}},
		Options: chartOptions(100),
	}
}

func chartOptions(yMax float64) chart.Options {
	scale := chart.Scale{GridColor: chartGridColor, TickColor: chartTickColor}
	y := scale
	y.Max = yMax
	return chart.Options{
		Responsive:          true,
		MaintainAspectRatio: false,
		ShowLegend:          false,
		X:                   scale,
		Y:                   y,
	}
}

// Resize fits both charts into the given per-chart box.
func (c *Charts) Resize(width, height int) {
	c.Latency.Resize(width, height)
	c.Model.Resize(width, height)
}
