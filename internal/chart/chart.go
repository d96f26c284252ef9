// Package chart renders small line and bar charts into terminal text.
package chart

import (
	"fmt"
	"strings"
)

// Kind selects the chart renderer.
type Kind int

const (
	KindLine Kind = iota
	KindBar
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindBar:
		return "bar"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	minWidth  = 16
	minHeight = 4
	// Terminal cells are roughly twice as tall as wide, so a 2:1 pixel
	// aspect ratio is about 4:1 in cells.
	cellAspect = 4
)

// Dataset is one named series. Colors apply per point when more than one is
// given, otherwise to the whole series.
type Dataset struct {
	Label           string
	Values          []float64
	BorderColor     []string
	BackgroundColor []string
	Fill            bool
}

// Scale configures one axis.
type Scale struct {
	Min       float64
	Max       float64
	GridColor string
	TickColor string
}

// Options are the display options shared by every chart kind.
type Options struct {
	Responsive          bool
	MaintainAspectRatio bool
	ShowLegend          bool
	X                   Scale
	Y                   Scale
}

// Config describes one chart.
type Config struct {
	Kind     Kind
	Labels   []string
	Datasets []Dataset
	Options  Options
}

// Validate checks that every dataset has one value per label and that the
// Y bounds are usable.
func (c Config) Validate() error {
	if c.Kind != KindLine && c.Kind != KindBar {
		return fmt.Errorf("unknown chart kind %s", c.Kind)
	}
	if len(c.Labels) == 0 {
		return fmt.Errorf("chart has no labels")
	}
	if len(c.Datasets) == 0 {
		return fmt.Errorf("chart has no datasets")
	}
	for i, ds := range c.Datasets {
		if len(ds.Values) != len(c.Labels) {
			return fmt.Errorf("dataset %d (%q) has %d values for %d labels", i, ds.Label, len(ds.Values), len(c.Labels))
		}
	}
	if c.Options.Y.Max <= c.Options.Y.Min {
		return fmt.Errorf("y max %.2f must be greater than y min %.2f", c.Options.Y.Max, c.Options.Y.Min)
	}
	return nil
}

// Chart is a chart bound to a named mount point.
type Chart struct {
	id     string
	cfg    Config
	width  int
	height int
}

// New binds cfg to the mount identified by id.
func New(id string, cfg Config) (*Chart, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("chart mount id is empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("chart %s: %w", id, err)
	}
	c := &Chart{id: id, cfg: cfg}
	c.Resize(minWidth*3, minHeight*2)
	return c, nil
}

// ID returns the mount identifier.
func (c *Chart) ID() string {
	return c.id
}

// Config returns the chart configuration.
func (c *Chart) Config() Config {
	return c.cfg
}

// Size returns the current width and height in cells.
func (c *Chart) Size() (width, height int) {
	return c.width, c.height
}

// Resize fits the chart into a width x height box. Non-responsive charts keep
// their first size. With MaintainAspectRatio the height follows the width.
func (c *Chart) Resize(width, height int) {
	if !c.cfg.Options.Responsive && c.width > 0 && c.height > 0 {
		return
	}
	if width < minWidth {
		width = minWidth
	}
	if c.cfg.Options.MaintainAspectRatio {
		height = width / cellAspect
	}
	if height < minHeight {
		height = minHeight
	}
	c.width = width
	c.height = height
}

// Render draws the chart at its current size.
func (c *Chart) Render() string {
	var body []string
	switch c.cfg.Kind {
	case KindBar:
		body = renderBar(c.cfg, c.width, c.plotHeight())
	default:
		body = renderLine(c.cfg, c.width, c.plotHeight())
	}
	if c.cfg.Options.ShowLegend {
		body = append([]string{renderLegend(c.cfg)}, body...)
	}
	return strings.Join(body, "\n")
}

// plotHeight is the height left for plot rows once the x-axis and its labels
// (and the legend, when shown) are accounted for.
func (c *Chart) plotHeight() int {
	h := c.height - 2
	if c.cfg.Options.ShowLegend {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

func colorAt(colors []string, i int) string {
	if len(colors) == 0 {
		return ""
	}
	if len(colors) == 1 {
		return colors[0]
	}
	return colors[i%len(colors)]
}
