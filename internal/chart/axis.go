package chart

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	axisSeparator = "│"
	axisCorner    = "└"
	axisLine      = "─"
	gridGlyph     = "┈"
)

// frame holds the layout shared by the line and bar renderers: a column of
// Y tick labels, the axis, and the plot area to its right.
type frame struct {
	rows      int
	axisWidth int
	plotWidth int
	tickRows  map[int]string
	tickStyle lipgloss.Style
	gridStyle lipgloss.Style
	axisStyle lipgloss.Style
}

func newFrame(cfg Config, width, rows int) frame {
	f := frame{
		rows:      rows,
		tickRows:  yTickLabels(cfg.Options.Y, rows),
		tickStyle: fg(cfg.Options.Y.TickColor),
		gridStyle: fg(cfg.Options.Y.GridColor),
		axisStyle: fg(cfg.Options.X.GridColor),
	}
	for _, label := range f.tickRows {
		if w := runewidth.StringWidth(label); w > f.axisWidth {
			f.axisWidth = w
		}
	}
	f.plotWidth = width - f.axisWidth - 2
	if f.plotWidth < 1 {
		f.plotWidth = 1
	}
	return f
}

func (f frame) isGridRow(row int) bool {
	_, ok := f.tickRows[row]
	return ok
}

// prefix renders the tick label and axis for a plot row.
func (f frame) prefix(row int) string {
	label := f.tickRows[row]
	pad := strings.Repeat(" ", f.axisWidth-runewidth.StringWidth(label))
	return pad + f.tickStyle.Render(label) + " " + f.axisStyle.Render(axisSeparator)
}

// emptyCell is what a plot cell without data shows.
func (f frame) emptyCell(row int) string {
	if f.isGridRow(row) {
		return f.gridStyle.Render(gridGlyph)
	}
	return " "
}

func (f frame) xAxis() string {
	return strings.Repeat(" ", f.axisWidth+1) + f.axisStyle.Render(axisCorner+strings.Repeat(axisLine, f.plotWidth))
}

// xLabels centers each label on its column, truncating to maxWidth when it is
// positive and dropping labels that would overlap the previous one.
func (f frame) xLabels(labels []string, centers []int, maxWidth int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", f.axisWidth+2))
	cursor := 0
	for i, label := range labels {
		if i >= len(centers) {
			break
		}
		if maxWidth > 0 {
			label = runewidth.Truncate(label, maxWidth, "…")
		}
		w := runewidth.StringWidth(label)
		if w == 0 {
			continue
		}
		start := centers[i] - w/2
		if start+w > f.plotWidth {
			start = f.plotWidth - w
		}
		if start < 0 {
			start = 0
		}
		minStart := cursor
		if cursor > 0 {
			minStart++
		}
		if start < minStart {
			continue
		}
		b.WriteString(strings.Repeat(" ", start-cursor))
		b.WriteString(f.tickStyle.Render(label))
		cursor = start + w
	}
	return strings.TrimRight(b.String(), " ")
}

// yTickLabels labels the top, middle and bottom plot rows.
func yTickLabels(scale Scale, rows int) map[int]string {
	ticks := map[int]string{}
	if rows <= 0 {
		return ticks
	}
	ticks[0] = formatTick(scale.Max)
	if rows > 1 {
		ticks[rows-1] = formatTick(scale.Min)
	}
	if rows > 2 {
		mid := (rows - 1) / 2
		v := scale.Max - (scale.Max-scale.Min)*float64(mid)/float64(rows-1)
		ticks[mid] = formatTick(v)
	}
	return ticks
}

func formatTick(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

// normalize maps v into [0,1] within the scale bounds, clamping outliers.
func normalize(v float64, scale Scale) float64 {
	pos := (v - scale.Min) / (scale.Max - scale.Min)
	if math.IsNaN(pos) || pos < 0 {
		return 0
	}
	if pos > 1 {
		return 1
	}
	return pos
}

func fg(color string) lipgloss.Style {
	if color == "" {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func renderLegend(cfg Config) string {
	parts := make([]string, 0, len(cfg.Datasets))
	for _, ds := range cfg.Datasets {
		color := colorAt(ds.BorderColor, 0)
		if color == "" {
			color = colorAt(ds.BackgroundColor, 0)
		}
		parts = append(parts, fg(color).Render("■")+" "+fg(cfg.Options.X.TickColor).Render(ds.Label))
	}
	return strings.Join(parts, "  ")
}
