package chart

import (
	"math"
	"strings"
)

// eighths are the partial block glyphs, indexed by filled eighths of a cell.
var eighths = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// renderBar draws one vertical bar per label and dataset over a fixed Y scale.
func renderBar(cfg Config, width, rows int) []string {
	f := newFrame(cfg, width, rows)
	n := len(cfg.Labels)
	slot := f.plotWidth / n
	if slot < 1 {
		slot = 1
	}
	groupWidth := slot * 3 / 5
	if groupWidth < len(cfg.Datasets) {
		groupWidth = len(cfg.Datasets)
	}
	barWidth := groupWidth / len(cfg.Datasets)

	// owner[x] is the (dataset, label) drawn in plot column x, or -1.
	type owner struct{ ds, label int }
	owners := make([]owner, f.plotWidth)
	for x := range owners {
		owners[x] = owner{-1, -1}
	}
	centers := make([]int, n)
	for i := 0; i < n; i++ {
		start := i*slot + (slot-groupWidth)/2
		centers[i] = i*slot + slot/2
		for d := range cfg.Datasets {
			for w := 0; w < barWidth; w++ {
				x := start + d*barWidth + w
				if x >= 0 && x < f.plotWidth {
					owners[x] = owner{d, i}
				}
			}
		}
	}

	lines := make([]string, 0, rows+2)
	for y := 0; y < rows; y++ {
		fromBottom := rows - 1 - y
		var row strings.Builder
		row.WriteString(f.prefix(y))
		for x := 0; x < f.plotWidth; x++ {
			o := owners[x]
			if o.ds < 0 {
				row.WriteString(f.emptyCell(y))
				continue
			}
			ds := cfg.Datasets[o.ds]
			level := barEighths(ds.Values[o.label], cfg.Options.Y, rows) - fromBottom*8
			if level <= 0 {
				row.WriteString(f.emptyCell(y))
				continue
			}
			if level > 8 {
				level = 8
			}
			color := colorAt(ds.BackgroundColor, o.label)
			if color == "" {
				color = colorAt(ds.BorderColor, o.label)
			}
			row.WriteString(fg(color).Render(eighths[level]))
		}
		lines = append(lines, row.String())
	}
	lines = append(lines, f.xAxis(), f.xLabels(cfg.Labels, centers, slot-1))
	return lines
}

// barEighths is the bar height in eighths of a cell.
func barEighths(v float64, scale Scale, rows int) int {
	return int(math.Round(normalize(v, scale) * float64(rows*8)))
}
