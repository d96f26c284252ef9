package chart

import (
	"math"
	"strings"
)

const fillGlyph = "░"

// renderLine draws every dataset as a braille polyline over a fixed Y scale.
func renderLine(cfg Config, width, rows int) []string {
	f := newFrame(cfg, width, rows)
	pxWidth := f.plotWidth * 2
	pxHeight := rows * 4

	seriesCells := make([][][]uint8, 0, len(cfg.Datasets))
	fills := make([][][]bool, 0, len(cfg.Datasets))
	var centers []int
	for _, ds := range cfg.Datasets {
		cells := makeCells(rows, f.plotWidth)
		xs := pointColumns(len(ds.Values), pxWidth)
		if centers == nil {
			centers = make([]int, len(xs))
			for i, x := range xs {
				centers[i] = x / 2
			}
		}
		prevX, prevY := -1, -1
		for i, v := range ds.Values {
			px := xs[i]
			py := valueToRow(normalize(v, cfg.Options.Y), pxHeight)
			if prevX >= 0 {
				drawLine(prevX, prevY, px, py, func(dx, dy int) {
					setBrailleDot(cells, dx, dy)
				})
			} else {
				setBrailleDot(cells, px, py)
			}
			prevX, prevY = px, py
		}
		seriesCells = append(seriesCells, cells)
		if ds.Fill {
			fills = append(fills, fillBelow(cells))
		} else {
			fills = append(fills, nil)
		}
	}

	lines := make([]string, 0, rows+2)
	for y := 0; y < rows; y++ {
		var row strings.Builder
		row.WriteString(f.prefix(y))
		for x := 0; x < f.plotWidth; x++ {
			mask, idx := composeCell(seriesCells, x, y)
			if mask != 0 {
				row.WriteString(fg(colorAt(cfg.Datasets[idx].BorderColor, 0)).Render(string(brailleFromMask(mask))))
				continue
			}
			if fillIdx := filledBy(fills, x, y); fillIdx >= 0 {
				row.WriteString(fg(colorAt(cfg.Datasets[fillIdx].BackgroundColor, 0)).Render(fillGlyph))
				continue
			}
			row.WriteString(f.emptyCell(y))
		}
		lines = append(lines, row.String())
	}
	lines = append(lines, f.xAxis(), f.xLabels(cfg.Labels, centers, 0))
	return lines
}

// pointColumns spreads n points evenly over pxWidth braille columns.
func pointColumns(n, pxWidth int) []int {
	xs := make([]int, n)
	if n == 0 {
		return xs
	}
	if n == 1 {
		xs[0] = pxWidth / 2
		return xs
	}
	for i := range xs {
		xs[i] = int(math.Round(float64(i) * float64(pxWidth-1) / float64(n-1)))
	}
	return xs
}

func valueToRow(pos float64, height int) int {
	if height <= 1 {
		return 0
	}
	row := int(math.Round((1 - pos) * float64(height-1)))
	if row < 0 {
		row = 0
	}
	if row >= height {
		row = height - 1
	}
	return row
}

// fillBelow marks every empty cell under the topmost plotted cell of a column.
func fillBelow(cells [][]uint8) [][]bool {
	if len(cells) == 0 {
		return nil
	}
	out := make([][]bool, len(cells))
	for y := range out {
		out[y] = make([]bool, len(cells[y]))
	}
	for x := 0; x < len(cells[0]); x++ {
		top := -1
		for y := 0; y < len(cells); y++ {
			if cells[y][x] != 0 {
				top = y
				break
			}
		}
		if top < 0 {
			continue
		}
		for y := top + 1; y < len(cells); y++ {
			if cells[y][x] == 0 {
				out[y][x] = true
			}
		}
	}
	return out
}

func filledBy(fills [][][]bool, x, y int) int {
	for i, fill := range fills {
		if fill == nil || y >= len(fill) || x >= len(fill[y]) {
			continue
		}
		if fill[y][x] {
			return i
		}
	}
	return -1
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := 0; y < height; y++ {
		cells[y] = make([]uint8, width)
	}
	return cells
}

func composeCell(seriesCells [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	colorIdx := -1
	for i, cells := range seriesCells {
		if y < 0 || y >= len(cells) {
			continue
		}
		if x < 0 || x >= len(cells[y]) {
			continue
		}
		cellMask := cells[y][x]
		if cellMask == 0 {
			continue
		}
		if colorIdx == -1 {
			colorIdx = i
		}
		mask |= cellMask
	}
	return mask, colorIdx
}

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				break
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				break
			}
			err += dx
			y0 += sy
		}
	}
}

func setBrailleDot(cells [][]uint8, x, y int) {
	if y < 0 || x < 0 {
		return
	}
	cellY := y / 4
	cellX := x / 2
	if cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
}

func brailleDotMask(x, y int) uint8 {
	switch {
	case x == 0 && y == 0:
		return 0x01
	case x == 0 && y == 1:
		return 0x02
	case x == 0 && y == 2:
		return 0x04
	case x == 0 && y == 3:
		return 0x40
	case x == 1 && y == 0:
		return 0x08
	case x == 1 && y == 1:
		return 0x10
	case x == 1 && y == 2:
		return 0x20
	case x == 1 && y == 3:
		return 0x80
	default:
		return 0
	}
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}
