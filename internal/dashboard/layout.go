package dashboard

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// scrollToResults starts an animated scroll that brings the results section
// into view, moving as little as possible.
func (m *Model) scrollToResults() tea.Cmd {
	target := nearestOffset(m.body.YOffset, m.body.Height, m.resultsTop, m.resultsBottom)
	if target == m.body.YOffset {
		m.scrolling = false
		return nil
	}
	m.scrollTarget = target
	m.scrolling = true
	return scrollTick()
}

func scrollTick() tea.Cmd {
	return tea.Tick(scrollFrame, func(time.Time) tea.Msg {
		return scrollStepMsg{}
	})
}

// stepScroll moves a quarter of the remaining distance, at least one line.
func (m *Model) stepScroll() tea.Cmd {
	if !m.scrolling {
		return nil
	}
	current := m.body.YOffset
	diff := m.scrollTarget - current
	if diff == 0 {
		m.scrolling = false
		return nil
	}
	step := diff / 4
	if step == 0 {
		step = 1
		if diff < 0 {
			step = -1
		}
	}
	m.body.SetYOffset(current + step)
	if m.body.YOffset == current {
		m.scrolling = false
		return nil
	}
	return scrollTick()
}

// nearestOffset returns the smallest scroll change that shows lines
// top..bottom in a window of height lines starting at offset. A section taller
// than the window is aligned to its top.
func nearestOffset(offset, height, top, bottom int) int {
	if height <= 0 {
		return offset
	}
	if top >= offset && bottom < offset+height {
		return offset
	}
	if top < offset || bottom-top+1 > height {
		return top
	}
	return bottom - height + 1
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	return maxInt(30, minInt(width-4, 60))
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
