package chart

import (
	"strings"
	"testing"
)

func lineConfig() Config {
	return Config{
		Kind:   KindLine,
		Labels: []string{"a", "b", "c", "d"},
		Datasets: []Dataset{
			{Label: "latency", Values: []float64{10, 30, 20, 40}, BorderColor: []string{"#6366f1"}},
		},
		Options: Options{Responsive: true, Y: Scale{Min: 0, Max: 40}},
	}
}

func barConfig() Config {
	return Config{
		Kind:   KindBar,
		Labels: []string{"one", "two", "three"},
		Datasets: []Dataset{
			{Label: "accuracy", Values: []float64{50, 100, 0}, BackgroundColor: []string{"#a855f7", "#3b82f6", "#22c55e"}},
		},
		Options: Options{Responsive: true, Y: Scale{Min: 0, Max: 100}},
	}
}

func TestValidateRejectsLengthMismatch(t *testing.T) {
	cfg := lineConfig()
	cfg.Datasets[0].Values = cfg.Datasets[0].Values[:2]
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for mismatched values")
	}
}

func TestValidateRejectsBadScale(t *testing.T) {
	cfg := lineConfig()
	cfg.Options.Y = Scale{Min: 5, Max: 5}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty y range")
	}
}

func TestNewRequiresMountID(t *testing.T) {
	if _, err := New("  ", lineConfig()); err == nil {
		t.Fatalf("expected error for empty mount id")
	}
	c, err := New("latencyChart", lineConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.ID() != "latencyChart" {
		t.Fatalf("unexpected id %q", c.ID())
	}
}

func TestResizeIndependentDimensions(t *testing.T) {
	c, err := New("latencyChart", lineConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c.Resize(60, 12)
	if w, h := c.Size(); w != 60 || h != 12 {
		t.Fatalf("expected 60x12, got %dx%d", w, h)
	}
	c.Resize(2, 1)
	if w, h := c.Size(); w != minWidth || h != minHeight {
		t.Fatalf("expected minimum size, got %dx%d", w, h)
	}
}

func TestResizeMaintainAspectRatio(t *testing.T) {
	cfg := lineConfig()
	cfg.Options.MaintainAspectRatio = true
	c, err := New("latencyChart", cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c.Resize(80, 50)
	if w, h := c.Size(); w != 80 || h != 20 {
		t.Fatalf("expected 80x20, got %dx%d", w, h)
	}
}

func TestResizeIgnoredWhenNotResponsive(t *testing.T) {
	cfg := lineConfig()
	cfg.Options.Responsive = false
	c, err := New("latencyChart", cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	w0, h0 := c.Size()
	c.Resize(100, 30)
	if w, h := c.Size(); w != w0 || h != h0 {
		t.Fatalf("expected size to stay %dx%d, got %dx%d", w0, h0, w, h)
	}
}

func TestRenderLineRowsAndTicks(t *testing.T) {
	c, err := New("latencyChart", lineConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c.Resize(40, 8)
	lines := strings.Split(c.Render(), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected 8 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "40") {
		t.Fatalf("expected top tick 40, got %q", lines[0])
	}
	if !strings.Contains(lines[5], "0") {
		t.Fatalf("expected bottom tick 0, got %q", lines[5])
	}
	hasBraille := false
	for _, line := range lines[:6] {
		for _, r := range line {
			if r > 0x2800 && r <= 0x28FF {
				hasBraille = true
			}
		}
	}
	if !hasBraille {
		t.Fatalf("expected braille dots in plot rows")
	}
	if !strings.Contains(lines[7], "a") || !strings.Contains(lines[7], "d") {
		t.Fatalf("expected x labels, got %q", lines[7])
	}
}

func TestRenderLineTopValueOnTopRow(t *testing.T) {
	c, err := New("latencyChart", lineConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c.Resize(40, 8)
	lines := strings.Split(c.Render(), "\n")
	top := false
	for _, r := range lines[0] {
		if r >= 0x2800 && r <= 0x28FF && (r-0x2800)&0x09 != 0 {
			top = true
		}
	}
	if !top {
		t.Fatalf("expected the max value to reach the top dot row, got %q", lines[0])
	}
}

func TestRenderBarHeights(t *testing.T) {
	c, err := New("modelChart", barConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c.Resize(40, 6)
	lines := strings.Split(c.Render(), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
	full := 0
	for _, r := range lines[0] {
		if r == '█' {
			full++
		}
	}
	if full == 0 {
		t.Fatalf("expected the 100%% bar to fill the top row, got %q", lines[0])
	}
	if !strings.Contains(lines[3], "█") {
		t.Fatalf("expected bars on the bottom row, got %q", lines[3])
	}
	if !strings.Contains(lines[5], "one") || !strings.Contains(lines[5], "two") {
		t.Fatalf("expected bar labels, got %q", lines[5])
	}
}

func TestRenderLegend(t *testing.T) {
	cfg := lineConfig()
	cfg.Options.ShowLegend = true
	c, err := New("latencyChart", cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c.Resize(40, 8)
	lines := strings.Split(c.Render(), "\n")
	if len(lines) != 8 || !strings.Contains(lines[0], "latency") {
		t.Fatalf("expected legend line first, got %q", lines[0])
	}
}

func TestYTickLabels(t *testing.T) {
	ticks := yTickLabels(Scale{Min: 0, Max: 100}, 5)
	if ticks[0] != "100" || ticks[4] != "0" || ticks[2] != "50" {
		t.Fatalf("unexpected ticks %v", ticks)
	}
}

func TestNormalizeClamps(t *testing.T) {
	s := Scale{Min: 0, Max: 40}
	if normalize(80, s) != 1 || normalize(-5, s) != 0 || normalize(20, s) != 0.5 {
		t.Fatalf("normalize did not clamp")
	}
}
