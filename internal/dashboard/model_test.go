package dashboard

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/recdash/internal/logging"
	"github.com/verte-zerg/recdash/internal/model"
)

type recommendCall struct {
	userID string
	n      string
}

type fakeFetcher struct {
	mu       sync.Mutex
	stats    model.StatsSnapshot
	nStats   int
	statsErr error
	payload  string
	err      error
	calls    []recommendCall
}

func (f *fakeFetcher) Stats(context.Context) (model.StatsSnapshot, error) {
	f.mu.Lock()
	f.nStats++
	f.mu.Unlock()
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats, nil
}

func (f *fakeFetcher) statsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nStats
}

func (f *fakeFetcher) Recommend(_ context.Context, userID, n string) (model.RecommendationPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recommendCall{userID: userID, n: n})
	if f.err != nil {
		return nil, f.err
	}
	return model.RecommendationPayload(f.payload), nil
}

func newTestModel(t *testing.T, f *fakeFetcher) *Model {
	t.Helper()
	m, err := NewModel(context.Background(), f, Options{})
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	return m
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() {
		logging.Init(logging.DefaultConfig())
	})
	return &buf
}

const threeItems = `{"recommendations":[
	{"title":"Alien","genres":["Horror","Sci-Fi"],"score":4.5,"method":"collaborative"},
	{"title":"Brazil"},
	{"title":"Cube","genres":"Thriller","score":3,"method":"content"}
]}`

func TestInitChartsBuildsBothCharts(t *testing.T) {
	charts, err := InitCharts()
	if err != nil {
		t.Fatalf("InitCharts failed: %v", err)
	}
	if charts.Latency.ID() != LatencyChartID || charts.Model.ID() != ModelChartID {
		t.Fatalf("unexpected chart ids %q %q", charts.Latency.ID(), charts.Model.ID())
	}
	latency := charts.Latency.Config()
	if len(latency.Labels) != 7 || latency.Options.Y.Max != 40 {
		t.Fatalf("unexpected latency config %+v", latency)
	}
	accuracy := charts.Model.Config()
	if len(accuracy.Labels) != 4 || accuracy.Options.Y.Max != 100 {
		t.Fatalf("unexpected model config %+v", accuracy)
	}
	for _, cfg := range []struct {
		name string
		opts bool
		leg  bool
	}{
		{"latency", latency.Options.MaintainAspectRatio, latency.Options.ShowLegend},
		{"model", accuracy.Options.MaintainAspectRatio, accuracy.Options.ShowLegend},
	} {
		if cfg.opts || cfg.leg {
			t.Fatalf("%s chart should not keep aspect ratio or show a legend", cfg.name)
		}
	}
}

func TestChartsResizeIndependently(t *testing.T) {
	charts, err := InitCharts()
	if err != nil {
		t.Fatalf("InitCharts failed: %v", err)
	}
	charts.Resize(70, 9)
	if w, h := charts.Latency.Size(); w != 70 || h != 9 {
		t.Fatalf("expected 70x9, got %dx%d", w, h)
	}
	if w, h := charts.Model.Size(); w != 70 || h != 9 {
		t.Fatalf("expected 70x9, got %dx%d", w, h)
	}
}

func TestEmptyUserIDQueuesNotice(t *testing.T) {
	f := &fakeFetcher{payload: threeItems}
	m := newTestModel(t, f)
	m.SetUserID("   ")
	if cmd := m.getRecommendations(); cmd != nil {
		t.Fatalf("expected no request for empty user id")
	}
	if notices := m.Notices(); len(notices) != 1 || notices[0] != NoticeEmptyUserID {
		t.Fatalf("unexpected notices %v", notices)
	}
	if len(f.calls) != 0 {
		t.Fatalf("expected no fetch, got %d", len(f.calls))
	}
	if m.Pending() != 0 {
		t.Fatalf("expected nothing pending")
	}
}

func TestNoticeBlocksUntilDismissed(t *testing.T) {
	f := &fakeFetcher{payload: threeItems}
	m := newTestModel(t, f)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.Notices()) != 1 {
		t.Fatalf("expected a notice")
	}
	if !strings.Contains(m.View(), NoticeEmptyUserID) {
		t.Fatalf("expected notice in view")
	}
	m.SetUserID("42")
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if len(m.Notices()) != 1 || m.Pending() != 0 {
		t.Fatalf("expected keys to be swallowed while the notice is shown")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.Notices()) != 0 {
		t.Fatalf("expected notice dismissed")
	}
	if m.Pending() != 0 {
		t.Fatalf("dismissing must not submit")
	}
}

func TestPlaceholdersForMissingFields(t *testing.T) {
	m := newTestModel(t, &fakeFetcher{})
	if err := m.displayRecommendations(model.RecommendationPayload(threeItems), "10.00"); err != nil {
		t.Fatalf("displayRecommendations failed: %v", err)
	}
	recs := m.Recommendations()
	if len(recs) != 3 {
		t.Fatalf("expected 3 items, got %d", len(recs))
	}
	lines := CardLines(2, recs[1])
	want := []string{"#2 Brazil", "Various genres", "⭐ N/A  hybrid"}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
	first := CardLines(1, recs[0])
	if first[1] != "Horror, Sci-Fi" || first[2] != "⭐ 4.5  collaborative" {
		t.Fatalf("unexpected first card %v", first)
	}
	if CardLines(3, recs[2])[1] != "Thriller" {
		t.Fatalf("expected string genres kept")
	}
	results := m.renderResults()
	for _, s := range []string{"#2 Brazil", "Various genres", "N/A", "hybrid", "Hybrid v1"} {
		if !strings.Contains(results, s) {
			t.Fatalf("expected %q in rendered results", s)
		}
	}
}

func TestResultsReplacedNotMerged(t *testing.T) {
	m := newTestModel(t, &fakeFetcher{})
	five := `{"recommendations":[{"title":"a"},{"title":"b"},{"title":"c"},{"title":"d"},{"title":"e"}]}`
	two := `{"recommendations":[{"title":"x"},{"title":"y"}]}`
	if err := m.displayRecommendations(model.RecommendationPayload(five), "1.00"); err != nil {
		t.Fatalf("displayRecommendations failed: %v", err)
	}
	if err := m.displayRecommendations(model.RecommendationPayload(two), "1.00"); err != nil {
		t.Fatalf("displayRecommendations failed: %v", err)
	}
	recs := m.Recommendations()
	if len(recs) != 2 || recs[0].Title != "x" || recs[1].Title != "y" {
		t.Fatalf("expected only the second response, got %+v", recs)
	}
	if strings.Contains(m.renderResults(), "#3") {
		t.Fatalf("expected no stale cards")
	}
}

func TestLatencyPrefersServerValue(t *testing.T) {
	m := newTestModel(t, &fakeFetcher{})
	if err := m.displayRecommendations(model.RecommendationPayload(`{"recommendations":[],"latency_ms":12.5}`), "99.99"); err != nil {
		t.Fatalf("displayRecommendations failed: %v", err)
	}
	if m.LatencyText() != "12.5" {
		t.Fatalf("expected server latency, got %q", m.LatencyText())
	}
	if err := m.displayRecommendations(model.RecommendationPayload(`{"recommendations":[]}`), "33.10"); err != nil {
		t.Fatalf("displayRecommendations failed: %v", err)
	}
	if m.LatencyText() != "33.10" {
		t.Fatalf("expected client latency, got %q", m.LatencyText())
	}
	if m.ModelText() != ModelLabel {
		t.Fatalf("expected model label %q, got %q", ModelLabel, m.ModelText())
	}
	if !m.ResultsVisible() {
		t.Fatalf("expected results visible")
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := FormatElapsed(1234567 * time.Nanosecond); got != "1.23" {
		t.Fatalf("expected 1.23, got %q", got)
	}
	if got := FormatElapsed(0); got != "0.00" {
		t.Fatalf("expected 0.00, got %q", got)
	}
}

func TestNumRecsPassedVerbatim(t *testing.T) {
	for _, n := range []string{"abc", "", " 7 "} {
		f := &fakeFetcher{payload: threeItems}
		m := newTestModel(t, f)
		m.SetUserID("42")
		m.SetNumRecs(n)
		cmd := m.getRecommendations()
		if cmd == nil {
			t.Fatalf("expected request for n=%q", n)
		}
		m.Update(cmd())
		if len(f.calls) != 1 || f.calls[0].n != n || f.calls[0].userID != "42" {
			t.Fatalf("unexpected calls %+v for n=%q", f.calls, n)
		}
		if len(m.Recommendations()) != 3 {
			t.Fatalf("expected rendered results for n=%q", n)
		}
	}
}

func TestDefaultNumRecs(t *testing.T) {
	f := &fakeFetcher{payload: threeItems}
	m := newTestModel(t, f)
	m.SetUserID("1")
	m.Update(m.getRecommendations()())
	if f.calls[0].n != DefaultNumRecs {
		t.Fatalf("expected default n %q, got %q", DefaultNumRecs, f.calls[0].n)
	}
}

func TestRequestFailureShowsGenericNotice(t *testing.T) {
	logs := captureLogs(t)
	f := &fakeFetcher{err: errors.New("connection refused")}
	m := newTestModel(t, f)
	m.SetUserID("42")
	m.Update(m.getRecommendations()())
	if notices := m.Notices(); len(notices) != 1 || notices[0] != NoticeRequestFailed {
		t.Fatalf("unexpected notices %v", notices)
	}
	if m.ResultsVisible() {
		t.Fatalf("expected no partial render")
	}
	if m.Pending() != 0 {
		t.Fatalf("expected request finished")
	}
	if !strings.Contains(logs.String(), "connection refused") {
		t.Fatalf("expected error logged, got %s", logs.String())
	}
}

func TestShapeErrorKeepsPreviousResults(t *testing.T) {
	captureLogs(t)
	f := &fakeFetcher{payload: threeItems}
	m := newTestModel(t, f)
	m.SetUserID("42")
	m.Update(m.getRecommendations()())
	if len(m.Recommendations()) != 3 {
		t.Fatalf("expected first render")
	}
	f.payload = `{"items":[]}`
	m.Update(m.getRecommendations()())
	if notices := m.Notices(); len(notices) != 1 || notices[0] != NoticeBadPayload {
		t.Fatalf("unexpected notices %v", notices)
	}
	if len(m.Recommendations()) != 3 {
		t.Fatalf("expected previous results kept, got %d", len(m.Recommendations()))
	}
}

func TestLatestRequestWins(t *testing.T) {
	captureLogs(t)
	f := &fakeFetcher{payload: `{"recommendations":[{"title":"old"}]}`}
	m := newTestModel(t, f)
	m.SetUserID("1")
	first := m.getRecommendations()
	firstMsg := first()
	f.payload = `{"recommendations":[{"title":"new"}]}`
	second := m.getRecommendations()
	if m.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", m.Pending())
	}
	m.Update(second())
	m.Update(firstMsg)
	recs := m.Recommendations()
	if len(recs) != 1 || recs[0].Title != "new" {
		t.Fatalf("expected newest response kept, got %+v", recs)
	}
	if m.Pending() != 0 {
		t.Fatalf("expected nothing pending, got %d", m.Pending())
	}
}

func TestStaleFailureDropped(t *testing.T) {
	captureLogs(t)
	f := &fakeFetcher{err: errors.New("boom")}
	m := newTestModel(t, f)
	m.SetUserID("1")
	stale := m.getRecommendations()()
	f.err = nil
	f.payload = threeItems
	m.Update(m.getRecommendations()())
	m.Update(stale)
	if len(m.Notices()) != 0 {
		t.Fatalf("expected stale failure dropped, got %v", m.Notices())
	}
}

func TestStatsFailureOnlyLogged(t *testing.T) {
	logs := captureLogs(t)
	f := &fakeFetcher{statsErr: errors.New("dial tcp: refused")}
	m, err := NewModel(context.Background(), f, Options{StatsInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})

	// Initial fetch fails.
	m.Update(m.loadStats()())
	if len(m.Notices()) != 0 {
		t.Fatalf("stats failure must not notify the user")
	}

	// The tick fires, fetches again, fails again, and schedules another tick.
	_, cmd := m.Update(statsTickMsg{})
	if cmd == nil {
		t.Fatalf("expected the next fetch scheduled after a failure")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("expected a fetch and a tick batched together")
	}
	var loaded, ticks int
	for _, c := range batch {
		switch msg := c().(type) {
		case statsLoadedMsg:
			loaded++
			m.Update(msg)
		case statsTickMsg:
			ticks++
		default:
			t.Fatalf("unexpected message %T", msg)
		}
	}
	if loaded != 1 || ticks != 1 {
		t.Fatalf("expected one fetch and one tick, got %d and %d", loaded, ticks)
	}
	if f.statsCalls() != 2 {
		t.Fatalf("expected 2 stats fetches, got %d", f.statsCalls())
	}
	if len(m.Notices()) != 0 {
		t.Fatalf("repeated stats failures must not notify the user, got %v", m.Notices())
	}
	out := logs.String()
	if strings.Count(out, "failed to load stats") != 2 || !strings.Contains(out, `"level":"error"`) {
		t.Fatalf("expected two error logs, got %s", out)
	}
}

func TestStatsSuccessLogged(t *testing.T) {
	logs := captureLogs(t)
	f := &fakeFetcher{stats: model.StatsSnapshot{"total_users": 150000.0}}
	m := newTestModel(t, f)
	m.Update(m.loadStats()())
	out := logs.String()
	if !strings.Contains(out, "stats loaded") || !strings.Contains(out, "total_users") {
		t.Fatalf("expected stats logged, got %s", out)
	}
}

func TestScrollBringsResultsIntoView(t *testing.T) {
	f := &fakeFetcher{payload: threeItems}
	m := newTestModel(t, f)
	m.SetUserID("42")
	_, cmd := m.Update(m.getRecommendations()())
	if cmd == nil {
		t.Fatalf("expected scroll animation to start")
	}
	for i := 0; i < 200 && m.scrolling; i++ {
		m.stepScroll()
	}
	if m.scrolling {
		t.Fatalf("scroll did not settle")
	}
	top, bottom := m.body.YOffset, m.body.YOffset+m.body.Height
	if m.resultsTop < top || m.resultsTop >= bottom {
		t.Fatalf("results top %d not in view [%d,%d)", m.resultsTop, top, bottom)
	}
}

func TestNearestOffset(t *testing.T) {
	cases := []struct {
		offset, height, top, bottom, want int
	}{
		{0, 10, 2, 5, 0},
		{0, 10, 12, 15, 6},
		{20, 10, 5, 8, 5},
		{0, 10, 12, 40, 12},
		{0, 0, 12, 15, 0},
	}
	for _, tc := range cases {
		if got := nearestOffset(tc.offset, tc.height, tc.top, tc.bottom); got != tc.want {
			t.Fatalf("nearestOffset(%d,%d,%d,%d) = %d, want %d", tc.offset, tc.height, tc.top, tc.bottom, got, tc.want)
		}
	}
}
