// Package dashboard provides the Bubble Tea recommendation dashboard.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/recdash/internal/logging"
	"github.com/verte-zerg/recdash/internal/model"
)

const (
	inputUserID = iota
	inputNumRecs
)

// Defaults used when Options leaves a field empty.
const (
	DefaultStatsInterval = 30 * time.Second
	DefaultNumRecs       = "10"
)

// Notices shown in the blocking modal.
const (
	NoticeEmptyUserID   = "Please enter a user ID"
	NoticeRequestFailed = "Error getting recommendations. Please try again."
	NoticeBadPayload    = "Unexpected response from server."
)

const (
	chartHeight     = 12
	sideBySideWidth = 100
	scrollFrame     = 16 * time.Millisecond
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	buttonStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Background(lipgloss.Color("#6366F1")).
			Padding(0, 1)
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Fetcher is the API surface the dashboard needs.
type Fetcher interface {
	Stats(ctx context.Context) (model.StatsSnapshot, error)
	Recommend(ctx context.Context, userID, n string) (model.RecommendationPayload, error)
}

// Options configures the dashboard.
type Options struct {
	StatsInterval time.Duration
	NumRecs       string
	// Source is shown in the header, usually the API base URL.
	Source string
}

type statsTickMsg struct{}

type statsLoadedMsg struct {
	snapshot model.StatsSnapshot
	err      error
}

type recommendationsMsg struct {
	seq           uint64
	payload       model.RecommendationPayload
	clientLatency string
}

type recommendationsFailedMsg struct {
	seq uint64
	err error
}

type scrollStepMsg struct{}

// Model implements the Bubble Tea dashboard.
type Model struct {
	ctx     context.Context
	fetcher Fetcher
	opts    Options
	charts  *Charts

	inputs     []textinput.Model
	focusIndex int
	body       viewport.Model
	spinner    spinner.Model

	seq     uint64
	pending int
	notices []string

	result         model.RecommendationResult
	latencyLabel   string
	modelLabel     string
	resultsVisible bool
	resultsTop     int
	resultsBottom  int

	scrollTarget int
	scrolling    bool

	width  int
	height int
}

// NewModel builds the dashboard and its charts. Calls made by the model use
// ctx, so cancelling it aborts in-flight requests.
func NewModel(ctx context.Context, fetcher Fetcher, opts Options) (*Model, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = DefaultStatsInterval
	}
	if opts.NumRecs == "" {
		opts.NumRecs = DefaultNumRecs
	}
	charts, err := InitCharts()
	if err != nil {
		return nil, err
	}
	m := &Model{
		ctx:     ctx,
		fetcher: fetcher,
		opts:    opts,
		charts:  charts,
		body:    viewport.New(0, 0),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6366F1"))),
		),
	}
	m.initInputs()
	m.refreshBody()
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadStats(), m.scheduleStatsTick(), textinput.Blink)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case statsTickMsg:
		return m, tea.Batch(m.loadStats(), m.scheduleStatsTick())
	case statsLoadedMsg:
		m.handleStats(msg)
		return m, nil
	case recommendationsMsg:
		return m, m.handleRecommendations(msg)
	case recommendationsFailedMsg:
		m.handleRecommendationsFailed(msg)
		return m, nil
	case scrollStepMsg:
		return m, m.stepScroll()
	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.MouseMsg:
		m.scrolling = false
		var cmd tea.Cmd
		m.body, cmd = m.body.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if len(m.notices) > 0 {
		return fitLines(m.renderNotice(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.body.View(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// Charts returns the chart handles owned by the dashboard.
func (m *Model) Charts() *Charts {
	return m.charts
}

// Notices returns the pending notices, oldest first.
func (m *Model) Notices() []string {
	return append([]string(nil), m.notices...)
}

// Recommendations returns the rendered recommendation items.
func (m *Model) Recommendations() []model.Recommendation {
	return append([]model.Recommendation(nil), m.result.Items...)
}

// LatencyText returns the latency label of the last rendered response.
func (m *Model) LatencyText() string {
	return m.latencyLabel
}

// ModelText returns the model label of the last rendered response.
func (m *Model) ModelText() string {
	return m.modelLabel
}

// ResultsVisible reports whether the results section is shown.
func (m *Model) ResultsVisible() bool {
	return m.resultsVisible
}

// Pending reports how many recommendation requests are in flight.
func (m *Model) Pending() int {
	return m.pending
}

// SetUserID sets the user id input.
func (m *Model) SetUserID(v string) {
	m.inputs[inputUserID].SetValue(v)
}

// SetNumRecs sets the count input.
func (m *Model) SetNumRecs(v string) {
	m.inputs[inputNumRecs].SetValue(v)
}

func (m *Model) initInputs() {
	m.inputs = []textinput.Model{
		newFormInput("User ID: ", "e.g. 42", 0),
		newFormInput("Count: ", DefaultNumRecs, 4),
	}
	m.inputs[inputNumRecs].SetValue(m.opts.NumRecs)
	m.setFocus(inputUserID)
}

func newFormInput(prompt, placeholder string, limit int) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = placeholder
	input.CharLimit = limit
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setFocus(idx int) tea.Cmd {
	count := len(m.inputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.focusIndex = idx
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.focusIndex {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if len(m.notices) > 0 {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc, tea.KeySpace:
			m.notices = m.notices[1:]
		}
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEnter:
		cmd := m.getRecommendations()
		return m, tea.Batch(cmd, m.startSpinner())
	case tea.KeyTab:
		return m, m.setFocus(m.focusIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFocus(m.focusIndex - 1)
	case tea.KeyUp:
		m.scrollBy(-1)
		return m, nil
	case tea.KeyDown:
		m.scrollBy(1)
		return m, nil
	case tea.KeyPgUp:
		m.scrollBy(-maxInt(1, m.body.Height))
		return m, nil
	case tea.KeyPgDown:
		m.scrollBy(maxInt(1, m.body.Height))
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m *Model) scrollBy(delta int) {
	m.scrolling = false
	m.body.SetYOffset(m.body.YOffset + delta)
}

// loadStats fetches the stats snapshot once. The result is only logged.
func (m *Model) loadStats() tea.Cmd {
	ctx, fetcher := m.ctx, m.fetcher
	return func() tea.Msg {
		snapshot, err := fetcher.Stats(ctx)
		return statsLoadedMsg{snapshot: snapshot, err: err}
	}
}

func (m *Model) scheduleStatsTick() tea.Cmd {
	return tea.Tick(m.opts.StatsInterval, func(time.Time) tea.Msg {
		return statsTickMsg{}
	})
}

func (m *Model) handleStats(msg statsLoadedMsg) {
	if msg.err != nil {
		logging.Error().Err(msg.err).Msg("failed to load stats")
		return
	}
	logging.Info().Interface("stats", msg.snapshot).Msg("stats loaded")
}

// getRecommendations validates the form and returns the fetch command, or
// queues a notice and returns nil when the user id is empty.
func (m *Model) getRecommendations() tea.Cmd {
	userID := strings.TrimSpace(m.inputs[inputUserID].Value())
	if userID == "" {
		m.pushNotice(NoticeEmptyUserID)
		return nil
	}
	numRecs := m.inputs[inputNumRecs].Value()
	m.seq++
	m.pending++
	seq := m.seq
	ctx, fetcher := m.ctx, m.fetcher
	logging.Debug().Uint64("seq", seq).Str("user_id", userID).Str("n", numRecs).Msg("requesting recommendations")
	return func() tea.Msg {
		start := time.Now()
		payload, err := fetcher.Recommend(ctx, userID, numRecs)
		elapsed := time.Since(start)
		if err != nil {
			return recommendationsFailedMsg{seq: seq, err: err}
		}
		return recommendationsMsg{seq: seq, payload: payload, clientLatency: FormatElapsed(elapsed)}
	}
}

func (m *Model) startSpinner() tea.Cmd {
	if m.pending != 1 {
		return nil
	}
	return m.spinner.Tick
}

func (m *Model) finishRequest() {
	if m.pending > 0 {
		m.pending--
	}
}

func (m *Model) handleRecommendations(msg recommendationsMsg) tea.Cmd {
	m.finishRequest()
	if msg.seq != m.seq {
		logging.Debug().Uint64("seq", msg.seq).Uint64("latest", m.seq).Msg("dropping stale recommendations")
		return nil
	}
	if err := m.displayRecommendations(msg.payload, msg.clientLatency); err != nil {
		logging.Error().Err(err).Msg("failed to render recommendations")
		m.pushNotice(NoticeBadPayload)
		return nil
	}
	return m.scrollToResults()
}

func (m *Model) handleRecommendationsFailed(msg recommendationsFailedMsg) {
	m.finishRequest()
	if msg.seq != m.seq {
		logging.Debug().Err(msg.err).Uint64("seq", msg.seq).Uint64("latest", m.seq).Msg("dropping stale recommendation failure")
		return
	}
	logging.Error().Err(msg.err).Msg("failed to get recommendations")
	m.pushNotice(NoticeRequestFailed)
}

// displayRecommendations replaces the rendered results with payload. A
// payload without the expected shape leaves the previous results untouched.
func (m *Model) displayRecommendations(payload model.RecommendationPayload, clientLatency string) error {
	result, err := ParseRecommendations(payload)
	if err != nil {
		return err
	}
	m.result = result
	m.latencyLabel = LatencyLabel(result, clientLatency)
	m.modelLabel = ModelLabel
	m.resultsVisible = true
	m.refreshBody()
	return nil
}

func (m *Model) pushNotice(text string) {
	m.notices = append(m.notices, text)
}

// FormatElapsed formats d as milliseconds with two decimals.
func FormatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d)/float64(time.Millisecond))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = 3
	footerHeight = 1
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.body.Width = m.width
	m.body.Height = bodyHeight
	m.inputs[inputUserID].Width = maxInt(8, minInt(24, m.width/4))
	m.inputs[inputNumRecs].Width = 4
	if m.width >= sideBySideWidth {
		m.charts.Resize((m.width-2)/2, chartHeight)
	} else {
		m.charts.Resize(m.width, chartHeight)
	}
	m.refreshBody()
}

// refreshBody re-renders the scrollable body and records where the results
// section starts and ends.
func (m *Model) refreshBody() {
	charts := m.renderCharts()
	content := charts
	if m.resultsVisible {
		results := m.renderResults()
		m.resultsTop = lipgloss.Height(charts) + 1
		m.resultsBottom = m.resultsTop + lipgloss.Height(results) - 1
		content = charts + "\n\n" + results
	}
	offset := m.body.YOffset
	m.body.SetContent(content)
	m.body.SetYOffset(offset)
}

func (m *Model) renderCharts() string {
	latency := chartPanel("Response Time (ms)", m.charts.Latency.Render())
	accuracy := chartPanel("Model Accuracy (%)", m.charts.Model.Render())
	if m.width >= sideBySideWidth {
		w, _ := m.charts.Latency.Size()
		return lipgloss.JoinHorizontal(lipgloss.Top, padLines(latency, w+2), accuracy)
	}
	return latency + "\n\n" + accuracy
}

func chartPanel(title, body string) string {
	return sectionStyle.Render(title) + "\n" + body
}

func (m *Model) renderResults() string {
	meta := labelStyle.Render("Latency: ") + valueStyle.Render(m.latencyLabel+" ms") +
		"   " + labelStyle.Render("Model: ") + valueStyle.Render(m.modelLabel)
	width := m.width
	if width <= 0 {
		width = cardWidth
	}
	return strings.Join([]string{
		sectionStyle.Render("Recommendations"),
		meta,
		renderCardGrid(m.result.Items, width),
	}, "\n")
}

func (m *Model) renderHeader() string {
	const name = "Recommendation Dashboard"
	title := titleStyle.Render(name)
	if source := truncateLine(m.opts.Source, m.width-len(name)-2); source != "" && m.width > len(name)+2 {
		title += "  " + headerStyle.Render(source)
	}
	button := buttonStyle.Render("Get Recommendations")
	if m.pending > 0 {
		button = m.spinner.View() + " " + headerStyle.Render("Loading...")
	}
	form := m.inputs[inputUserID].View() + "  " + m.inputs[inputNumRecs].View() + "  " + button
	return title + "\n" + form + "\n"
}

func (m *Model) renderFooter() string {
	return headerStyle.Render(truncateLine("Submit: enter  Field: tab/shift+tab  Scroll: up/down/pgup/pgdn  Quit: ctrl+c", m.width))
}

func (m *Model) renderNotice() string {
	body := []string{
		valueStyle.Render(m.notices[0]),
		"",
		headerStyle.Render("Press enter to dismiss"),
	}
	if extra := len(m.notices) - 1; extra > 0 {
		body = append(body, headerStyle.Render(fmt.Sprintf("%d more pending", extra)))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
