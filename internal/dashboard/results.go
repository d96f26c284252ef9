package dashboard

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/recdash/internal/model"
)

// Placeholders for absent recommendation fields.
const (
	GenresPlaceholder = "Various genres"
	ScorePlaceholder  = "N/A"
	MethodPlaceholder = "hybrid"
	// ModelLabel is shown for every response regardless of item methods.
	ModelLabel = "Hybrid v1"
)

const (
	cardWidth    = 36
	cardMinWidth = 20
)

// ShapeError reports a recommendation payload without the expected structure.
type ShapeError struct {
	Reason string
	Err    error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected recommendations payload: %s: %v", e.Reason, e.Err)
	}
	return "unexpected recommendations payload: " + e.Reason
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

type rawResponse struct {
	Recommendations json.RawMessage `json:"recommendations"`
	LatencyMS       *float64        `json:"latency_ms"`
}

type rawItem struct {
	Title  *string      `json:"title"`
	Genres model.Genres `json:"genres"`
	Score  *float64     `json:"score"`
	Method *string      `json:"method"`
}

// ParseRecommendations decodes a recommendation response body.
func ParseRecommendations(payload model.RecommendationPayload) (model.RecommendationResult, error) {
	var raw rawResponse
	if err := json.Unmarshal(payload, &raw); err != nil {
		return model.RecommendationResult{}, &ShapeError{Reason: "body does not decode", Err: err}
	}
	list := bytes.TrimSpace(raw.Recommendations)
	if len(list) == 0 || bytes.Equal(list, []byte("null")) {
		return model.RecommendationResult{}, &ShapeError{Reason: "recommendations is missing"}
	}
	if list[0] != '[' {
		return model.RecommendationResult{}, &ShapeError{Reason: "recommendations is not a list"}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(list, &elems); err != nil {
		return model.RecommendationResult{}, &ShapeError{Reason: "recommendations is not a list", Err: err}
	}
	result := model.RecommendationResult{
		Items:     make([]model.Recommendation, 0, len(elems)),
		LatencyMS: raw.LatencyMS,
	}
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			return model.RecommendationResult{}, &ShapeError{Reason: fmt.Sprintf("item %d is not an object", i+1)}
		}
		var item rawItem
		if err := json.Unmarshal(elem, &item); err != nil {
			return model.RecommendationResult{}, &ShapeError{Reason: fmt.Sprintf("item %d", i+1), Err: err}
		}
		if item.Title == nil {
			return model.RecommendationResult{}, &ShapeError{Reason: fmt.Sprintf("item %d has no title", i+1)}
		}
		rec := model.Recommendation{
			Title:  *item.Title,
			Genres: item.Genres,
			Score:  item.Score,
		}
		if item.Method != nil {
			rec.Method = *item.Method
		}
		result.Items = append(result.Items, rec)
	}
	return result, nil
}

// CardFields returns the display text of a recommendation with placeholders
// substituted for absent fields.
func CardFields(rec model.Recommendation) (genres, score, method string) {
	genres = rec.Genres.String()
	if genres == "" {
		genres = GenresPlaceholder
	}
	score = ScorePlaceholder
	if rec.Score != nil {
		score = formatFloat(*rec.Score)
	}
	method = strings.TrimSpace(rec.Method)
	if method == "" {
		method = MethodPlaceholder
	}
	return genres, score, method
}

// LatencyLabel prefers the server reported latency over the client one.
func LatencyLabel(result model.RecommendationResult, clientLatency string) string {
	if result.LatencyMS != nil {
		return formatFloat(*result.LatencyMS)
	}
	return clientLatency
}

// CardLines renders one card as plain text lines.
func CardLines(rank int, rec model.Recommendation) []string {
	genres, score, method := CardFields(rec)
	return []string{
		fmt.Sprintf("#%d %s", rank, rec.Title),
		genres,
		fmt.Sprintf("⭐ %s  %s", score, method),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var (
	recCardStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	recTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	recGenreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#CBD5E1"))
	recScoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	recMethodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A855F7"))
)

func renderCard(rank int, rec model.Recommendation, width int) string {
	inner := width - 4 // 2 border + 2 padding
	if inner < cardMinWidth-4 {
		inner = cardMinWidth - 4
	}
	genres, score, method := CardFields(rec)
	title := runewidth.Truncate(fmt.Sprintf("#%d %s", rank, rec.Title), inner, "…")
	genres = runewidth.Truncate(genres, inner, "…")
	scoreText := "⭐ " + score
	gap := inner - runewidth.StringWidth(scoreText) - runewidth.StringWidth(method)
	if gap < 1 {
		method = runewidth.Truncate(method, maxInt(1, inner-runewidth.StringWidth(scoreText)-1), "…")
		gap = maxInt(1, inner-runewidth.StringWidth(scoreText)-runewidth.StringWidth(method))
	}
	footer := recScoreStyle.Render(scoreText) + strings.Repeat(" ", gap) + recMethodStyle.Render(method)
	content := strings.Join([]string{
		recTitleStyle.Render(title),
		recGenreStyle.Render(genres),
		footer,
	}, "\n")
	return recCardStyle.Width(inner + 2).Render(content)
}

// renderCardGrid lays cards out in as many columns as fit width.
func renderCardGrid(items []model.Recommendation, width int) string {
	if len(items) == 0 {
		return headerStyle.Render("No recommendations returned.")
	}
	w := cardWidth
	if width < w {
		w = maxInt(cardMinWidth, width)
	}
	cols := maxInt(1, width/w)
	rows := make([]string, 0, (len(items)+cols-1)/cols)
	for start := 0; start < len(items); start += cols {
		end := minInt(start+cols, len(items))
		cards := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cards = append(cards, renderCard(i+1, items[i], w))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
