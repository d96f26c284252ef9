// Package model defines shared data structures.
package model

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// StatsSnapshot is the decoded stats payload. Its shape belongs to the server.
type StatsSnapshot map[string]any

// RecommendationPayload is a raw recommendation response body, parsed at render time.
type RecommendationPayload []byte

// RecommendationResult is one parsed recommendation response.
type RecommendationResult struct {
	Items     []Recommendation
	LatencyMS *float64
}

// Recommendation is a single recommended item.
type Recommendation struct {
	Title  string   `json:"title"`
	Genres Genres   `json:"genres"`
	Score  *float64 `json:"score"`
	Method string   `json:"method"`
}

// Genres accepts either a JSON string or a JSON array of strings.
type Genres []string

// UnmarshalJSON implements json.Unmarshaler.
func (g *Genres) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*g = nil
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*g = nil
			return nil
		}
		*g = Genres{s}
		return nil
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*g = list
		return nil
	default:
		return fmt.Errorf("genres must be a string or a list of strings")
	}
}

// String joins the genres with ", " rather than a bare ",", skipping
// blank entries.
func (g Genres) String() string {
	parts := make([]string, 0, len(g))
	for _, s := range g {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
