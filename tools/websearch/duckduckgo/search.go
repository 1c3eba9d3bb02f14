package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/studypilot/studypilot/tools/websearch/models"
)

const apiURL = "https://api.duckduckgo.com/"

// Search queries the DuckDuckGo Instant Answer API. No API key required.
type Search struct {
	Client    *http.Client
	UserAgent string
}

type topic struct {
	Text     string  `json:"Text"`
	FirstURL string  `json:"FirstURL"`
	Topics   []topic `json:"Topics"`
}

type response struct {
	Heading       string  `json:"Heading"`
	AbstractText  string  `json:"AbstractText"`
	AbstractURL   string  `json:"AbstractURL"`
	RelatedTopics []topic `json:"RelatedTopics"`
}

func (s Search) Search(ctx context.Context, query string, maxResults int) ([]models.Result, error) {
	// https://api.duckduckgo.com/api docs
	endpoint := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1", apiURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}

	var raw response
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.Result
	if raw.AbstractText != "" {
		title := raw.Heading
		if title == "" {
			title = query
		}
		out = append(out, models.Result{
			Title:   title,
			URL:     raw.AbstractURL,
			Snippet: raw.AbstractText,
			Source:  "duckduckgo",
		})
	}
	for _, t := range flatten(raw.RelatedTopics) {
		if len(out) >= maxResults {
			break
		}
		if t.Text == "" {
			continue
		}
		out = append(out, models.Result{
			Title:   titleOf(t.Text),
			URL:     t.FirstURL,
			Snippet: t.Text,
			Source:  "duckduckgo",
		})
	}
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

// flatten unnests grouped related topics into a single list.
func flatten(topics []topic) []topic {
	var out []topic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			out = append(out, flatten(t.Topics)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

// titleOf takes the leading clause of a related-topic text as its title.
func titleOf(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	if len(text) > 80 {
		return strings.TrimSpace(text[:80])
	}
	return text
}
