package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/studypilot/studypilot/tools/websearch/models"
)

const queryURL = "http://export.arxiv.org/api/query"

// Search wraps the arXiv Atom API for scholarly lookups.
type Search struct {
	Client    *http.Client
	UserAgent string
}

type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
	Links   []link `xml:"link"`
}

type link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

func (s Search) Search(ctx context.Context, query string, maxResults int) ([]models.Result, error) {
	endpoint := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d",
		queryURL, url.QueryEscape("all:"+query), maxResults)
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
		return nil, fmt.Errorf("arxiv status %d", resp.StatusCode)
	}

	var raw feed
	if err := xml.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.Result
	for _, e := range raw.Entries {
		if len(out) >= maxResults {
			break
		}
		title := strings.TrimSpace(e.Title)
		if title == "" {
			title = "Untitled"
		}
		summary := strings.Join(strings.Fields(e.Summary), " ")
		out = append(out, models.Result{
			Title:   title,
			URL:     pickLink(e.Links),
			Snippet: summary,
			Source:  "arxiv",
		})
	}
	return out, nil
}

// pickLink prefers the PDF link, falling back to the abstract page.
func pickLink(links []link) string {
	for _, l := range links {
		if l.Title == "pdf" {
			return l.Href
		}
	}
	for _, l := range links {
		if l.Rel == "alternate" {
			return l.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}
