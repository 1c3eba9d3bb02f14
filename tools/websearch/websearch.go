// Package websearch exposes the lookup capabilities used by the researcher:
// general web, encyclopedia, and scholarly search.
package websearch

import (
	"context"
	"net/http"
	"time"

	"github.com/studypilot/studypilot/config"
	"github.com/studypilot/studypilot/tools/websearch/arxiv"
	"github.com/studypilot/studypilot/tools/websearch/duckduckgo"
	"github.com/studypilot/studypilot/tools/websearch/models"
	"github.com/studypilot/studypilot/tools/websearch/wikipedia"
)

// Searcher is a single lookup capability returning normalized hits.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.Result, error)
}

// Providers bundles the three lookup capabilities consumed by the
// researcher agent.
type Providers struct {
	Web        Searcher
	Wikipedia  Searcher
	Scholarly  Searcher
	WebResults int
}

// NewProviders builds the default provider set from configuration. All three
// share one bounded-timeout HTTP client.
func NewProviders(cfg config.SearchConfig) Providers {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	webResults := cfg.WebResults
	if webResults <= 0 {
		webResults = 3
	}
	return Providers{
		Web:        duckduckgo.Search{Client: client, UserAgent: cfg.UserAgent},
		Wikipedia:  wikipedia.Search{Client: client, UserAgent: cfg.UserAgent},
		Scholarly:  arxiv.Search{Client: client, UserAgent: cfg.UserAgent},
		WebResults: webResults,
	}
}
