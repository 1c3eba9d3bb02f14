package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/studypilot/studypilot/internal/store"
	"github.com/studypilot/studypilot/provider"
	"github.com/studypilot/studypilot/tools/websearch"
	"github.com/studypilot/studypilot/tools/websearch/models"
)

// scholarlyKeywords gate the scholarly lookup: only tasks mentioning one of
// these trigger an arXiv query.
var scholarlyKeywords = []string{"paper", "theory", "research"}

// VectorUpserter is the slice of the vector index the researcher needs.
type VectorUpserter interface {
	Upsert(ctx context.Context, resources []store.Resource) ([]string, error)
}

// Researcher maps plan items to search queries across providers, normalizes
// hits into resources, and passes them through the vector index.
type Researcher struct {
	base
	providers websearch.Providers
	index     VectorUpserter
}

// NewResearcher constructs the researcher agent.
func NewResearcher(llm provider.Provider, providers websearch.Providers, index VectorUpserter, logger *log.Logger) *Researcher {
	return &Researcher{
		base: newBase(
			"researcher",
			"Find practical, current resources that align with the learner's plan.",
			llm, logger,
		),
		providers: providers,
		index:     index,
	}
}

// Run fails with ErrInvalidState when the goal has no persisted identity;
// that check happens before any network call. Individual provider failures
// are absorbed: a failing provider just contributes zero hits.
func (r *Researcher) Run(ctx context.Context, goal store.LearningGoal, planItems []store.PlanItem) ([]store.Resource, error) {
	if goal.ID == "" {
		return nil, fmt.Errorf("researcher: goal must be persisted before research: %w", ErrInvalidState)
	}

	var resources []store.Resource
	for _, item := range planItems {
		goalID := item.GoalID
		if goalID == "" {
			goalID = goal.ID
		}
		query := strings.TrimSpace(goal.Title + " " + item.Task)

		var hits []models.Result
		hits = append(hits, r.lookup(ctx, r.providers.Web, query, r.providers.WebResults)...)
		hits = append(hits, r.lookup(ctx, r.providers.Wikipedia, goal.Title, 1)...)
		if containsScholarlyKeyword(item.Task) {
			hits = append(hits, r.lookup(ctx, r.providers.Scholarly, goal.Title, 1)...)
		}

		for _, hit := range hits {
			resources = append(resources, store.Resource{
				GoalID:     goalID,
				PlanItemID: item.ID,
				Title:      hit.Title,
				URL:        hit.URL,
				Snippet:    hit.Snippet,
				Content:    hit.Snippet,
				Source:     hit.Source,
			})
		}
	}

	// The vector index is not best-effort: if it is down the research stage
	// fails and nothing is committed for it.
	if _, err := r.index.Upsert(ctx, resources); err != nil {
		return nil, fmt.Errorf("researcher: vector upsert: %w", err)
	}
	return resources, nil
}

// lookup queries one provider best-effort: failures are logged and yield an
// empty result instead of aborting the run.
func (r *Researcher) lookup(ctx context.Context, searcher websearch.Searcher, query string, maxResults int) []models.Result {
	if searcher == nil || maxResults <= 0 {
		return nil
	}
	hits, err := searcher.Search(ctx, query, maxResults)
	if err != nil {
		r.logger.Printf("agent %s: search degraded for %q: %v", r.name, query, err)
		return nil
	}
	return hits
}

func containsScholarlyKeyword(task string) bool {
	lower := strings.ToLower(task)
	for _, kw := range scholarlyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
