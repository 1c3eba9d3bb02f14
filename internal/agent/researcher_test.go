package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/studypilot/studypilot/internal/store"
	"github.com/studypilot/studypilot/tools/websearch"
	"github.com/studypilot/studypilot/tools/websearch/models"
)

type stubSearcher struct {
	hits    []models.Result
	err     error
	queries []string
}

func (s *stubSearcher) Search(ctx context.Context, query string, maxResults int) ([]models.Result, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

type stubUpserter struct {
	err       error
	resources []store.Resource
}

func (s *stubUpserter) Upsert(ctx context.Context, resources []store.Resource) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.resources = resources
	ids := make([]string, len(resources))
	return ids, nil
}

func newTestResearcher(web, wiki, scholarly *stubSearcher, index VectorUpserter) *Researcher {
	return NewResearcher(&stubLLM{}, websearch.Providers{
		Web:        web,
		Wikipedia:  wiki,
		Scholarly:  scholarly,
		WebResults: 3,
	}, index, nil)
}

func TestResearcherRejectsUnpersistedGoal(t *testing.T) {
	web := &stubSearcher{}
	r := newTestResearcher(web, &stubSearcher{}, &stubSearcher{}, &stubUpserter{})

	_, err := r.Run(context.Background(), store.LearningGoal{Title: "Go"}, []store.PlanItem{{Task: "read"}})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if len(web.queries) != 0 {
		t.Fatalf("expected no network calls, got %d", len(web.queries))
	}
}

func TestResearcherScholarlyGatedByKeyword(t *testing.T) {
	scholarly := &stubSearcher{hits: []models.Result{{Title: "paper", Source: "arxiv"}}}
	r := newTestResearcher(&stubSearcher{}, &stubSearcher{}, scholarly, &stubUpserter{})
	goal := store.LearningGoal{ID: "g1", Title: "Distributed Systems"}

	items := []store.PlanItem{
		{ID: "p1", GoalID: "g1", Task: "Read the Raft paper"},
		{ID: "p2", GoalID: "g1", Task: "Set up a local cluster"},
	}
	if _, err := r.Run(context.Background(), goal, items); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(scholarly.queries) != 1 {
		t.Fatalf("expected scholarly lookup only for the paper task, got %d calls", len(scholarly.queries))
	}
}

func TestResearcherAbsorbsProviderFailures(t *testing.T) {
	web := &stubSearcher{err: errors.New("timeout")}
	wiki := &stubSearcher{hits: []models.Result{{Title: "Go (programming language)", URL: "https://en.wikipedia.org/wiki/Go", Snippet: "about go", Source: "wikipedia"}}}
	upserter := &stubUpserter{}
	r := newTestResearcher(web, wiki, &stubSearcher{}, upserter)
	goal := store.LearningGoal{ID: "g1", Title: "Go"}

	resources, err := r.Run(context.Background(), goal, []store.PlanItem{{ID: "p1", GoalID: "g1", Task: "read docs"}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(resources) != 1 {
		t.Fatalf("expected 1 resource from the surviving provider, got %d", len(resources))
	}
	if resources[0].Source != "wikipedia" {
		t.Fatalf("unexpected source: %q", resources[0].Source)
	}
	if resources[0].PlanItemID != "p1" || resources[0].GoalID != "g1" {
		t.Fatalf("resource not linked to plan item: %#v", resources[0])
	}
	if len(upserter.resources) != 1 {
		t.Fatalf("expected resources passed to vector index")
	}
}

func TestResearcherVectorFailureAbortsRun(t *testing.T) {
	wiki := &stubSearcher{hits: []models.Result{{Title: "hit", Source: "wikipedia"}}}
	r := newTestResearcher(&stubSearcher{}, wiki, &stubSearcher{}, &stubUpserter{err: errors.New("index down")})
	goal := store.LearningGoal{ID: "g1", Title: "Go"}

	if _, err := r.Run(context.Background(), goal, []store.PlanItem{{ID: "p1", GoalID: "g1", Task: "read"}}); err == nil {
		t.Fatalf("expected vector failure to propagate")
	}
}
