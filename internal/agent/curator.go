package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/studypilot/studypilot/internal/store"
	"github.com/studypilot/studypilot/provider"
)

// maxResourceLines caps how many resources are shown to the model.
const maxResourceLines = 8

// Curation is the curator's output: a study brief plus the same resources
// annotated with relevance scores.
type Curation struct {
	Summary   string
	Resources []store.Resource
}

// Curator ranks and summarizes candidate resources into a concise study
// brief.
type Curator struct {
	base
}

// NewCurator constructs the curator agent.
func NewCurator(llm provider.Provider, logger *log.Logger) *Curator {
	return &Curator{base: newBase(
		"curator",
		"You read resource snippets and summarize the most actionable study plan. Return highlights emphasizing why they help the learner.",
		llm, logger,
	)}
}

// Run produces the summary and assigns positional-decay relevance scores.
func (c *Curator) Run(ctx context.Context, goal store.LearningGoal, planItems []store.PlanItem, resources []store.Resource) (Curation, error) {
	var plan strings.Builder
	for _, item := range planItems {
		fmt.Fprintf(&plan, "- %s\n", item.Task)
	}

	resourceLines := make([]string, 0, len(resources))
	for _, res := range resources {
		snippet := res.Snippet
		if snippet == "" {
			snippet = res.Content
		}
		resourceLines = append(resourceLines, fmt.Sprintf("- %s: %s", res.Title, snippet))
	}
	if len(resourceLines) == 0 {
		resourceLines = []string{"No resources were found. Recommend next steps."}
	}
	if len(resourceLines) > maxResourceLines {
		resourceLines = resourceLines[:maxResourceLines]
	}

	userPrompt := fmt.Sprintf("Goal: %s\nPlan:\n%s\nResources:\n%s\n\nProvide a summary and recommended shortlist.",
		goal.Title, plan.String(), strings.Join(resourceLines, "\n"))

	response, err := c.complete(ctx, c.buildPrompt(userPrompt))
	if err != nil {
		return Curation{}, fmt.Errorf("curator: %w", err)
	}

	return Curation{
		Summary:   strings.TrimSpace(response),
		Resources: scoreResources(resources),
	}, nil
}

// scoreResources assigns relevance_score = max(0.1, 1.0 - 0.1*index) in
// iteration order: first resource highest, floored at 0.1. A positional
// decay, not a similarity computation.
func scoreResources(resources []store.Resource) []store.Resource {
	scored := make([]store.Resource, len(resources))
	for i, res := range resources {
		score := 1.0 - float64(i)*0.1
		if score < 0.1 {
			score = 0.1
		}
		res.RelevanceScore = &score
		scored[i] = res
	}
	return scored
}
