package agent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/studypilot/studypilot/internal/store"
	"github.com/studypilot/studypilot/provider"
)

// Planner proposes an ordered task list for one day of a goal. It is
// idempotency-aware: tasks already recorded for the day are passed in so
// re-planning can avoid duplicating them (advisory, not enforced).
type Planner struct {
	base
}

// NewPlanner constructs the planner agent.
func NewPlanner(llm provider.Provider, logger *log.Logger) *Planner {
	return &Planner{base: newBase(
		"planner",
		"You design focused daily study plans. Propose a short ordered list of concrete tasks for today, numbered 1..n.",
		llm, logger,
	)}
}

var numberedLine = regexp.MustCompile(`^(\d+)[.)\-]*\s+(.+)$`)

// Run returns plan items in execution order with sequence numbers assigned
// 1..k matching list positions. Determinism tracks the underlying provider.
func (p *Planner) Run(ctx context.Context, goal store.LearningGoal, dayNumber int, previous []store.PlanItem) ([]store.PlanItem, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Goal: %s\n", goal.Title)
	if goal.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", goal.Description)
	}
	if goal.LearnerProfile != "" {
		fmt.Fprintf(&sb, "Learner profile: %s\n", goal.LearnerProfile)
	}
	fmt.Fprintf(&sb, "Day number: %d\n", dayNumber)
	if len(previous) > 0 {
		sb.WriteString("Tasks already recorded for today (do not repeat):\n")
		for _, item := range previous {
			fmt.Fprintf(&sb, "- %s\n", item.Task)
		}
	}
	sb.WriteString("List 3 to 5 numbered tasks for today, most important first.")

	response, err := p.complete(ctx, p.buildPrompt(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}

	tasks := parseTasks(response)
	if len(tasks) == 0 {
		tasks = fallbackTasks(goal.Title)
	}

	items := make([]store.PlanItem, len(tasks))
	for i, task := range tasks {
		items[i] = store.PlanItem{
			DayNumber: dayNumber,
			Sequence:  i + 1,
			Task:      task,
			Status:    store.PlanStatusPending,
		}
	}
	return items, nil
}

// parseTasks accepts numbered lines first, bullet lines as a second chance.
func parseTasks(raw string) []string {
	var numbered, bullets []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			numbered = append(numbered, strings.TrimSpace(m[2]))
			continue
		}
		if rest, ok := strings.CutPrefix(line, "- "); ok {
			bullets = append(bullets, strings.TrimSpace(rest))
		}
	}
	if len(numbered) > 0 {
		return numbered
	}
	return bullets
}

func fallbackTasks(goalTitle string) []string {
	return []string{
		fmt.Sprintf("Review the core concepts of %s", goalTitle),
		fmt.Sprintf("Work through practice exercises on %s", goalTitle),
		fmt.Sprintf("Write a short summary of what you learned about %s", goalTitle),
	}
}
