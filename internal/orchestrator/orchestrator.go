// Package orchestrator sequences the daily learning pipeline: plan,
// research, curate, assess, then feed a reflection back into future days.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/studypilot/studypilot/internal/agent"
	"github.com/studypilot/studypilot/internal/store"
	"github.com/studypilot/studypilot/internal/vector"
	"github.com/studypilot/studypilot/provider"
)

// focusLimit caps the focus hint appended to future tasks.
const focusLimit = 60

// reflectionNoteLimit caps the reflection excerpt recorded in notes.
const reflectionNoteLimit = 200

// Storage is the slice of the persistence engine the orchestrator commits
// through. Each mutating method is one atomic stage transaction.
type Storage interface {
	CreateGoal(ctx context.Context, g store.LearningGoal) (store.LearningGoal, error)
	GetGoal(ctx context.Context, id string) (store.LearningGoal, error)
	ListPlanItems(ctx context.Context, goalID string, dayNumber *int) ([]store.PlanItem, error)
	InsertPlanItems(ctx context.Context, goalID string, items []store.PlanItem) ([]store.PlanItem, error)
	ListFuturePlanItems(ctx context.Context, goalID string, afterDay int) ([]store.PlanItem, error)
	UpdatePlanItemTexts(ctx context.Context, updates []store.PlanItemTextUpdate) error
	InsertResources(ctx context.Context, resources []store.Resource) ([]store.Resource, error)
	UpdateResourceScores(ctx context.Context, resources []store.Resource) error
	InsertQuizItems(ctx context.Context, items []store.QuizItem) ([]store.QuizItem, error)
	ListQuizForDay(ctx context.Context, goalID string, dayNumber int) ([]store.QuizItem, error)
	GetQuizItem(ctx context.Context, id string) (store.QuizItem, error)
	AnswerQuizItem(ctx context.Context, id, learnerAnswer string, isCorrect bool, feedback string) (store.QuizItem, error)
	InsertEpisode(ctx context.Context, ep store.Episode) (store.Episode, error)
	UpsertCheckpoint(ctx context.Context, cp store.Checkpoint) error
	ListCheckpoints(ctx context.Context, goalID string, dayNumber int) ([]store.Checkpoint, error)
}

// PlannerAgent proposes the day's ordered task list.
type PlannerAgent interface {
	Run(ctx context.Context, goal store.LearningGoal, dayNumber int, previous []store.PlanItem) ([]store.PlanItem, error)
}

// ResearcherAgent turns plan items into indexed resources.
type ResearcherAgent interface {
	Run(ctx context.Context, goal store.LearningGoal, planItems []store.PlanItem) ([]store.Resource, error)
}

// CuratorAgent summarizes and scores resources.
type CuratorAgent interface {
	Run(ctx context.Context, goal store.LearningGoal, planItems []store.PlanItem, resources []store.Resource) (agent.Curation, error)
}

// TutorAgent generates the day's quiz.
type TutorAgent interface {
	GenerateQuiz(ctx context.Context, goal store.LearningGoal, planItems []store.PlanItem, curatedSummary string, numQuestions int) ([]agent.QuizPayload, error)
}

// VectorSearcher is the read side of the vector index.
type VectorSearcher interface {
	Search(ctx context.Context, query string, goalID string, limit int) ([]vector.Match, error)
}

// Agents bundles the four pipeline agents.
type Agents struct {
	Planner    PlannerAgent
	Researcher ResearcherAgent
	Curator    CuratorAgent
	Tutor      TutorAgent
}

// Orchestrator coordinates the agents for one day of one goal and exposes
// the goal/plan/quiz operations consumed by the HTTP layer. All
// dependencies are injected at construction; there is no hidden
// process-wide state.
type Orchestrator struct {
	store  Storage
	llm    provider.Provider
	agents Agents
	index  VectorSearcher
	logger *log.Logger
}

// New constructs an orchestrator.
func New(st Storage, llm provider.Provider, agents Agents, index VectorSearcher, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{store: st, llm: llm, agents: agents, index: index, logger: logger}
}

// Goal helpers

func (o *Orchestrator) CreateGoal(ctx context.Context, g store.LearningGoal) (store.LearningGoal, error) {
	return o.store.CreateGoal(ctx, g)
}

func (o *Orchestrator) GetGoal(ctx context.Context, goalID string) (store.LearningGoal, error) {
	return o.store.GetGoal(ctx, goalID)
}

// GetPlan lists plan items for a goal, optionally filtered to one day,
// ordered by (day_number, sequence).
func (o *Orchestrator) GetPlan(ctx context.Context, goalID string, dayNumber *int) ([]store.PlanItem, error) {
	return o.store.ListPlanItems(ctx, goalID, dayNumber)
}

// Pipeline

// RunDay executes the full pipeline for one (goal, day): plan, research,
// curate, assess, reflect. Each stage commits before the next begins, so a
// failure mid-run leaves a valid partial state. Re-running the same day
// appends a fresh set of entities rather than replacing the previous run.
func (o *Orchestrator) RunDay(ctx context.Context, goalID string, dayNumber int) (store.Episode, error) {
	o.logger.Printf("run_day goal=%s day=%d", goalID, dayNumber)
	started := time.Now()
	runsStarted.Inc()

	goal, err := o.store.GetGoal(ctx, goalID)
	if err != nil {
		runsFailed.Inc()
		return store.Episode{}, err
	}

	previous, err := o.store.ListPlanItems(ctx, goalID, &dayNumber)
	if err != nil {
		runsFailed.Inc()
		return store.Episode{}, err
	}

	// Plan.
	var planItems []store.PlanItem
	err = o.stage(ctx, goalID, dayNumber, store.StagePlanned, func() error {
		proposed, err := o.agents.Planner.Run(ctx, goal, dayNumber, previous)
		if err != nil {
			return err
		}
		planItems, err = o.store.InsertPlanItems(ctx, goalID, proposed)
		return err
	})
	if err != nil {
		runsFailed.Inc()
		return store.Episode{}, err
	}
	o.logger.Printf("planner completed: %d items", len(planItems))
	goal.Status = store.GoalStatusActive

	// Research.
	var resources []store.Resource
	err = o.stage(ctx, goalID, dayNumber, store.StageResearched, func() error {
		found, err := o.agents.Researcher.Run(ctx, goal, planItems)
		if err != nil {
			return err
		}
		resources, err = o.store.InsertResources(ctx, found)
		return err
	})
	if err != nil {
		runsFailed.Inc()
		return store.Episode{}, err
	}
	o.logger.Printf("researcher completed: %d resources", len(resources))

	// Curate.
	var curated agent.Curation
	err = o.stage(ctx, goalID, dayNumber, store.StageCurated, func() error {
		var err error
		curated, err = o.agents.Curator.Run(ctx, goal, planItems, resources)
		if err != nil {
			return err
		}
		return o.store.UpdateResourceScores(ctx, curated.Resources)
	})
	if err != nil {
		runsFailed.Inc()
		return store.Episode{}, err
	}
	o.logger.Printf("curator completed: summary %d chars", len(curated.Summary))

	// Assess.
	var quizItems []store.QuizItem
	err = o.stage(ctx, goalID, dayNumber, store.StageAssessed, func() error {
		payloads, err := o.agents.Tutor.GenerateQuiz(ctx, goal, planItems, curated.Summary, agent.DefaultQuizQuestions)
		if err != nil {
			return err
		}
		items := make([]store.QuizItem, len(payloads))
		for i, p := range payloads {
			items[i] = store.QuizItem{
				GoalID:     goalID,
				DayNumber:  dayNumber,
				Question:   p.Question,
				Answer:     p.Answer,
				Difficulty: p.Difficulty,
				Status:     store.QuizStatusDelivered,
			}
		}
		quizItems, err = o.store.InsertQuizItems(ctx, items)
		return err
	})
	if err != nil {
		runsFailed.Inc()
		return store.Episode{}, err
	}
	o.logger.Printf("tutor completed: %d questions", len(quizItems))

	// Reflect and rewrite future days.
	var reflection string
	err = o.stage(ctx, goalID, dayNumber, store.StageReflected, func() error {
		var err error
		reflection, err = o.generateReflection(ctx, goal, planItems, curated.Summary)
		if err != nil {
			return err
		}
		return o.rewriteFuturePlanItems(ctx, goalID, dayNumber, reflection)
	})
	if err != nil {
		runsFailed.Inc()
		return store.Episode{}, err
	}
	o.logger.Printf("reflection generated: %q", truncate(reflection, 120))

	// Record the episode.
	var episode store.Episode
	err = o.stage(ctx, goalID, dayNumber, store.StageComplete, func() error {
		questions := make([]string, len(quizItems))
		for i, q := range quizItems {
			questions[i] = q.Question
		}
		tasks := make([]string, len(planItems))
		for i, item := range planItems {
			tasks[i] = fmt.Sprintf("%d. %s", item.Sequence, item.Task)
		}
		var err error
		episode, err = o.store.InsertEpisode(ctx, store.Episode{
			GoalID:            goalID,
			DayNumber:         dayNumber,
			PlannerSummary:    strings.Join(tasks, "\n"),
			ResearcherSummary: fmt.Sprintf("Curated %d resources", len(resources)),
			CuratorSummary:    curated.Summary,
			TutorSummary:      strings.Join(questions, "; "),
			Reflection:        reflection,
		})
		return err
	})
	if err != nil {
		runsFailed.Inc()
		return store.Episode{}, err
	}

	runDuration.Observe(time.Since(started).Seconds())
	return episode, nil
}

// Quiz operations

func (o *Orchestrator) GetQuizForDay(ctx context.Context, goalID string, dayNumber int) ([]store.QuizItem, error) {
	return o.store.ListQuizForDay(ctx, goalID, dayNumber)
}

// SubmitQuizAnswer evaluates a learner answer and records it on the quiz
// item. Re-submission overwrites the previous evaluation.
func (o *Orchestrator) SubmitQuizAnswer(ctx context.Context, quizID, answer string) (store.QuizItem, error) {
	quiz, err := o.store.GetQuizItem(ctx, quizID)
	if err != nil {
		return store.QuizItem{}, err
	}
	isCorrect, feedback := agent.EvaluateAnswer(quiz.Answer, answer)
	return o.store.AnswerQuizItem(ctx, quizID, answer, isCorrect, feedback)
}

// GetRunStatus returns the recorded stage transitions for one (goal, day)
// run, letting a caller diagnose how far a crashed or failed run got.
func (o *Orchestrator) GetRunStatus(ctx context.Context, goalID string, dayNumber int) ([]store.Checkpoint, error) {
	if _, err := o.store.GetGoal(ctx, goalID); err != nil {
		return nil, err
	}
	return o.store.ListCheckpoints(ctx, goalID, dayNumber)
}

// SearchResources runs a semantic query over the indexed resources of one
// goal.
func (o *Orchestrator) SearchResources(ctx context.Context, goalID, query string, limit int) ([]vector.Match, error) {
	if o.index == nil {
		return nil, fmt.Errorf("vector index not configured")
	}
	return o.index.Search(ctx, query, goalID, limit)
}

// internals

// stage runs one pipeline stage between a pair of checkpoints and records
// its duration. Checkpoint writes are best-effort: a failing checkpoint is
// logged but never aborts the run.
func (o *Orchestrator) stage(ctx context.Context, goalID string, dayNumber int, stage string, fn func() error) error {
	o.checkpoint(ctx, goalID, dayNumber, stage, store.CheckpointStatusRunning)
	started := time.Now()
	if err := fn(); err != nil {
		o.checkpoint(ctx, goalID, dayNumber, stage, store.CheckpointStatusFailed)
		return fmt.Errorf("stage %s: %w", stage, err)
	}
	stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	o.checkpoint(ctx, goalID, dayNumber, stage, store.CheckpointStatusCompleted)
	return nil
}

func (o *Orchestrator) checkpoint(ctx context.Context, goalID string, dayNumber int, stage, status string) {
	err := o.store.UpsertCheckpoint(ctx, store.Checkpoint{
		GoalID:    goalID,
		DayNumber: dayNumber,
		Stage:     stage,
		Status:    status,
	})
	if err != nil {
		o.logger.Printf("checkpoint %s/%s failed: %v", stage, status, err)
	}
}

// generateReflection builds a prompt from the goal, the day's tasks, and the
// curated summary, and takes the completion verbatim (trimmed).
func (o *Orchestrator) generateReflection(ctx context.Context, goal store.LearningGoal, planItems []store.PlanItem, curatedSummary string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Goal: %s\n", goal.Title)
	sb.WriteString("Plan items completed/queued:\n")
	for _, item := range planItems {
		fmt.Fprintf(&sb, "- %s\n", item.Task)
	}
	sb.WriteString("Summary:\n")
	sb.WriteString(curatedSummary)
	sb.WriteString("\nProvide a reflection with two sentences: what worked + what to adjust.")

	text, err := o.llm.Complete(ctx, sb.String(), provider.Options{})
	if err != nil {
		return "", fmt.Errorf("reflection: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// rewriteFuturePlanItems appends a focus hint and an audit note to every
// plan item of a later day. Past and same-day items are never touched.
// No-op when there are no future items or the reflection is empty.
func (o *Orchestrator) rewriteFuturePlanItems(ctx context.Context, goalID string, dayNumber int, reflection string) error {
	if reflection == "" {
		return nil
	}
	future, err := o.store.ListFuturePlanItems(ctx, goalID, dayNumber)
	if err != nil {
		return err
	}
	if len(future) == 0 {
		return nil
	}

	firstSentence := strings.TrimSpace(strings.SplitN(reflection, ".", 2)[0])
	note := fmt.Sprintf("Reflection applied on day %d: %s", dayNumber, truncate(reflection, reflectionNoteLimit))

	updates := make([]store.PlanItemTextUpdate, 0, len(future))
	for _, item := range future {
		task := item.Task
		if firstSentence != "" {
			task = fmt.Sprintf("%s (Focus: %s)", task, truncate(firstSentence, focusLimit))
		}
		notes := strings.TrimSpace(strings.TrimSpace(item.Notes) + "\n" + note)
		updates = append(updates, store.PlanItemTextUpdate{ID: item.ID, Task: task, Notes: notes})
	}
	return o.store.UpdatePlanItemTexts(ctx, updates)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
