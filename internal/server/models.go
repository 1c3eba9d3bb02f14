package server

import (
	"context"

	"github.com/studypilot/studypilot/internal/store"
	"github.com/studypilot/studypilot/internal/vector"
)

// PipelineService is what the HTTP handlers need from the orchestrator.
type PipelineService interface {
	CreateGoal(ctx context.Context, g store.LearningGoal) (store.LearningGoal, error)
	GetGoal(ctx context.Context, goalID string) (store.LearningGoal, error)
	GetPlan(ctx context.Context, goalID string, dayNumber *int) ([]store.PlanItem, error)
	RunDay(ctx context.Context, goalID string, dayNumber int) (store.Episode, error)
	GetQuizForDay(ctx context.Context, goalID string, dayNumber int) ([]store.QuizItem, error)
	SubmitQuizAnswer(ctx context.Context, quizID, answer string) (store.QuizItem, error)
	GetRunStatus(ctx context.Context, goalID string, dayNumber int) ([]store.Checkpoint, error)
	SearchResources(ctx context.Context, goalID, query string, limit int) ([]vector.Match, error)
}
