package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/studypilot/studypilot/internal/store"
	"github.com/studypilot/studypilot/internal/vector"
)

type pipelineStub struct {
	goals      map[string]store.LearningGoal
	plan       []store.PlanItem
	episode    store.Episode
	quiz       []store.QuizItem
	matches    []vector.Match
	runErr     error
	ranGoalID  string
	ranDay     int
	answeredID string
}

func (s *pipelineStub) CreateGoal(ctx context.Context, g store.LearningGoal) (store.LearningGoal, error) {
	g.ID = "goal-1"
	g.Status = store.GoalStatusNew
	return g, nil
}

func (s *pipelineStub) GetGoal(ctx context.Context, goalID string) (store.LearningGoal, error) {
	g, ok := s.goals[goalID]
	if !ok {
		return store.LearningGoal{}, fmt.Errorf("goal %s: %w", goalID, store.ErrNotFound)
	}
	return g, nil
}

func (s *pipelineStub) GetPlan(ctx context.Context, goalID string, dayNumber *int) ([]store.PlanItem, error) {
	return s.plan, nil
}

func (s *pipelineStub) RunDay(ctx context.Context, goalID string, dayNumber int) (store.Episode, error) {
	if s.runErr != nil {
		return store.Episode{}, s.runErr
	}
	s.ranGoalID = goalID
	s.ranDay = dayNumber
	return s.episode, nil
}

func (s *pipelineStub) GetQuizForDay(ctx context.Context, goalID string, dayNumber int) ([]store.QuizItem, error) {
	return s.quiz, nil
}

func (s *pipelineStub) SubmitQuizAnswer(ctx context.Context, quizID, answer string) (store.QuizItem, error) {
	s.answeredID = quizID
	return store.QuizItem{ID: quizID, Status: store.QuizStatusAnswered}, nil
}

func (s *pipelineStub) SearchResources(ctx context.Context, goalID, query string, limit int) ([]vector.Match, error) {
	return s.matches, nil
}

func (s *pipelineStub) GetRunStatus(ctx context.Context, goalID string, dayNumber int) ([]store.Checkpoint, error) {
	return nil, nil
}

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreateGoalValidatesTitle(t *testing.T) {
	h := &GoalsHandler{Orch: &pipelineStub{}}
	ctx, _ := newTestContext(http.MethodPost, "/api/goals", `{"title":"  "}`)

	err := h.createGoal(ctx)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestCreateGoalReturnsCreated(t *testing.T) {
	h := &GoalsHandler{Orch: &pipelineStub{}}
	ctx, rec := newTestContext(http.MethodPost, "/api/goals", `{"title":"Learn Go","target_days":14}`)

	if err := h.createGoal(ctx); err != nil {
		t.Fatalf("createGoal returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var goal store.LearningGoal
	if err := json.Unmarshal(rec.Body.Bytes(), &goal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if goal.ID != "goal-1" || goal.Title != "Learn Go" {
		t.Fatalf("unexpected goal: %#v", goal)
	}
	if goal.TargetDays == nil || *goal.TargetDays != 14 {
		t.Fatalf("expected target_days 14, got %v", goal.TargetDays)
	}
}

func TestRunDayValidatesDayParam(t *testing.T) {
	h := &GoalsHandler{Orch: &pipelineStub{}}
	ctx, _ := newTestContext(http.MethodPost, "/api/goals/goal-1/run/zero", "")
	ctx.SetParamNames("id", "day")
	ctx.SetParamValues("goal-1", "zero")

	err := h.runDay(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestRunDayInvokesPipeline(t *testing.T) {
	stub := &pipelineStub{episode: store.Episode{ID: "ep-1", GoalID: "goal-1", DayNumber: 2}}
	h := &GoalsHandler{Orch: stub}
	ctx, rec := newTestContext(http.MethodPost, "/api/goals/goal-1/run/2", "")
	ctx.SetParamNames("id", "day")
	ctx.SetParamValues("goal-1", "2")

	if err := h.runDay(ctx); err != nil {
		t.Fatalf("runDay returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.ranGoalID != "goal-1" || stub.ranDay != 2 {
		t.Fatalf("pipeline invoked with %q day %d", stub.ranGoalID, stub.ranDay)
	}
}

func TestErrorHandlerMapsSentinels(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = errorHandler(nil)

	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("goal x: %w", store.ErrNotFound), http.StatusNotFound},
		{errors.New("unexpected"), http.StatusInternalServerError},
		{echo.NewHTTPError(http.StatusBadRequest, "bad"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		e.HTTPErrorHandler(tc.err, c)
		if rec.Code != tc.code {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
	}
}

func TestSearchResourcesRequiresQuery(t *testing.T) {
	h := &GoalsHandler{Orch: &pipelineStub{}}
	ctx, _ := newTestContext(http.MethodGet, "/api/goals/goal-1/resources/search", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("goal-1")

	err := h.searchResources(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestSearchResourcesReturnsMatches(t *testing.T) {
	stub := &pipelineStub{matches: []vector.Match{{VectorID: "v1", Document: "doc"}}}
	h := &GoalsHandler{Orch: stub}
	ctx, rec := newTestContext(http.MethodGet, "/api/goals/goal-1/resources/search?q=goroutines", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("goal-1")

	if err := h.searchResources(ctx); err != nil {
		t.Fatalf("searchResources returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var matches []vector.Match
	if err := json.Unmarshal(rec.Body.Bytes(), &matches); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(matches) != 1 || matches[0].VectorID != "v1" {
		t.Fatalf("unexpected matches: %#v", matches)
	}
}

func TestAnswerQuizRequiresAnswer(t *testing.T) {
	h := &GoalsHandler{Orch: &pipelineStub{}}
	ctx, _ := newTestContext(http.MethodPost, "/api/quiz/q1/answer", `{"answer":""}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("q1")

	err := h.answerQuiz(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAnswerQuizSubmits(t *testing.T) {
	stub := &pipelineStub{}
	h := &GoalsHandler{Orch: stub}
	ctx, rec := newTestContext(http.MethodPost, "/api/quiz/q1/answer", `{"answer":"a vector"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("q1")

	if err := h.answerQuiz(ctx); err != nil {
		t.Fatalf("answerQuiz returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.answeredID != "q1" {
		t.Fatalf("expected quiz q1 answered, got %q", stub.answeredID)
	}
}
