package server

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/studypilot/studypilot/internal/store"
)

// defaultSearchLimit bounds semantic search responses.
const defaultSearchLimit = 5

// GoalsHandler exposes goals, plans, pipeline runs, quizzes, and resource
// search.
type GoalsHandler struct {
	Orch   PipelineService
	Logger *log.Logger
}

func (h *GoalsHandler) Register(g *echo.Group) {
	g.POST("/goals", h.createGoal)
	g.GET("/goals/:id", h.getGoal)
	g.GET("/goals/:id/plan", h.getPlan)
	g.POST("/goals/:id/run/:day", h.runDay)
	g.GET("/goals/:id/run/:day/status", h.runStatus)
	g.GET("/goals/:id/quiz/:day", h.getQuiz)
	g.POST("/quiz/:id/answer", h.answerQuiz)
	g.GET("/goals/:id/resources/search", h.searchResources)
}

func (h *GoalsHandler) createGoal(c echo.Context) error {
	var req struct {
		Title          string `json:"title"`
		Description    string `json:"description"`
		LearnerProfile string `json:"learner_profile"`
		TargetDays     *int   `json:"target_days"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title required")
	}
	if req.TargetDays != nil && *req.TargetDays < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "target_days must be positive")
	}

	goal, err := h.Orch.CreateGoal(c.Request().Context(), store.LearningGoal{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		LearnerProfile: req.LearnerProfile,
		TargetDays:     req.TargetDays,
		Status:         store.GoalStatusNew,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, goal)
}

func (h *GoalsHandler) getGoal(c echo.Context) error {
	goal, err := h.Orch.GetGoal(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, goal)
}

func (h *GoalsHandler) getPlan(c echo.Context) error {
	var day *int
	if raw := c.QueryParam("day"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "day must be a positive integer")
		}
		day = &n
	}
	items, err := h.Orch.GetPlan(c.Request().Context(), c.Param("id"), day)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *GoalsHandler) runDay(c echo.Context) error {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "day must be a positive integer")
	}
	episode, err := h.Orch.RunDay(c.Request().Context(), c.Param("id"), day)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, episode)
}

func (h *GoalsHandler) runStatus(c echo.Context) error {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "day must be a positive integer")
	}
	checkpoints, err := h.Orch.GetRunStatus(c.Request().Context(), c.Param("id"), day)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, checkpoints)
}

func (h *GoalsHandler) getQuiz(c echo.Context) error {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "day must be a positive integer")
	}
	items, err := h.Orch.GetQuizForDay(c.Request().Context(), c.Param("id"), day)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *GoalsHandler) answerQuiz(c echo.Context) error {
	var req struct {
		Answer string `json:"answer"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Answer) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "answer required")
	}
	quiz, err := h.Orch.SubmitQuizAnswer(c.Request().Context(), c.Param("id"), req.Answer)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, quiz)
}

func (h *GoalsHandler) searchResources(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}
	limit := defaultSearchLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	matches, err := h.Orch.SearchResources(c.Request().Context(), c.Param("id"), query, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, matches)
}
