// Package store owns the relational entities of the learning pipeline and
// the per-stage transactions the orchestrator commits through.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a referenced goal or quiz item does not exist.
var ErrNotFound = errors.New("not found")

// Goal lifecycle statuses. Status only advances forward.
const (
	GoalStatusNew      = "new"
	GoalStatusPlanning = "planning"
	GoalStatusActive   = "active"
	GoalStatusComplete = "complete"
)

// Plan item execution statuses.
const (
	PlanStatusPending    = "pending"
	PlanStatusInProgress = "in_progress"
	PlanStatusDone       = "done"
	PlanStatusBlocked    = "blocked"
)

// Quiz item statuses. A quiz item is answered iff learner_answer is set.
const (
	QuizStatusDraft     = "draft"
	QuizStatusDelivered = "delivered"
	QuizStatusAnswered  = "answered"
)

// Pipeline stages persisted as checkpoints for each (goal, day) run.
const (
	StagePlanned    = "planned"
	StageResearched = "researched"
	StageCurated    = "curated"
	StageAssessed   = "assessed"
	StageReflected  = "reflected"
	StageComplete   = "complete"
)

// Checkpoint statuses.
const (
	CheckpointStatusRunning   = "running"
	CheckpointStatusCompleted = "completed"
	CheckpointStatusFailed    = "failed"
)

// LearningGoal is the primary entity describing what a learner wants to
// achieve.
type LearningGoal struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	LearnerProfile string    `json:"learner_profile,omitempty"`
	Status         string    `json:"status"`
	TargetDays     *int      `json:"target_days,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PlanItem is a single actionable task produced by the planner for one day.
type PlanItem struct {
	ID         string    `json:"id"`
	GoalID     string    `json:"goal_id"`
	DayNumber  int       `json:"day_number"`
	Sequence   int       `json:"sequence"`
	Task       string    `json:"task"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	Reflection string    `json:"reflection,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Resource is external reference material linked to a goal and optionally a
// plan item. VectorID is assigned exactly once by the vector index.
type Resource struct {
	ID             string   `json:"id"`
	GoalID         string   `json:"goal_id"`
	PlanItemID     string   `json:"plan_item_id,omitempty"`
	Title          string   `json:"title"`
	URL            string   `json:"url,omitempty"`
	Snippet        string   `json:"snippet,omitempty"`
	Content        string   `json:"content,omitempty"`
	Source         string   `json:"source,omitempty"`
	VectorID       string   `json:"vector_id,omitempty"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuizItem is a generated formative assessment for a goal/day. Question and
// answer are immutable after creation; the learner_* fields are written by
// answer submission only.
type QuizItem struct {
	ID            string    `json:"id"`
	GoalID        string    `json:"goal_id"`
	DayNumber     int       `json:"day_number"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	Difficulty    string    `json:"difficulty,omitempty"`
	LearnerAnswer *string   `json:"learner_answer,omitempty"`
	IsCorrect     *bool     `json:"is_correct,omitempty"`
	Feedback      *string   `json:"feedback,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Episode is the append-only record of one full pipeline run for one
// (goal, day).
type Episode struct {
	ID                string    `json:"id"`
	GoalID            string    `json:"goal_id"`
	DayNumber         int       `json:"day_number"`
	PlannerSummary    string    `json:"planner_summary,omitempty"`
	ResearcherSummary string    `json:"researcher_summary,omitempty"`
	CuratorSummary    string    `json:"curator_summary,omitempty"`
	TutorSummary      string    `json:"tutor_summary,omitempty"`
	Reflection        string    `json:"reflection,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Checkpoint records durable progress of a (goal, day) pipeline run through
// the stage state machine, so a crashed run can be diagnosed.
type Checkpoint struct {
	GoalID    string    `json:"goal_id"`
	DayNumber int       `json:"day_number"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlanItemTextUpdate carries a rewritten task/notes pair for one plan item.
type PlanItemTextUpdate struct {
	ID    string
	Task  string
	Notes string
}

type Store struct {
	DB *sql.DB
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// NewWithDSN opens a Postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// Goal operations

func (s *Store) CreateGoal(ctx context.Context, g LearningGoal) (LearningGoal, error) {
	if strings.TrimSpace(g.Title) == "" {
		return LearningGoal{}, fmt.Errorf("title required")
	}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO learning_goals (title, description, learner_profile, status, target_days)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, status, created_at, updated_at`,
		g.Title, nullableString(g.Description), nullableString(g.LearnerProfile),
		GoalStatusNew, nullableInt(g.TargetDays),
	).Scan(&g.ID, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return LearningGoal{}, err
	}
	return g, nil
}

func (s *Store) GetGoal(ctx context.Context, id string) (LearningGoal, error) {
	var g LearningGoal
	var targetDays sql.NullInt64
	err := s.DB.QueryRowContext(ctx, `
SELECT id, title, COALESCE(description,''), COALESCE(learner_profile,''), status, target_days, created_at, updated_at
FROM learning_goals WHERE id=$1`, id,
	).Scan(&g.ID, &g.Title, &g.Description, &g.LearnerProfile, &g.Status, &targetDays, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return LearningGoal{}, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return LearningGoal{}, err
	}
	if targetDays.Valid {
		v := int(targetDays.Int64)
		g.TargetDays = &v
	}
	return g, nil
}

// ListActiveGoals returns goals the scheduler may advance: active goals with
// a target day count.
func (s *Store) ListActiveGoals(ctx context.Context) ([]LearningGoal, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, title, COALESCE(description,''), COALESCE(learner_profile,''), status, target_days, created_at, updated_at
FROM learning_goals WHERE status=$1 AND target_days IS NOT NULL
ORDER BY created_at`, GoalStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LearningGoal
	for rows.Next() {
		var g LearningGoal
		var targetDays sql.NullInt64
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.LearnerProfile, &g.Status, &targetDays, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		if targetDays.Valid {
			v := int(targetDays.Int64)
			g.TargetDays = &v
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// MarkGoalComplete advances an active goal to complete. Forward-only: a goal
// in any other state is left untouched.
func (s *Store) MarkGoalComplete(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `
UPDATE learning_goals SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`,
		GoalStatusComplete, id, GoalStatusActive)
	return err
}

// Plan item operations

// ListPlanItems returns plan items for a goal ordered by (day_number,
// sequence). A non-nil dayNumber restricts the listing to that day.
func (s *Store) ListPlanItems(ctx context.Context, goalID string, dayNumber *int) ([]PlanItem, error) {
	query := `
SELECT id, goal_id, day_number, sequence, task, status, COALESCE(notes,''), COALESCE(reflection,''), created_at, updated_at
FROM plan_items WHERE goal_id=$1`
	args := []interface{}{goalID}
	if dayNumber != nil {
		query += ` AND day_number=$2`
		args = append(args, *dayNumber)
	}
	query += ` ORDER BY day_number, sequence`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlanItems(rows)
}

// ListFuturePlanItems returns plan items with day_number strictly greater
// than afterDay, ordered by (day_number, sequence).
func (s *Store) ListFuturePlanItems(ctx context.Context, goalID string, afterDay int) ([]PlanItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, goal_id, day_number, sequence, task, status, COALESCE(notes,''), COALESCE(reflection,''), created_at, updated_at
FROM plan_items WHERE goal_id=$1 AND day_number > $2
ORDER BY day_number, sequence`, goalID, afterDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlanItems(rows)
}

// InsertPlanItems persists the planner's output for one day and marks the
// goal active, in a single transaction. Returned items carry assigned ids.
func (s *Store) InsertPlanItems(ctx context.Context, goalID string, items []PlanItem) ([]PlanItem, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	out := make([]PlanItem, 0, len(items))
	for _, item := range items {
		item.GoalID = goalID
		if item.Status == "" {
			item.Status = PlanStatusPending
		}
		err = tx.QueryRowContext(ctx, `
INSERT INTO plan_items (goal_id, day_number, sequence, task, status, notes)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at, updated_at`,
			item.GoalID, item.DayNumber, item.Sequence, item.Task, item.Status, nullableString(item.Notes),
		).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}

	// Forward-only status advance: new/planning goals become active.
	if _, err = tx.ExecContext(ctx, `
UPDATE learning_goals SET status=$1, updated_at=NOW() WHERE id=$2 AND status IN ($3,$4)`,
		GoalStatusActive, goalID, GoalStatusNew, GoalStatusPlanning); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `
UPDATE learning_goals SET updated_at=NOW() WHERE id=$1`, goalID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePlanItemTexts rewrites task/notes for the given plan items in one
// transaction. Used to apply a day's reflection to future items.
func (s *Store) UpdatePlanItemTexts(ctx context.Context, updates []PlanItemTextUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, u := range updates {
		if _, err = tx.ExecContext(ctx, `
UPDATE plan_items SET task=$1, notes=$2, updated_at=NOW() WHERE id=$3`,
			u.Task, nullableString(u.Notes), u.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Resource operations

// InsertResources persists researcher output in one transaction. Returned
// resources carry assigned ids.
func (s *Store) InsertResources(ctx context.Context, resources []Resource) ([]Resource, error) {
	if len(resources) == 0 {
		return nil, nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	out := make([]Resource, 0, len(resources))
	for _, r := range resources {
		err = tx.QueryRowContext(ctx, `
INSERT INTO resources (goal_id, plan_item_id, title, url, snippet, content, source, vector_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id, created_at`,
			r.GoalID, nullableString(r.PlanItemID), r.Title, nullableString(r.URL),
			nullableString(r.Snippet), nullableString(r.Content), nullableString(r.Source),
			nullableString(r.VectorID),
		).Scan(&r.ID, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateResourceScores persists curator relevance scores in one transaction.
func (s *Store) UpdateResourceScores(ctx context.Context, resources []Resource) error {
	if len(resources) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, r := range resources {
		if r.RelevanceScore == nil {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
UPDATE resources SET relevance_score=$1 WHERE id=$2`, *r.RelevanceScore, r.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Quiz operations

// InsertQuizItems persists tutor output in one transaction.
func (s *Store) InsertQuizItems(ctx context.Context, items []QuizItem) ([]QuizItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	out := make([]QuizItem, 0, len(items))
	for _, q := range items {
		if q.Status == "" {
			q.Status = QuizStatusDelivered
		}
		err = tx.QueryRowContext(ctx, `
INSERT INTO quiz_items (goal_id, day_number, question, answer, difficulty, status)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at`,
			q.GoalID, q.DayNumber, q.Question, q.Answer, nullableString(q.Difficulty), q.Status,
		).Scan(&q.ID, &q.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListQuizForDay(ctx context.Context, goalID string, dayNumber int) ([]QuizItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, goal_id, day_number, question, answer, COALESCE(difficulty,''), learner_answer, is_correct, feedback, status, created_at
FROM quiz_items WHERE goal_id=$1 AND day_number=$2
ORDER BY created_at`, goalID, dayNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QuizItem
	for rows.Next() {
		q, err := scanQuizItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) GetQuizItem(ctx context.Context, id string) (QuizItem, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT id, goal_id, day_number, question, answer, COALESCE(difficulty,''), learner_answer, is_correct, feedback, status, created_at
FROM quiz_items WHERE id=$1`, id)
	q, err := scanQuizItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return QuizItem{}, fmt.Errorf("quiz item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return QuizItem{}, err
	}
	return q, nil
}

// AnswerQuizItem records a learner answer and its evaluation. Re-submission
// overwrites all three fields (last writer wins).
func (s *Store) AnswerQuizItem(ctx context.Context, id, learnerAnswer string, isCorrect bool, feedback string) (QuizItem, error) {
	row := s.DB.QueryRowContext(ctx, `
UPDATE quiz_items SET learner_answer=$1, is_correct=$2, feedback=$3, status=$4
WHERE id=$5
RETURNING id, goal_id, day_number, question, answer, COALESCE(difficulty,''), learner_answer, is_correct, feedback, status, created_at`,
		learnerAnswer, isCorrect, feedback, QuizStatusAnswered, id)
	q, err := scanQuizItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return QuizItem{}, fmt.Errorf("quiz item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return QuizItem{}, err
	}
	return q, nil
}

// Episode operations

func (s *Store) InsertEpisode(ctx context.Context, ep Episode) (Episode, error) {
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO episodes (goal_id, day_number, planner_summary, researcher_summary, curator_summary, tutor_summary, reflection)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, created_at`,
		ep.GoalID, ep.DayNumber, nullableString(ep.PlannerSummary), nullableString(ep.ResearcherSummary),
		nullableString(ep.CuratorSummary), nullableString(ep.TutorSummary), nullableString(ep.Reflection),
	).Scan(&ep.ID, &ep.CreatedAt)
	if err != nil {
		return Episode{}, err
	}
	return ep, nil
}

// LatestEpisodeDay returns the highest day number recorded for a goal, or 0
// when no episode exists yet.
func (s *Store) LatestEpisodeDay(ctx context.Context, goalID string) (int, error) {
	var day int
	err := s.DB.QueryRowContext(ctx, `
SELECT COALESCE(MAX(day_number), 0) FROM episodes WHERE goal_id=$1`, goalID).Scan(&day)
	return day, err
}

// LatestEpisodeAt returns the creation time of the most recent episode for
// a goal, or nil when no episode exists yet.
func (s *Store) LatestEpisodeAt(ctx context.Context, goalID string) (*time.Time, error) {
	var at sql.NullTime
	err := s.DB.QueryRowContext(ctx, `
SELECT MAX(created_at) FROM episodes WHERE goal_id=$1`, goalID).Scan(&at)
	if err != nil {
		return nil, err
	}
	if !at.Valid {
		return nil, nil
	}
	return &at.Time, nil
}

// Checkpoint operations

// UpsertCheckpoint records a stage transition for a (goal, day) run.
func (s *Store) UpsertCheckpoint(ctx context.Context, cp Checkpoint) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO pipeline_checkpoints (goal_id, day_number, stage, status, updated_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (goal_id, day_number, stage) DO UPDATE SET status=EXCLUDED.status, updated_at=NOW()`,
		cp.GoalID, cp.DayNumber, cp.Stage, cp.Status)
	return err
}

// ListCheckpoints returns recorded stage transitions for a (goal, day) run.
func (s *Store) ListCheckpoints(ctx context.Context, goalID string, dayNumber int) ([]Checkpoint, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT goal_id, day_number, stage, status, updated_at
FROM pipeline_checkpoints WHERE goal_id=$1 AND day_number=$2
ORDER BY updated_at`, goalID, dayNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		if err := rows.Scan(&cp.GoalID, &cp.DayNumber, &cp.Stage, &cp.Status, &cp.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// helpers

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlanItems(rows *sql.Rows) ([]PlanItem, error) {
	var out []PlanItem
	for rows.Next() {
		var item PlanItem
		if err := rows.Scan(&item.ID, &item.GoalID, &item.DayNumber, &item.Sequence, &item.Task,
			&item.Status, &item.Notes, &item.Reflection, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanQuizItem(row rowScanner) (QuizItem, error) {
	var q QuizItem
	var learnerAnswer, feedback sql.NullString
	var isCorrect sql.NullBool
	if err := row.Scan(&q.ID, &q.GoalID, &q.DayNumber, &q.Question, &q.Answer, &q.Difficulty,
		&learnerAnswer, &isCorrect, &feedback, &q.Status, &q.CreatedAt); err != nil {
		return QuizItem{}, err
	}
	if learnerAnswer.Valid {
		q.LearnerAnswer = &learnerAnswer.String
	}
	if isCorrect.Valid {
		q.IsCorrect = &isCorrect.Bool
	}
	if feedback.Valid {
		q.Feedback = &feedback.String
	}
	return q, nil
}

func nullableString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
