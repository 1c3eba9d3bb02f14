// Package scheduler advances every active goal by one day when its cron
// schedule comes due.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/studypilot/studypilot/config"
	"github.com/studypilot/studypilot/internal/store"
)

// lockTTL bounds how long a per-goal run lock is held. It must exceed the
// expected run duration so a second instance cannot start a duplicate run.
const lockTTL = 2 * time.Minute

// Storage is the slice of the store the scheduler reads run progress from.
type Storage interface {
	ListActiveGoals(ctx context.Context) ([]store.LearningGoal, error)
	LatestEpisodeDay(ctx context.Context, goalID string) (int, error)
	LatestEpisodeAt(ctx context.Context, goalID string) (*time.Time, error)
	MarkGoalComplete(ctx context.Context, goalID string) error
}

// Runner executes one pipeline day.
type Runner interface {
	RunDay(ctx context.Context, goalID string, dayNumber int) (store.Episode, error)
}

// Scheduler ticks on a fixed interval and fires RunDay for each active goal
// whose schedule is due. Redis SetNX locks keep concurrent instances from
// running the same goal twice.
type Scheduler struct {
	store  Storage
	runner Runner
	rdb    *redis.Client
	cfg    config.SchedulerConfig
	logger *log.Logger
	stop   chan struct{}
}

func New(st Storage, runner Runner, rdb *redis.Client, cfg config.SchedulerConfig, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Hour
	}
	if cfg.Cron == "" {
		cfg.Cron = "@daily"
	}
	return &Scheduler{store: st, runner: runner, rdb: rdb, cfg: cfg, logger: logger, stop: make(chan struct{})}
}

func (s *Scheduler) Start() {
	ticker := time.NewTicker(s.cfg.TickInterval)
	go func() {
		for {
			select {
			case <-s.stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick(context.Background())
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) tick(ctx context.Context) {
	goals, err := s.store.ListActiveGoals(ctx)
	if err != nil {
		s.logger.Printf("list active goals: %v", err)
		return
	}
	for _, goal := range goals {
		lastDay, err := s.store.LatestEpisodeDay(ctx, goal.ID)
		if err != nil {
			s.logger.Printf("latest day for %s: %v", goal.ID, err)
			continue
		}
		if goal.TargetDays != nil && lastDay >= *goal.TargetDays {
			if err := s.store.MarkGoalComplete(ctx, goal.ID); err != nil {
				s.logger.Printf("mark complete %s: %v", goal.ID, err)
			}
			continue
		}
		lastAt, err := s.store.LatestEpisodeAt(ctx, goal.ID)
		if err != nil {
			s.logger.Printf("latest run time for %s: %v", goal.ID, err)
			continue
		}
		if !isDue(s.cfg.Cron, lastAt) {
			continue
		}

		if s.rdb != nil {
			lockKey := "sched:lock:" + goal.ID
			ok, err := s.rdb.SetNX(ctx, lockKey, "1", lockTTL).Result()
			if err != nil {
				s.logger.Printf("lock %s: %v", goal.ID, err)
				continue
			}
			if !ok {
				continue
			}
		}

		go s.runGoal(ctx, goal, lastDay+1)
	}
}

func (s *Scheduler) runGoal(ctx context.Context, goal store.LearningGoal, day int) {
	defer func() {
		if s.rdb != nil {
			s.rdb.Del(ctx, "sched:lock:"+goal.ID)
		}
	}()

	s.logger.Printf("running goal=%s day=%d", goal.ID, day)
	if _, err := s.runner.RunDay(ctx, goal.ID, day); err != nil {
		s.logger.Printf("run goal=%s day=%d failed: %v", goal.ID, day, err)
		return
	}
	if goal.TargetDays != nil && day >= *goal.TargetDays {
		if err := s.store.MarkGoalComplete(ctx, goal.ID); err != nil {
			s.logger.Printf("mark complete %s: %v", goal.ID, err)
		}
	}
}

// isDue reports whether a goal scheduled with cronSpec should run now given
// its last run time. Supports "@daily", "@hourly", and 5-field cron
// expressions; an unparseable spec falls back to @daily.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		return !expr.Next(*last).After(now)
	}
}
