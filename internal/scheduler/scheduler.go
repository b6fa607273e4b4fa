// Package scheduler runs the recurring evaluation pass: every interval, each
// active user is evaluated independently and the outcomes are aggregated into
// a pass summary.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/logging"
	"github.com/demand-radar/internal/models"
	"github.com/demand-radar/internal/service"
)

// State is the scheduler lifecycle state. There is no failed terminal state;
// a pass with errors still returns the scheduler to idle.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Trigger identifies what started a pass.
type Trigger string

const (
	TriggerTimer  Trigger = "timer"
	TriggerManual Trigger = "manual"
)

// SkippedUser records one user that produced no alerts this pass and why.
type SkippedUser struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

// PassSummary aggregates the per-user outcomes of one evaluation pass.
type PassSummary struct {
	Trigger       Trigger       `json:"trigger"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"duration"`
	UsersTotal    int           `json:"usersTotal"`
	Succeeded     int           `json:"succeeded"`
	Skipped       []SkippedUser `json:"skipped,omitempty"`
	AlertsCreated int           `json:"alertsCreated"`
}

// UserSource lists the users to evaluate each pass.
type UserSource interface {
	ListActive(ctx context.Context) ([]*models.User, error)
}

// UserEvaluator evaluates one user. Implementations never fail the pass; a
// failed user comes back as a skip with a reason.
type UserEvaluator interface {
	EvaluateUser(ctx context.Context, user *models.User) service.UserResult
}

// Config holds scheduler configuration
type Config struct {
	Interval    time.Duration
	Concurrency int
	Users       UserSource
	Evaluator   UserEvaluator
	Logger      *logging.Logger
}

// Scheduler drives recurring evaluation passes and serves manual triggers.
// Passes never overlap; a manual trigger while a pass runs is rejected.
type Scheduler struct {
	interval    time.Duration
	concurrency int
	users       UserSource
	evaluator   UserEvaluator
	logger      *logging.Logger

	mu          sync.RWMutex
	state       State
	running     bool
	lastSummary *PassSummary

	passMu sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *Config) (*Scheduler, error) {
	if cfg.Users == nil {
		return nil, fmt.Errorf("user source cannot be nil")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator cannot be nil")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", cfg.Interval)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Scheduler{
		interval:    cfg.Interval,
		concurrency: concurrency,
		users:       cfg.Users,
		evaluator:   cfg.Evaluator,
		logger:      logger,
		state:       StateIdle,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins the recurring pass loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithField("interval", s.interval.String()).Info("Starting evaluation scheduler")

	go s.loop(ctx)
	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight pass.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is not running")
	}
	s.mu.Unlock()

	s.logger.Info("Stopping evaluation scheduler")
	close(s.stopCh)

	select {
	case <-s.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.state = StateStopped
	s.mu.Unlock()

	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if _, err := s.RunPass(ctx, TriggerTimer); err != nil {
				s.logger.WithError(err).Error("Evaluation pass failed")
			}
		}
	}
}

// RunPass runs one evaluation pass. It is the same code path for the timer
// and the manual API trigger. Only one pass runs at a time.
func (s *Scheduler) RunPass(ctx context.Context, trigger Trigger) (*PassSummary, error) {
	if !s.passMu.TryLock() {
		return nil, errors.NewConflictError("an evaluation pass is already running")
	}
	defer s.passMu.Unlock()

	s.setState(StateRunning)
	defer s.setState(StateIdle)

	started := time.Now()
	summary := &PassSummary{Trigger: trigger, StartedAt: started}

	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users for pass: %w", err)
	}
	summary.UsersTotal = len(users)

	s.logger.WithFields(map[string]interface{}{
		"trigger": string(trigger),
		"users":   len(users),
	}).Info("Evaluation pass started")

	results := make([]service.UserResult, len(users))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, user := range users {
		wg.Add(1)
		go func(i int, user *models.User) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = s.evaluator.EvaluateUser(ctx, user)
		}(i, user)
	}
	wg.Wait()

	for _, result := range results {
		if result.Skipped {
			summary.Skipped = append(summary.Skipped, SkippedUser{UserID: result.UserID, Reason: result.Reason})
			continue
		}
		summary.Succeeded++
		summary.AlertsCreated += result.Created
	}
	summary.Duration = time.Since(started)

	s.mu.Lock()
	s.lastSummary = summary
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"trigger":        string(trigger),
		"users":          summary.UsersTotal,
		"succeeded":      summary.Succeeded,
		"skipped":        len(summary.Skipped),
		"alerts_created": summary.AlertsCreated,
		"duration":       summary.Duration.String(),
	}).Info("Evaluation pass finished")

	return summary, nil
}

// Status returns the current state and the last pass summary, if any.
func (s *Scheduler) Status() (State, *PassSummary) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.lastSummary
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
