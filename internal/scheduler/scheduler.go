// Package scheduler runs the daily birthday announcement sweep.
//
// The scheduler ticks on a short check interval and, once per local day
// after the configured wall-clock hour, lists all records, filters them
// through the date matcher, and hands the matches to the announcer. The
// announcer's persisted per-day marker makes an overlapping request-path
// announcement harmless.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aniversariantes/api/internal/dates"
	"github.com/aniversariantes/api/internal/models"
	"github.com/aniversariantes/api/internal/storage"
)

// Announcer dispatches one at-most-once-per-day announcement.
type Announcer interface {
	Announce(ctx context.Context, birthday models.Birthday)
}

// Config holds scheduler settings.
type Config struct {
	// NotifyHour is the local wall-clock hour after which the daily run
	// fires (default: 9).
	NotifyHour int

	// CheckInterval is how often to check whether the run is due
	// (default: 1 minute).
	CheckInterval time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		NotifyHour:    9,
		CheckInterval: time.Minute,
	}
}

// Scheduler performs the daily list-filter-announce sweep.
type Scheduler struct {
	store     storage.BirthdayStore
	announcer Announcer
	logger    zerolog.Logger
	config    Config
	now       func() time.Time

	mu         sync.Mutex
	running    bool
	lastRunDay string
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// New creates a scheduler, filling config defaults.
func New(store storage.BirthdayStore, announcer Announcer, logger *zerolog.Logger, config Config) *Scheduler {
	if config.NotifyHour < 0 || config.NotifyHour > 23 {
		config.NotifyHour = 9
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}

	return &Scheduler{
		store:     store,
		announcer: announcer,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		config:    config,
		now:       time.Now,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info().
		Int("notify_hour", s.config.NotifyHour).
		Dur("check_interval", s.config.CheckInterval).
		Msg("starting birthday scheduler")

	go s.run(ctx)
	return nil
}

// Stop stops the scheduler loop and waits for it to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.due() {
				continue
			}
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("daily announcement run failed")
			}
		}
	}
}

// due reports whether today's run should fire now. Run errors do not clear
// the day marker; the sweep retries on the next day, while per-record
// delivery retries live in the notifier.
func (s *Scheduler) due() bool {
	now := s.now()
	if now.Hour() < s.config.NotifyHour {
		return false
	}
	today := now.Format(dates.DayFormat)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRunDay == today {
		return false
	}
	s.lastRunDay = today
	return true
}

// RunOnce performs a single list-filter-announce sweep against the current
// date. Exposed for tests and one-shot invocations.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.now()

	birthdays, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list birthdays: %w", err)
	}

	matched := 0
	for _, b := range birthdays {
		if !dates.IsBirthdayToday(b.BirthDate, now) {
			continue
		}
		matched++
		s.announcer.Announce(ctx, b)
	}

	s.logger.Info().
		Int("records", len(birthdays)).
		Int("matched", matched).
		Msg("daily announcement run completed")
	return nil
}
