package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aniversariantes/api/internal/dates"
	"github.com/aniversariantes/api/internal/metrics"
	"github.com/aniversariantes/api/internal/models"
	"github.com/aniversariantes/api/internal/storage"
)

// Announcer funnels every announcement path (scheduler and create route)
// through the store's per-day marker, guaranteeing at-most-once delivery per
// record per day. Failures are logged and counted, never surfaced to the
// caller, so an HTTP request can never fail because the webhook did.
type Announcer struct {
	store    storage.BirthdayStore
	notifier Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAnnouncer creates an announcer over the given store and notifier.
func NewAnnouncer(store storage.BirthdayStore, notifier Notifier, m *metrics.Metrics, logger *zerolog.Logger) *Announcer {
	return &Announcer{
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With().Str("component", "announcer").Logger(),
		now:      time.Now,
	}
}

// Announce claims today's marker for the record and, if this caller won the
// claim, delivers the webhook message.
func (a *Announcer) Announce(ctx context.Context, birthday models.Birthday) {
	day := a.now().Format(dates.DayFormat)

	claimed, err := a.store.MarkNotified(ctx, birthday.ID, day)
	if err != nil {
		a.logger.Error().Err(err).
			Str("id", birthday.ID).
			Str("day", day).
			Msg("failed to claim announcement marker")
		return
	}
	if !claimed {
		a.logger.Debug().
			Str("id", birthday.ID).
			Str("day", day).
			Msg("already announced today, skipping")
		return
	}

	if err := a.notifier.Send(ctx, birthday); err != nil {
		a.metrics.WebhookFailures.Inc()
		a.logger.Error().Err(err).
			Str("id", birthday.ID).
			Str("chat_handle", birthday.ChatHandle).
			Msg("webhook delivery failed")
		return
	}

	a.metrics.NotificationsSent.Inc()
	a.logger.Info().
		Str("id", birthday.ID).
		Str("chat_handle", birthday.ChatHandle).
		Msg("birthday announced")
}
