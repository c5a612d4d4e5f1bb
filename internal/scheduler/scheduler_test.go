package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniversariantes/api/internal/models"
	"github.com/aniversariantes/api/internal/storage/memory"
)

type recordingAnnouncer struct {
	mu        sync.Mutex
	announced []models.Birthday
}

func (a *recordingAnnouncer) Announce(ctx context.Context, b models.Birthday) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.announced = append(a.announced, b)
}

func (a *recordingAnnouncer) handles() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.announced))
	for _, b := range a.announced {
		out = append(out, b.ChatHandle)
	}
	return out
}

func seed(t *testing.T, store *memory.Store, birthDate, handle string) {
	t.Helper()
	_, err := store.Create(context.Background(), models.Birthday{
		RealName:    "Pessoa " + handle,
		DisplayName: handle,
		ChatHandle:  handle,
		BirthDate:   birthDate,
	})
	require.NoError(t, err)
}

func TestRunOnceAnnouncesOnlyTodaysMatches(t *testing.T) {
	store := memory.New()
	seed(t, store, "2000-07-04", "@ana")
	seed(t, store, "1995-12-25", "@bruno")
	seed(t, store, "1988-07-04", "@carla")

	announcer := &recordingAnnouncer{}
	logger := zerolog.Nop()
	s := New(store, announcer, &logger, DefaultConfig())
	s.now = func() time.Time {
		return time.Date(2024, time.July, 4, 9, 30, 0, 0, time.UTC)
	}

	require.NoError(t, s.RunOnce(context.Background()))

	assert.ElementsMatch(t, []string{"@ana", "@carla"}, announcer.handles())
}

func TestRunOnceWithEmptyStore(t *testing.T) {
	announcer := &recordingAnnouncer{}
	logger := zerolog.Nop()
	s := New(memory.New(), announcer, &logger, DefaultConfig())

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Empty(t, announcer.handles())
}

func TestDueFiresOncePerDayAfterHour(t *testing.T) {
	logger := zerolog.Nop()
	s := New(memory.New(), &recordingAnnouncer{}, &logger, Config{NotifyHour: 9})

	s.now = func() time.Time { return time.Date(2024, time.July, 4, 8, 59, 0, 0, time.UTC) }
	assert.False(t, s.due(), "before the notify hour")

	s.now = func() time.Time { return time.Date(2024, time.July, 4, 9, 0, 30, 0, time.UTC) }
	assert.True(t, s.due(), "first check after the notify hour")
	assert.False(t, s.due(), "same day must not fire twice")

	s.now = func() time.Time { return time.Date(2024, time.July, 5, 9, 0, 30, 0, time.UTC) }
	assert.True(t, s.due(), "next day fires again")
}

func TestStartStopLifecycle(t *testing.T) {
	store := memory.New()
	seed(t, store, "2000-07-04", "@ana")

	announcer := &recordingAnnouncer{}
	logger := zerolog.Nop()
	s := New(store, announcer, &logger, Config{
		NotifyHour:    0,
		CheckInterval: 5 * time.Millisecond,
	})
	s.now = func() time.Time {
		return time.Date(2024, time.July, 4, 12, 0, 0, 0, time.UTC)
	}

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()), "second start must fail")

	assert.Eventually(t, func() bool {
		return len(announcer.handles()) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "stop is idempotent")
}
