package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aniversariantes/api/internal/models"
	"github.com/aniversariantes/api/internal/storage"
)

// Ensure Store satisfies the storage.BirthdayStore interface at compile time.
var _ storage.BirthdayStore = (*Store)(nil)

// Store is a mutex-guarded in-memory implementation, used by unit tests and
// the `memory` driver. Nothing survives a restart.
type Store struct {
	mu        sync.RWMutex
	birthdays []models.Birthday
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Create appends a new record and assigns its ID.
func (s *Store) Create(ctx context.Context, birthday models.Birthday) (models.Birthday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	birthday.ID = uuid.NewString()
	birthday.CreatedAt = time.Now().UTC()
	s.birthdays = append(s.birthdays, birthday)
	return birthday, nil
}

// ListAll returns a copy of every record in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]models.Birthday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Birthday, len(s.birthdays))
	copy(out, s.birthdays)
	return out, nil
}

// FindByHandle returns the first record with the given chat handle.
func (s *Store) FindByHandle(ctx context.Context, handle string) (models.Birthday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.birthdays {
		if b.ChatHandle == handle {
			return b, nil
		}
	}
	return models.Birthday{}, storage.ErrNotFound
}

// MarkNotified claims the per-day announcement marker under the write lock.
func (s *Store) MarkNotified(ctx context.Context, id, day string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.birthdays {
		if s.birthdays[i].ID != id {
			continue
		}
		if s.birthdays[i].LastNotifiedOn == day {
			return false, nil
		}
		s.birthdays[i].LastNotifiedOn = day
		return true, nil
	}
	return false, nil
}
