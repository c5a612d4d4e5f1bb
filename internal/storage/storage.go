package storage

import (
	"context"
	"errors"

	"github.com/aniversariantes/api/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// BirthdayStore captures persistence operations needed by handlers and the
// scheduler. Implementations must preserve insertion order in ListAll and
// commit durably before returning from Create. Chat handles are not unique;
// FindByHandle returns the first record in insertion order.
type BirthdayStore interface {
	Create(ctx context.Context, birthday models.Birthday) (models.Birthday, error)
	ListAll(ctx context.Context) ([]models.Birthday, error)
	FindByHandle(ctx context.Context, handle string) (models.Birthday, error)
	// MarkNotified records that the birthday identified by id was announced
	// on day (YYYY-MM-DD). It returns true only for the first caller to mark
	// a given day, atomically, so callers can use it as an at-most-once
	// delivery guard. Unknown ids report false without error.
	MarkNotified(ctx context.Context, id, day string) (bool, error)
}
