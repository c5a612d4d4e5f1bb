package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/aniversariantes/api/internal/models"
	"github.com/aniversariantes/api/internal/storage"
)

// Key prefixes for BadgerDB storage. Record keys embed a zero-padded
// sequence number so byte-ordered iteration yields insertion order; the id
// index maps record ids back to their record key.
const (
	recordKeyPrefix = "birthday:"
	idKeyPrefix     = "birthday_id:"
	seqKey          = "birthday_seq"
)

const seqBandwidth = 64

// storedBirthday is the storage codec for records. models.Birthday hides the
// announcement marker from API responses with `json:"-"`, so it cannot be
// marshaled directly here without losing the marker on every write.
type storedBirthday struct {
	ID             string    `json:"id"`
	RealName       string    `json:"realName"`
	DisplayName    string    `json:"displayName"`
	ChatHandle     string    `json:"chatHandle"`
	BirthDate      string    `json:"birthDate"`
	LastNotifiedOn string    `json:"lastNotifiedOn,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toStored(b models.Birthday) storedBirthday {
	return storedBirthday{
		ID:             b.ID,
		RealName:       b.RealName,
		DisplayName:    b.DisplayName,
		ChatHandle:     b.ChatHandle,
		BirthDate:      b.BirthDate,
		LastNotifiedOn: b.LastNotifiedOn,
		CreatedAt:      b.CreatedAt,
	}
}

func (s storedBirthday) toModel() models.Birthday {
	return models.Birthday{
		ID:             s.ID,
		RealName:       s.RealName,
		DisplayName:    s.DisplayName,
		ChatHandle:     s.ChatHandle,
		BirthDate:      s.BirthDate,
		LastNotifiedOn: s.LastNotifiedOn,
		CreatedAt:      s.CreatedAt,
	}
}

// Ensure Store satisfies the storage.BirthdayStore interface at compile time.
var _ storage.BirthdayStore = (*Store)(nil)

// Store provides embedded BadgerDB-backed persistence for birthdays. Single
// writes are transactional, so there is no lost-append window between
// concurrent creates.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewBirthdayStore opens (or creates) a Badger database at path.
func NewBirthdayStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	return open(opts)
}

// NewInMemory opens an in-memory store with no files on disk, used by tests.
func NewInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(seqKey), seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open badger sequence: %w", err)
	}
	return &Store{db: db, seq: seq}, nil
}

// Close releases the sequence and closes the database.
func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("release sequence: %w", err)
	}
	return s.db.Close()
}

// Create appends a new record and assigns its ID.
func (s *Store) Create(ctx context.Context, birthday models.Birthday) (models.Birthday, error) {
	n, err := s.seq.Next()
	if err != nil {
		return models.Birthday{}, fmt.Errorf("next sequence: %w", err)
	}

	birthday.ID = uuid.NewString()
	birthday.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(toStored(birthday))
	if err != nil {
		return models.Birthday{}, fmt.Errorf("marshal birthday: %w", err)
	}

	key := recordKey(n)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set birthday: %w", err)
		}
		if err := txn.Set([]byte(idKeyPrefix+birthday.ID), key); err != nil {
			return fmt.Errorf("set id index: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Birthday{}, err
	}
	return birthday, nil
}

// ListAll returns every record in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]models.Birthday, error) {
	birthdays := make([]models.Birthday, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var sb storedBirthday
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sb)
			})
			if err != nil {
				return fmt.Errorf("unmarshal birthday: %w", err)
			}
			birthdays = append(birthdays, sb.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return birthdays, nil
}

// FindByHandle scans records in insertion order and returns the first with
// the given chat handle.
func (s *Store) FindByHandle(ctx context.Context, handle string) (models.Birthday, error) {
	var found *models.Birthday
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var sb storedBirthday
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sb)
			})
			if err != nil {
				return fmt.Errorf("unmarshal birthday: %w", err)
			}
			if sb.ChatHandle == handle {
				b := sb.toModel()
				found = &b
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return models.Birthday{}, err
	}
	if found == nil {
		return models.Birthday{}, storage.ErrNotFound
	}
	return *found, nil
}

// MarkNotified performs a read-check-set inside one transaction. A conflict
// with a concurrent marker write means another caller claimed the day first.
func (s *Store) MarkNotified(ctx context.Context, id, day string) (bool, error) {
	claimed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(idKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get id index: %w", err)
		}

		var key []byte
		if err := item.Value(func(val []byte) error {
			key = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return fmt.Errorf("read id index: %w", err)
		}

		recordItem, err := txn.Get(key)
		if err != nil {
			return fmt.Errorf("get birthday: %w", err)
		}

		var sb storedBirthday
		if err := recordItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &sb)
		}); err != nil {
			return fmt.Errorf("unmarshal birthday: %w", err)
		}

		if sb.LastNotifiedOn == day {
			return nil
		}

		sb.LastNotifiedOn = day
		data, err := json.Marshal(sb)
		if err != nil {
			return fmt.Errorf("marshal birthday: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set birthday: %w", err)
		}
		claimed = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func recordKey(n uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", recordKeyPrefix, n))
}
