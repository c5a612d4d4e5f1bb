package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/aniversariantes/api/internal/dates"
	"github.com/aniversariantes/api/internal/http/respond"
	"github.com/aniversariantes/api/internal/models"
	"github.com/aniversariantes/api/internal/models/dto"
	"github.com/aniversariantes/api/internal/storage"
)

const (
	msgCreated       = "Aniversariante cadastrado!"
	msgMissingFields = "Todos os campos são obrigatórios: realName, displayName, chatHandle, birthDate."
	msgInvalidBody   = "Corpo da requisição inválido."
	msgNotFound      = "Aniversariante não encontrado."
	msgStoreFailure  = "Falha ao acessar o armazenamento."
)

var validate = validator.New()

// Announcer dispatches one at-most-once-per-day announcement without ever
// failing the enclosing request.
type Announcer interface {
	Announce(ctx context.Context, birthday models.Birthday)
}

// BirthdayHandler owns the /aniversariantes routes.
type BirthdayHandler struct {
	store     storage.BirthdayStore
	announcer Announcer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewBirthdayHandler constructs the handler.
func NewBirthdayHandler(store storage.BirthdayStore, announcer Announcer, logger *zerolog.Logger) *BirthdayHandler {
	return &BirthdayHandler{
		store:     store,
		announcer: announcer,
		logger:    logger.With().Str("component", "birthday-handler").Logger(),
		now:       time.Now,
	}
}

// Register attaches the birthday routes to the router.
func (h *BirthdayHandler) Register(r chi.Router) {
	r.Post("/aniversariantes", h.handleCreate)
	r.Get("/aniversariantes", h.handleListAll)
	r.Get("/aniversariantes/hoje", h.handleToday)
	r.Get("/aniversariantes/discord/{discordTag}", h.handleFindByHandle)
}

func (h *BirthdayHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBirthdayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Message(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	created, err := h.store.Create(r.Context(), models.Birthday{
		RealName:    req.RealName,
		DisplayName: req.DisplayName,
		ChatHandle:  req.ChatHandle,
		BirthDate:   req.BirthDate,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("create birthday failed")
		respond.Message(w, http.StatusInternalServerError, msgStoreFailure)
		return
	}

	// A record registered on its own birthday after the scheduled run would
	// otherwise be missed until next year. The announcer's marker keeps the
	// delivery at most once per day either way.
	if dates.IsBirthdayToday(created.BirthDate, h.now()) {
		go h.announcer.Announce(context.WithoutCancel(r.Context()), created)
	}

	respond.Message(w, http.StatusCreated, msgCreated)
}

func (h *BirthdayHandler) handleListAll(w http.ResponseWriter, r *http.Request) {
	birthdays, err := h.store.ListAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list birthdays failed")
		respond.Message(w, http.StatusInternalServerError, msgStoreFailure)
		return
	}
	if birthdays == nil {
		birthdays = []models.Birthday{}
	}
	respond.JSON(w, http.StatusOK, birthdays)
}

// handleToday is a pure read: announcements run through the scheduler and
// the create path, never as a side effect of polling this route.
func (h *BirthdayHandler) handleToday(w http.ResponseWriter, r *http.Request) {
	birthdays, err := h.store.ListAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list birthdays failed")
		respond.Message(w, http.StatusInternalServerError, msgStoreFailure)
		return
	}

	now := h.now()
	matches := make([]models.Birthday, 0)
	for _, b := range birthdays {
		if dates.IsBirthdayToday(b.BirthDate, now) {
			matches = append(matches, b)
		}
	}
	respond.JSON(w, http.StatusOK, matches)
}

func (h *BirthdayHandler) handleFindByHandle(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "discordTag")

	birthday, err := h.store.FindByHandle(r.Context(), handle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Message(w, http.StatusNotFound, msgNotFound)
			return
		}
		h.logger.Error().Err(err).Str("chat_handle", handle).Msg("find birthday failed")
		respond.Message(w, http.StatusInternalServerError, msgStoreFailure)
		return
	}
	respond.JSON(w, http.StatusOK, birthday)
}
