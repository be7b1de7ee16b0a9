package sessionhandler

import (
	"cartsync/internal/handlers"
	"cartsync/internal/models"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

type SessionService interface {
	Login(ctx context.Context, email, password string) (models.Session, error)
	Current() (models.User, error)
	Logout(ctx context.Context) error
}

type Handler struct {
	log     *slog.Logger
	service SessionService
}

func New(log *slog.Logger, service SessionService) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// POST /session
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.Login"
	log := h.log.With("op", op)

	requestBody, err := io.ReadAll(r.Body)
	if err != nil {
		handlers.BadRequest(w, log, err, "Cannot read request body")
		return
	}
	defer r.Body.Close()

	var req models.LoginRequest
	if err := json.Unmarshal(requestBody, &req); err != nil {
		handlers.BadRequest(w, log, err, "Cannot unmarshal request body")
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handlers.Fail(w, log, err, "sign in")
		return
	}

	handlers.WriteJSON(w, log, http.StatusCreated, session.User())
}

// GET /session
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.Current"
	log := h.log.With("op", op)

	user, err := h.service.Current()
	if err != nil {
		handlers.Fail(w, log, err, "read session")
		return
	}

	handlers.WriteJSON(w, log, http.StatusOK, user)
}

// DELETE /session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.Logout"
	log := h.log.With("op", op)

	if err := h.service.Logout(r.Context()); err != nil {
		handlers.Fail(w, log, err, "sign out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
