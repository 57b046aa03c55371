package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/marketplace-client/internal/session"
)

type SessionManager interface {
	Login(ctx context.Context, token string, user session.User) (session.Session, error)
	Logout(ctx context.Context)
	Current() (session.Session, bool)
}

type SessionHandler struct {
	sessions    SessionManager
	maxBodySize int64
}

func NewSessionHandler(sessions SessionManager, maxBodySize int64) *SessionHandler {
	return &SessionHandler{sessions: sessions, maxBodySize: maxBodySize}
}

type LoginRequestDTO struct {
	AccessToken string       `json:"access_token"`
	User        session.User `json:"user"`
}

// POST /api/v1/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if !decodeBody(w, r, h.maxBodySize, &req) {
		return
	}
	if req.AccessToken == "" {
		respondError(w, http.StatusBadRequest, "missing_token", "access_token is required")
		return
	}

	sess, err := h.sessions.Login(r.Context(), req.AccessToken, req.User)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

// GET /api/v1/session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Current()
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// DELETE /api/v1/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
