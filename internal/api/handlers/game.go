package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/api/middleware"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/service"
)

// GameHandler exposes the session facade over HTTP. Every route runs
// behind the auth middleware, so a session always exists for the
// caller.
type GameHandler struct {
	game *service.GameService
}

func NewGameHandler(game *service.GameService) *GameHandler {
	return &GameHandler{game: game}
}

func (h *GameHandler) session(r *http.Request) *service.Session {
	user, _ := middleware.GetUser(r.Context())
	return h.game.Session(user)
}

func (h *GameHandler) JoinAutoMatch(w http.ResponseWriter, r *http.Request) {
	if err := h.session(r).JoinAutoMatch(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "searching"})
}

func (h *GameHandler) CreatePrivateRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := h.session(r).CreatePrivateRoom(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"roomId": roomID})
}

func (h *GameHandler) JoinPrivateRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if err := h.session(r).JoinPrivateRoom(r.Context(), roomID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"roomId": roomID})
}

func (h *GameHandler) StartPrivateRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if err := h.session(r).StartPrivateRoom(r.Context(), roomID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "starting"})
}

func (h *GameHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.session(r).Leave(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

type submitAnswerRequest struct {
	Answer string `json:"answer"`
}

func (h *GameHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.session(r).SubmitAnswer(r.Context(), req.Answer); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "answered"})
}

func (h *GameHandler) CurrentRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.session(r).CurrentRoom(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, room)
}
