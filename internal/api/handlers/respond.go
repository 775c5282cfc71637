package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrRoomNotJoinable),
		errors.Is(err, domain.ErrAlreadyInRoom),
		errors.Is(err, domain.ErrInSession),
		errors.Is(err, domain.ErrRoomExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotRoomOwner):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrEmptyAnswer),
		errors.Is(err, domain.ErrNotPlaying),
		errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrNoActiveSession):
		status = http.StatusBadRequest
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
