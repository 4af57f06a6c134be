package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"learnpath/internal/service"
	"learnpath/internal/validation"
)

// errorResponse is the body of every error reply
type errorResponse struct {
	Error   string                       `json:"error"`
	Details []validation.ValidationError `json:"detalles,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondWithJSON(w, status, errorResponse{Error: userMsg})
}

// writeServiceError maps service errors onto status codes. Only internal
// errors are logged; the client never sees their detail.
func writeServiceError(w http.ResponseWriter, logMsg string, err error) {
	var verrs validation.Errors
	var verr *validation.ValidationError

	switch {
	case errors.As(err, &verrs):
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrValidation, Details: verrs})
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrValidation, Details: []validation.ValidationError{*verr}})
	case errors.Is(err, service.ErrBadInput):
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		respondWithJSON(w, http.StatusNotFound, errorResponse{Error: ErrNotFound})
	case errors.Is(err, service.ErrConflict):
		respondWithJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrInvalidCredentials})
	case errors.Is(err, service.ErrUnauthorized):
		respondWithJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

// decodeJSON reads a size-limited JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return false
	}
	return true
}
