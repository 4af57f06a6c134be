package handlers

import (
	"net/http"

	"learnpath/internal/models"
	"learnpath/internal/service"
)

// PracticeHandler validates submitted answers
type PracticeHandler struct {
	practiceService *service.PracticeService
}

// NewPracticeHandler creates a new practice handler
func NewPracticeHandler(practiceService *service.PracticeService) *PracticeHandler {
	return &PracticeHandler{practiceService: practiceService}
}

// SubmitAnswer grades an answer and records the attempt
func (h *PracticeHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	practiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var answer models.Answer
	if !decodeJSON(w, r, &answer) {
		return
	}

	verdict, err := h.practiceService.SubmitAnswer(r.Context(), user.ID, practiceID, answer)
	if err != nil {
		writeServiceError(w, "Error submitting answer", err)
		return
	}
	respondWithJSON(w, http.StatusOK, verdict)
}
