package handlers

import (
	"net/http"

	"learnpath/internal/service"
)

// ProgressHandler exposes the learner's ledger and rollups
type ProgressHandler struct {
	progressService *service.ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

func (h *ProgressHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	lessonID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	progress, err := h.progressService.CompleteLesson(r.Context(), user.ID, lessonID)
	if err != nil {
		writeServiceError(w, "Error completing lesson", err)
		return
	}
	respondWithJSON(w, http.StatusOK, progress)
}

func (h *ProgressHandler) TouchLesson(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	lessonID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	progress, err := h.progressService.TouchLesson(r.Context(), user.ID, lessonID)
	if err != nil {
		writeServiceError(w, "Error recording lesson access", err)
		return
	}
	respondWithJSON(w, http.StatusOK, progress)
}

func (h *ProgressHandler) LessonProgress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	lessonID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	progress, err := h.progressService.LessonProgress(r.Context(), user.ID, lessonID)
	if err != nil {
		writeServiceError(w, "Error getting lesson progress", err)
		return
	}
	respondWithJSON(w, http.StatusOK, progress)
}

func (h *ProgressHandler) PracticeProgress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	practiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	progress, err := h.progressService.PracticeProgress(r.Context(), user.ID, practiceID)
	if err != nil {
		writeServiceError(w, "Error getting practice progress", err)
		return
	}
	respondWithJSON(w, http.StatusOK, progress)
}

func (h *ProgressHandler) CompletedLessons(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	ids, err := h.progressService.CompletedLessonIDs(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, "Error listing completed lessons", err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	respondWithJSON(w, http.StatusOK, ids)
}

func (h *ProgressHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	stats, err := h.progressService.Stats(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, "Error getting stats", err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (h *ProgressHandler) RouteProgress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	routes, err := h.progressService.RouteProgress(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, "Error getting route progress", err)
		return
	}
	respondWithJSON(w, http.StatusOK, routes)
}

func (h *ProgressHandler) CourseProgress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	courses, err := h.progressService.CourseProgress(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, "Error getting course progress", err)
		return
	}
	respondWithJSON(w, http.StatusOK, courses)
}

func (h *ProgressHandler) FullProgress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	progress, err := h.progressService.FullProgress(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, "Error getting progress", err)
		return
	}
	respondWithJSON(w, http.StatusOK, progress)
}
