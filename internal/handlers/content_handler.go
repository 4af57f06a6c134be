package handlers

import (
	"context"
	"net/http"
	"strconv"

	"learnpath/internal/models"
	"learnpath/internal/service"
)

// ContentHandler serves the route / course / lesson / practice catalogue
type ContentHandler struct {
	contentService *service.ContentService
}

// NewContentHandler creates a new content handler
func NewContentHandler(contentService *service.ContentService) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

// pathID parses a positive int64 path value
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return 0, false
	}
	return id, true
}

func includeInactive(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(includeInactiveQueryKey))
	return err == nil && v
}

// Routes

func (h *ContentHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.contentService.ListRoutes(r.Context(), includeInactive(r))
	if err != nil {
		writeServiceError(w, "Error listing routes", err)
		return
	}
	respondWithJSON(w, http.StatusOK, routes)
}

func (h *ContentHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	route, err := h.contentService.GetRoute(r.Context(), id, includeInactive(r))
	if err != nil {
		writeServiceError(w, "Error getting route", err)
		return
	}
	respondWithJSON(w, http.StatusOK, route)
}

func (h *ContentHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var in service.RouteInput
	if !decodeJSON(w, r, &in) {
		return
	}
	route, err := h.contentService.CreateRoute(r.Context(), in)
	if err != nil {
		writeServiceError(w, "Error creating route", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, route)
}

func (h *ContentHandler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.RouteInput
	if !decodeJSON(w, r, &in) {
		return
	}
	route, err := h.contentService.UpdateRoute(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, "Error updating route", err)
		return
	}
	respondWithJSON(w, http.StatusOK, route)
}

func (h *ContentHandler) DeactivateRoute(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "Error deactivating route", h.contentService.DeactivateRoute)
}

func (h *ContentHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "Error deleting route", h.contentService.DeleteRoute)
}

// Courses

func (h *ContentHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	courses, err := h.contentService.ListCourses(r.Context(), routeID, includeInactive(r))
	if err != nil {
		writeServiceError(w, "Error listing courses", err)
		return
	}
	respondWithJSON(w, http.StatusOK, courses)
}

func (h *ContentHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	course, err := h.contentService.GetCourse(r.Context(), id, includeInactive(r))
	if err != nil {
		writeServiceError(w, "Error getting course", err)
		return
	}
	respondWithJSON(w, http.StatusOK, course)
}

func (h *ContentHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var in service.CourseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	course, err := h.contentService.CreateCourse(r.Context(), in)
	if err != nil {
		writeServiceError(w, "Error creating course", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, course)
}

func (h *ContentHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.CourseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	course, err := h.contentService.UpdateCourse(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, "Error updating course", err)
		return
	}
	respondWithJSON(w, http.StatusOK, course)
}

func (h *ContentHandler) DeactivateCourse(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "Error deactivating course", h.contentService.DeactivateCourse)
}

func (h *ContentHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "Error deleting course", h.contentService.DeleteCourse)
}

// Lessons

func (h *ContentHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lessons, err := h.contentService.ListLessons(r.Context(), courseID, includeInactive(r))
	if err != nil {
		writeServiceError(w, "Error listing lessons", err)
		return
	}
	respondWithJSON(w, http.StatusOK, lessons)
}

func (h *ContentHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lesson, err := h.contentService.GetLesson(r.Context(), id, includeInactive(r))
	if err != nil {
		writeServiceError(w, "Error getting lesson", err)
		return
	}
	respondWithJSON(w, http.StatusOK, lesson)
}

func (h *ContentHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	var in service.LessonInput
	if !decodeJSON(w, r, &in) {
		return
	}
	lesson, err := h.contentService.CreateLesson(r.Context(), in)
	if err != nil {
		writeServiceError(w, "Error creating lesson", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, lesson)
}

func (h *ContentHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.LessonInput
	if !decodeJSON(w, r, &in) {
		return
	}
	lesson, err := h.contentService.UpdateLesson(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, "Error updating lesson", err)
		return
	}
	respondWithJSON(w, http.StatusOK, lesson)
}

func (h *ContentHandler) DeactivateLesson(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "Error deactivating lesson", h.contentService.DeactivateLesson)
}

func (h *ContentHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "Error deleting lesson", h.contentService.DeleteLesson)
}

// Practices. Public reads are redacted so learners never receive answers.

func (h *ContentHandler) ListPractices(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	practices, err := h.contentService.ListPractices(r.Context(), lessonID, includeInactive(r))
	if err != nil {
		writeServiceError(w, "Error listing practices", err)
		return
	}
	out := make([]*models.Practice, len(practices))
	for i := range practices {
		out[i] = practices[i].Redacted()
	}
	respondWithJSON(w, http.StatusOK, out)
}

// ListAllPractices returns every active practice with its lesson, course and route
func (h *ContentHandler) ListAllPractices(w http.ResponseWriter, r *http.Request) {
	items, err := h.contentService.ListAllPractices(r.Context())
	if err != nil {
		writeServiceError(w, "Error listing all practices", err)
		return
	}
	for i := range items {
		items[i].Practice = items[i].Practice.Redacted()
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *ContentHandler) GetPractice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	practice, err := h.contentService.GetPractice(r.Context(), id, includeInactive(r))
	if err != nil {
		writeServiceError(w, "Error getting practice", err)
		return
	}
	respondWithJSON(w, http.StatusOK, practice.Redacted())
}

// GetFullPractice returns a practice including its solution data
func (h *ContentHandler) GetFullPractice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	practice, err := h.contentService.GetPractice(r.Context(), id, true)
	if err != nil {
		writeServiceError(w, "Error getting practice", err)
		return
	}
	respondWithJSON(w, http.StatusOK, practice)
}

func (h *ContentHandler) CreatePractice(w http.ResponseWriter, r *http.Request) {
	var in service.PracticeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	practice, err := h.contentService.CreatePractice(r.Context(), in)
	if err != nil {
		writeServiceError(w, "Error creating practice", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, practice)
}

func (h *ContentHandler) UpdatePractice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.PracticeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	practice, err := h.contentService.UpdatePractice(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, "Error updating practice", err)
		return
	}
	respondWithJSON(w, http.StatusOK, practice)
}

func (h *ContentHandler) DeactivatePractice(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "Error deactivating practice", h.contentService.DeactivatePractice)
}

func (h *ContentHandler) DeletePractice(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "Error deleting practice", h.contentService.DeletePractice)
}

func (h *ContentHandler) remove(w http.ResponseWriter, r *http.Request, logMsg string, fn func(ctx context.Context, id int64) error) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := fn(r.Context(), id); err != nil {
		writeServiceError(w, logMsg, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
