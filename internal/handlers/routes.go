package handlers

import (
	"net/http"

	"learnpath/internal/database"
)

// Handlers bundles everything RegisterRoutes mounts
type Handlers struct {
	DB         *database.DB
	Middleware *Middleware
	Auth       *AuthHandler
	Content    *ContentHandler
	Practice   *PracticeHandler
	Progress   *ProgressHandler
}

// RegisterRoutes mounts the JSON API on mux
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	m := h.Middleware

	mux.HandleFunc("GET /api/health", Health(h.DB))

	// Auth
	mux.HandleFunc("POST /api/auth/register", m.RateLimit(h.Auth.Register))
	mux.HandleFunc("POST /api/auth/login", m.RateLimit(h.Auth.Login))
	mux.HandleFunc("POST /api/auth/forgot-password", m.RateLimit(h.Auth.ForgotPassword))
	mux.HandleFunc("POST /api/auth/reset-password", h.Auth.ResetPassword)
	mux.HandleFunc("GET /api/auth/me", m.RequireAuth(h.Auth.Me))
	mux.HandleFunc("PUT /api/auth/profile", m.RequireAuth(h.Auth.UpdateProfile))
	mux.HandleFunc("PUT /api/auth/password", m.RequireAuth(h.Auth.ChangePassword))

	// Routes
	mux.HandleFunc("GET /api/rutas", h.Content.ListRoutes)
	mux.HandleFunc("GET /api/rutas/{id}", h.Content.GetRoute)
	mux.HandleFunc("GET /api/rutas/{id}/cursos", h.Content.ListCourses)
	mux.HandleFunc("POST /api/rutas", m.RequireAuth(h.Content.CreateRoute))
	mux.HandleFunc("PUT /api/rutas/{id}", m.RequireAuth(h.Content.UpdateRoute))
	mux.HandleFunc("DELETE /api/rutas/{id}", m.RequireAuth(h.Content.DeactivateRoute))
	mux.HandleFunc("DELETE /api/rutas/{id}/permanente", m.RequireAuth(h.Content.DeleteRoute))

	// Courses
	mux.HandleFunc("GET /api/cursos/{id}", h.Content.GetCourse)
	mux.HandleFunc("GET /api/cursos/{id}/lecciones", h.Content.ListLessons)
	mux.HandleFunc("POST /api/cursos", m.RequireAuth(h.Content.CreateCourse))
	mux.HandleFunc("PUT /api/cursos/{id}", m.RequireAuth(h.Content.UpdateCourse))
	mux.HandleFunc("DELETE /api/cursos/{id}", m.RequireAuth(h.Content.DeactivateCourse))
	mux.HandleFunc("DELETE /api/cursos/{id}/permanente", m.RequireAuth(h.Content.DeleteCourse))

	// Lessons
	mux.HandleFunc("GET /api/lecciones/{id}", h.Content.GetLesson)
	mux.HandleFunc("GET /api/lecciones/{id}/practicas", h.Content.ListPractices)
	mux.HandleFunc("POST /api/lecciones", m.RequireAuth(h.Content.CreateLesson))
	mux.HandleFunc("PUT /api/lecciones/{id}", m.RequireAuth(h.Content.UpdateLesson))
	mux.HandleFunc("DELETE /api/lecciones/{id}", m.RequireAuth(h.Content.DeactivateLesson))
	mux.HandleFunc("DELETE /api/lecciones/{id}/permanente", m.RequireAuth(h.Content.DeleteLesson))

	// Practices
	mux.HandleFunc("GET /api/practicas/all", m.RequireAuth(h.Content.ListAllPractices))
	mux.HandleFunc("GET /api/practicas/{id}", h.Content.GetPractice)
	mux.HandleFunc("GET /api/practicas/{id}/completa", m.RequireAuth(h.Content.GetFullPractice))
	mux.HandleFunc("POST /api/practicas", m.RequireAuth(h.Content.CreatePractice))
	mux.HandleFunc("PUT /api/practicas/{id}", m.RequireAuth(h.Content.UpdatePractice))
	mux.HandleFunc("DELETE /api/practicas/{id}", m.RequireAuth(h.Content.DeactivatePractice))
	mux.HandleFunc("DELETE /api/practicas/{id}/permanente", m.RequireAuth(h.Content.DeletePractice))
	mux.HandleFunc("POST /api/practicas/{id}/validar", m.RequireAuth(h.Practice.SubmitAnswer))

	// Progress
	mux.HandleFunc("GET /api/progreso/estadisticas", m.RequireAuth(h.Progress.Stats))
	mux.HandleFunc("GET /api/progreso/rutas", m.RequireAuth(h.Progress.RouteProgress))
	mux.HandleFunc("GET /api/progreso/cursos", m.RequireAuth(h.Progress.CourseProgress))
	mux.HandleFunc("GET /api/progreso/completo", m.RequireAuth(h.Progress.FullProgress))
	mux.HandleFunc("GET /api/progreso/lecciones/completadas", m.RequireAuth(h.Progress.CompletedLessons))
	mux.HandleFunc("GET /api/progreso/lecciones/{id}", m.RequireAuth(h.Progress.LessonProgress))
	mux.HandleFunc("POST /api/progreso/lecciones/{id}/completar", m.RequireAuth(h.Progress.CompleteLesson))
	mux.HandleFunc("PUT /api/progreso/lecciones/{id}/acceso", m.RequireAuth(h.Progress.TouchLesson))
	mux.HandleFunc("GET /api/progreso/practicas/{id}", m.RequireAuth(h.Progress.PracticeProgress))
}

// Wrap applies the global middleware chain to the mux
func Wrap(mux http.Handler, m *Middleware) http.Handler {
	return Recover(Logging(m.CORS(mux)))
}
