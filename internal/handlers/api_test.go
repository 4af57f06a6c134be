package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"learnpath/internal/database"
	"learnpath/internal/models"
	"learnpath/internal/repository"
	"learnpath/internal/security"
	"learnpath/internal/service"
)

type apiEnv struct {
	handler http.Handler
}

func newAPIEnv(t *testing.T, authRate int) *apiEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	contentRepo := repository.NewContentRepository(db)
	practiceRepo := repository.NewPracticeRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	locks := security.NewKeyedMutex()

	email, err := service.NewEmailService(ctx, "", "", "", "http://localhost")
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}
	authService := service.NewAuthService(db, userRepo, security.NewTokenIssuer("test-secret", time.Hour), email)

	m := NewMiddleware(authService, security.NewRateLimiter(authRate, time.Minute), []string{"http://app.example"})
	mux := http.NewServeMux()
	RegisterRoutes(mux, &Handlers{
		DB:         db,
		Middleware: m,
		Auth:       NewAuthHandler(authService),
		Content:    NewContentHandler(service.NewContentService(db, contentRepo, practiceRepo)),
		Practice:   NewPracticeHandler(service.NewPracticeService(db, practiceRepo, progressRepo, userRepo, locks)),
		Progress:   NewProgressHandler(service.NewProgressService(db, contentRepo, progressRepo, userRepo, locks)),
	})

	return &apiEnv{handler: Wrap(mux, m)}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func (e *apiEnv) register(t *testing.T, username string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"nombreUsuario": username,
		"email":         username + "@example.com",
		"password":      "secreto1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result service.AuthResult
	decodeInto(t, rec, &result)
	return result.Token
}

// seedChoice creates a route, course, lesson and one multiple-choice
// practice through the API and returns the practice.
func (e *apiEnv) seedChoice(t *testing.T, token string) *models.Practice {
	t.Helper()

	var route models.Route
	rec := e.do(t, http.MethodPost, "/api/rutas", token, map[string]interface{}{"Nombre": "C#", "Orden": 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create route status = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeInto(t, rec, &route)

	var course models.Course
	rec = e.do(t, http.MethodPost, "/api/cursos", token, map[string]interface{}{"RutaId": route.ID, "Nombre": "Variables", "Orden": 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create course status = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeInto(t, rec, &course)

	var lesson models.Lesson
	rec = e.do(t, http.MethodPost, "/api/lecciones", token, map[string]interface{}{"CursoId": course.ID, "Titulo": "Tipos", "Orden": 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create lesson status = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeInto(t, rec, &lesson)

	rec = e.do(t, http.MethodPost, "/api/practicas", token, map[string]interface{}{
		"LeccionId":     lesson.ID,
		"TipoEjercicio": "MultipleChoice",
		"Titulo":        "Texto",
		"Enunciado":     "¿Qué tipo guarda texto?",
		"Orden":         1,
		"Opciones": []map[string]interface{}{
			{"TextoOpcion": "int", "Orden": 1, "Explicacion": "int guarda enteros"},
			{"TextoOpcion": "string", "EsCorrecta": true, "Orden": 2, "Explicacion": "string guarda texto"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create practice status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		models.Practice
		Options []models.Option `json:"Opciones"`
	}
	decodeInto(t, rec, &created)
	created.Practice.Detail = &models.OptionSet{Options: created.Options}
	return &created.Practice
}

func correctOption(p *models.Practice) int64 {
	for _, o := range p.Detail.(*models.OptionSet).Options {
		if o.IsCorrect {
			return o.ID
		}
	}
	return 0
}

func TestAPIAnswerFlow(t *testing.T) {
	env := newAPIEnv(t, 100)
	token := env.register(t, "ana")
	practice := env.seedChoice(t, token)
	path := fmt.Sprintf("/api/practicas/%d/validar", practice.ID)
	answer := map[string]interface{}{"MultipleChoice": map[string]int64{"OpcionId": correctOption(practice)}}

	rec := env.do(t, http.MethodPost, path, token, answer)
	if rec.Code != http.StatusOK {
		t.Fatalf("validar status = %d, body %s", rec.Code, rec.Body.String())
	}
	var verdict models.Verdict
	decodeInto(t, rec, &verdict)
	if !verdict.IsCorrect || verdict.Points != 10 {
		t.Fatalf("first verdict = %+v, want correct with 10 points", verdict)
	}

	rec = env.do(t, http.MethodPost, path, token, answer)
	decodeInto(t, rec, &verdict)
	// The verdict reports the practice's worth every time; the total is
	// credited once, which the stats below check.
	if !verdict.IsCorrect || verdict.Points != 10 {
		t.Fatalf("repeat verdict = %+v, want correct with 10 points", verdict)
	}

	rec = env.do(t, http.MethodGet, "/api/progreso/estadisticas", token, nil)
	var stats models.UserStats
	decodeInto(t, rec, &stats)
	if stats.PointsTotal != 10 || stats.PracticesCompleted != 1 || stats.Level != 1 {
		t.Errorf("stats = %+v", stats)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/progreso/practicas/%d", practice.ID), token, nil)
	var progress models.PracticeProgress
	decodeInto(t, rec, &progress)
	if progress.Attempts != 2 || !progress.Completed || !progress.CorrectOnFirstAttempt {
		t.Errorf("practice progress = %+v", progress)
	}
}

func TestAPIPracticeRedaction(t *testing.T) {
	env := newAPIEnv(t, 100)
	token := env.register(t, "ana")
	practice := env.seedChoice(t, token)

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/practicas/%d", practice.ID), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get practice status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "string guarda texto") || strings.Contains(body, `"EsCorrecta":true`) {
		t.Errorf("public practice leaks the answer: %s", body)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/practicas/%d/completa", practice.ID), "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("full practice without token status = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/practicas/%d/completa", practice.ID), token, nil)
	if !strings.Contains(rec.Body.String(), `"EsCorrecta":true`) {
		t.Errorf("full practice is missing the correct option: %s", rec.Body.String())
	}
}

func TestAPIListAllPractices(t *testing.T) {
	env := newAPIEnv(t, 100)
	token := env.register(t, "ana")
	choice := env.seedChoice(t, token)

	createCode := func(order int) int64 {
		rec := env.do(t, http.MethodPost, "/api/practicas", token, map[string]interface{}{
			"LeccionId":     choice.LessonID,
			"TipoEjercicio": "EscribirCodigo",
			"Titulo":        fmt.Sprintf("Declarar %d", order),
			"Enunciado":     "Declara un entero",
			"Orden":         order,
			"Codigo":        map[string]string{"SolucionEsperada": "int total = 0;"},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create code practice status = %d, body %s", rec.Code, rec.Body.String())
		}
		var p models.Practice
		decodeInto(t, rec, &p)
		return p.ID
	}
	code := createCode(2)
	retired := createCode(3)
	if rec := env.do(t, http.MethodDelete, fmt.Sprintf("/api/practicas/%d", retired), token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("deactivate status = %d, body %s", rec.Code, rec.Body.String())
	}

	if rec := env.do(t, http.MethodGet, "/api/practicas/all", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("without token status = %d, want 401", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/practicas/all", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list all status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if strings.Contains(body, `"EsCorrecta":true`) || strings.Contains(body, "int total = 0;") {
		t.Errorf("practice list leaks answers: %s", body)
	}

	var items []struct {
		Practice models.Practice `json:"Practica"`
		Lesson   *models.Lesson  `json:"Leccion"`
		Course   *models.Course  `json:"Curso"`
		Route    *models.Route   `json:"Ruta"`
	}
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d practices, want 2 active ones: %s", len(items), body)
	}
	// EscribirCodigo sorts before MultipleChoice.
	if items[0].Practice.ID != code || items[1].Practice.ID != choice.ID {
		t.Errorf("order = [%d %d], want [%d %d]", items[0].Practice.ID, items[1].Practice.ID, code, choice.ID)
	}
	for _, it := range items {
		if it.Lesson == nil || it.Course == nil || it.Route == nil {
			t.Fatalf("practice %d is missing its parents: %+v", it.Practice.ID, it)
		}
		if it.Lesson.ID != choice.LessonID || it.Course.ID != it.Lesson.CourseID || it.Route.ID != it.Course.RouteID {
			t.Errorf("practice %d parents = lesson %d, course %d, route %d", it.Practice.ID, it.Lesson.ID, it.Course.ID, it.Route.ID)
		}
	}
}

func TestAPIErrorStatus(t *testing.T) {
	env := newAPIEnv(t, 100)
	token := env.register(t, "ana")
	practice := env.seedChoice(t, token)
	validar := fmt.Sprintf("/api/practicas/%d/validar", practice.ID)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
	}{
		{"no token", http.MethodPost, validar, "", map[string]interface{}{}, http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/auth/me", "garbage", nil, http.StatusUnauthorized},
		{"bad id", http.MethodGet, "/api/rutas/abc", "", nil, http.StatusBadRequest},
		{"missing route", http.MethodGet, "/api/rutas/999", "", nil, http.StatusNotFound},
		{"missing practice", http.MethodPost, "/api/practicas/999/validar", token,
			map[string]interface{}{"MultipleChoice": map[string]int64{"OpcionId": 1}}, http.StatusNotFound},
		{"two payloads", http.MethodPost, validar, token, map[string]interface{}{
			"MultipleChoice": map[string]int64{"OpcionId": 1},
			"EscribirCodigo": map[string]string{"CodigoUsuario": "int x = 1;"},
		}, http.StatusBadRequest},
		{"wrong payload", http.MethodPost, validar, token,
			map[string]interface{}{"EscribirCodigo": map[string]string{"CodigoUsuario": "int x = 1;"}}, http.StatusBadRequest},
		{"foreign option", http.MethodPost, validar, token,
			map[string]interface{}{"MultipleChoice": map[string]int64{"OpcionId": 999}}, http.StatusNotFound},
		{"duplicate order", http.MethodPost, "/api/rutas", token, map[string]interface{}{"Nombre": "Otra", "Orden": 1}, http.StatusConflict},
		{"invalid input", http.MethodPost, "/api/rutas", token, map[string]interface{}{"Orden": 2}, http.StatusBadRequest},
		{"duplicate user", http.MethodPost, "/api/auth/register", "", map[string]string{
			"nombreUsuario": "ana", "email": "otra@example.com", "password": "secreto1",
		}, http.StatusConflict},
		{"wrong password", http.MethodPost, "/api/auth/login", "", map[string]string{
			"emailOUsuario": "ana", "password": "incorrecta",
		}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAPILessonCompletion(t *testing.T) {
	env := newAPIEnv(t, 100)
	token := env.register(t, "ana")
	practice := env.seedChoice(t, token)
	path := fmt.Sprintf("/api/progreso/lecciones/%d/completar", practice.LessonID)

	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodPost, path, token, nil); rec.Code != http.StatusOK {
			t.Fatalf("completar status = %d, body %s", rec.Code, rec.Body.String())
		}
	}

	rec := env.do(t, http.MethodGet, "/api/progreso/lecciones/completadas", token, nil)
	var ids []int64
	decodeInto(t, rec, &ids)
	if len(ids) != 1 || ids[0] != practice.LessonID {
		t.Errorf("completed lessons = %v", ids)
	}

	rec = env.do(t, http.MethodGet, "/api/progreso/completo", token, nil)
	var full models.FullProgress
	decodeInto(t, rec, &full)
	if full.Stats.PointsTotal != 10 || full.Stats.LessonsCompleted != 1 {
		t.Errorf("stats = %+v", full.Stats)
	}
	if len(full.Routes) != 1 || full.Routes[0].Percent != 100 {
		t.Errorf("routes = %+v", full.Routes)
	}
}

func TestAPIHealth(t *testing.T) {
	env := newAPIEnv(t, 100)
	rec := env.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var body healthResponse
	decodeInto(t, rec, &body)
	if body.Status != "ok" || body.Database != "sqlite3" {
		t.Errorf("health = %+v", body)
	}
}
