package models

import "time"

// PracticeProgress is the ledger row for one (user, practice) pair
type PracticeProgress struct {
	ID                    int64      `json:"ProgresoPracticaId"`
	UserID                int64      `json:"UsuarioId"`
	PracticeID            int64      `json:"PracticaId"`
	Attempts              int        `json:"Intentos"`
	Completed             bool       `json:"Completada"`
	CorrectOnFirstAttempt bool       `json:"CorrectoEnPrimerIntento"`
	PointsAwarded         int        `json:"PuntosObtenidos"`
	LastAnswer            string     `json:"RespuestaUsuario"`
	LastAttemptAt         *time.Time `json:"FechaUltimoIntento"`
	CompletedAt           *time.Time `json:"FechaCompletacion"`
}

// LessonProgress is the ledger row for one (user, lesson) pair
type LessonProgress struct {
	ID             int64      `json:"ProgresoLeccionId"`
	UserID         int64      `json:"UsuarioId"`
	LessonID       int64      `json:"LeccionId"`
	Completed      bool       `json:"Completada"`
	CompletedAt    *time.Time `json:"FechaCompletacion"`
	LastAccessedAt *time.Time `json:"FechaUltimoAcceso"`
}

// UserStats summarizes a user's progress
type UserStats struct {
	LessonsCompleted   int `json:"leccionesCompletadas"`
	PracticesCompleted int `json:"practicasCompletadas"`
	PointsTotal        int `json:"puntosTotales"`
	Level              int `json:"nivel"`
}

// RouteProgress is the completion rollup of one route
type RouteProgress struct {
	RouteID          int64   `json:"rutaId"`
	Name             string  `json:"nombre"`
	Percent          float64 `json:"porcentajeCompletado"`
	CoursesCompleted int     `json:"cursosCompletados"`
	TotalCourses     int     `json:"totalCursos"`
}

// CourseProgress is the completion rollup of one course
type CourseProgress struct {
	CourseID           int64   `json:"cursoId"`
	Name               string  `json:"nombre"`
	RouteID            int64   `json:"rutaId"`
	RouteName          string  `json:"rutaNombre"`
	Percent            float64 `json:"porcentajeCompletado"`
	LessonsCompleted   int     `json:"leccionesCompletadas"`
	TotalLessons       int     `json:"totalLecciones"`
	PracticesCompleted int     `json:"practicasCompletadas"`
	TotalPractices     int     `json:"totalPracticas"`
}

// FullProgress bundles every rollup for a user
type FullProgress struct {
	Stats              UserStats        `json:"estadisticas"`
	Routes             []RouteProgress  `json:"progresoRutas"`
	Courses            []CourseProgress `json:"progresoCursos"`
	CompletedLessonIDs []int64          `json:"leccionesCompletadas"`
}
