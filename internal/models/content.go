package models

import "time"

// Route is a learning path, the top of the content hierarchy
type Route struct {
	ID          int64     `json:"RutaId"`
	Name        string    `json:"Nombre"`
	Description string    `json:"DescripcionCorta"`
	Order       int       `json:"Orden"`
	Active      bool      `json:"Activo"`
	CreatedAt   time.Time `json:"FechaCreacion"`
}

// Course belongs to a Route
type Course struct {
	ID          int64     `json:"CursoId"`
	RouteID     int64     `json:"RutaId"`
	Name        string    `json:"Nombre"`
	Description string    `json:"DescripcionCorta"`
	Order       int       `json:"Orden"`
	Active      bool      `json:"Activo"`
	CreatedAt   time.Time `json:"FechaCreacion"`
}

// PracticeOverview places a practice in the hierarchy above it
type PracticeOverview struct {
	Practice *Practice `json:"Practica"`
	Lesson   *Lesson   `json:"Leccion,omitempty"`
	Course   *Course   `json:"Curso,omitempty"`
	Route    *Route    `json:"Ruta,omitempty"`
}

// Lesson belongs to a Course and holds the practices
type Lesson struct {
	ID          int64     `json:"LeccionId"`
	CourseID    int64     `json:"CursoId"`
	Title       string    `json:"Titulo"`
	Description string    `json:"DescripcionCorta"`
	Content     string    `json:"ContenidoBreve"`
	ExampleCode string    `json:"CodigoEjemplo"`
	Order       int       `json:"Orden"`
	Active      bool      `json:"Activo"`
	CreatedAt   time.Time `json:"FechaCreacion"`
}
