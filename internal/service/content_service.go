package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"learnpath/internal/codenorm"
	"learnpath/internal/database"
	"learnpath/internal/models"
	"learnpath/internal/repository"
	"learnpath/internal/validation"
)

// RouteInput is the editable part of a route
type RouteInput struct {
	Name        string `json:"Nombre" yaml:"nombre" validate:"required,max=100"`
	Description string `json:"DescripcionCorta" yaml:"descripcion" validate:"max=500"`
	Order       int    `json:"Orden" yaml:"orden" validate:"gte=1"`
	Active      *bool  `json:"Activo,omitempty" yaml:"activo,omitempty"`
}

// CourseInput is the editable part of a course
type CourseInput struct {
	RouteID     int64  `json:"RutaId" yaml:"-" validate:"gt=0"`
	Name        string `json:"Nombre" yaml:"nombre" validate:"required,max=100"`
	Description string `json:"DescripcionCorta" yaml:"descripcion" validate:"max=500"`
	Order       int    `json:"Orden" yaml:"orden" validate:"gte=1"`
	Active      *bool  `json:"Activo,omitempty" yaml:"activo,omitempty"`
}

// LessonInput is the editable part of a lesson
type LessonInput struct {
	CourseID    int64  `json:"CursoId" yaml:"-" validate:"gt=0"`
	Title       string `json:"Titulo" yaml:"titulo" validate:"required,max=200"`
	Description string `json:"DescripcionCorta" yaml:"descripcion" validate:"max=500"`
	Content     string `json:"ContenidoBreve" yaml:"contenido"`
	ExampleCode string `json:"CodigoEjemplo" yaml:"codigoEjemplo"`
	Order       int    `json:"Orden" yaml:"orden" validate:"gte=1"`
	Active      *bool  `json:"Activo,omitempty" yaml:"activo,omitempty"`
}

// PracticeInput is the editable part of a practice. Only the detail that
// matches Type may be set.
type PracticeInput struct {
	LessonID  int64               `json:"LeccionId" yaml:"-" validate:"gt=0"`
	Type      models.ExerciseType `json:"TipoEjercicio" yaml:"tipo" validate:"required,oneof=MultipleChoice CompletarCodigo EscribirCodigo"`
	Title     string              `json:"Titulo" yaml:"titulo" validate:"required,max=200"`
	Statement string              `json:"Enunciado" yaml:"enunciado" validate:"required"`
	Order     int                 `json:"Orden" yaml:"orden" validate:"gte=1"`
	Active    *bool               `json:"Activo,omitempty" yaml:"activo,omitempty"`

	Options []OptionInput `json:"Opciones,omitempty" yaml:"opciones,omitempty" validate:"dive"`
	Blocks  []BlockInput  `json:"Bloques,omitempty" yaml:"bloques,omitempty" validate:"dive"`
	Code    *CodeInput    `json:"Codigo,omitempty" yaml:"codigo,omitempty"`
}

type OptionInput struct {
	Text        string `json:"TextoOpcion" yaml:"texto" validate:"required"`
	IsCorrect   bool   `json:"EsCorrecta" yaml:"correcta"`
	Order       int    `json:"Orden" yaml:"orden"`
	Explanation string `json:"Explicacion" yaml:"explicacion,omitempty"`
}

type BlockInput struct {
	BaseCode        string `json:"CodigoBase" yaml:"codigoBase,omitempty"`
	DisplayOrder    int    `json:"OrdenBloque" yaml:"orden"`
	Text            string `json:"TextoBloque" yaml:"texto" validate:"required"`
	CorrectPosition int    `json:"PosicionCorrecta" yaml:"posicion"`
	IsDistractor    bool   `json:"EsDistractor" yaml:"distractor,omitempty"`
}

type CodeInput struct {
	BaseCode         string `json:"CodigoBase" yaml:"codigoBase,omitempty"`
	ExpectedSolution string `json:"SolucionEsperada" yaml:"solucion" validate:"required"`
	TestCases        string `json:"CasosPrueba" yaml:"casosPrueba,omitempty"`
	Hint             string `json:"PistaOpcional" yaml:"pista,omitempty"`
}

func (in *PracticeInput) hasDetail() bool {
	return len(in.Options) > 0 || len(in.Blocks) > 0 || in.Code != nil
}

// detail builds the tagged detail for in.Type from the matching input field
func (in *PracticeInput) detail() (models.PracticeDetail, error) {
	switch in.Type {
	case models.ExerciseMultipleChoice:
		if len(in.Blocks) > 0 || in.Code != nil {
			return nil, fmt.Errorf("%w: %s practices take options only", ErrBadInput, in.Type)
		}
		if len(in.Options) == 0 {
			return nil, fmt.Errorf("%w: at least one option is required", ErrBadInput)
		}
		set := &models.OptionSet{Options: make([]models.Option, len(in.Options))}
		anyCorrect := false
		for i, o := range in.Options {
			order := o.Order
			if order == 0 {
				order = i + 1
			}
			set.Options[i] = models.Option{Text: o.Text, IsCorrect: o.IsCorrect, Order: order, Explanation: o.Explanation}
			anyCorrect = anyCorrect || o.IsCorrect
		}
		if !anyCorrect {
			return nil, fmt.Errorf("%w: at least one option must be correct", ErrBadInput)
		}
		return set, nil

	case models.ExerciseBlockAssembly:
		if len(in.Options) > 0 || in.Code != nil {
			return nil, fmt.Errorf("%w: %s practices take blocks only", ErrBadInput, in.Type)
		}
		set := &models.BlockSet{Blocks: make([]models.Block, len(in.Blocks))}
		solutionBlocks := 0
		for i, b := range in.Blocks {
			display := b.DisplayOrder
			if display == 0 {
				display = i + 1
			}
			set.Blocks[i] = models.Block{
				BaseCode:        b.BaseCode,
				DisplayOrder:    display,
				Text:            b.Text,
				CorrectPosition: b.CorrectPosition,
				IsDistractor:    b.IsDistractor,
			}
			if !b.IsDistractor {
				solutionBlocks++
			}
		}
		if solutionBlocks == 0 {
			return nil, fmt.Errorf("%w: at least one non-distractor block is required", ErrBadInput)
		}
		return set, nil

	case models.ExerciseFreeCode:
		if len(in.Options) > 0 || len(in.Blocks) > 0 {
			return nil, fmt.Errorf("%w: %s practices take a code spec only", ErrBadInput, in.Type)
		}
		if in.Code == nil {
			return nil, fmt.Errorf("%w: a code spec is required", ErrBadInput)
		}
		if len(codenorm.ExtractDeclarations(in.Code.ExpectedSolution)) == 0 {
			return nil, fmt.Errorf("%w: the expected solution declares no variables", ErrBadInput)
		}
		return &models.CodeSpec{
			BaseCode:         in.Code.BaseCode,
			ExpectedSolution: in.Code.ExpectedSolution,
			TestCases:        in.Code.TestCases,
			Hint:             in.Code.Hint,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidExerciseType, in.Type)
}

func activeOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

// ContentService manages the route, course, lesson and practice catalog
type ContentService struct {
	db           *database.DB
	contentRepo  *repository.ContentRepository
	practiceRepo *repository.PracticeRepository
}

// NewContentService creates a new content service
func NewContentService(db *database.DB, contentRepo *repository.ContentRepository, practiceRepo *repository.PracticeRepository) *ContentService {
	return &ContentService{db: db, contentRepo: contentRepo, practiceRepo: practiceRepo}
}

// writeErr maps unique index violations to ErrConflict
func (s *ContentService) writeErr(err error, what string) error {
	if err != nil && s.db.Dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s order already in use", ErrConflict, what)
	}
	return err
}

// Routes

// ListRoutes returns the routes in order
func (s *ContentService) ListRoutes(ctx context.Context, includeInactive bool) ([]models.Route, error) {
	return s.contentRepo.ListRoutes(ctx, includeInactive)
}

// GetRoute returns a route. Inactive routes are hidden unless includeInactive.
func (s *ContentService) GetRoute(ctx context.Context, id int64, includeInactive bool) (*models.Route, error) {
	route, err := s.contentRepo.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	if route == nil || (!route.Active && !includeInactive) {
		return nil, fmt.Errorf("%w: route %d", ErrNotFound, id)
	}
	return route, nil
}

func (s *ContentService) checkRouteOrder(ctx context.Context, order int, selfID int64) error {
	existing, err := s.contentRepo.GetRouteByOrder(ctx, order)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("%w: route order %d already in use", ErrConflict, order)
	}
	return nil
}

// CreateRoute adds a route
func (s *ContentService) CreateRoute(ctx context.Context, in RouteInput) (*models.Route, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkRouteOrder(ctx, in.Order, 0); err != nil {
		return nil, err
	}

	route := &models.Route{Name: in.Name, Description: in.Description, Order: in.Order, Active: activeOr(in.Active, true)}
	if err := s.contentRepo.CreateRoute(ctx, route); err != nil {
		return nil, s.writeErr(err, "route")
	}
	return route, nil
}

// UpdateRoute replaces the editable fields of a route
func (s *ContentService) UpdateRoute(ctx context.Context, id int64, in RouteInput) (*models.Route, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	route, err := s.GetRoute(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if in.Order != route.Order {
		if err := s.checkRouteOrder(ctx, in.Order, id); err != nil {
			return nil, err
		}
	}

	route.Name = in.Name
	route.Description = in.Description
	route.Order = in.Order
	route.Active = activeOr(in.Active, route.Active)
	if err := s.contentRepo.UpdateRoute(ctx, route); err != nil {
		return nil, s.writeErr(err, "route")
	}
	return route, nil
}

// DeactivateRoute hides a route without removing it
func (s *ContentService) DeactivateRoute(ctx context.Context, id int64) error {
	if _, err := s.GetRoute(ctx, id, true); err != nil {
		return err
	}
	return s.contentRepo.SetRouteActive(ctx, id, false)
}

// DeleteRoute removes a route with all of its content and progress
func (s *ContentService) DeleteRoute(ctx context.Context, id int64) error {
	if _, err := s.GetRoute(ctx, id, true); err != nil {
		return err
	}
	return s.contentRepo.DeleteRoute(ctx, id)
}

// Courses

// ListCourses returns the courses of a route in order
func (s *ContentService) ListCourses(ctx context.Context, routeID int64, includeInactive bool) ([]models.Course, error) {
	if _, err := s.GetRoute(ctx, routeID, includeInactive); err != nil {
		return nil, err
	}
	return s.contentRepo.ListCoursesByRoute(ctx, routeID, includeInactive)
}

// GetCourse returns a course. Inactive courses are hidden unless includeInactive.
func (s *ContentService) GetCourse(ctx context.Context, id int64, includeInactive bool) (*models.Course, error) {
	course, err := s.contentRepo.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if course == nil || (!course.Active && !includeInactive) {
		return nil, fmt.Errorf("%w: course %d", ErrNotFound, id)
	}
	return course, nil
}

func (s *ContentService) checkCourseOrder(ctx context.Context, routeID int64, order int, selfID int64) error {
	existing, err := s.contentRepo.GetCourseByOrder(ctx, routeID, order)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("%w: course order %d already in use in route %d", ErrConflict, order, routeID)
	}
	return nil
}

// CreateCourse adds a course to an existing route
func (s *ContentService) CreateCourse(ctx context.Context, in CourseInput) (*models.Course, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.GetRoute(ctx, in.RouteID, true); err != nil {
		return nil, err
	}
	if err := s.checkCourseOrder(ctx, in.RouteID, in.Order, 0); err != nil {
		return nil, err
	}

	course := &models.Course{
		RouteID:     in.RouteID,
		Name:        in.Name,
		Description: in.Description,
		Order:       in.Order,
		Active:      activeOr(in.Active, true),
	}
	if err := s.contentRepo.CreateCourse(ctx, course); err != nil {
		return nil, s.writeErr(err, "course")
	}
	return course, nil
}

// UpdateCourse replaces the editable fields of a course, possibly moving it
// to another route
func (s *ContentService) UpdateCourse(ctx context.Context, id int64, in CourseInput) (*models.Course, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	course, err := s.GetCourse(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if in.RouteID != course.RouteID {
		if _, err := s.GetRoute(ctx, in.RouteID, true); err != nil {
			return nil, err
		}
	}
	if in.RouteID != course.RouteID || in.Order != course.Order {
		if err := s.checkCourseOrder(ctx, in.RouteID, in.Order, id); err != nil {
			return nil, err
		}
	}

	course.RouteID = in.RouteID
	course.Name = in.Name
	course.Description = in.Description
	course.Order = in.Order
	course.Active = activeOr(in.Active, course.Active)
	if err := s.contentRepo.UpdateCourse(ctx, course); err != nil {
		return nil, s.writeErr(err, "course")
	}
	return course, nil
}

// DeactivateCourse hides a course without removing it
func (s *ContentService) DeactivateCourse(ctx context.Context, id int64) error {
	if _, err := s.GetCourse(ctx, id, true); err != nil {
		return err
	}
	return s.contentRepo.SetCourseActive(ctx, id, false)
}

// DeleteCourse removes a course with all of its content and progress
func (s *ContentService) DeleteCourse(ctx context.Context, id int64) error {
	if _, err := s.GetCourse(ctx, id, true); err != nil {
		return err
	}
	return s.contentRepo.DeleteCourse(ctx, id)
}

// Lessons

// ListLessons returns the lessons of a course in order
func (s *ContentService) ListLessons(ctx context.Context, courseID int64, includeInactive bool) ([]models.Lesson, error) {
	if _, err := s.GetCourse(ctx, courseID, includeInactive); err != nil {
		return nil, err
	}
	return s.contentRepo.ListLessonsByCourse(ctx, courseID, includeInactive)
}

// GetLesson returns a lesson. Inactive lessons are hidden unless includeInactive.
func (s *ContentService) GetLesson(ctx context.Context, id int64, includeInactive bool) (*models.Lesson, error) {
	lesson, err := s.contentRepo.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}
	if lesson == nil || (!lesson.Active && !includeInactive) {
		return nil, fmt.Errorf("%w: lesson %d", ErrNotFound, id)
	}
	return lesson, nil
}

func (s *ContentService) checkLessonOrder(ctx context.Context, courseID int64, order int, selfID int64) error {
	existing, err := s.contentRepo.GetLessonByOrder(ctx, courseID, order)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("%w: lesson order %d already in use in course %d", ErrConflict, order, courseID)
	}
	return nil
}

// CreateLesson adds a lesson to an existing course
func (s *ContentService) CreateLesson(ctx context.Context, in LessonInput) (*models.Lesson, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.GetCourse(ctx, in.CourseID, true); err != nil {
		return nil, err
	}
	if err := s.checkLessonOrder(ctx, in.CourseID, in.Order, 0); err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		CourseID:    in.CourseID,
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		ExampleCode: in.ExampleCode,
		Order:       in.Order,
		Active:      activeOr(in.Active, true),
	}
	if err := s.contentRepo.CreateLesson(ctx, lesson); err != nil {
		return nil, s.writeErr(err, "lesson")
	}
	return lesson, nil
}

// UpdateLesson replaces the editable fields of a lesson
func (s *ContentService) UpdateLesson(ctx context.Context, id int64, in LessonInput) (*models.Lesson, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	lesson, err := s.GetLesson(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if in.CourseID != lesson.CourseID {
		if _, err := s.GetCourse(ctx, in.CourseID, true); err != nil {
			return nil, err
		}
	}
	if in.CourseID != lesson.CourseID || in.Order != lesson.Order {
		if err := s.checkLessonOrder(ctx, in.CourseID, in.Order, id); err != nil {
			return nil, err
		}
	}

	lesson.CourseID = in.CourseID
	lesson.Title = in.Title
	lesson.Description = in.Description
	lesson.Content = in.Content
	lesson.ExampleCode = in.ExampleCode
	lesson.Order = in.Order
	lesson.Active = activeOr(in.Active, lesson.Active)
	if err := s.contentRepo.UpdateLesson(ctx, lesson); err != nil {
		return nil, s.writeErr(err, "lesson")
	}
	return lesson, nil
}

// DeactivateLesson hides a lesson without removing it
func (s *ContentService) DeactivateLesson(ctx context.Context, id int64) error {
	if _, err := s.GetLesson(ctx, id, true); err != nil {
		return err
	}
	return s.contentRepo.SetLessonActive(ctx, id, false)
}

// DeleteLesson removes a lesson with its practices and progress
func (s *ContentService) DeleteLesson(ctx context.Context, id int64) error {
	if _, err := s.GetLesson(ctx, id, true); err != nil {
		return err
	}
	return s.contentRepo.DeleteLesson(ctx, id)
}

// Practices

// ListPractices returns the practices of a lesson in order, with details
func (s *ContentService) ListPractices(ctx context.Context, lessonID int64, includeInactive bool) ([]models.Practice, error) {
	if _, err := s.GetLesson(ctx, lessonID, includeInactive); err != nil {
		return nil, err
	}
	return s.practiceRepo.ListPracticesByLesson(ctx, lessonID, includeInactive)
}

// ListAllPractices returns every active practice with the lesson, course and
// route it belongs to, grouped by exercise type and then by sort order.
// Parents are attached whether or not they are active.
func (s *ContentService) ListAllPractices(ctx context.Context) ([]models.PracticeOverview, error) {
	var (
		practices []models.Practice
		lessons   []models.Lesson
		courses   []models.Course
		routes    []models.Route
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		practices, err = s.practiceRepo.ListPractices(gctx, false)
		return err
	})
	g.Go(func() error {
		var err error
		lessons, err = s.contentRepo.ListLessons(gctx, true)
		return err
	})
	g.Go(func() error {
		var err error
		courses, err = s.contentRepo.ListCourses(gctx, true)
		return err
	})
	g.Go(func() error {
		var err error
		routes, err = s.contentRepo.ListRoutes(gctx, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lessonByID := make(map[int64]*models.Lesson, len(lessons))
	for i := range lessons {
		lessonByID[lessons[i].ID] = &lessons[i]
	}
	courseByID := make(map[int64]*models.Course, len(courses))
	for i := range courses {
		courseByID[courses[i].ID] = &courses[i]
	}
	routeByID := make(map[int64]*models.Route, len(routes))
	for i := range routes {
		routeByID[routes[i].ID] = &routes[i]
	}

	out := make([]models.PracticeOverview, len(practices))
	for i := range practices {
		item := models.PracticeOverview{Practice: &practices[i]}
		if item.Lesson = lessonByID[practices[i].LessonID]; item.Lesson != nil {
			if item.Course = courseByID[item.Lesson.CourseID]; item.Course != nil {
				item.Route = routeByID[item.Course.RouteID]
			}
		}
		out[i] = item
	}
	return out, nil
}

// GetPractice returns a practice with its detail. Inactive practices are
// hidden unless includeInactive.
func (s *ContentService) GetPractice(ctx context.Context, id int64, includeInactive bool) (*models.Practice, error) {
	practice, err := s.practiceRepo.GetPractice(ctx, id)
	if err != nil {
		return nil, err
	}
	if practice == nil || (!practice.Active && !includeInactive) {
		return nil, fmt.Errorf("%w: practice %d", ErrNotFound, id)
	}
	return practice, nil
}

func (s *ContentService) checkPracticeOrder(ctx context.Context, lessonID int64, order int, selfID int64) error {
	existing, err := s.practiceRepo.GetPracticeByOrder(ctx, lessonID, order)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("%w: practice order %d already in use in lesson %d", ErrConflict, order, lessonID)
	}
	return nil
}

// CreatePractice adds a practice and its detail to an existing lesson
func (s *ContentService) CreatePractice(ctx context.Context, in PracticeInput) (*models.Practice, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	detail, err := in.detail()
	if err != nil {
		return nil, err
	}
	if _, err := s.GetLesson(ctx, in.LessonID, true); err != nil {
		return nil, err
	}
	if err := s.checkPracticeOrder(ctx, in.LessonID, in.Order, 0); err != nil {
		return nil, err
	}

	practice := &models.Practice{
		LessonID:  in.LessonID,
		Type:      in.Type,
		Title:     in.Title,
		Statement: in.Statement,
		Order:     in.Order,
		Active:    activeOr(in.Active, true),
		Detail:    detail,
	}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		return s.practiceRepo.WithTx(tx).CreatePractice(ctx, practice)
	})
	if err != nil {
		return nil, s.writeErr(err, "practice")
	}
	return practice, nil
}

// UpdatePractice replaces the editable fields of a practice. The detail is
// replaced when one is supplied and kept otherwise; changing the exercise
// type requires a new detail.
func (s *ContentService) UpdatePractice(ctx context.Context, id int64, in PracticeInput) (*models.Practice, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	practice, err := s.GetPractice(ctx, id, true)
	if err != nil {
		return nil, err
	}

	var detail models.PracticeDetail
	switch {
	case in.hasDetail():
		if detail, err = in.detail(); err != nil {
			return nil, err
		}
	case in.Type != practice.Type:
		return nil, fmt.Errorf("%w: changing the exercise type requires its detail", ErrBadInput)
	}

	if in.LessonID != practice.LessonID {
		if _, err := s.GetLesson(ctx, in.LessonID, true); err != nil {
			return nil, err
		}
	}
	if in.LessonID != practice.LessonID || in.Order != practice.Order {
		if err := s.checkPracticeOrder(ctx, in.LessonID, in.Order, id); err != nil {
			return nil, err
		}
	}

	existingDetail := practice.Detail
	practice.LessonID = in.LessonID
	practice.Type = in.Type
	practice.Title = in.Title
	practice.Statement = in.Statement
	practice.Order = in.Order
	practice.Active = activeOr(in.Active, practice.Active)
	practice.Detail = detail

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		return s.practiceRepo.WithTx(tx).UpdatePractice(ctx, practice)
	})
	if err != nil {
		return nil, s.writeErr(err, "practice")
	}
	if practice.Detail == nil {
		practice.Detail = existingDetail
	}
	return practice, nil
}

// DeactivatePractice hides a practice without removing it
func (s *ContentService) DeactivatePractice(ctx context.Context, id int64) error {
	if _, err := s.GetPractice(ctx, id, true); err != nil {
		return err
	}
	return s.practiceRepo.SetPracticeActive(ctx, id, false)
}

// DeletePractice removes a practice with its detail and progress
func (s *ContentService) DeletePractice(ctx context.Context, id int64) error {
	if _, err := s.GetPractice(ctx, id, true); err != nil {
		return err
	}
	return s.practiceRepo.DeletePractice(ctx, id)
}
