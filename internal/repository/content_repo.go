package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"learnpath/internal/database"
	"learnpath/internal/models"
)

// ContentRepository handles routes, courses and lessons
type ContentRepository struct {
	db database.DBTX
}

// NewContentRepository creates a new content repository
func NewContentRepository(db database.DBTX) *ContentRepository {
	return &ContentRepository{db: db}
}

// WithTx returns a repository that runs its queries inside tx
func (r *ContentRepository) WithTx(tx *database.Tx) *ContentRepository {
	return &ContentRepository{db: tx}
}

func activeFilter(includeInactive bool) string {
	if includeInactive {
		return ""
	}
	return " AND active = ?"
}

func activeArgs(includeInactive bool, args ...interface{}) []interface{} {
	if includeInactive {
		return args
	}
	return append(args, true)
}

func (r *ContentRepository) setActive(ctx context.Context, table string, id int64, active bool) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE "+table+" SET active = ? WHERE id = ?", active, id); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return nil
}

func (r *ContentRepository) deleteRow(ctx context.Context, table string, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// Routes

const routeColumns = "id, name, description, sort_order, active, created_at"

func scanRoute(row rowScanner) (*models.Route, error) {
	route := &models.Route{}
	err := row.Scan(&route.ID, &route.Name, &route.Description, &route.Order, &route.Active, &route.CreatedAt)
	return route, err
}

// ListRoutes returns routes ordered by their sort order
func (r *ContentRepository) ListRoutes(ctx context.Context, includeInactive bool) ([]models.Route, error) {
	query := "SELECT " + routeColumns + " FROM routes WHERE 1 = 1" + activeFilter(includeInactive) + " ORDER BY sort_order"
	rows, err := r.db.QueryContext(ctx, query, activeArgs(includeInactive)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var routes []models.Route
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		routes = append(routes, *route)
	}
	return routes, rows.Err()
}

func (r *ContentRepository) getRoute(ctx context.Context, where string, args ...interface{}) (*models.Route, error) {
	route, err := scanRoute(r.db.QueryRowContext(ctx, "SELECT "+routeColumns+" FROM routes WHERE "+where, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return route, nil
}

// GetRoute retrieves a route by ID
func (r *ContentRepository) GetRoute(ctx context.Context, id int64) (*models.Route, error) {
	return r.getRoute(ctx, "id = ?", id)
}

// GetRouteByOrder retrieves the route holding a sort order
func (r *ContentRepository) GetRouteByOrder(ctx context.Context, order int) (*models.Route, error) {
	return r.getRoute(ctx, "sort_order = ?", order)
}

// CreateRoute inserts route and fills in its ID and creation time
func (r *ContentRepository) CreateRoute(ctx context.Context, route *models.Route) error {
	route.CreatedAt = time.Now().UTC()
	query := "INSERT INTO routes (name, description, sort_order, active, created_at) VALUES (?, ?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, route.Name, route.Description, route.Order, route.Active, route.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create route: %w", err)
	}
	route.ID = id
	return nil
}

// UpdateRoute saves the editable route fields
func (r *ContentRepository) UpdateRoute(ctx context.Context, route *models.Route) error {
	query := "UPDATE routes SET name = ?, description = ?, sort_order = ?, active = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, route.Name, route.Description, route.Order, route.Active, route.ID); err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}
	return nil
}

// SetRouteActive toggles the active flag
func (r *ContentRepository) SetRouteActive(ctx context.Context, id int64, active bool) error {
	return r.setActive(ctx, "routes", id, active)
}

// DeleteRoute removes a route and, by cascade, everything below it
func (r *ContentRepository) DeleteRoute(ctx context.Context, id int64) error {
	return r.deleteRow(ctx, "routes", id)
}

// Courses

const courseColumns = "id, route_id, name, description, sort_order, active, created_at"

func scanCourse(row rowScanner) (*models.Course, error) {
	course := &models.Course{}
	err := row.Scan(&course.ID, &course.RouteID, &course.Name, &course.Description, &course.Order, &course.Active, &course.CreatedAt)
	return course, err
}

func (r *ContentRepository) queryCourses(ctx context.Context, query string, args ...interface{}) ([]models.Course, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, *course)
	}
	return courses, rows.Err()
}

// ListCoursesByRoute returns the courses of a route ordered by sort order
func (r *ContentRepository) ListCoursesByRoute(ctx context.Context, routeID int64, includeInactive bool) ([]models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses WHERE route_id = ?" + activeFilter(includeInactive) + " ORDER BY sort_order"
	return r.queryCourses(ctx, query, activeArgs(includeInactive, routeID)...)
}

// ListCourses returns every course ordered by route then sort order
func (r *ContentRepository) ListCourses(ctx context.Context, includeInactive bool) ([]models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses WHERE 1 = 1" + activeFilter(includeInactive) + " ORDER BY route_id, sort_order"
	return r.queryCourses(ctx, query, activeArgs(includeInactive)...)
}

func (r *ContentRepository) getCourse(ctx context.Context, where string, args ...interface{}) (*models.Course, error) {
	course, err := scanCourse(r.db.QueryRowContext(ctx, "SELECT "+courseColumns+" FROM courses WHERE "+where, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

// GetCourse retrieves a course by ID
func (r *ContentRepository) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	return r.getCourse(ctx, "id = ?", id)
}

// GetCourseByOrder retrieves the course of a route holding a sort order
func (r *ContentRepository) GetCourseByOrder(ctx context.Context, routeID int64, order int) (*models.Course, error) {
	return r.getCourse(ctx, "route_id = ? AND sort_order = ?", routeID, order)
}

// CreateCourse inserts course and fills in its ID and creation time
func (r *ContentRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	course.CreatedAt = time.Now().UTC()
	query := "INSERT INTO courses (route_id, name, description, sort_order, active, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, course.RouteID, course.Name, course.Description, course.Order, course.Active, course.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	course.ID = id
	return nil
}

// UpdateCourse saves the editable course fields
func (r *ContentRepository) UpdateCourse(ctx context.Context, course *models.Course) error {
	query := "UPDATE courses SET route_id = ?, name = ?, description = ?, sort_order = ?, active = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, course.RouteID, course.Name, course.Description, course.Order, course.Active, course.ID); err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	return nil
}

// SetCourseActive toggles the active flag
func (r *ContentRepository) SetCourseActive(ctx context.Context, id int64, active bool) error {
	return r.setActive(ctx, "courses", id, active)
}

// DeleteCourse removes a course and everything below it
func (r *ContentRepository) DeleteCourse(ctx context.Context, id int64) error {
	return r.deleteRow(ctx, "courses", id)
}

// Lessons

const lessonColumns = "id, course_id, title, description, content, example_code, sort_order, active, created_at"

func scanLesson(row rowScanner) (*models.Lesson, error) {
	lesson := &models.Lesson{}
	err := row.Scan(&lesson.ID, &lesson.CourseID, &lesson.Title, &lesson.Description, &lesson.Content,
		&lesson.ExampleCode, &lesson.Order, &lesson.Active, &lesson.CreatedAt)
	return lesson, err
}

func (r *ContentRepository) queryLessons(ctx context.Context, query string, args ...interface{}) ([]models.Lesson, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var lessons []models.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, *lesson)
	}
	return lessons, rows.Err()
}

// ListLessonsByCourse returns the lessons of a course ordered by sort order
func (r *ContentRepository) ListLessonsByCourse(ctx context.Context, courseID int64, includeInactive bool) ([]models.Lesson, error) {
	query := "SELECT " + lessonColumns + " FROM lessons WHERE course_id = ?" + activeFilter(includeInactive) + " ORDER BY sort_order"
	return r.queryLessons(ctx, query, activeArgs(includeInactive, courseID)...)
}

// ListLessons returns every lesson
func (r *ContentRepository) ListLessons(ctx context.Context, includeInactive bool) ([]models.Lesson, error) {
	query := "SELECT " + lessonColumns + " FROM lessons WHERE 1 = 1" + activeFilter(includeInactive) + " ORDER BY course_id, sort_order"
	return r.queryLessons(ctx, query, activeArgs(includeInactive)...)
}

func (r *ContentRepository) getLesson(ctx context.Context, where string, args ...interface{}) (*models.Lesson, error) {
	lesson, err := scanLesson(r.db.QueryRowContext(ctx, "SELECT "+lessonColumns+" FROM lessons WHERE "+where, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return lesson, nil
}

// GetLesson retrieves a lesson by ID
func (r *ContentRepository) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	return r.getLesson(ctx, "id = ?", id)
}

// GetLessonByOrder retrieves the lesson of a course holding a sort order
func (r *ContentRepository) GetLessonByOrder(ctx context.Context, courseID int64, order int) (*models.Lesson, error) {
	return r.getLesson(ctx, "course_id = ? AND sort_order = ?", courseID, order)
}

// CreateLesson inserts lesson and fills in its ID and creation time
func (r *ContentRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	lesson.CreatedAt = time.Now().UTC()
	query := `
		INSERT INTO lessons (course_id, title, description, content, example_code, sort_order, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, lesson.CourseID, lesson.Title, lesson.Description, lesson.Content,
		lesson.ExampleCode, lesson.Order, lesson.Active, lesson.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	lesson.ID = id
	return nil
}

// UpdateLesson saves the editable lesson fields
func (r *ContentRepository) UpdateLesson(ctx context.Context, lesson *models.Lesson) error {
	query := `
		UPDATE lessons
		SET course_id = ?, title = ?, description = ?, content = ?, example_code = ?, sort_order = ?, active = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query, lesson.CourseID, lesson.Title, lesson.Description, lesson.Content,
		lesson.ExampleCode, lesson.Order, lesson.Active, lesson.ID)
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	return nil
}

// SetLessonActive toggles the active flag
func (r *ContentRepository) SetLessonActive(ctx context.Context, id int64, active bool) error {
	return r.setActive(ctx, "lessons", id, active)
}

// DeleteLesson removes a lesson and its practices
func (r *ContentRepository) DeleteLesson(ctx context.Context, id int64) error {
	return r.deleteRow(ctx, "lessons", id)
}
