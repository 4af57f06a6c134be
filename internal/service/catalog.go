package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"learnpath/internal/models"
)

// Catalog is a portable snapshot of the content tree. IDs are informational
// on import; new rows get new IDs.
type Catalog struct {
	Routes []CatalogRoute `json:"rutas" yaml:"rutas"`
}

type CatalogRoute struct {
	ID         int64 `json:"id,omitempty" yaml:"id,omitempty"`
	RouteInput `yaml:",inline"`
	Courses    []CatalogCourse `json:"cursos,omitempty" yaml:"cursos,omitempty"`
}

type CatalogCourse struct {
	ID          int64 `json:"id,omitempty" yaml:"id,omitempty"`
	CourseInput `yaml:",inline"`
	Lessons     []CatalogLesson `json:"lecciones,omitempty" yaml:"lecciones,omitempty"`
}

type CatalogLesson struct {
	ID          int64 `json:"id,omitempty" yaml:"id,omitempty"`
	LessonInput `yaml:",inline"`
	Practices   []CatalogPractice `json:"practicas,omitempty" yaml:"practicas,omitempty"`
}

type CatalogPractice struct {
	ID            int64 `json:"id,omitempty" yaml:"id,omitempty"`
	PracticeInput `yaml:",inline"`
}

// ImportResult maps catalog IDs to the IDs created by an import
type ImportResult struct {
	Routes    map[int64]int64
	Courses   map[int64]int64
	Lessons   map[int64]int64
	Practices map[int64]int64
}

func newImportResult() *ImportResult {
	return &ImportResult{
		Routes:    make(map[int64]int64),
		Courses:   make(map[int64]int64),
		Lessons:   make(map[int64]int64),
		Practices: make(map[int64]int64),
	}
}

// ImportCatalog creates every route, course, lesson and practice of cat
// through the regular content rules. It stops at the first failure.
func (s *ContentService) ImportCatalog(ctx context.Context, cat *Catalog) (*ImportResult, error) {
	result := newImportResult()
	var courses, lessons, practices int

	for _, cr := range cat.Routes {
		route, err := s.CreateRoute(ctx, cr.RouteInput)
		if err != nil {
			return result, fmt.Errorf("route %q: %w", cr.Name, err)
		}
		if cr.ID != 0 {
			result.Routes[cr.ID] = route.ID
		}

		for _, cc := range cr.Courses {
			in := cc.CourseInput
			in.RouteID = route.ID
			course, err := s.CreateCourse(ctx, in)
			if err != nil {
				return result, fmt.Errorf("course %q: %w", cc.Name, err)
			}
			courses++
			if cc.ID != 0 {
				result.Courses[cc.ID] = course.ID
			}

			for _, cl := range cc.Lessons {
				in := cl.LessonInput
				in.CourseID = course.ID
				lesson, err := s.CreateLesson(ctx, in)
				if err != nil {
					return result, fmt.Errorf("lesson %q: %w", cl.Title, err)
				}
				lessons++
				if cl.ID != 0 {
					result.Lessons[cl.ID] = lesson.ID
				}

				for _, cp := range cl.Practices {
					in := cp.PracticeInput
					in.LessonID = lesson.ID
					practice, err := s.CreatePractice(ctx, in)
					if err != nil {
						return result, fmt.Errorf("practice %q: %w", cp.Title, err)
					}
					practices++
					if cp.ID != 0 {
						result.Practices[cp.ID] = practice.ID
					}
				}
			}
		}
	}

	log.Printf("Catalog imported: %d routes, %d courses, %d lessons, %d practices",
		len(cat.Routes), courses, lessons, practices)
	return result, nil
}

// ExportCatalog snapshots the whole content tree, inactive rows included
func (s *ContentService) ExportCatalog(ctx context.Context) (*Catalog, error) {
	routes, err := s.contentRepo.ListRoutes(ctx, true)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{Routes: make([]CatalogRoute, 0, len(routes))}
	for _, r := range routes {
		active := r.Active
		cr := CatalogRoute{
			ID:         r.ID,
			RouteInput: RouteInput{Name: r.Name, Description: r.Description, Order: r.Order, Active: &active},
		}

		courses, err := s.contentRepo.ListCoursesByRoute(ctx, r.ID, true)
		if err != nil {
			return nil, err
		}
		for _, c := range courses {
			active := c.Active
			cc := CatalogCourse{
				ID:          c.ID,
				CourseInput: CourseInput{RouteID: c.RouteID, Name: c.Name, Description: c.Description, Order: c.Order, Active: &active},
			}

			lessons, err := s.contentRepo.ListLessonsByCourse(ctx, c.ID, true)
			if err != nil {
				return nil, err
			}
			for _, l := range lessons {
				active := l.Active
				cl := CatalogLesson{
					ID: l.ID,
					LessonInput: LessonInput{
						CourseID:    l.CourseID,
						Title:       l.Title,
						Description: l.Description,
						Content:     l.Content,
						ExampleCode: l.ExampleCode,
						Order:       l.Order,
						Active:      &active,
					},
				}

				practices, err := s.practiceRepo.ListPracticesByLesson(ctx, l.ID, true)
				if err != nil {
					return nil, err
				}
				for i := range practices {
					cl.Practices = append(cl.Practices, CatalogPractice{ID: practices[i].ID, PracticeInput: practiceInputFrom(&practices[i])})
				}
				cc.Lessons = append(cc.Lessons, cl)
			}
			cr.Courses = append(cr.Courses, cc)
		}
		cat.Routes = append(cat.Routes, cr)
	}
	return cat, nil
}

func practiceInputFrom(p *models.Practice) PracticeInput {
	active := p.Active
	in := PracticeInput{
		LessonID:  p.LessonID,
		Type:      p.Type,
		Title:     p.Title,
		Statement: p.Statement,
		Order:     p.Order,
		Active:    &active,
	}

	switch d := p.Detail.(type) {
	case *models.OptionSet:
		for _, o := range d.Options {
			in.Options = append(in.Options, OptionInput{Text: o.Text, IsCorrect: o.IsCorrect, Order: o.Order, Explanation: o.Explanation})
		}
	case *models.BlockSet:
		for _, b := range d.Blocks {
			in.Blocks = append(in.Blocks, BlockInput{
				BaseCode:        b.BaseCode,
				DisplayOrder:    b.DisplayOrder,
				Text:            b.Text,
				CorrectPosition: b.CorrectPosition,
				IsDistractor:    b.IsDistractor,
			})
		}
	case *models.CodeSpec:
		in.Code = &CodeInput{BaseCode: d.BaseCode, ExpectedSolution: d.ExpectedSolution, TestCases: d.TestCases, Hint: d.Hint}
	}
	return in
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// decodeFile reads path into v as YAML or JSON depending on its extension
func decodeFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if isYAMLPath(path) {
		err = yaml.Unmarshal(data, v)
	} else {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// encodeFile writes v to path as YAML or JSON depending on its extension
func encodeFile(path string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if isYAMLPath(path) {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadCatalogFile reads a catalog from a .yaml/.yml or JSON file
func LoadCatalogFile(path string) (*Catalog, error) {
	var cat Catalog
	if err := decodeFile(path, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// WriteCatalogFile writes cat as YAML or JSON depending on the extension
func WriteCatalogFile(path string, cat *Catalog) error {
	return encodeFile(path, cat)
}
