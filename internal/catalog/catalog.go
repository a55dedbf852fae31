// Package catalog is a read-only lookup over the bundled course dataset.
// The dataset is parsed once and never mutated at runtime.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

//go:embed courses.json
var coursesJSON []byte

// ErrNotFound is returned when no course matches the requested id or slug.
var ErrNotFound = errors.New("course not found")

// DefaultCoverImage is used for courses with no bundled cover of their own.
const DefaultCoverImage = "assets/images/readu-test-card.jpg"

// LessonStatus is the completion/lock state of a lesson.
type LessonStatus string

const (
	LessonLocked    LessonStatus = "locked"
	LessonUnlocked  LessonStatus = "unlocked"
	LessonCurrent   LessonStatus = "current"
	LessonCompleted LessonStatus = "completed"
)

// Lesson is a single exercise screen within a module.
type Lesson struct {
	ID     string       `json:"id"`
	Title  string       `json:"title"`
	Stars  int          `json:"stars"` // 0..5
	Status LessonStatus `json:"status"`
	Color  string       `json:"color,omitempty"`
}

// Module groups lessons within a course.
type Module struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Lessons     []Lesson `json:"lessons"`
}

// Course is a top-level entry in the catalog.
type Course struct {
	ID              string   `json:"id"`
	Slug            string   `json:"slug"`
	Title           string   `json:"title"`
	CoverImage      string   `json:"coverImage"`
	BackgroundImage string   `json:"backgroundImage,omitempty"`
	Progress        float64  `json:"progress"` // 0..1
	LessonsTotal    int      `json:"lessonsTotal,omitempty"`
	Trophy          bool     `json:"trophy,omitempty"`
	Modules         []Module `json:"modules"`
}

type db struct {
	Courses []Course `json:"courses"`
}

var (
	loadOnce sync.Once
	loaded   db
	loadErr  error
)

func load() (*db, error) {
	loadOnce.Do(func() {
		if err := json.Unmarshal(coursesJSON, &loaded); err != nil {
			loadErr = fmt.Errorf("catalog: failed to parse bundled courses: %w", err)
		}
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return &loaded, nil
}

// ListCourses returns all courses in catalog order.
func ListCourses() ([]Course, error) {
	d, err := load()
	if err != nil {
		return nil, err
	}
	out := make([]Course, len(d.Courses))
	copy(out, d.Courses)
	return out, nil
}

// GetCourse returns the course whose id or slug matches. Unknown values
// yield ErrNotFound.
func GetCourse(idOrSlug string) (*Course, error) {
	d, err := load()
	if err != nil {
		return nil, err
	}
	for i := range d.Courses {
		c := &d.Courses[i]
		if c.ID == idOrSlug || c.Slug == idOrSlug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, idOrSlug)
}

// CountLessons returns the total number of lessons across a course's modules.
func CountLessons(c *Course) int {
	if c == nil {
		return 0
	}
	total := 0
	for _, m := range c.Modules {
		total += len(m.Lessons)
	}
	return total
}

// CoverImage resolves a course's cover asset, falling back to the default
// card for courses that ship without one.
func CoverImage(c *Course) string {
	if c == nil || c.CoverImage == "" {
		return DefaultCoverImage
	}
	return c.CoverImage
}
