package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"readu-app-go/internal/catalog"
)

// CatalogHandler serves the bundled course catalog over HTTP. The catalog is
// immutable reference data, so these endpoints are read-only and public.
type CatalogHandler struct {
	logger *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{logger: logger}
}

// ListCourses handles GET /api/v1/courses.
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	courses, err := catalog.ListCourses()
	if err != nil {
		h.logger.Error("failed to load course catalog", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load course catalog"})
		return
	}

	summaries := make([]CourseSummary, 0, len(courses))
	for i := range courses {
		course := &courses[i]
		summaries = append(summaries, CourseSummary{
			ID:           course.ID,
			Slug:         course.Slug,
			Title:        course.Title,
			CoverImage:   catalog.CoverImage(course),
			Progress:     course.Progress,
			LessonsTotal: catalog.CountLessons(course),
			Trophy:       course.Trophy,
		})
	}
	c.JSON(http.StatusOK, gin.H{"courses": summaries})
}

// GetCourse handles GET /api/v1/courses/:courseId. The parameter may be a
// course id or its slug.
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	idOrSlug := c.Param("courseId")
	course, err := catalog.GetCourse(idOrSlug)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Course not found"})
			return
		}
		h.logger.Error("failed to load course", zap.String("courseId", idOrSlug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load course"})
		return
	}
	c.JSON(http.StatusOK, course)
}
