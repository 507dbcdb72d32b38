package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/coursex/internal/models"
)

// CatalogService wraps the read-only course and class endpoints.
type CatalogService struct {
	api *APIClient
}

// NewCatalogService creates a [CatalogService].
func NewCatalogService(api *APIClient) *CatalogService {
	return &CatalogService{api: api}
}

// Courses lists every published course with its rating aggregate.
func (s *CatalogService) Courses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	req := request{method: http.MethodGet, path: "/courses", endpoint: "catalog.courses"}
	if err := s.api.do(ctx, req, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// Course returns a course with its classes and teachers.
func (s *CatalogService) Course(ctx context.Context, slug string) (*models.CourseDetail, error) {
	var detail models.CourseDetail
	req := request{
		method:   http.MethodGet,
		path:     "/courses/" + url.PathEscape(slug),
		endpoint: "catalog.course",
	}
	if err := s.api.do(ctx, req, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Class returns a single class, including its video URL.
func (s *CatalogService) Class(ctx context.Context, id int) (*models.Class, error) {
	var class models.Class
	req := request{
		method:   http.MethodGet,
		path:     fmt.Sprintf("/classes/%d", id),
		endpoint: "catalog.class",
	}
	if err := s.api.do(ctx, req, &class); err != nil {
		return nil, err
	}
	return &class, nil
}
