package models

import (
	"math"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// User is the account record returned by the service.
type User struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Teacher is a course instructor.
type Teacher struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Course is a catalog entry. Rating fields are only filled by endpoints that include them.
type Course struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Thumbnail     string   `json:"thumbnail"`
	Slug          string   `json:"slug"`
	AverageRating *float64 `json:"average_rating,omitempty"`
	TotalRatings  *int     `json:"total_ratings,omitempty"`
}

// Stats returns the course's embedded rating aggregate, zero when absent.
func (c Course) Stats() RatingStats {
	var s RatingStats
	if c.AverageRating != nil {
		s.AverageRating = *c.AverageRating
	}
	if c.TotalRatings != nil {
		s.TotalRatings = *c.TotalRatings
	}
	return s.Normalize()
}

// Class is a single video lesson of a course.
type Class struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Video       string `json:"video"`
	Duration    *int   `json:"duration,omitempty"` // seconds
	Slug        string `json:"slug"`
	CourseID    *int   `json:"course_id,omitempty"`
	CourseSlug  string `json:"course_slug,omitempty"`
}

// CourseDetail is a course with its classes and teachers.
type CourseDetail struct {
	Course
	Classes  []Class   `json:"classes"`
	Teachers []Teacher `json:"teachers,omitempty"`
}

// RatingStats is the course-level aggregate of all votes.
type RatingStats struct {
	AverageRating float64 `json:"average_rating"`
	TotalRatings  int     `json:"total_ratings"`
}

// Normalize clamps the aggregate into its valid domain: a non-negative count,
// an average in [0, 5], and a zero average whenever there are no ratings.
func (s RatingStats) Normalize() RatingStats {
	if s.TotalRatings <= 0 || math.IsNaN(s.AverageRating) {
		return RatingStats{}
	}
	s.AverageRating = math.Max(0, math.Min(MaxRating, s.AverageRating))
	return s
}

// UserRating is one user's vote for a course.
type UserRating struct {
	UserID int `json:"user_id"`
	Rating int `json:"rating"`
}

// ValidRating reports whether r is an allowed vote.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// CourseExport is a course snapshot written by the exporters.
type CourseExport struct {
	Course     CourseDetail `json:"course"`
	Stats      RatingStats  `json:"stats"`
	UserVote   int          `json:"user_vote,omitempty"`
	ExportedAt time.Time    `json:"exported_at"`
}

// TotalDuration sums the known class durations, in seconds.
func (e CourseExport) TotalDuration() int {
	total := 0
	for _, c := range e.Course.Classes {
		if c.Duration != nil {
			total += *c.Duration
		}
	}
	return total
}
