package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
)

// TokenSource supplies the bearer token attached to rating requests, if any.
type TokenSource interface {
	AccessToken() string
}

// RatingService wraps the /courses/{id}/ratings endpoints.
type RatingService struct {
	api    *APIClient
	tokens TokenSource
}

// NewRatingService creates a [RatingService]. tokens may be nil.
func NewRatingService(api *APIClient, tokens TokenSource) *RatingService {
	return &RatingService{api: api, tokens: tokens}
}

type ratingRequest struct {
	UserID int `json:"user_id"`
	Rating int `json:"rating"`
}

func (s *RatingService) token() string {
	if s.tokens == nil {
		return ""
	}
	return s.tokens.AccessToken()
}

// Stats returns the aggregate rating for a course, normalized.
func (s *RatingService) Stats(ctx context.Context, courseID int) (models.RatingStats, error) {
	var stats models.RatingStats
	req := request{
		method:   http.MethodGet,
		path:     fmt.Sprintf("/courses/%d/ratings/stats", courseID),
		endpoint: "ratings.stats",
		token:    s.token(),
	}
	if err := s.api.do(ctx, req, &stats); err != nil {
		return models.RatingStats{}, err
	}
	return stats.Normalize(), nil
}

// UserRating returns userID's vote on a course, or nil when they have not voted.
func (s *RatingService) UserRating(ctx context.Context, courseID, userID int) (*models.UserRating, error) {
	var rating models.UserRating
	req := request{
		method:   http.MethodGet,
		path:     fmt.Sprintf("/courses/%d/ratings/users/%d", courseID, userID),
		endpoint: "ratings.user",
		token:    s.token(),
	}
	if err := s.api.do(ctx, req, &rating); err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rating, nil
}

// Create records a first vote. Values outside [models.MinRating, models.MaxRating] fail locally.
func (s *RatingService) Create(ctx context.Context, courseID, userID, rating int) error {
	path := fmt.Sprintf("/courses/%d/ratings", courseID)
	return s.write(ctx, http.MethodPost, path, "ratings.create", userID, rating)
}

// Update replaces an existing vote.
func (s *RatingService) Update(ctx context.Context, courseID, userID, rating int) error {
	path := fmt.Sprintf("/courses/%d/ratings/%d", courseID, userID)
	return s.write(ctx, http.MethodPut, path, "ratings.update", userID, rating)
}

// Delete removes userID's vote. The service answers 204.
func (s *RatingService) Delete(ctx context.Context, courseID, userID int) error {
	req := request{
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/courses/%d/ratings/%d", courseID, userID),
		endpoint: "ratings.delete",
		token:    s.token(),
	}
	return s.api.do(ctx, req, nil)
}

func (s *RatingService) write(ctx context.Context, method, path, endpoint string, userID, rating int) error {
	if !models.ValidRating(rating) {
		return shared.ErrInvalidRange
	}
	req := request{
		method:   method,
		path:     path,
		endpoint: endpoint,
		token:    s.token(),
		body:     ratingRequest{UserID: userID, Rating: rating},
	}
	return s.api.do(ctx, req, nil)
}
