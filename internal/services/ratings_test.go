package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/desertthunder/coursex/internal/shared"
	tu "github.com/desertthunder/coursex/internal/testing"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

type recordedCall struct {
	method string
	path   string
	auth   string
	body   ratingRequest
}

func newRatingServer(t *testing.T) (*httptest.Server, func() []recordedCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recordedCall
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		if r.Body != nil && r.ContentLength > 0 {
			json.NewDecoder(r.Body).Decode(&call.body)
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/courses/1/ratings/stats":
			tu.WriteJSON(t, w, http.StatusOK, map[string]any{"average_rating": 4.5, "total_ratings": 2})
		case r.Method == http.MethodGet && r.URL.Path == "/courses/2/ratings/stats":
			tu.WriteJSON(t, w, http.StatusOK, map[string]any{"average_rating": 7.0, "total_ratings": 0})
		case r.Method == http.MethodGet && r.URL.Path == "/courses/1/ratings/users/7":
			tu.WriteJSON(t, w, http.StatusOK, map[string]any{"user_id": 7, "rating": 4})
		case r.Method == http.MethodGet && r.URL.Path == "/courses/1/ratings/users/8":
			tu.WriteDetail(t, w, http.StatusNotFound, "Rating not found")
		case r.Method == http.MethodGet && r.URL.Path == "/courses/1/ratings/users/9":
			tu.WriteDetail(t, w, http.StatusInternalServerError, "boom")
		case r.Method == http.MethodPost && r.URL.Path == "/courses/1/ratings":
			tu.WriteJSON(t, w, http.StatusCreated, map[string]any{"user_id": call.body.UserID, "rating": call.body.Rating})
		case r.Method == http.MethodPut && r.URL.Path == "/courses/1/ratings/7":
			tu.WriteJSON(t, w, http.StatusOK, map[string]any{"user_id": 7, "rating": call.body.Rating})
		case r.Method == http.MethodDelete && r.URL.Path == "/courses/1/ratings/7":
			w.WriteHeader(http.StatusNoContent)
		default:
			tu.WriteDetail(t, w, http.StatusNotFound, "Not Found")
		}
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedCall(nil), calls...)
	}
}

func TestRatingService(t *testing.T) {
	server, calls := newRatingServer(t)
	svc := NewRatingService(NewAPIClient(ClientOpts{BaseURL: server.URL}), staticToken("tok-1"))
	ctx := context.Background()

	t.Run("Stats", func(t *testing.T) {
		t.Run("Returns Aggregate", func(t *testing.T) {
			stats, err := svc.Stats(ctx, 1)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if stats.AverageRating != 4.5 || stats.TotalRatings != 2 {
				t.Errorf("unexpected stats %+v", stats)
			}
		})

		t.Run("Normalizes Inconsistent Aggregate", func(t *testing.T) {
			stats, err := svc.Stats(ctx, 2)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if stats.AverageRating != 0 || stats.TotalRatings != 0 {
				t.Errorf("expected zero stats, got %+v", stats)
			}
		})
	})

	t.Run("UserRating", func(t *testing.T) {
		t.Run("Existing Vote", func(t *testing.T) {
			rating, err := svc.UserRating(ctx, 1, 7)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if rating == nil || rating.Rating != 4 {
				t.Errorf("expected rating 4, got %+v", rating)
			}
		})

		t.Run("No Vote", func(t *testing.T) {
			rating, err := svc.UserRating(ctx, 1, 8)
			if err != nil {
				t.Fatalf("expected 404 to mean absence, got %v", err)
			}
			if rating != nil {
				t.Errorf("expected nil rating, got %+v", rating)
			}
		})

		t.Run("Service Failure", func(t *testing.T) {
			if _, err := svc.UserRating(ctx, 1, 9); !errors.Is(err, shared.ErrService) {
				t.Errorf("expected ErrService, got %v", err)
			}
		})
	})

	t.Run("Writes", func(t *testing.T) {
		if err := svc.Create(ctx, 1, 7, 5); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if err := svc.Update(ctx, 1, 7, 3); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if err := svc.Delete(ctx, 1, 7); err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		var writes []recordedCall
		for _, c := range calls() {
			if c.method != http.MethodGet {
				writes = append(writes, c)
			}
		}
		if len(writes) != 3 {
			t.Fatalf("expected 3 write calls, got %d", len(writes))
		}
		if writes[0].method != http.MethodPost || writes[0].body.UserID != 7 || writes[0].body.Rating != 5 {
			t.Errorf("unexpected create call %+v", writes[0])
		}
		if writes[1].method != http.MethodPut || writes[1].path != "/courses/1/ratings/7" || writes[1].body.Rating != 3 {
			t.Errorf("unexpected update call %+v", writes[1])
		}
		if writes[2].method != http.MethodDelete || writes[2].path != "/courses/1/ratings/7" {
			t.Errorf("unexpected delete call %+v", writes[2])
		}
		for _, w := range writes {
			if w.auth != "Bearer tok-1" {
				t.Errorf("expected bearer token on %s, got %q", w.method, w.auth)
			}
		}
	})

	t.Run("Out Of Range Makes No Request", func(t *testing.T) {
		before := len(calls())
		for _, r := range []int{0, 6, -1} {
			if err := svc.Create(ctx, 1, 7, r); !errors.Is(err, shared.ErrInvalidRange) {
				t.Errorf("expected ErrInvalidRange for %d, got %v", r, err)
			}
			if err := svc.Update(ctx, 1, 7, r); !errors.Is(err, shared.ErrInvalidRange) {
				t.Errorf("expected ErrInvalidRange for %d, got %v", r, err)
			}
		}
		if after := len(calls()); after != before {
			t.Errorf("expected no requests, got %d", after-before)
		}
	})

	t.Run("Without Token Source", func(t *testing.T) {
		anon := NewRatingService(NewAPIClient(ClientOpts{BaseURL: server.URL}), nil)
		if _, err := anon.Stats(ctx, 1); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		all := calls()
		if last := all[len(all)-1]; last.auth != "" {
			t.Errorf("expected no authorization header, got %q", last.auth)
		}
	})
}
