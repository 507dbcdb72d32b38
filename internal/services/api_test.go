package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/coursex/internal/shared"
	tu "github.com/desertthunder/coursex/internal/testing"
)

func TestAPIClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("Defaults", func(t *testing.T) {
			client := NewAPIClient(ClientOpts{})

			if client.BaseURL() != DefaultBaseURL {
				t.Errorf("expected default base URL, got %s", client.BaseURL())
			}
			if client.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
			if client.Timeout() != DefaultTimeout {
				t.Errorf("expected default timeout, got %v", client.Timeout())
			}
			if client.limiter != nil {
				t.Error("expected rate limiting to be disabled")
			}
		})

		t.Run("Custom Options", func(t *testing.T) {
			custom := &http.Client{}
			client := NewAPIClient(ClientOpts{
				BaseURL:           "http://example.com/",
				HTTPClient:        custom,
				Timeout:           time.Second,
				RequestsPerSecond: 5,
			})

			if client.BaseURL() != "http://example.com" {
				t.Errorf("expected trailing slash to be trimmed, got %s", client.BaseURL())
			}
			if client.httpClient != custom {
				t.Error("expected custom client to be used")
			}
			if client.limiter == nil {
				t.Error("expected rate limiter")
			}
		})
	})

	t.Run("Request Headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
				t.Errorf("expected bearer header, got %q", got)
			}
			if got := r.Header.Get("X-Request-ID"); len(got) != 36 {
				t.Errorf("expected uuid request id, got %q", got)
			}
			if got := r.Header.Get("User-Agent"); got != "coursex/test" {
				t.Errorf("expected user agent, got %q", got)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("expected json content type, got %q", got)
			}
			tu.WriteJSON(t, w, http.StatusOK, map[string]string{"status": "ok"})
		}))
		defer server.Close()

		client := NewAPIClient(ClientOpts{BaseURL: server.URL, UserAgent: "coursex/test"})
		var out map[string]string
		err := client.do(context.Background(), request{
			method: http.MethodPost, path: "/x", endpoint: "x", token: "tok-123", body: map[string]int{"a": 1},
		}, &out)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out["status"] != "ok" {
			t.Errorf("expected decoded body, got %v", out)
		}
	})

	t.Run("Error Classification", func(t *testing.T) {
		tc := []struct {
			name    string
			status  int
			body    string
			kind    error
			message string
		}{
			{name: "Unauthorized With Detail", status: 401, body: `{"detail":"Incorrect email or password"}`, kind: shared.ErrUnauthorized, message: "Incorrect email or password"},
			{name: "Forbidden", status: 403, body: `{"detail":"Not enough permissions"}`, kind: shared.ErrUnauthorized, message: "Not enough permissions"},
			{name: "Not Found", status: 404, body: `{"detail":"Course not found"}`, kind: shared.ErrNotFound, message: "Course not found"},
			{name: "Structured Detail", status: 422, body: `{"detail":[{"loc":["body","email"],"msg":"invalid"}]}`, kind: shared.ErrValidation, message: `[{"loc":["body","email"],"msg":"invalid"}]`},
			{name: "Bad Request", status: 400, body: `{"detail":"Email already registered"}`, kind: shared.ErrValidation, message: "Email already registered"},
			{name: "Server Error Without Body", status: 500, body: ``, kind: shared.ErrService, message: "HTTP 500: Internal Server Error"},
			{name: "Non-JSON Error Body", status: 502, body: `<html>bad gateway</html>`, kind: shared.ErrService, message: "HTTP 502: Bad Gateway"},
			{name: "JSON Without Detail", status: 409, body: `{"error":"conflict"}`, kind: shared.ErrValidation, message: "HTTP 409: Conflict"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					io.WriteString(w, tt.body)
				}))
				defer server.Close()

				client := NewAPIClient(ClientOpts{BaseURL: server.URL})
				err := client.do(context.Background(), request{method: http.MethodGet, path: "/"}, nil)

				if !errors.Is(err, tt.kind) {
					t.Fatalf("expected %v, got %v", tt.kind, err)
				}
				if err.Error() != tt.message {
					t.Errorf("expected message %q, got %q", tt.message, err.Error())
				}
				if StatusCode(err) != tt.status {
					t.Errorf("expected status %d, got %d", tt.status, StatusCode(err))
				}
			})
		}
	})

	t.Run("No Content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := NewAPIClient(ClientOpts{BaseURL: server.URL})
		var out map[string]any
		if err := client.do(context.Background(), request{method: http.MethodDelete, path: "/"}, &out); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out != nil {
			t.Errorf("expected nothing decoded, got %v", out)
		}
	})

	t.Run("Unparseable Success Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "not json")
		}))
		defer server.Close()

		client := NewAPIClient(ClientOpts{BaseURL: server.URL})
		var out map[string]any
		err := client.do(context.Background(), request{method: http.MethodGet, path: "/"}, &out)
		if !errors.Is(err, shared.ErrService) {
			t.Errorf("expected ErrService, got %v", err)
		}
	})

	t.Run("Timeout Aborts Request", func(t *testing.T) {
		aborted := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
				close(aborted)
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		client := NewAPIClient(ClientOpts{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
		err := client.do(context.Background(), request{method: http.MethodGet, path: "/slow"}, nil)

		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if errors.Is(err, shared.ErrService) {
			t.Error("timeout must not be classified as a service error")
		}

		select {
		case <-aborted:
		case <-time.After(time.Second):
			t.Error("expected the server to observe the aborted request")
		}
	})

	t.Run("Caller Cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		client := NewAPIClient(ClientOpts{BaseURL: server.URL})
		err := client.do(ctx, request{method: http.MethodGet, path: "/"}, nil)

		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if errors.Is(err, shared.ErrTimeout) {
			t.Error("cancellation must not be reported as a timeout")
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		client := NewAPIClient(ClientOpts{
			BaseURL:    "http://example.com",
			HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
		})

		err := client.do(context.Background(), request{method: http.MethodGet, path: "/"}, nil)
		if !errors.Is(err, shared.ErrService) {
			t.Fatalf("expected ErrService, got %v", err)
		}
		if !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("expected transport cause in message, got %q", err.Error())
		}
	})

	t.Run("Body Read Failure", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: make(http.Header)}
		client := NewAPIClient(ClientOpts{
			BaseURL:    "http://example.com",
			HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)},
		})

		err := client.do(context.Background(), request{method: http.MethodGet, path: "/"}, nil)
		if !errors.Is(err, shared.ErrService) {
			t.Errorf("expected ErrService, got %v", err)
		}
	})

	t.Run("Observer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/missing" {
				tu.WriteDetail(t, w, http.StatusNotFound, "nope")
				return
			}
			tu.WriteJSON(t, w, http.StatusOK, map[string]int{})
		}))
		defer server.Close()

		recorder := &tu.RequestRecorder{}
		client := NewAPIClient(ClientOpts{BaseURL: server.URL, Observer: recorder})
		client.do(context.Background(), request{method: http.MethodGet, path: "/ok", endpoint: "ok"}, nil)
		client.do(context.Background(), request{method: http.MethodGet, path: "/missing", endpoint: "missing"}, nil)

		seen := recorder.Observations()
		if len(seen) != 2 {
			t.Fatalf("expected 2 observations, got %d", len(seen))
		}
		if seen[0].Endpoint != "ok" || seen[0].Outcome != "ok" {
			t.Errorf("unexpected first observation %+v", seen[0])
		}
		if seen[1].Endpoint != "missing" || seen[1].Outcome != "not_found" {
			t.Errorf("unexpected second observation %+v", seen[1])
		}
	})

	t.Run("Rate Limiter Honors Context", func(t *testing.T) {
		client := NewAPIClient(ClientOpts{BaseURL: "http://example.com", RequestsPerSecond: 1})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := client.do(ctx, request{method: http.MethodGet, path: "/"}, nil)
		if err == nil || !strings.Contains(err.Error(), "request canceled") {
			t.Errorf("expected canceled error, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Returns Non-2xx Responses", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer abc" {
					t.Errorf("expected bearer header, got %q", r.Header.Get("Authorization"))
				}
				tu.WriteDetail(t, w, http.StatusNotFound, "Course not found")
			}))
			defer server.Close()

			client := NewAPIClient(ClientOpts{BaseURL: server.URL})
			resp, err := client.Get(context.Background(), "/courses/none", "abc")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("expected 404, got %d", resp.StatusCode)
			}
			if !resp.IsJSON || resp.JSONData == nil {
				t.Error("expected JSON data to be populated")
			}
		})

		t.Run("Non-JSON Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "plain text")
			}))
			defer server.Close()

			client := NewAPIClient(ClientOpts{BaseURL: server.URL})
			resp, err := client.Get(context.Background(), "/", "")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON {
				t.Error("expected response not to be JSON")
			}
			if string(resp.Body) != "plain text" {
				t.Errorf("unexpected body %q", resp.Body)
			}
		})
	})
}
