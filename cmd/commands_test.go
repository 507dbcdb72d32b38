package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/session"
	"github.com/desertthunder/coursex/internal/shared"
	tu "github.com/desertthunder/coursex/internal/testing"
	"github.com/urfave/cli/v3"
)

const testToken = "tok-ada"

func quietLogger() *log.Logger {
	return shared.NewLogger(&bytes.Buffer{})
}

type fakePrompter struct {
	creds     Credentials
	confirm   bool
	err       error
	prompted  int
	confirmed int
}

func (p *fakePrompter) Credentials(_ context.Context, creds Credentials, withName bool) (Credentials, error) {
	p.prompted++
	if p.err != nil {
		return creds, p.err
	}
	if creds.Email == "" {
		creds.Email = p.creds.Email
	}
	if creds.Password == "" {
		creds.Password = p.creds.Password
	}
	if withName && creds.FullName == "" {
		creds.FullName = p.creds.FullName
	}
	return creds, nil
}

func (p *fakePrompter) Confirm(context.Context, string) (bool, error) {
	p.confirmed++
	return p.confirm, p.err
}

// courseService is an in-memory stand-in for the remote course API.
type courseService struct {
	t     *testing.T
	mu    sync.Mutex
	users map[string]string // email -> password
	votes map[int]int       // user id -> vote on course 1
}

func newCourseService(t *testing.T) (*courseService, *httptest.Server) {
	s := &courseService{
		t:     t,
		users: map[string]string{"ada@example.com": "secret"},
		votes: map[int]int{2: 4, 3: 4},
	}
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *courseService) vote(userID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.votes[userID]
}

func (s *courseService) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+testToken
}

func (s *courseService) stats() models.RatingStats {
	var sum, n int
	for _, v := range s.votes {
		sum += v
		n++
	}
	if n == 0 {
		return models.RatingStats{}
	}
	return models.RatingStats{AverageRating: float64(sum) / float64(n), TotalRatings: n}
}

func testCourse() models.CourseDetail {
	avg, total := 4.0, 2
	duration := 90
	courseID := 1
	return models.CourseDetail{
		Course: models.Course{ID: 1, Name: "Go Basics", Slug: "go-basics", Description: "Learn Go", AverageRating: &avg, TotalRatings: &total},
		Classes: []models.Class{
			{ID: 10, Name: "Setup", Slug: "setup", Duration: &duration, CourseID: &courseID},
			{ID: 11, Name: "Intro", Slug: "intro", Video: "https://cdn.example.com/intro.mp4", CourseID: &courseID},
		},
		Teachers: []models.Teacher{{ID: 1, Name: "Rob"}},
	}
}

func (s *courseService) routes() http.Handler {
	t := s.t
	ada := models.User{ID: 7, Email: "ada@example.com", FullName: "Ada Lovelace", IsActive: true}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		pw, ok := s.users[body.Email]
		s.mu.Unlock()
		if !ok || pw != body.Password {
			tu.WriteDetail(t, w, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		tu.WriteJSON(t, w, http.StatusOK, map[string]string{"access_token": testToken, "token_type": "bearer"})
	})

	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			FullName string `json:"full_name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.users[body.Email]; exists {
			tu.WriteDetail(t, w, http.StatusBadRequest, "Email already registered")
			return
		}
		s.users[body.Email] = body.Password
		tu.WriteJSON(t, w, http.StatusOK, models.User{ID: 8, Email: body.Email, FullName: body.FullName})
	})

	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			tu.WriteDetail(t, w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		tu.WriteJSON(t, w, http.StatusOK, ada)
	})

	mux.HandleFunc("GET /courses", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(t, w, http.StatusOK, []models.Course{testCourse().Course})
	})

	mux.HandleFunc("GET /courses/{slug}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("slug") != "go-basics" {
			tu.WriteDetail(t, w, http.StatusNotFound, "Course not found")
			return
		}
		tu.WriteJSON(t, w, http.StatusOK, testCourse())
	})

	mux.HandleFunc("GET /classes/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, c := range testCourse().Classes {
			if strconv.Itoa(c.ID) == r.PathValue("id") {
				tu.WriteJSON(t, w, http.StatusOK, c)
				return
			}
		}
		tu.WriteDetail(t, w, http.StatusNotFound, "Class not found")
	})

	mux.HandleFunc("GET /courses/{id}/ratings/stats", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		tu.WriteJSON(t, w, http.StatusOK, s.stats())
	})

	mux.HandleFunc("GET /courses/{id}/ratings/users/{uid}", func(w http.ResponseWriter, r *http.Request) {
		uid, _ := strconv.Atoi(r.PathValue("uid"))
		s.mu.Lock()
		defer s.mu.Unlock()
		v, ok := s.votes[uid]
		if !ok {
			tu.WriteDetail(t, w, http.StatusNotFound, "Rating not found")
			return
		}
		tu.WriteJSON(t, w, http.StatusOK, models.UserRating{UserID: uid, Rating: v})
	})

	write := func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			tu.WriteDetail(t, w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		var body models.UserRating
		json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.votes[body.UserID] = body.Rating
		s.mu.Unlock()
		tu.WriteJSON(t, w, http.StatusOK, body)
	}
	mux.HandleFunc("POST /courses/{id}/ratings", write)
	mux.HandleFunc("PUT /courses/{id}/ratings/{uid}", write)

	mux.HandleFunc("DELETE /courses/{id}/ratings/{uid}", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			tu.WriteDetail(t, w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		uid, _ := strconv.Atoi(r.PathValue("uid"))
		s.mu.Lock()
		delete(s.votes, uid)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

type testEnv struct {
	runner   *Runner
	output   *bytes.Buffer
	service  *courseService
	store    *session.MemoryStore
	prompter *fakePrompter
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	service, srv := newCourseService(t)

	config := shared.DefaultConfig()
	config.API.BaseURL = srv.URL
	config.Ratings.SuccessResetMS = 60000

	store := session.NewMemoryStore()
	if token != "" {
		store.Save(token)
	}
	env := &testEnv{
		output:   &bytes.Buffer{},
		service:  service,
		store:    store,
		prompter: &fakePrompter{},
	}
	env.runner = NewRunner(RunnerOpts{
		Config:   config,
		Logger:   quietLogger(),
		Output:   env.output,
		Store:    store,
		Prompter: env.prompter,
	})
	t.Cleanup(func() { env.runner.Close() })
	return env
}

func (e *testEnv) run(args ...string) error {
	app := &cli.Command{Name: "coursex", Commands: e.runner.register()}
	return app.Run(context.Background(), append([]string{"coursex"}, args...))
}

func TestAuthCommands(t *testing.T) {
	t.Run("login with flags", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("auth", "login", "--email", "ada@example.com", "--password", "secret"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "Signed in as Ada Lovelace <ada@example.com>") {
			t.Errorf("unexpected output %q", env.output.String())
		}
		if token, ok := env.store.Read(); !ok || token != testToken {
			t.Errorf("expected token to be stored, got %q", token)
		}
		if env.prompter.prompted != 0 {
			t.Error("expected no prompt when flags are complete")
		}
	})

	t.Run("login prompts for missing credentials", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.prompter.creds = Credentials{Password: "secret"}

		if err := env.run("auth", "login", "--email", "ada@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.prompter.prompted != 1 {
			t.Errorf("expected one prompt, got %d", env.prompter.prompted)
		}
	})

	t.Run("login failure leaves session anonymous", func(t *testing.T) {
		env := newTestEnv(t, "")

		err := env.run("auth", "login", "-e", "ada@example.com", "-p", "wrong")
		if !errors.Is(err, shared.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if !strings.Contains(err.Error(), "Incorrect email or password") {
			t.Errorf("expected service message, got %v", err)
		}
		snap := env.runner.session.Snapshot()
		if snap.Authenticated() || snap.LastError != "Incorrect email or password" {
			t.Errorf("unexpected snapshot %+v", snap)
		}
		if _, ok := env.store.Read(); ok {
			t.Error("expected store to be cleared")
		}
	})

	t.Run("aborted prompt", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.prompter.err = fmt.Errorf("%w: prompt aborted", shared.ErrMissingArgument)

		if err := env.run("auth", "login"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("register signs in", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("auth", "register", "-n", "Grace Hopper", "-e", "grace@example.com", "-p", "navy"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "Account created") {
			t.Errorf("unexpected output %q", env.output.String())
		}
		if !env.runner.session.Snapshot().Authenticated() {
			t.Error("expected registration to sign in")
		}
		env.service.mu.Lock()
		_, ok := env.service.users["grace@example.com"]
		env.service.mu.Unlock()
		if !ok {
			t.Error("expected account to be created")
		}
	})

	t.Run("register duplicate email", func(t *testing.T) {
		env := newTestEnv(t, "")

		err := env.run("auth", "register", "-n", "Ada", "-e", "ada@example.com", "-p", "secret")
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("whoami", func(t *testing.T) {
		env := newTestEnv(t, testToken)

		if err := env.run("auth", "whoami"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "Signed in as Ada Lovelace <ada@example.com> (id 7)") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("whoami json when anonymous", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("auth", "whoami", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var out struct {
			Phase string       `json:"phase"`
			User  *models.User `json:"user"`
		}
		if err := json.Unmarshal(env.output.Bytes(), &out); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if out.Phase != "anonymous" || out.User != nil {
			t.Errorf("unexpected whoami %+v", out)
		}
	})

	t.Run("invalid stored token resolves anonymous", func(t *testing.T) {
		env := newTestEnv(t, "stale")

		if err := env.run("auth", "whoami"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "Not signed in") {
			t.Errorf("unexpected output %q", env.output.String())
		}
		if _, ok := env.store.Read(); ok {
			t.Error("expected stale token to be cleared")
		}
	})

	t.Run("logout", func(t *testing.T) {
		env := newTestEnv(t, testToken)

		if err := env.run("auth", "logout"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := env.store.Read(); ok {
			t.Error("expected token to be cleared")
		}
		if env.runner.session.Snapshot().Phase != session.PhaseAnonymous {
			t.Error("expected anonymous session")
		}
	})

	t.Run("refresh", func(t *testing.T) {
		env := newTestEnv(t, testToken)

		if err := env.run("auth", "refresh"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "Session valid for Ada Lovelace") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("origins with memory store", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("auth", "origins"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "in memory") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("origins with token database", func(t *testing.T) {
		_, srv := newCourseService(t)
		config := shared.DefaultConfig()
		config.API.BaseURL = srv.URL
		config.Database.Path = filepath.Join(t.TempDir(), "coursex.db")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Logger: quietLogger(), Output: output, Prompter: &fakePrompter{}})
		t.Cleanup(func() { runner.Close() })
		app := &cli.Command{Name: "coursex", Commands: runner.register()}

		if err := app.Run(context.Background(), []string{"coursex", "auth", "login", "-e", "ada@example.com", "-p", "secret"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output.Reset()

		app = &cli.Command{Name: "coursex", Commands: runner.register()}
		if err := app.Run(context.Background(), []string{"coursex", "auth", "origins"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "* "+srv.URL) {
			t.Errorf("expected current origin to be marked, got %q", output.String())
		}
	})
}

func TestCoursesCommands(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("courses", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := env.output.String()
		for _, want := range []string{"SLUG", "go-basics", "Go Basics", "4.0 (2 ratings)"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output %q", want, out)
			}
		}
	})

	t.Run("list json", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("courses", "list", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var courses []models.Course
		if err := json.Unmarshal(env.output.Bytes(), &courses); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if len(courses) != 1 || courses[0].Slug != "go-basics" {
			t.Errorf("unexpected courses %+v", courses)
		}
	})

	t.Run("show", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("courses", "show", "go-basics"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := env.output.String()
		for _, want := range []string{"Go Basics", "Learn Go", "Taught by: Rob", "Classes (2):", "Setup", "(id 11)"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output %q", want, out)
			}
		}
	})

	t.Run("show unknown course", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("courses", "show", "rust"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("show requires slug", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("courses", "show"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("open", func(t *testing.T) {
		orig := openBrowser
		t.Cleanup(func() { openBrowser = orig })
		var opened []string
		openBrowser = func(url string) error {
			opened = append(opened, url)
			return nil
		}

		env := newTestEnv(t, "")
		if err := env.run("courses", "open", "go-basics"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := env.run("courses", "open", "--class", "11"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(opened) != 2 || opened[0] != "https://cdn.example.com/intro.mp4" || opened[1] != opened[0] {
			t.Errorf("unexpected opened urls %v", opened)
		}

		if err := env.run("courses", "open", "--class", "10"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound for a class without video, got %v", err)
		}
	})

	t.Run("export", func(t *testing.T) {
		env := newTestEnv(t, testToken)
		dir := t.TempDir()

		if err := env.run("courses", "export", "--format", "csv", "--output", dir, "go-basics"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "go-basics_classes.csv"))
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))

		metadata := tu.MustReadFile(t, filepath.Join(dir, "go-basics_metadata.json"))
		if !strings.Contains(metadata, `"total_ratings": 2`) {
			t.Errorf("expected fresh stats in metadata, got %s", metadata)
		}
		if !strings.Contains(env.output.String(), "Exported 1 of 1 courses") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("export all with a failure", func(t *testing.T) {
		env := newTestEnv(t, "")

		err := env.run("courses", "export", "--output", t.TempDir(), "go-basics", "missing")
		if !errors.Is(err, shared.ErrService) {
			t.Errorf("expected failed export error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "Exported 1 of 2 courses") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("export rejects unknown format", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("courses", "export", "--format", "yaml", "--all"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("export requires courses", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("courses", "export"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestRatingsCommands(t *testing.T) {
	t.Run("stats signed in", func(t *testing.T) {
		env := newTestEnv(t, testToken)
		env.service.votes[7] = 5

		if err := env.run("ratings", "stats", "--json", "go-basics"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var out struct {
			CourseID int                `json:"course_id"`
			Stats    models.RatingStats `json:"stats"`
			UserVote int                `json:"user_vote"`
		}
		if err := json.Unmarshal(env.output.Bytes(), &out); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if out.UserVote != 5 || out.Stats.TotalRatings != 3 {
			t.Errorf("unexpected stats %+v", out)
		}
		if len(env.runner.ratings.Active()) != 0 {
			t.Error("expected course to be deactivated after the command")
		}
	})

	t.Run("stats anonymous", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("ratings", "stats", "go-basics"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "Sign in to see your rating") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("rate", func(t *testing.T) {
		env := newTestEnv(t, testToken)

		if err := env.run("ratings", "rate", "go-basics", "5"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.service.vote(7) != 5 {
			t.Errorf("expected remote vote 5, got %d", env.service.vote(7))
		}
		out := env.output.String()
		if !strings.Contains(out, "Rated Go Basics") || !strings.Contains(out, "(3 ratings)") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("rate replaces existing vote", func(t *testing.T) {
		env := newTestEnv(t, testToken)
		env.service.votes[7] = 2

		if err := env.run("ratings", "rate", "go-basics", "3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.service.vote(7) != 3 {
			t.Errorf("expected remote vote 3, got %d", env.service.vote(7))
		}
	})

	t.Run("rate out of range", func(t *testing.T) {
		env := newTestEnv(t, testToken)

		if err := env.run("ratings", "rate", "go-basics", "9"); !errors.Is(err, shared.ErrInvalidRange) {
			t.Errorf("expected ErrInvalidRange, got %v", err)
		}
		if env.service.vote(7) != 0 {
			t.Error("expected no remote vote")
		}
	})

	t.Run("rate not a number", func(t *testing.T) {
		env := newTestEnv(t, testToken)

		if err := env.run("ratings", "rate", "go-basics", "five"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rate anonymous", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("ratings", "rate", "go-basics", "4"); !errors.Is(err, shared.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("delete with confirmation", func(t *testing.T) {
		env := newTestEnv(t, testToken)
		env.service.votes[7] = 4
		env.prompter.confirm = true

		if err := env.run("ratings", "delete", "go-basics"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.prompter.confirmed != 1 {
			t.Error("expected a confirmation prompt")
		}
		if env.service.vote(7) != 0 {
			t.Error("expected remote vote to be removed")
		}
	})

	t.Run("delete declined", func(t *testing.T) {
		env := newTestEnv(t, testToken)
		env.service.votes[7] = 4

		if err := env.run("ratings", "delete", "go-basics"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.service.vote(7) != 4 || !strings.Contains(env.output.String(), "Kept your rating") {
			t.Errorf("expected vote to be kept, output %q", env.output.String())
		}
	})

	t.Run("delete with yes flag", func(t *testing.T) {
		env := newTestEnv(t, testToken)
		env.service.votes[7] = 4

		if err := env.run("ratings", "delete", "--yes", "go-basics"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.prompter.confirmed != 0 || env.service.vote(7) != 0 {
			t.Error("expected delete without prompting")
		}
	})

	t.Run("delete without vote", func(t *testing.T) {
		env := newTestEnv(t, testToken)

		if err := env.run("ratings", "delete", "--yes", "go-basics"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "You have not rated Go Basics") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})
}

func TestAPICommand(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("api", "get", "courses/go-basics"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), `"slug": "go-basics"`) {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("get with auth", func(t *testing.T) {
		env := newTestEnv(t, testToken)

		if err := env.run("api", "get", "--auth", "/auth/me"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "ada@example.com") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("get with auth when anonymous", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("api", "get", "--auth", "/auth/me"); !errors.Is(err, shared.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("non-2xx", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run("api", "get", "/auth/me"); !errors.Is(err, shared.ErrService) {
			t.Errorf("expected ErrService, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner := NewRunner(RunnerOpts{ConfigPath: path, Logger: quietLogger(), Output: &bytes.Buffer{}})
		app := func() *cli.Command { return &cli.Command{Name: "coursex", Commands: runner.register()} }

		if err := app().Run(context.Background(), []string{"coursex", "setup", "config"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)

		if err := app().Run(context.Background(), []string{"coursex", "setup", "config"}); err == nil {
			t.Error("expected error when the config already exists")
		}
	})

	t.Run("database", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "db", "coursex.db")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Logger: quietLogger(), Output: output})
		app := &cli.Command{Name: "coursex", Commands: runner.register()}

		if err := app.Run(context.Background(), []string{"coursex", "setup", "database"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, config.Database.Path)
		if !strings.Contains(output.String(), "Database ready") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("database rollback", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "coursex.db")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Logger: quietLogger(), Output: output})
		run := func(args ...string) error {
			app := &cli.Command{Name: "coursex", Commands: runner.register()}
			return app.Run(context.Background(), append([]string{"coursex", "setup", "database"}, args...))
		}

		if err := run(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := run("--rollback"); err != nil {
			t.Fatalf("unexpected rollback error: %v", err)
		}
		if !strings.Contains(output.String(), "Rolled back latest migration") {
			t.Errorf("unexpected output %q", output.String())
		}

		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		if _, err := db.Exec("SELECT 1 FROM auth_tokens LIMIT 1"); err == nil {
			t.Error("expected auth_tokens to be dropped by the rollback")
		}

		if err := run("--rollback"); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}
	})
}

func TestRunnerCloseDeactivatesRatings(t *testing.T) {
	env := newTestEnv(t, testToken)
	if err := env.runner.start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.runner.ratings.Activate(context.Background(), 1, models.RatingStats{}); err != nil {
		t.Fatalf("failed to activate course: %v", err)
	}
	updates, unsubscribe := env.runner.ratings.Subscribe()
	defer unsubscribe()

	if err := env.runner.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active := env.runner.ratings.Active(); len(active) != 0 {
		t.Errorf("expected no active courses after close, got %v", active)
	}
	select {
	case u := <-updates:
		if !u.Removed || u.CourseID != 1 {
			t.Errorf("expected removal update for course 1, got %+v", u)
		}
	default:
		t.Error("expected a removal update")
	}
}
