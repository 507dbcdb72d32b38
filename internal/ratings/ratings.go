package ratings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/session"
	"github.com/desertthunder/coursex/internal/shared"
	"golang.org/x/sync/errgroup"
)

const DefaultSuccessReset = 2 * time.Second

// Phase is the state of the most recent write for a course.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// State is a copy of one course's rating state.
type State struct {
	CourseID  int
	UserVote  int // 0 when the user has not voted
	HoverVote int // preview while choosing, 0 when none
	Stats     models.RatingStats
	Phase     Phase
	LastError string // set iff Phase is failed
}

// HasVote reports whether the user has a vote on the course.
func (s State) HasVote() bool { return s.UserVote != 0 }

// Update is published after every state change.
type Update struct {
	CourseID int
	State    State
	Removed  bool // the course was deactivated
}

// API is the subset of the rating client the engine needs.
type API interface {
	Stats(ctx context.Context, courseID int) (models.RatingStats, error)
	UserRating(ctx context.Context, courseID, userID int) (*models.UserRating, error)
	Create(ctx context.Context, courseID, userID, rating int) error
	Update(ctx context.Context, courseID, userID, rating int) error
	Delete(ctx context.Context, courseID, userID int) error
}

// Observer records rating operation outcomes.
type Observer interface {
	RatingOperation(kind, outcome string)
	RatingRollback(kind string)
}

// Options configures an [Engine]. Zero values select defaults.
type Options struct {
	SuccessReset time.Duration
	Logger       *log.Logger
	Observer     Observer
}

type entry struct {
	state State
	gen   int // bumped by every write, guards the success reset timer
	timer *time.Timer
}

// Engine owns rating state for every active course.
type Engine struct {
	api          API
	identity     session.Identity
	logger       *log.Logger
	observer     Observer
	successReset time.Duration

	mu      sync.Mutex
	courses map[int]*entry
	updates *shared.Broadcaster[Update]
}

// NewEngine creates an Engine that acts as the user identity reports.
func NewEngine(api API, identity session.Identity, opts Options) *Engine {
	if opts.SuccessReset <= 0 {
		opts.SuccessReset = DefaultSuccessReset
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Engine{
		api:          api,
		identity:     identity,
		logger:       shared.WithLogger(opts.Logger, "component", "ratings"),
		observer:     opts.Observer,
		successReset: opts.SuccessReset,
		courses:      make(map[int]*entry),
		updates:      shared.NewBroadcaster[Update](32),
	}
}

// Activate starts tracking a course seeded with server-supplied stats, then loads
// the user's vote and fresh stats concurrently. Activating an active course keeps its state.
//
// Load failures are logged and returned; the course stays active either way.
func (e *Engine) Activate(ctx context.Context, courseID int, seed models.RatingStats) (State, error) {
	e.mu.Lock()
	if _, ok := e.courses[courseID]; !ok {
		e.courses[courseID] = &entry{state: State{CourseID: courseID, Stats: seed.Normalize(), Phase: PhaseIdle}}
		e.publishLocked(courseID)
	}
	e.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error { return e.LoadUserRating(ctx, courseID) })
	g.Go(func() error { return e.refreshStats(ctx, courseID) })
	err := g.Wait()

	state, _ := e.State(courseID)
	return state, err
}

// Deactivate drops a course's state.
func (e *Engine) Deactivate(courseID int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.courses[courseID]
	if !ok {
		return
	}
	if ent.timer != nil {
		ent.timer.Stop()
	}
	delete(e.courses, courseID)
	e.updates.Publish(Update{CourseID: courseID, State: ent.state, Removed: true})
}

// State returns a copy of a course's state.
func (e *Engine) State(courseID int) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.courses[courseID]
	if !ok {
		return State{}, false
	}
	return ent.state, true
}

// Active lists the IDs of every tracked course.
func (e *Engine) Active() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]int, 0, len(e.courses))
	for id := range e.courses {
		ids = append(ids, id)
	}
	return ids
}

// LoadUserRating fetches the acting user's vote. Anonymous sessions are a no-op
// and a missing vote is normal.
//
// The result is dropped if a write started after the request was issued.
func (e *Engine) LoadUserRating(ctx context.Context, courseID int) error {
	user, ok := e.identity.CurrentUser()
	if !ok {
		return nil
	}
	ent, gen, ok := e.generation(courseID)
	if !ok {
		return shared.ErrCourseNotActive
	}

	rating, err := e.api.UserRating(ctx, courseID, user.ID)
	if err != nil {
		e.logger.Warn("failed to load user rating", "course", courseID, "error", err)
		return fmt.Errorf("failed to load user rating: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.staleLocked(courseID, ent, gen) {
		e.logger.Debug("discarding stale user rating", "course", courseID)
		return nil
	}
	if rating != nil && models.ValidRating(rating.Rating) {
		ent.state.UserVote = rating.Rating
	} else {
		ent.state.UserVote = 0
	}
	e.publishLocked(courseID)
	return nil
}

func (e *Engine) refreshStats(ctx context.Context, courseID int) error {
	ent, gen, ok := e.generation(courseID)
	if !ok {
		return shared.ErrCourseNotActive
	}

	stats, err := e.api.Stats(ctx, courseID)
	if err != nil {
		e.logger.Warn("failed to refresh stats", "course", courseID, "error", err)
		return fmt.Errorf("failed to refresh stats: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.staleLocked(courseID, ent, gen) {
		return nil
	}
	ent.state.Stats = stats.Normalize()
	e.publishLocked(courseID)
	return nil
}

// generation returns the course entry and its write generation before a read is issued.
func (e *Engine) generation(courseID int) (*entry, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.courses[courseID]
	if !ok {
		return nil, 0, false
	}
	return ent, ent.gen, true
}

// staleLocked reports whether a read issued at gen must not touch the course:
// it was deactivated or reactivated, or a write started since.
func (e *Engine) staleLocked(courseID int, ent *entry, gen int) bool {
	current, ok := e.courses[courseID]
	return !ok || current != ent || ent.gen != gen
}

// SubmitRating records rating as the user's vote: a create when there was no
// vote, otherwise an update.
func (e *Engine) SubmitRating(ctx context.Context, courseID, rating int) error {
	user, err := e.precheck(courseID, "submit")
	if err != nil {
		return err
	}
	if !models.ValidRating(rating) {
		return e.reject(courseID, "submit", shared.ErrInvalidRange)
	}

	return e.mutate(ctx, courseID, "submit",
		func(s *State) { s.UserVote = rating },
		func(ctx context.Context, prev State) error {
			if !prev.HasVote() {
				return e.api.Create(ctx, courseID, user.ID, rating)
			}
			return e.api.Update(ctx, courseID, user.ID, rating)
		},
	)
}

// DeleteRating removes the user's vote. Without a vote it does nothing.
func (e *Engine) DeleteRating(ctx context.Context, courseID int) error {
	user, err := e.precheck(courseID, "delete")
	if err != nil {
		return err
	}
	if state, _ := e.State(courseID); !state.HasVote() {
		return nil
	}

	return e.mutate(ctx, courseID, "delete",
		func(s *State) { s.UserVote = 0 },
		func(ctx context.Context, _ State) error {
			return e.api.Delete(ctx, courseID, user.ID)
		},
	)
}

// ClearError dismisses a failure. A failed course returns to idle.
func (e *Engine) ClearError(courseID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.courses[courseID]
	if !ok {
		return shared.ErrCourseNotActive
	}
	ent.state.LastError = ""
	if ent.state.Phase == PhaseFailed {
		ent.state.Phase = PhaseIdle
	}
	e.publishLocked(courseID)
	return nil
}

// SetHover sets the previewed vote. 0 clears it.
func (e *Engine) SetHover(courseID, vote int) error {
	if vote != 0 && !models.ValidRating(vote) {
		return shared.ErrInvalidRange
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.courses[courseID]
	if !ok {
		return shared.ErrCourseNotActive
	}
	ent.state.HoverVote = vote
	e.publishLocked(courseID)
	return nil
}

// Subscribe returns a channel of state changes and a function that unsubscribes.
func (e *Engine) Subscribe() (<-chan Update, func()) {
	return e.updates.Subscribe()
}

// precheck resolves the acting user for a write, failing the course when there is none.
func (e *Engine) precheck(courseID int, kind string) (*models.User, error) {
	if _, ok := e.State(courseID); !ok {
		return nil, shared.ErrCourseNotActive
	}
	user, ok := e.identity.CurrentUser()
	if !ok {
		return nil, e.reject(courseID, kind, shared.ErrUnauthenticated)
	}
	return user, nil
}

// reject fails a write locally, before any state change or request.
func (e *Engine) reject(courseID int, kind string, err error) error {
	e.mu.Lock()
	if ent, ok := e.courses[courseID]; ok {
		ent.state.Phase = PhaseFailed
		ent.state.LastError = err.Error()
		e.publishLocked(courseID)
	}
	e.mu.Unlock()

	e.observe(kind, "rejected")
	return err
}

// mutate runs one optimistic write: snapshot, apply locally, call remote, then
// commit the refreshed stats or restore the snapshot.
func (e *Engine) mutate(ctx context.Context, courseID int, kind string, apply func(*State), remote func(context.Context, State) error) error {
	e.mu.Lock()
	ent, ok := e.courses[courseID]
	if !ok {
		e.mu.Unlock()
		return shared.ErrCourseNotActive
	}
	snapshot := ent.state
	if ent.timer != nil {
		ent.timer.Stop()
	}
	ent.gen++
	apply(&ent.state)
	ent.state.Phase = PhasePending
	ent.state.LastError = ""
	e.publishLocked(courseID)
	e.mu.Unlock()

	err := remote(ctx, snapshot)
	var stats models.RatingStats
	if err == nil {
		stats, err = e.api.Stats(ctx, courseID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok = e.courses[courseID]
	if !ok {
		return err
	}

	if err != nil {
		ent.state.UserVote = snapshot.UserVote
		ent.state.Stats = snapshot.Stats
		ent.state.Phase = PhaseFailed
		ent.state.LastError = err.Error()
		e.publishLocked(courseID)

		e.logger.Warn("rating "+kind+" failed", "course", courseID, "error", err)
		e.observe(kind, "failed")
		if e.observer != nil {
			e.observer.RatingRollback(kind)
		}
		return err
	}

	ent.state.Stats = stats.Normalize()
	ent.state.Phase = PhaseSucceeded
	e.publishLocked(courseID)
	e.scheduleResetLocked(courseID, ent)

	e.logger.Debug("rating "+kind+" committed", "course", courseID, "vote", ent.state.UserVote)
	e.observe(kind, "ok")
	return nil
}

// scheduleResetLocked returns a succeeded course to idle after the reset delay,
// unless another write has started since.
func (e *Engine) scheduleResetLocked(courseID int, ent *entry) {
	if ent.timer != nil {
		ent.timer.Stop()
	}
	gen := ent.gen
	ent.timer = time.AfterFunc(e.successReset, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		current, ok := e.courses[courseID]
		if !ok || current != ent || ent.gen != gen || ent.state.Phase != PhaseSucceeded {
			return
		}
		ent.state.Phase = PhaseIdle
		e.publishLocked(courseID)
	})
}

func (e *Engine) observe(kind, outcome string) {
	if e.observer != nil {
		e.observer.RatingOperation(kind, outcome)
	}
}

func (e *Engine) publishLocked(courseID int) {
	if ent, ok := e.courses[courseID]; ok {
		e.updates.Publish(Update{CourseID: courseID, State: ent.state})
	}
}
