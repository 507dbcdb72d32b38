package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const DefaultInitTimeout = 3 * time.Second

// Phase is the resolution state of the session.
type Phase string

const (
	PhaseInitializing  Phase = "initializing"
	PhaseAuthenticated Phase = "authenticated"
	PhaseAnonymous     Phase = "anonymous"
)

// AuthAPI is the subset of the auth client the manager needs.
type AuthAPI interface {
	Register(ctx context.Context, email, password, fullName string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*oauth2.Token, error)
	CurrentUser(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context) error
}

// Identity is the read-only view of the acting user handed to other engines.
type Identity interface {
	CurrentUser() (*models.User, bool)
}

// Observer is notified of every phase transition.
type Observer interface {
	SessionTransition(phase string)
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Phase     Phase
	User      *models.User // non-nil iff Phase is authenticated
	Busy      bool         // a login or registration is in flight
	LastError string
}

// Authenticated reports whether the snapshot carries an identity.
func (s Snapshot) Authenticated() bool { return s.Phase == PhaseAuthenticated && s.User != nil }

// Options configures a [Manager]. Zero values select defaults.
type Options struct {
	InitTimeout time.Duration
	Logger      *log.Logger
	Observer    Observer
}

// Manager owns the session state machine.
type Manager struct {
	api         AuthAPI
	store       TokenStore
	logger      *log.Logger
	observer    Observer
	initTimeout time.Duration

	initOnce sync.Once
	resolved atomic.Bool
	refresh  singleflight.Group

	mu        sync.Mutex
	phase     Phase
	user      *models.User
	token     string
	busy      bool
	lastError string

	updates *shared.Broadcaster[Snapshot]
}

// NewManager creates a Manager in [PhaseInitializing]. Call [Manager.Init] to resolve it.
func NewManager(api AuthAPI, store TokenStore, opts Options) *Manager {
	if store == nil {
		store = NopStore{}
	}
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = DefaultInitTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Manager{
		api:         api,
		store:       store,
		logger:      shared.WithLogger(opts.Logger, "component", "session"),
		observer:    opts.Observer,
		initTimeout: opts.InitTimeout,
		phase:       PhaseInitializing,
		updates:     shared.NewBroadcaster[Snapshot](16),
	}
}

// Init resolves the session from the stored token. Only the first call does any work;
// every call returns once the session has left [PhaseInitializing].
func (m *Manager) Init(ctx context.Context) Snapshot {
	m.initOnce.Do(func() { m.initialize(ctx) })
	return m.Snapshot()
}

func (m *Manager) initialize(ctx context.Context) {
	token, ok := m.store.Read()
	if !ok {
		m.resolved.Store(true)
		m.logger.Debug("no stored token")
		m.setAnonymous("")
		return
	}

	verifyCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	var finished sync.Once
	finish := func() { finished.Do(func() { close(done) }) }

	// A login or logout may resolve the session first; both branches then
	// only release Init.
	guard := time.AfterFunc(m.initTimeout, func() {
		defer finish()
		if !m.resolved.CompareAndSwap(false, true) {
			cancel()
			return
		}
		cancel()
		m.logger.Warn("session verification timed out", "after", m.initTimeout)
		m.setAnonymous("")
	})

	go func() {
		defer finish()
		user, err := m.api.CurrentUser(verifyCtx, token)
		if !m.resolved.CompareAndSwap(false, true) {
			m.logger.Debug("discarding late verification result", "error", err)
			return
		}
		guard.Stop()
		cancel()

		switch {
		case err == nil:
			m.logger.Info("session restored", "user", user.Email)
			m.setAuthenticated(user, token)
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			m.logger.Debug("session verification canceled")
			m.setAnonymous("")
		default:
			m.logger.Info("stored token rejected", "error", err)
			m.store.Clear()
			m.setAnonymous("")
		}
	}()

	<-done
}

// Login exchanges credentials for a token, persists it and loads the identity.
//
// On failure the session is anonymous, LastError holds the message and the error is returned.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.begin()
	return m.login(ctx, email, password)
}

func (m *Manager) login(ctx context.Context, email, password string) error {
	token, err := m.api.Login(ctx, email, password)
	if err != nil {
		return m.fail("login", err)
	}
	m.store.Save(token.AccessToken)

	user, err := m.api.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		return m.fail("login", err)
	}

	m.resolved.Store(true)
	m.logger.Info("logged in", "user", user.Email)
	m.setAuthenticated(user, token.AccessToken)
	return nil
}

// Register creates an account and then logs in with the same credentials.
// A failed auto-login is reported as a failed registration.
func (m *Manager) Register(ctx context.Context, email, password, fullName string) error {
	m.begin()
	if _, err := m.api.Register(ctx, email, password, fullName); err != nil {
		return m.fail("register", err)
	}
	m.logger.Info("registered", "email", email)
	return m.login(ctx, email, password)
}

// Logout forgets the token and the identity. It always succeeds; a service
// failure is only logged.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		m.logger.Warn("service logout failed", "error", err)
	}
	m.store.Clear()
	m.resolved.Store(true)
	m.logger.Info("logged out")
	m.setAnonymous("")
}

// Refresh re-fetches the identity for the held token. Any failure logs the session out.
// Concurrent calls share a single request.
func (m *Manager) Refresh(ctx context.Context) error {
	token := m.AccessToken()
	if token == "" {
		return nil
	}

	_, err, _ := m.refresh.Do(token, func() (any, error) {
		user, err := m.api.CurrentUser(ctx, token)

		m.mu.Lock()
		current := m.token
		m.mu.Unlock()
		if current != token {
			return nil, nil
		}

		if err != nil {
			m.logger.Warn("session invalidated", "error", err)
			m.Logout(ctx)
			return nil, err
		}
		m.setAuthenticated(user, token)
		return nil, nil
	})
	return err
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// CurrentUser implements [Identity].
func (m *Manager) CurrentUser() (*models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseAuthenticated || m.user == nil {
		return nil, false
	}
	u := *m.user
	return &u, true
}

// AccessToken returns the held bearer token, or "" when anonymous.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Subscribe returns a channel of state changes and a function that unsubscribes.
// Updates are dropped for subscribers that fall behind.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	return m.updates.Subscribe()
}

func (m *Manager) begin() {
	m.update(func() {
		m.busy = true
		m.lastError = ""
	})
}

func (m *Manager) fail(op string, err error) error {
	m.store.Clear()
	m.resolved.Store(true)
	m.logger.Warn(op+" failed", "error", err)
	m.setAnonymous(err.Error())
	return err
}

func (m *Manager) setAuthenticated(user *models.User, token string) {
	m.update(func() {
		m.phase = PhaseAuthenticated
		m.user = user
		m.token = token
		m.busy = false
		m.lastError = ""
	})
}

func (m *Manager) setAnonymous(lastError string) {
	m.update(func() {
		m.phase = PhaseAnonymous
		m.user = nil
		m.token = ""
		m.busy = false
		m.lastError = lastError
	})
}

// update applies fn under the state lock and publishes the result.
func (m *Manager) update(fn func()) {
	m.mu.Lock()
	prev := m.phase
	fn()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if m.observer != nil && snap.Phase != prev {
		m.observer.SessionTransition(string(snap.Phase))
	}
	m.updates.Publish(snap)
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{Phase: m.phase, Busy: m.busy, LastError: m.lastError}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}
