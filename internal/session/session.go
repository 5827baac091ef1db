// Package session owns the authenticated identity: the bearer credential,
// the user it resolves to, and the persisted copy of the credential.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"storefront/internal/credential"
	"storefront/internal/domain"
	"storefront/internal/store"
)

// State is a snapshot of the session. Identity is non-nil only when
// Credential is set.
type State struct {
	Phase      Phase
	Credential string
	Identity   *domain.User
	Loading    bool
}

// Authenticated reports whether both a credential and its identity are held.
func (s State) Authenticated() bool {
	return s.Credential != "" && s.Identity != nil
}

// Authenticator is the slice of the commerce API the session needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*domain.AuthResponse, error)
	Register(ctx context.Context, in domain.RegisterInput) (*domain.User, error)
	Logout(ctx context.Context, credential string) error
	Profile(ctx context.Context, credential string) (*domain.User, error)
}

// Location is the UI's current route. The manager redirects it to the login
// entry point when a credential is rejected.
type Location interface {
	Path() string
	Redirect(path string)
}

// Option customises a Manager.
type Option func(*Manager)

// WithLocation sets the route that is redirected on credential rejection.
func WithLocation(loc Location) Option {
	return func(m *Manager) { m.location = loc }
}

// WithLoginPath sets the redirect target. Default "/auth/login".
func WithLoginPath(path string) Option {
	return func(m *Manager) { m.loginPath = path }
}

// WithAuthPrefix sets the prefix of authentication pages, where no redirect
// happens. Default "/auth/".
func WithAuthPrefix(prefix string) Option {
	return func(m *Manager) { m.authPrefix = prefix }
}

// Manager drives the session state machine. Restore, Login, Register and
// Logout are serialized; Invalidate is not, because it runs from inside
// requests those operations make.
type Manager struct {
	client Authenticator
	creds  credential.Store
	logger *slog.Logger
	state  *store.Store[State]

	location   Location
	loginPath  string
	authPrefix string

	mu sync.Mutex
}

func New(client Authenticator, creds credential.Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Manager{
		client:     client,
		creds:      creds,
		logger:     logger,
		state:      store.New(State{Phase: Uninitialized}),
		loginPath:  "/auth/login",
		authPrefix: "/auth/",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current snapshot.
func (m *Manager) State() State {
	return m.state.Get()
}

// Subscribe registers fn for every committed state.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	return m.state.Subscribe(fn)
}

// Restore resolves a persisted credential into a session. Any failure to
// resolve it clears the persisted slot and leaves the session anonymous;
// that is not reported as an error. Loading is set for the duration.
func (m *Manager) Restore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	phase, err := next(m.state.Get().Phase, eventRestore)
	if err != nil {
		return err
	}
	m.state.Set(State{Phase: phase, Loading: true})

	token, err := m.creds.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		m.settle(State{Phase: Anonymous}, eventUnresolved)
		return nil
	}
	if err != nil {
		m.logger.WarnContext(ctx, "read persisted credential failed", "error", err)
		m.discard(ctx)
		m.settle(State{Phase: Anonymous}, eventUnresolved)
		return nil
	}

	user, err := m.client.Profile(ctx, token)
	if err != nil {
		m.logger.InfoContext(ctx, "persisted credential not resolvable", "error", err)
		m.discard(ctx)
		m.settle(State{Phase: Anonymous}, eventUnresolved)
		return nil
	}

	m.settle(State{Phase: Authenticated, Credential: token, Identity: user}, eventResolved)
	m.logger.InfoContext(ctx, "session restored", "user_id", user.ID)
	return nil
}

// settle commits the end of a restore.
func (m *Manager) settle(s State, ev event) {
	m.state.Update(func(cur State) (State, bool) {
		if _, err := next(cur.Phase, ev); err != nil {
			return cur, false
		}
		return s, true
	})
}

// Login authenticates with the server and persists the credential. A
// server-side rejection becomes a *domain.AuthenticationError; transport
// failures are returned unchanged. On any failure the session is untouched.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.login(ctx, email, password)
}

func (m *Manager) login(ctx context.Context, email, password string) error {
	if _, err := next(m.state.Get().Phase, eventLogin); err != nil {
		return err
	}

	resp, err := m.client.Login(ctx, email, password)
	if err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) {
			return &domain.AuthenticationError{Message: de.Message, Err: err}
		}
		return err
	}
	if resp.AccessToken == "" || resp.User == nil {
		return &domain.AuthenticationError{Message: "login response carried no credential"}
	}

	if err := m.creds.Save(ctx, resp.AccessToken); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}

	user := *resp.User
	m.state.Update(func(cur State) (State, bool) {
		phase, err := next(cur.Phase, eventLogin)
		if err != nil {
			return cur, false
		}
		return State{Phase: phase, Credential: resp.AccessToken, Identity: &user}, true
	})
	m.logger.InfoContext(ctx, "logged in", "user_id", user.ID)
	return nil
}

// Register creates an account and then logs in with the same email and
// password. A server-side rejection of the account becomes a
// *domain.RegistrationError.
func (m *Manager) Register(ctx context.Context, in domain.RegisterInput) error {
	if strings.TrimSpace(in.Email) == "" {
		return &domain.ValidationError{Field: "email", Message: "is required"}
	}
	if in.Password == "" {
		return &domain.ValidationError{Field: "password", Message: "is required"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := next(m.state.Get().Phase, eventLogin); err != nil {
		return err
	}
	if _, err := m.client.Register(ctx, in); err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) {
			return &domain.RegistrationError{Message: de.Message, Err: err}
		}
		return err
	}
	m.logger.InfoContext(ctx, "account registered")
	return m.login(ctx, in.Email, in.Password)
}

// Logout tells the server, then clears the session and the persisted slot
// whatever the server said. It cannot fail.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.state.Get()
	defer func() {
		m.discard(ctx)
		m.state.Update(func(s State) (State, bool) {
			phase, err := next(s.Phase, eventLogout)
			if err != nil {
				return s, false
			}
			return State{Phase: phase}, true
		})
		m.logger.InfoContext(ctx, "logged out")
	}()

	if cur.Credential == "" {
		return
	}
	if err := m.client.Logout(ctx, cur.Credential); err != nil {
		m.logger.WarnContext(ctx, "server logout failed", "error", err)
	}
}

// Invalidate handles a credential the server rejected with 401. It clears
// the persisted slot and the session when either still holds that
// credential, then redirects to the login page unless the UI is already on
// an authentication page. A rejection of some older credential is ignored.
func (m *Manager) Invalidate(ctx context.Context, rejected string) {
	if rejected == "" {
		return
	}

	matched := false
	if stored, err := m.creds.Load(ctx); err == nil && stored == rejected {
		m.discard(ctx)
		matched = true
	}
	m.state.Update(func(s State) (State, bool) {
		if s.Credential != rejected {
			return s, false
		}
		phase, err := next(s.Phase, eventRejected)
		if err != nil {
			return s, false
		}
		matched = true
		return State{Phase: phase}, true
	})
	if !matched {
		return
	}

	m.logger.InfoContext(ctx, "credential rejected, session cleared")
	if m.location == nil {
		return
	}
	if strings.HasPrefix(m.location.Path(), m.authPrefix) {
		return
	}
	m.location.Redirect(m.loginPath)
}

// discard clears the persisted slot even when ctx is already done.
func (m *Manager) discard(ctx context.Context) {
	if err := m.creds.Clear(context.WithoutCancel(ctx)); err != nil {
		m.logger.ErrorContext(ctx, "clear persisted credential failed", "error", err)
	}
}
