package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront/internal/commerce"
	"storefront/internal/commerce/commercetest"
	"storefront/internal/credential"
	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	email    = "a@b.com"
	password = "Secret123"
)

type fakeLocation struct {
	mu        sync.Mutex
	path      string
	redirects []string
}

func (l *fakeLocation) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

func (l *fakeLocation) Redirect(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.redirects = append(l.redirects, path)
	l.path = path
}

func (l *fakeLocation) Redirects() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.redirects...)
}

type harness struct {
	fake     *commercetest.Server
	client   *commerce.Client
	creds    *credential.MemoryStore
	location *fakeLocation
	manager  *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := commercetest.New(nil)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	client := commerce.New(commerce.Config{BaseURL: srv.URL + commercetest.BasePath, Timeout: 2 * time.Second, BreakerFailures: -1})
	creds := credential.NewMemory()
	loc := &fakeLocation{path: "/cart"}
	m := New(client, creds, nil, WithLocation(loc))
	client.OnUnauthorized(m.Invalidate)

	_, err := fake.AddUser(domain.RegisterInput{FirstName: "Ada", LastName: "Lovelace", Email: email, Password: password})
	require.NoError(t, err)

	return &harness{fake: fake, client: client, creds: creds, location: loc, manager: m}
}

func (h *harness) persisted(t *testing.T) string {
	t.Helper()
	tok, err := h.creds.Load(context.Background())
	if errors.Is(err, domain.ErrNotFound) {
		return ""
	}
	require.NoError(t, err)
	return tok
}

func (h *harness) anonymous(t *testing.T) {
	t.Helper()
	require.NoError(t, h.manager.Restore(context.Background()))
	require.Equal(t, Anonymous, h.manager.State().Phase)
}

func TestLoginThenLogoutClearsCredentialEvenWhenServerFails(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)
	ctx := context.Background()

	require.NoError(t, h.manager.Login(ctx, email, password))
	st := h.manager.State()
	assert.Equal(t, Authenticated, st.Phase)
	require.NotNil(t, st.Identity)
	assert.Equal(t, email, st.Identity.Email)
	assert.Equal(t, st.Credential, h.persisted(t))

	h.fake.Fail(http.MethodPost, "/auth/logout", commercetest.Failure{Status: http.StatusServiceUnavailable, Message: "down"})
	h.manager.Logout(ctx)

	st = h.manager.State()
	assert.Equal(t, Anonymous, st.Phase)
	assert.Empty(t, st.Credential)
	assert.Nil(t, st.Identity)
	assert.Empty(t, h.persisted(t))
	assert.Equal(t, 1, h.fake.Count(http.MethodPost, "/auth/logout"))
}

func TestLogoutRevokesServerSide(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)
	ctx := context.Background()

	require.NoError(t, h.manager.Login(ctx, email, password))
	token := h.manager.State().Credential
	h.manager.Logout(ctx)

	_, err := h.client.Profile(ctx, token)
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Unauthorized())
}

func TestLoginWithBadPassword(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)

	err := h.manager.Login(context.Background(), email, "bad")
	var ae *domain.AuthenticationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Invalid credentials", ae.Message)

	st := h.manager.State()
	assert.Equal(t, Anonymous, st.Phase)
	assert.Empty(t, st.Credential)
	assert.Empty(t, h.persisted(t))
}

func TestLoginTransportFailurePassesThrough(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)
	h.fake.Fail(http.MethodPost, "/auth/login", commercetest.Failure{Status: http.StatusBadGateway, Message: "upstream"})

	err := h.manager.Login(context.Background(), email, password)
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	var ae *domain.AuthenticationError
	assert.False(t, errors.As(err, &ae))
	assert.Equal(t, Anonymous, h.manager.State().Phase)
}

func TestLoginRequiresAnonymous(t *testing.T) {
	h := newHarness(t)

	err := h.manager.Login(context.Background(), email, password)
	var tr *TransitionError
	require.ErrorAs(t, err, &tr)
	assert.Equal(t, Uninitialized, tr.From)
	assert.Empty(t, h.fake.Requests())

	h.anonymous(t)
	require.NoError(t, h.manager.Login(context.Background(), email, password))
	err = h.manager.Login(context.Background(), email, password)
	require.ErrorAs(t, err, &tr)
	assert.Equal(t, Authenticated, tr.From)
}

func TestRestoreWithoutCredentialSendsNothing(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)
	assert.Empty(t, h.fake.Requests())
	assert.False(t, h.manager.State().Loading)
}

func TestRestoreResolvesPersistedCredential(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var seen []State
	unsubscribe := h.manager.Subscribe(func(s State) { seen = append(seen, s) })
	defer unsubscribe()

	token, err := h.fake.IssueToken(1)
	require.NoError(t, err)
	require.NoError(t, h.creds.Save(ctx, token))

	require.NoError(t, h.manager.Restore(ctx))
	st := h.manager.State()
	assert.Equal(t, Authenticated, st.Phase)
	assert.Equal(t, token, st.Credential)
	require.NotNil(t, st.Identity)
	assert.Equal(t, "Ada Lovelace", st.Identity.FullName())
	assert.False(t, st.Loading)

	require.Len(t, seen, 2)
	assert.Equal(t, Restoring, seen[0].Phase)
	assert.True(t, seen[0].Loading)
	assert.Equal(t, Authenticated, seen[1].Phase)
	assert.False(t, seen[1].Loading)
}

func TestRestoreWithRejectedCredential(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.creds.Save(ctx, "expired-token"))

	require.NoError(t, h.manager.Restore(ctx))

	st := h.manager.State()
	assert.Equal(t, Anonymous, st.Phase)
	assert.Empty(t, st.Credential)
	assert.Nil(t, st.Identity)
	assert.False(t, st.Loading)
	assert.Empty(t, h.persisted(t))
	assert.Equal(t, []string{"/auth/login"}, h.location.Redirects())
}

func TestRestoreWithServerDownStillClears(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.creds.Save(ctx, "some-token"))
	h.fake.Fail(http.MethodGet, "/users/profile", commercetest.Failure{Status: http.StatusInternalServerError})

	require.NoError(t, h.manager.Restore(ctx))
	assert.Equal(t, Anonymous, h.manager.State().Phase)
	assert.False(t, h.manager.State().Loading)
	assert.Empty(t, h.persisted(t))
	assert.Empty(t, h.location.Redirects(), "only a 401 redirects")
}

func TestRestoreOnlyOnce(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)

	var tr *TransitionError
	require.ErrorAs(t, h.manager.Restore(context.Background()), &tr)
}

func TestRegisterThenLogsIn(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)

	err := h.manager.Register(context.Background(), domain.RegisterInput{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "grace@example.com",
		Password:  password,
	})
	require.NoError(t, err)

	st := h.manager.State()
	assert.Equal(t, Authenticated, st.Phase)
	require.NotNil(t, st.Identity)
	assert.Equal(t, "grace@example.com", st.Identity.Email)
	assert.Equal(t, st.Credential, h.persisted(t))

	reqs := h.fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/auth/register", reqs[0].Path)
	assert.Equal(t, "/auth/login", reqs[1].Path)
}

func TestRegisterRejected(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)

	err := h.manager.Register(context.Background(), domain.RegisterInput{Email: email, Password: password})
	var re *domain.RegistrationError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "Email is already registered", re.Message)
	assert.Equal(t, Anonymous, h.manager.State().Phase)
	assert.Equal(t, 0, h.fake.Count(http.MethodPost, "/auth/login"))
}

func TestRegisterValidatesLocally(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)

	err := h.manager.Register(context.Background(), domain.RegisterInput{Password: password})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
	assert.Empty(t, h.fake.Requests())
}

func TestRejectedCredentialClearsSessionAndRedirects(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)
	ctx := context.Background()
	require.NoError(t, h.manager.Login(ctx, email, password))
	token := h.manager.State().Credential

	h.fake.RevokeToken(token)
	_, err := h.client.GetCart(ctx, token)
	require.Error(t, err)

	st := h.manager.State()
	assert.Equal(t, Anonymous, st.Phase)
	assert.Empty(t, h.persisted(t))
	assert.Equal(t, []string{"/auth/login"}, h.location.Redirects())
}

func TestRejectedCredentialOnAuthPageDoesNotRedirect(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)
	ctx := context.Background()
	require.NoError(t, h.manager.Login(ctx, email, password))
	h.location.path = "/auth/register"

	h.manager.Invalidate(ctx, h.manager.State().Credential)

	assert.Equal(t, Anonymous, h.manager.State().Phase)
	assert.Empty(t, h.location.Redirects())
}

func TestInvalidateIgnoresOlderCredential(t *testing.T) {
	h := newHarness(t)
	h.anonymous(t)
	ctx := context.Background()
	require.NoError(t, h.manager.Login(ctx, email, password))

	h.manager.Invalidate(ctx, "previous-session-token")

	assert.Equal(t, Authenticated, h.manager.State().Phase)
	assert.NotEmpty(t, h.persisted(t))
	assert.Empty(t, h.location.Redirects())
}

type failingStore struct {
	credential.Store
}

func (failingStore) Save(context.Context, string) error {
	return errors.New("disk full")
}

func TestLoginPersistFailureLeavesSessionAnonymous(t *testing.T) {
	h := newHarness(t)
	m := New(h.client, failingStore{Store: credential.NewMemory()}, nil)
	require.NoError(t, m.Restore(context.Background()))

	err := m.Login(context.Background(), email, password)
	require.Error(t, err)
	assert.Equal(t, Anonymous, m.State().Phase)
	assert.Empty(t, m.State().Credential)
}

func TestPhaseTransitions(t *testing.T) {
	cases := []struct {
		from Phase
		ev   event
		to   Phase
		ok   bool
	}{
		{Uninitialized, eventRestore, Restoring, true},
		{Restoring, eventResolved, Authenticated, true},
		{Restoring, eventUnresolved, Anonymous, true},
		{Anonymous, eventLogin, Authenticated, true},
		{Authenticated, eventLogout, Anonymous, true},
		{Authenticated, eventRejected, Anonymous, true},
		{Uninitialized, eventLogin, Uninitialized, false},
		{Anonymous, eventLogout, Anonymous, false},
		{Authenticated, eventRestore, Authenticated, false},
	}
	for _, tc := range cases {
		got, err := next(tc.from, tc.ev)
		if tc.ok {
			require.NoError(t, err, "%s %s", tc.from, tc.ev)
		} else {
			require.Error(t, err, "%s %s", tc.from, tc.ev)
		}
		assert.Equal(t, tc.to, got)
	}
}
