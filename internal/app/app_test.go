package app

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"storefront/internal/commerce/commercetest"
	"storefront/internal/config"
	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, apiURL string) config.Config {
	return config.Config{
		APIURL:            apiURL,
		APITimeout:        2 * time.Second,
		CredentialBackend: config.BackendFile,
		CredentialFile:    filepath.Join(t.TempDir(), "credentials.yaml"),
		CredentialSlot:    "auth_token",
		LoginPath:         "/auth/login",
		AuthPathPrefix:    "/auth/",
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	fake := commercetest.New(nil)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	_, err := fake.AddUser(domain.RegisterInput{Email: "ada@example.com", Password: "Secret123"})
	require.NoError(t, err)

	cfg := testConfig(t, srv.URL+commercetest.BasePath)
	ctx := context.Background()

	first, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, first.Session.Restore(ctx))
	require.NoError(t, first.Session.Login(ctx, "ada@example.com", "Secret123"))
	_, err = first.Cart.AddItem(ctx, 2, 3)
	require.NoError(t, err)
	first.Close()

	second, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Session.Restore(ctx))

	st := second.Session.State()
	require.True(t, st.Authenticated())
	assert.Equal(t, "ada@example.com", st.Identity.Email)

	require.Eventually(t, func() bool {
		c := second.Cart.State()
		return c.Cart != nil && !c.Loading
	}, 2*time.Second, 5*time.Millisecond)
	c := second.Cart.State().Cart
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
}

func TestOpenCredentials(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t, "http://localhost")
	store, closeFn, err := OpenCredentials(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()
	require.NoError(t, store.Save(ctx, "tok"))

	cfg.CredentialBackend = config.BackendMemory
	store, closeFn, err = OpenCredentials(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	cfg.CredentialBackend = config.BackendRedis
	cfg.RedisURL = "not a url"
	_, _, err = OpenCredentials(ctx, cfg)
	require.Error(t, err)

	cfg.CredentialBackend = "floppy"
	_, _, err = OpenCredentials(ctx, cfg)
	require.Error(t, err)
}
