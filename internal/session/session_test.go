package session

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chatapp-client/internal/gotrue"
	"chatapp-client/internal/models"
	"chatapp-client/internal/postgrest"
	"chatapp-client/internal/suptest"
)

func newEnv(t *testing.T) (*suptest.Server, *gotrue.Client, *postgrest.Client, models.User, string) {
	t.Helper()
	sugar := zap.NewNop().Sugar()

	backend, err := suptest.New(filepath.Join(t.TempDir(), "app.db"), sugar)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)

	user, token, err := backend.CreateUser("alice@example.com", "hunter22", "alice")
	require.NoError(t, err)

	auth := gotrue.New(ts.URL, "anon", sugar)
	data := postgrest.New(ts.URL, "anon", sugar)
	return backend, auth, data, user, token
}

func TestCurrentResolvesFullUserRow(t *testing.T) {
	_, auth, data, user, token := newEnv(t)
	auth.SetToken(token)
	data.SetToken(token)

	got, err := NewGate(auth, data, zap.NewNop().Sugar()).Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, models.StatusOnline, got.Status)
}

func TestCurrentWithoutTokenIsNotAuthenticated(t *testing.T) {
	_, auth, data, _, _ := newEnv(t)

	_, err := NewGate(auth, data, zap.NewNop().Sugar()).Current(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCurrentWithRejectedTokenIsNotAuthenticated(t *testing.T) {
	_, auth, data, _, _ := newEnv(t)
	auth.SetToken("garbage")
	data.SetToken("garbage")

	_, err := NewGate(auth, data, zap.NewNop().Sugar()).Current(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSetStatus(t *testing.T) {
	_, auth, data, user, token := newEnv(t)
	auth.SetToken(token)
	data.SetToken(token)
	ctx := context.Background()

	gate := NewGate(auth, data, zap.NewNop().Sugar())
	require.NoError(t, gate.SetStatus(ctx, user.ID, models.StatusAway))

	var got models.User
	require.NoError(t, data.From("users").Eq("id", user.ID).Single().Get(ctx, &got))
	require.Equal(t, models.StatusAway, got.Status)
}

func TestSignOutGoesOfflineFirst(t *testing.T) {
	_, auth, data, user, token := newEnv(t)
	auth.SetToken(token)
	data.SetToken(token)
	ctx := context.Background()

	gate := NewGate(auth, data, zap.NewNop().Sugar())
	require.NoError(t, gate.SignOut(ctx, user.ID))
	require.Empty(t, auth.Token())

	var got models.User
	require.NoError(t, data.From("users").Eq("id", user.ID).Single().Get(ctx, &got))
	require.Equal(t, models.StatusOffline, got.Status)
}
