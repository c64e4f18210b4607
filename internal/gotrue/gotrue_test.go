package gotrue

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chatapp-client/internal/suptest"
)

func newClient(t *testing.T) (*suptest.Server, *Client) {
	t.Helper()
	sugar := zap.NewNop().Sugar()

	backend, err := suptest.New(filepath.Join(t.TempDir(), "app.db"), sugar)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)

	return backend, New(ts.URL, "anon", sugar)
}

func TestSignInInstallsToken(t *testing.T) {
	backend, client := newClient(t)
	user, _, err := backend.CreateUser("alice@example.com", "hunter22", "alice")
	require.NoError(t, err)

	session, err := client.SignIn(context.Background(), "alice@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, session.AccessToken)
	require.Equal(t, "bearer", session.TokenType)
	require.Equal(t, user.ID, session.User.ID)
	require.Equal(t, session.AccessToken, client.Token())
}

func TestSignInWrongPassword(t *testing.T) {
	backend, client := newClient(t)
	_, _, err := backend.CreateUser("alice@example.com", "hunter22", "alice")
	require.NoError(t, err)

	_, err = client.SignIn(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)
	require.Empty(t, client.Token())
}

func TestCurrentUserRoundTrip(t *testing.T) {
	backend, client := newClient(t)
	user, token, err := backend.CreateUser("alice@example.com", "hunter22", "alice")
	require.NoError(t, err)
	client.SetToken(token)

	got, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, "alice@example.com", got.Email)
}

func TestCurrentUserWithoutToken(t *testing.T) {
	_, client := newClient(t)

	_, err := client.CurrentUser(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCurrentUserRejectedToken(t *testing.T) {
	_, client := newClient(t)
	client.SetToken("not-a-jwt")

	_, err := client.CurrentUser(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSignOutClearsToken(t *testing.T) {
	backend, client := newClient(t)
	_, token, err := backend.CreateUser("alice@example.com", "hunter22", "alice")
	require.NoError(t, err)
	client.SetToken(token)

	require.NoError(t, client.SignOut(context.Background()))
	require.Empty(t, client.Token())

	// a second sign-out with no token is a no-op
	require.NoError(t, client.SignOut(context.Background()))
}

func TestParseClaims(t *testing.T) {
	backend, _ := newClient(t)
	user, token, err := backend.CreateUser("alice@example.com", "hunter22", "alice")
	require.NoError(t, err)

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.Subject)
	require.Equal(t, "alice@example.com", claims.Email)
	require.False(t, Expired(claims))
}

func TestExpired(t *testing.T) {
	past := Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	require.True(t, Expired(past))

	future := Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	require.False(t, Expired(future))

	require.False(t, Expired(Claims{}))
}
