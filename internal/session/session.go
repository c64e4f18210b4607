// Package session is the gate every protected view passes through: resolve
// the current identity or tell the caller to go to login.
package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"chatapp-client/internal/gotrue"
	"chatapp-client/internal/models"
	"chatapp-client/internal/postgrest"
)

// ErrNotAuthenticated is surfaced to callers so they can redirect to login.
var ErrNotAuthenticated = gotrue.ErrNotAuthenticated

type Gate struct {
	auth  *gotrue.Client
	data  *postgrest.Client
	sugar *zap.SugaredLogger
}

func NewGate(auth *gotrue.Client, data *postgrest.Client, sugar *zap.SugaredLogger) *Gate {
	return &Gate{auth: auth, data: data, sugar: sugar}
}

// Current resolves the session identity and its full user row.
func (g *Gate) Current(ctx context.Context) (models.User, error) {
	identity, err := g.auth.CurrentUser(ctx)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = g.data.From("users").
		Select("*").
		Eq("id", identity.ID).
		Single().
		Get(ctx, &user)
	if err != nil {
		if errors.Is(err, postgrest.ErrNotFound) {
			return models.User{}, ErrNotAuthenticated
		}
		return models.User{}, err
	}
	return user, nil
}

// SetStatus updates the identity's presence.
func (g *Gate) SetStatus(ctx context.Context, userID, status string) error {
	return g.data.From("users").
		Eq("id", userID).
		Update(ctx, map[string]any{"status": status})
}

// SignOut marks the identity offline, then revokes the session. The presence
// write is best effort; a failure is logged and sign-out proceeds.
func (g *Gate) SignOut(ctx context.Context, userID string) error {
	if err := g.SetStatus(ctx, userID, models.StatusOffline); err != nil {
		g.sugar.Errorw("setting status offline before sign-out", "error", err)
	}
	return g.auth.SignOut(ctx)
}
