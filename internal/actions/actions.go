// Package actions holds the user-triggered mutations: each one is a single
// remote write (occasionally preceded by a lookup) that the calling view
// pairs with a local state patch or reload.
package actions

import (
	"errors"

	"go.uber.org/zap"

	"chatapp-client/internal/postgrest"
)

var (
	// ErrNotOwner is the client-side ownership check; the store's access
	// rules remain the authority.
	ErrNotOwner = errors.New("actions: only the server owner can do this")

	// ErrUsernameTaken surfaces as an inline validation message.
	ErrUsernameTaken = errors.New("actions: username already taken")
)

type Actions struct {
	data  *postgrest.Client
	sugar *zap.SugaredLogger

	// Confirm gates destructive operations; nil means no prompt available
	// and the operation proceeds.
	Confirm func(prompt string) bool
}

func New(data *postgrest.Client, sugar *zap.SugaredLogger) *Actions {
	return &Actions{data: data, sugar: sugar}
}

func (a *Actions) confirmed(prompt string) bool {
	return a.Confirm == nil || a.Confirm(prompt)
}
