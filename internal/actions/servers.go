package actions

import (
	"context"
	"fmt"
	"strings"

	"chatapp-client/internal/models"
	"chatapp-client/internal/validate"
)

type CreateServerParams struct {
	OwnerID string `validate:"required"`
	Name    string `validate:"required,max=100"`
}

// CreateServer inserts the server row, enrolls the owner as its first
// member, and creates the default "general" text channel. Returns the server
// and that channel so the caller can navigate straight into it.
func (a *Actions) CreateServer(ctx context.Context, p CreateServerParams) (models.Server, models.Channel, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validate.Struct(p); err != nil {
		return models.Server{}, models.Channel{}, fmt.Errorf("creating server: %w", err)
	}

	var server models.Server
	err := a.data.From("servers").
		Single().
		Insert(ctx, map[string]any{
			"name":     p.Name,
			"owner_id": p.OwnerID,
		}, &server)
	if err != nil {
		return models.Server{}, models.Channel{}, err
	}

	err = a.data.From("server_members").Insert(ctx, map[string]any{
		"server_id": server.ID,
		"user_id":   p.OwnerID,
	}, nil)
	if err != nil {
		return models.Server{}, models.Channel{}, err
	}

	var channel models.Channel
	err = a.data.From("channels").
		Single().
		Insert(ctx, map[string]any{
			"server_id": server.ID,
			"name":      "general",
			"type":      models.ChannelText,
			"position":  0,
		}, &channel)
	if err != nil {
		return models.Server{}, models.Channel{}, err
	}

	return server, channel, nil
}

// RenameServer updates the server name, owner only.
func (a *Actions) RenameServer(ctx context.Context, server models.Server, selfID, name string) error {
	if server.OwnerID != selfID {
		return ErrNotOwner
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("renaming server: name must not be empty")
	}
	return a.data.From("servers").
		Eq("id", server.ID).
		Update(ctx, map[string]any{"name": name})
}

// DeleteServer removes the server after an ownership check and confirmation.
// Channels, memberships and messages go with it via the store's cascades.
func (a *Actions) DeleteServer(ctx context.Context, server models.Server, selfID string) error {
	if server.OwnerID != selfID {
		return ErrNotOwner
	}
	if !a.confirmed("Are you sure you want to delete this server? This action cannot be undone.") {
		return nil
	}
	return a.data.From("servers").
		Eq("id", server.ID).
		Delete(ctx)
}
