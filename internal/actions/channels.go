package actions

import (
	"context"
	"fmt"
	"strings"

	"chatapp-client/internal/models"
	"chatapp-client/internal/validate"
)

type CreateChannelParams struct {
	ServerID string `validate:"required"`
	Name     string `validate:"required,max=32"`
	Type     string `validate:"required,oneof=text voice"`
}

// CreateChannel inserts a channel at the end of its own type's ordering:
// position is max + 1 among channels of the same type in the server, so text
// and voice sections order independently.
func (a *Actions) CreateChannel(ctx context.Context, p CreateChannelParams) (models.Channel, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validate.Struct(p); err != nil {
		return models.Channel{}, fmt.Errorf("creating channel: %w", err)
	}

	var top []models.Channel
	err := a.data.From("channels").
		Select("position").
		Eq("server_id", p.ServerID).
		Eq("type", p.Type).
		Order("position", false).
		Limit(1).
		Get(ctx, &top)
	if err != nil {
		return models.Channel{}, err
	}
	position := 0
	if len(top) > 0 {
		position = top[0].Position + 1
	}

	var created models.Channel
	err = a.data.From("channels").
		Single().
		Insert(ctx, map[string]any{
			"server_id": p.ServerID,
			"name":      p.Name,
			"type":      p.Type,
			"position":  position,
		}, &created)
	if err != nil {
		return models.Channel{}, err
	}
	return created, nil
}

// DeleteChannel removes a channel after an ownership check and confirmation.
func (a *Actions) DeleteChannel(ctx context.Context, server models.Server, selfID, channelID string) error {
	if server.OwnerID != selfID {
		return ErrNotOwner
	}
	if !a.confirmed("Are you sure you want to delete this channel?") {
		return nil
	}
	return a.data.From("channels").
		Eq("id", channelID).
		Delete(ctx)
}
