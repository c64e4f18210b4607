package actions

import (
	"context"
	"errors"

	"chatapp-client/internal/models"
	"chatapp-client/internal/postgrest"
)

// OpenDM returns the id of the conversation between the identity and friend,
// creating it only when no row exists in either direction. Callers navigate
// to the returned id, so two users end up in one shared conversation no
// matter who opened it first.
func (a *Actions) OpenDM(ctx context.Context, selfID, friendID string) (string, error) {
	var existing models.DirectMessage
	err := a.data.From("direct_messages").
		Select("id").
		Or(
			postgrest.And(postgrest.Eq("user1_id", selfID), postgrest.Eq("user2_id", friendID)),
			postgrest.And(postgrest.Eq("user1_id", friendID), postgrest.Eq("user2_id", selfID)),
		).
		Single().
		Get(ctx, &existing)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, postgrest.ErrNotFound) {
		return "", err
	}

	var created models.DirectMessage
	err = a.data.From("direct_messages").
		Single().
		Insert(ctx, map[string]any{
			"user1_id": selfID,
			"user2_id": friendID,
		}, &created)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}
