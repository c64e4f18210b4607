package actions

import (
	"context"

	"chatapp-client/internal/models"
)

// SendFriendRequest inserts a pending edge pointing from the identity at the
// addressee. No duplicate check is made here; the store's unique constraint
// has the final word.
func (a *Actions) SendFriendRequest(ctx context.Context, selfID, friendID string) error {
	return a.data.From("friendships").Insert(ctx, map[string]any{
		"user_id":   selfID,
		"friend_id": friendID,
		"status":    models.FriendshipPending,
	}, nil)
}

// AcceptFriendRequest flips the existing edge to accepted. No reciprocal
// edge is created; readers interpret the single edge symmetrically.
func (a *Actions) AcceptFriendRequest(ctx context.Context, friendshipID string) error {
	return a.data.From("friendships").
		Eq("id", friendshipID).
		Update(ctx, map[string]any{"status": models.FriendshipAccepted})
}

// DeclineFriendRequest deletes the edge outright.
func (a *Actions) DeclineFriendRequest(ctx context.Context, friendshipID string) error {
	return a.data.From("friendships").
		Eq("id", friendshipID).
		Delete(ctx)
}

// BlockUser upserts an edge with status blocked, keyed by the directed pair.
func (a *Actions) BlockUser(ctx context.Context, selfID, friendID string) error {
	return a.data.From("friendships").
		OnConflict("user_id,friend_id").
		Upsert(ctx, map[string]any{
			"user_id":   selfID,
			"friend_id": friendID,
			"status":    models.FriendshipBlocked,
		})
}
