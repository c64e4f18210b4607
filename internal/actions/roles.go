package actions

import (
	"context"

	"chatapp-client/internal/models"
)

// CreateRole inserts a role at the bottom of the server's role list
// (position = current max + 1) with an empty permission map. The permission
// map is stored but never evaluated in this client.
func (a *Actions) CreateRole(ctx context.Context, serverID, name, color string) (models.Role, error) {
	var top []models.Role
	err := a.data.From("roles").
		Select("position").
		Eq("server_id", serverID).
		Order("position", false).
		Limit(1).
		Get(ctx, &top)
	if err != nil {
		return models.Role{}, err
	}
	position := 0
	if len(top) > 0 {
		position = top[0].Position + 1
	}

	var created models.Role
	err = a.data.From("roles").
		Single().
		Insert(ctx, map[string]any{
			"server_id":   serverID,
			"name":        name,
			"color":       color,
			"permissions": map[string]bool{},
			"position":    position,
		}, &created)
	if err != nil {
		return models.Role{}, err
	}
	return created, nil
}

// DeleteRole removes a role after confirmation. Memberships referencing it
// fall back to no role via the store's foreign-key behavior.
func (a *Actions) DeleteRole(ctx context.Context, roleID string) error {
	if !a.confirmed("Are you sure you want to delete this role?") {
		return nil
	}
	return a.data.From("roles").
		Eq("id", roleID).
		Delete(ctx)
}

// AssignRole points a membership row at a role; nil clears the assignment.
func (a *Actions) AssignRole(ctx context.Context, memberID string, roleID *string) error {
	return a.data.From("server_members").
		Eq("id", memberID).
		Update(ctx, map[string]any{"role_id": roleID})
}
