package actions

import (
	"context"
	"fmt"
	"strings"

	"chatapp-client/internal/models"
	"chatapp-client/internal/validate"
)

type UpdateProfileParams struct {
	UserID    string `validate:"required"`
	Username  string `validate:"required,min=3,max=32"`
	AvatarURL string `validate:"omitempty,url"`
}

// UpdateProfile re-checks username uniqueness against the store before
// writing; a clash surfaces as ErrUsernameTaken for inline display and no
// update is attempted.
func (a *Actions) UpdateProfile(ctx context.Context, p UpdateProfileParams) error {
	p.Username = strings.TrimSpace(p.Username)
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}

	var clashes []models.User
	err := a.data.From("users").
		Select("id").
		Eq("username", p.Username).
		Neq("id", p.UserID).
		Limit(1).
		Get(ctx, &clashes)
	if err != nil {
		return err
	}
	if len(clashes) > 0 {
		return ErrUsernameTaken
	}

	return a.data.From("users").
		Eq("id", p.UserID).
		Update(ctx, map[string]any{
			"username":   p.Username,
			"avatar_url": p.AvatarURL,
		})
}
