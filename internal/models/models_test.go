package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageEdited(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{
			name: "untouched",
			msg:  Message{CreatedAt: "2025-01-01T00:00:00.000000Z", UpdatedAt: "2025-01-01T00:00:00.000000Z"},
			want: false,
		},
		{
			name: "edited later",
			msg:  Message{CreatedAt: "2025-01-01T00:00:00.000000Z", UpdatedAt: "2025-01-01T00:05:00.000Z"},
			want: true,
		},
		{
			name: "no updated_at",
			msg:  Message{CreatedAt: "2025-01-01T00:00:00.000000Z"},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.msg.Edited())
		})
	}
}

func TestDirectMessageOtherUserID(t *testing.T) {
	dm := DirectMessage{User1ID: "a", User2ID: "b"}
	require.Equal(t, "b", dm.OtherUserID("a"))
	require.Equal(t, "a", dm.OtherUserID("b"))
}

func TestFriendshipIncoming(t *testing.T) {
	f := Friendship{UserID: "sender", FriendID: "addressee"}
	require.True(t, f.Incoming("addressee"))
	require.False(t, f.Incoming("sender"))
}
