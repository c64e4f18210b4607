package models

// Row types for the hosted datastore. Ids are uuids assigned by the store,
// timestamps are the RFC3339 strings it returns; they are compared as strings
// (fixed-width fractional seconds keep lexicographic order chronological).

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusAway    = "away"
	StatusBusy    = "busy"
)

const (
	ChannelText  = "text"
	ChannelVoice = "voice"
)

const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipBlocked  = "blocked"
)

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

type Server struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IconURL   string `json:"icon_url"`
	OwnerID   string `json:"owner_id"`
	CreatedAt string `json:"created_at"`
}

type Channel struct {
	ID        string `json:"id"`
	ServerID  string `json:"server_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Position  int    `json:"position"`
	CreatedAt string `json:"created_at"`
}

type Message struct {
	ID          string   `json:"id"`
	ChannelID   string   `json:"channel_id"`
	UserID      string   `json:"user_id"`
	Content     string   `json:"content"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	Attachments []string `json:"attachments"`
	User        *User    `json:"user,omitempty"`
}

// Edited reports whether the message was changed after creation.
func (m Message) Edited() bool {
	return m.UpdatedAt != "" && m.UpdatedAt != m.CreatedAt
}

type ServerMember struct {
	ID       string  `json:"id"`
	ServerID string  `json:"server_id"`
	UserID   string  `json:"user_id"`
	RoleID   *string `json:"role_id"`
	JoinedAt string  `json:"joined_at"`
	User     *User   `json:"user,omitempty"`
	Role     *Role   `json:"role,omitempty"`
}

type Role struct {
	ID          string          `json:"id"`
	ServerID    string          `json:"server_id"`
	Name        string          `json:"name"`
	Color       string          `json:"color"`
	Permissions map[string]bool `json:"permissions"`
	Position    int             `json:"position"`
}

// Friendship is a directed edge: UserID sent the request, FriendID received
// it. Friend carries the embedded counterpart row when the query asked for
// it; for incoming requests the loader remaps the embedded requester into
// Friend so callers always look in one place.
type Friendship struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	FriendID  string `json:"friend_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	Friend    *User  `json:"friend,omitempty"`
	User      *User  `json:"user,omitempty"`
}

// Incoming reports whether the edge points at selfID rather than away from it.
func (f Friendship) Incoming(selfID string) bool {
	return f.FriendID == selfID
}

type DirectMessage struct {
	ID        string `json:"id"`
	User1ID   string `json:"user1_id"`
	User2ID   string `json:"user2_id"`
	CreatedAt string `json:"created_at"`
	User1     *User  `json:"user1,omitempty"`
	User2     *User  `json:"user2,omitempty"`
}

// OtherUserID returns the party that is not selfID.
func (dm DirectMessage) OtherUserID(selfID string) string {
	if dm.User1ID == selfID {
		return dm.User2ID
	}
	return dm.User1ID
}

type DMMessage struct {
	ID          string   `json:"id"`
	DMID        string   `json:"dm_id"`
	UserID      string   `json:"user_id"`
	Content     string   `json:"content"`
	CreatedAt   string   `json:"created_at"`
	Attachments []string `json:"attachments"`
	User        *User    `json:"user,omitempty"`
}

// Feed record accessors, shared by channel and DM message synchronization.

func (m Message) RecordID() string          { return m.ID }
func (m Message) RecordCreatedAt() string   { return m.CreatedAt }
func (m DMMessage) RecordID() string        { return m.ID }
func (m DMMessage) RecordCreatedAt() string { return m.CreatedAt }
