// Package directory projects the current identity's memberships and
// relations into render-ready lists. Loaders are plain fetches; views refresh
// them on the shared poll cadence.
package directory

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"chatapp-client/internal/models"
	"chatapp-client/internal/postgrest"
)

type Directory struct {
	data  *postgrest.Client
	sugar *zap.SugaredLogger
}

func New(data *postgrest.Client, sugar *zap.SugaredLogger) *Directory {
	return &Directory{data: data, sugar: sugar}
}

// Servers lists the servers the identity belongs to, oldest first. The
// membership rows are resolved first, then the server records are fetched by
// id set.
func (d *Directory) Servers(ctx context.Context, userID string) ([]models.Server, error) {
	var memberships []models.ServerMember
	err := d.data.From("server_members").
		Select("server_id").
		Eq("user_id", userID).
		Get(ctx, &memberships)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []models.Server{}, nil
	}

	ids := lo.Map(memberships, func(m models.ServerMember, _ int) string { return m.ServerID })

	var servers []models.Server
	err = d.data.From("servers").
		Select("*").
		In("id", ids).
		Order("created_at", true).
		Get(ctx, &servers)
	if err != nil {
		return nil, err
	}
	return servers, nil
}

// ChannelGroups is a server's channels split for the two sidebar sections.
type ChannelGroups struct {
	Text  []models.Channel
	Voice []models.Channel
}

// Channels lists a server's channels ordered by position and partitions them
// by type.
func (d *Directory) Channels(ctx context.Context, serverID string) (ChannelGroups, error) {
	var channels []models.Channel
	err := d.data.From("channels").
		Select("*").
		Eq("server_id", serverID).
		Order("position", true).
		Get(ctx, &channels)
	if err != nil {
		return ChannelGroups{}, err
	}

	text, voice := lo.FilterReject(channels, func(c models.Channel, _ int) bool {
		return c.Type != models.ChannelVoice
	})
	return ChannelGroups{Text: text, Voice: voice}, nil
}

// FriendLists is the friends view: accepted edges plus the combined pending
// set (outgoing and incoming).
type FriendLists struct {
	Accepted []models.Friendship
	Pending  []models.Friendship
}

const friendEmbed = "*,friend:users!friendships_friend_id_fkey(id,username,avatar_url,status)"
const requesterEmbed = "*,user:users!friendships_user_id_fkey(id,username,avatar_url,status)"

// Friends issues the three friendship queries: accepted outgoing-shaped
// edges, pending outgoing, and pending incoming. Incoming rows remap the
// embedded requester into the Friend slot so direction only matters for the
// accept/decline affordance.
func (d *Directory) Friends(ctx context.Context, userID string) (FriendLists, error) {
	var lists FriendLists

	err := d.data.From("friendships").
		Select(friendEmbed).
		Eq("user_id", userID).
		Eq("status", models.FriendshipAccepted).
		Get(ctx, &lists.Accepted)
	if err != nil {
		return FriendLists{}, err
	}

	err = d.data.From("friendships").
		Select(friendEmbed).
		Eq("user_id", userID).
		Eq("status", models.FriendshipPending).
		Get(ctx, &lists.Pending)
	if err != nil {
		return FriendLists{}, err
	}

	var incoming []models.Friendship
	err = d.data.From("friendships").
		Select(requesterEmbed).
		Eq("friend_id", userID).
		Eq("status", models.FriendshipPending).
		Get(ctx, &incoming)
	if err != nil {
		return FriendLists{}, err
	}

	for _, f := range incoming {
		f.Friend = f.User
		f.User = nil
		lists.Pending = append(lists.Pending, f)
	}
	return lists, nil
}

// Conversation is a DM row with its other party resolved.
type Conversation struct {
	models.DirectMessage
	OtherUserID string
}

// DMs lists the identity's conversations, newest first.
func (d *Directory) DMs(ctx context.Context, userID string) ([]Conversation, error) {
	var dms []models.DirectMessage
	err := d.data.From("direct_messages").
		Select("*,user1:users!direct_messages_user1_id_fkey(id,username,avatar_url,status),user2:users!direct_messages_user2_id_fkey(id,username,avatar_url,status)").
		Or(postgrest.Eq("user1_id", userID), postgrest.Eq("user2_id", userID)).
		Order("created_at", false).
		Get(ctx, &dms)
	if err != nil {
		return nil, err
	}

	return lo.Map(dms, func(dm models.DirectMessage, _ int) Conversation {
		return Conversation{DirectMessage: dm, OtherUserID: dm.OtherUserID(userID)}
	}), nil
}

// Members lists a server's members with their user and role rows embedded.
func (d *Directory) Members(ctx context.Context, serverID string) ([]models.ServerMember, error) {
	var members []models.ServerMember
	err := d.data.From("server_members").
		Select("*,user:users(id,username,avatar_url),role:roles(id,name,color)").
		Eq("server_id", serverID).
		Get(ctx, &members)
	if err != nil {
		return nil, err
	}
	return members, nil
}

// Roles lists a server's roles ordered by position.
func (d *Directory) Roles(ctx context.Context, serverID string) ([]models.Role, error) {
	var roles []models.Role
	err := d.data.From("roles").
		Select("*").
		Eq("server_id", serverID).
		Order("position", true).
		Get(ctx, &roles)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// SearchUsers finds up to ten users whose username contains the query,
// excluding the identity itself.
func (d *Directory) SearchUsers(ctx context.Context, selfID, query string) ([]models.User, error) {
	var users []models.User
	err := d.data.From("users").
		Select("*").
		Ilike("username", "%"+query+"%").
		Neq("id", selfID).
		Limit(10).
		Get(ctx, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}
