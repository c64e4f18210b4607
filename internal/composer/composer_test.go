package composer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chatapp-client/internal/models"
	"chatapp-client/internal/postgrest"
	"chatapp-client/internal/storage"
	"chatapp-client/internal/suptest"
)

type env struct {
	backend *suptest.Server
	data    *postgrest.Client
	store   *storage.Client
	user    models.User
	channel string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	sugar := zap.NewNop().Sugar()

	backend, err := suptest.New(filepath.Join(t.TempDir(), "app.db"), sugar)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)

	user, token, err := backend.CreateUser("alice@example.com", "hunter22", "alice")
	require.NoError(t, err)

	data := postgrest.New(ts.URL, "anon", sugar)
	data.SetToken(token)
	store := storage.New(ts.URL, "anon", sugar)
	store.SetToken(token)

	ctx := context.Background()
	var server models.Server
	require.NoError(t, data.From("servers").Single().Insert(ctx,
		map[string]any{"name": "test", "owner_id": user.ID}, &server))

	var channel models.Channel
	require.NoError(t, data.From("channels").Single().Insert(ctx,
		map[string]any{"server_id": server.ID, "name": "general"}, &channel))

	return &env{backend: backend, data: data, store: store, user: user, channel: channel.ID}
}

func (e *env) channelMessages(t *testing.T) []models.Message {
	t.Helper()
	var rows []models.Message
	err := e.data.From("messages").
		Eq("channel_id", e.channel).
		Order("created_at", true).
		Get(context.Background(), &rows)
	require.NoError(t, err)
	return rows
}

func TestEmptyDraftDoesNotWrite(t *testing.T) {
	e := newEnv(t)
	c := New(e.data, e.store, zap.NewNop().Sugar(), e.user.ID)

	err := c.SendChannelMessage(context.Background(), e.channel)
	require.ErrorIs(t, err, ErrEmptyDraft)

	c.SetContent("   \t  ")
	err = c.SendChannelMessage(context.Background(), e.channel)
	require.ErrorIs(t, err, ErrEmptyDraft)

	require.Empty(t, e.channelMessages(t))
	require.Zero(t, e.backend.ObjectCount())
}

func TestSendTextOnly(t *testing.T) {
	e := newEnv(t)
	c := New(e.data, e.store, zap.NewNop().Sugar(), e.user.ID)

	c.SetContent("  hello world  ")
	require.NoError(t, c.SendChannelMessage(context.Background(), e.channel))

	rows := e.channelMessages(t)
	require.Len(t, rows, 1)
	require.Equal(t, "hello world", rows[0].Content)
	require.Equal(t, e.user.ID, rows[0].UserID)
	require.Empty(t, rows[0].Attachments)

	// draft cleared after a successful send
	content, staged := c.Draft()
	require.Empty(t, content)
	require.Zero(t, staged)
}

func TestSendUploadsAttachmentsBeforeInsert(t *testing.T) {
	e := newEnv(t)
	c := New(e.data, e.store, zap.NewNop().Sugar(), e.user.ID)

	c.Stage(Attachment{Name: "cat.png", ContentType: "image/png", Data: []byte("png-bytes")})
	c.Stage(Attachment{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hi")})
	require.NoError(t, c.SendChannelMessage(context.Background(), e.channel))

	require.Equal(t, 2, e.backend.ObjectCount())

	rows := e.channelMessages(t)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Attachments, 2)
	for _, url := range rows[0].Attachments {
		require.Contains(t, url, "/storage/v1/object/public/attachments/"+e.user.ID+"/")
	}
}

func TestUploadFailureIsSkippedNotFatal(t *testing.T) {
	e := newEnv(t)

	// storage stub that rejects anything named bad.*
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "bad") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"Key":"ok"}`))
	}))
	defer stub.Close()

	store := storage.New(stub.URL, "anon", zap.NewNop().Sugar())
	c := New(e.data, store, zap.NewNop().Sugar(), e.user.ID)

	c.Stage(Attachment{Name: "good.png", ContentType: "image/png", Data: []byte("a")})
	c.Stage(Attachment{Name: "bad.png", ContentType: "image/png", Data: []byte("b")})
	c.Stage(Attachment{Name: "also-good.png", ContentType: "image/png", Data: []byte("c")})
	require.NoError(t, c.SendChannelMessage(context.Background(), e.channel))

	rows := e.channelMessages(t)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Attachments, 2)
}

func TestSendDMMessage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	bob, _, err := e.backend.CreateUser("bob@example.com", "hunter22", "bob")
	require.NoError(t, err)

	var dm models.DirectMessage
	require.NoError(t, e.data.From("direct_messages").Single().Insert(ctx,
		map[string]any{"user1_id": e.user.ID, "user2_id": bob.ID}, &dm))

	c := New(e.data, e.store, zap.NewNop().Sugar(), e.user.ID)
	c.SetContent("psst")
	require.NoError(t, c.SendDMMessage(ctx, dm.ID))

	var rows []models.DMMessage
	require.NoError(t, e.data.From("dm_messages").Eq("dm_id", dm.ID).Get(ctx, &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "psst", rows[0].Content)
}

func TestUnstage(t *testing.T) {
	c := New(nil, nil, zap.NewNop().Sugar(), "u1")

	c.Stage(Attachment{Name: "a"})
	c.Stage(Attachment{Name: "b"})
	c.Unstage(0)

	_, staged := c.Draft()
	require.Equal(t, 1, staged)

	c.Unstage(5) // out of range is a no-op
	_, staged = c.Draft()
	require.Equal(t, 1, staged)
}
