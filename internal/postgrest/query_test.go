package postgrest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueryParams(t *testing.T) {
	client := New("http://localhost", "anon", zap.NewNop().Sugar())

	tests := []struct {
		name  string
		query *Query
		want  url.Values
	}{
		{
			name:  "plain select",
			query: client.From("users"),
			want:  url.Values{"select": {"*"}},
		},
		{
			name: "filters and order",
			query: client.From("messages").
				Select("*,user:users(id,username,avatar_url)").
				Eq("channel_id", "c1").
				Gt("created_at", "2025-01-01T00:00:00.000Z").
				Order("created_at", true).
				Limit(50),
			want: url.Values{
				"select":     {"*,user:users(id,username,avatar_url)"},
				"channel_id": {"eq.c1"},
				"created_at": {"gt.2025-01-01T00:00:00.000Z"},
				"order":      {"created_at.asc"},
				"limit":      {"50"},
			},
		},
		{
			name:  "neq and ilike",
			query: client.From("users").Neq("id", "u1").Ilike("username", "%bob%"),
			want: url.Values{
				"select":   {"*"},
				"id":       {"neq.u1"},
				"username": {"ilike.%bob%"},
			},
		},
		{
			name:  "in set",
			query: client.From("servers").In("id", []string{"s1", "s2"}),
			want: url.Values{
				"select": {"*"},
				"id":     {"in.(s1,s2)"},
			},
		},
		{
			name: "or of and groups",
			query: client.From("direct_messages").Or(
				And(Eq("user1_id", "a"), Eq("user2_id", "b")),
				And(Eq("user1_id", "b"), Eq("user2_id", "a")),
			),
			want: url.Values{
				"select": {"*"},
				"or":     {"(and(user1_id.eq.a,user2_id.eq.b),and(user1_id.eq.b,user2_id.eq.a))"},
			},
		},
		{
			name:  "descending order",
			query: client.From("channels").Order("position", false).Limit(1),
			want: url.Values{
				"select": {"*"},
				"order":  {"position.desc"},
				"limit":  {"1"},
			},
		},
		{
			name:  "on conflict",
			query: client.From("friendships").OnConflict("user_id,friend_id"),
			want: url.Values{
				"select":      {"*"},
				"on_conflict": {"user_id,friend_id"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.query.params(true))
		})
	}
}

func TestSingleSetsObjectAccept(t *testing.T) {
	client := New("http://localhost", "anon", zap.NewNop().Sugar())

	h := client.From("users").Single().headers("")
	require.Equal(t, "application/vnd.pgrst.object+json", h["Accept"])

	h = client.From("users").headers("")
	require.Empty(t, h["Accept"])
}

func TestGetSendsAuthHeaders(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer ts.Close()

	client := New(ts.URL, "anon-key", zap.NewNop().Sugar())
	client.SetToken("access-token")

	var rows []map[string]any
	err := client.From("users").Get(context.Background(), &rows)
	require.NoError(t, err)
	require.Equal(t, "anon-key", got.Get("apikey"))
	require.Equal(t, "Bearer access-token", got.Get("Authorization"))
}

func TestSingleNoRowIsNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
	}))
	defer ts.Close()

	client := New(ts.URL, "anon", zap.NewNop().Sugar())

	var row map[string]any
	err := client.From("users").Eq("id", "missing").Single().Get(context.Background(), &row)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"conflict", http.StatusConflict, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"message":"nope"}`))
			}))
			defer ts.Close()

			client := New(ts.URL, "anon", zap.NewNop().Sugar())
			err := client.From("users").Get(context.Background(), &[]map[string]any{})

			var perr *Error
			require.ErrorAs(t, err, &perr)
			require.Equal(t, tt.status, perr.StatusCode)
			require.Equal(t, "nope", perr.Message)
			require.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestNetworkErrorIsRetryable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	client := New(ts.URL, "anon", zap.NewNop().Sugar())
	err := client.From("users").Get(context.Background(), &[]map[string]any{})

	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Zero(t, perr.StatusCode)
	require.True(t, IsRetryable(err))
}
