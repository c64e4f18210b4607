package feed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"chatapp-client/internal/models"
)

func msgs(ids ...int) []models.Message {
	out := make([]models.Message, len(ids))
	for i, id := range ids {
		out[i] = models.Message{
			ID:        fmt.Sprintf("m%d", id),
			CreatedAt: fmt.Sprintf("2025-01-01T00:00:%02d.000000Z", id),
		}
	}
	return out
}

func TestMergeSkipsSeenIDs(t *testing.T) {
	f := NewChannelFeed(nil, zap.NewNop().Sugar(), "c1")

	require.True(t, f.merge(msgs(1, 2)))
	require.True(t, f.merge(msgs(2, 3)))

	got := f.Messages()
	require.Len(t, got, 3)
	require.Equal(t, "m1", got[0].ID)
	require.Equal(t, "m2", got[1].ID)
	require.Equal(t, "m3", got[2].ID)
}

func TestMergeReportsNoChange(t *testing.T) {
	f := NewChannelFeed(nil, zap.NewNop().Sugar(), "c1")

	require.True(t, f.merge(msgs(1)))
	require.False(t, f.merge(msgs(1)))
	require.False(t, f.merge(nil))
	require.Len(t, f.Messages(), 1)
}

func TestMergeProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		idGen := rapid.IntRange(0, 30)
		initial := rapid.SliceOfDistinct(idGen, rapid.ID).Draw(t, "initial")
		delta := rapid.SliceOfDistinct(idGen, rapid.ID).Draw(t, "delta")

		f := NewChannelFeed(nil, zap.NewNop().Sugar(), "c1")
		f.merge(msgs(initial...))
		f.merge(msgs(delta...))

		got := f.Messages()

		// no duplicates, regardless of overlap between the two batches
		seen := map[string]bool{}
		for _, m := range got {
			if seen[m.ID] {
				t.Fatalf("duplicate id %s", m.ID)
			}
			seen[m.ID] = true
		}

		// exactly the union
		want := map[string]bool{}
		for _, id := range initial {
			want[fmt.Sprintf("m%d", id)] = true
		}
		for _, id := range delta {
			want[fmt.Sprintf("m%d", id)] = true
		}
		if len(got) != len(want) {
			t.Fatalf("got %d messages, want %d", len(got), len(want))
		}

		// earlier rows never move
		for i, id := range initial {
			if got[i].ID != fmt.Sprintf("m%d", id) {
				t.Fatalf("initial row %d moved", i)
			}
		}
	})
}
