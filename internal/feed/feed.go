// Package feed keeps a message list in step with the remote store. One Feed
// is bound to a scope (a channel or a direct-message conversation); it does
// an initial page load and then, on the shared poll cadence, re-queries for
// rows newer than the last one it knows about and merges the unseen ones in.
package feed

import (
	"context"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"chatapp-client/internal/models"
	"chatapp-client/internal/postgrest"
)

// initialLimit caps the first page of a freshly opened scope.
const initialLimit = 50

const authorEmbed = "*,user:users(id,username,avatar_url)"

const editTimeLayout = "2006-01-02T15:04:05.000Z"

// Record is a feed row: channel messages and DM messages both qualify.
type Record interface {
	RecordID() string
	RecordCreatedAt() string
}

type Feed[M Record] struct {
	data  *postgrest.Client
	sugar *zap.SugaredLogger

	table    string
	scopeCol string
	scopeID  string

	editPayload func(content string) map[string]any
	applyEdit   func(m M, content string) M

	// Confirm gates destructive operations. A nil hook means no prompt is
	// available and the operation proceeds.
	Confirm func(prompt string) bool

	// OnChange fires after the visible list changed. Called without the
	// internal lock held.
	OnChange func()

	mu       sync.Mutex
	messages []M
}

// NewChannelFeed synchronizes one text channel.
func NewChannelFeed(data *postgrest.Client, sugar *zap.SugaredLogger, channelID string) *Feed[models.Message] {
	return &Feed[models.Message]{
		data:     data,
		sugar:    sugar,
		table:    "messages",
		scopeCol: "channel_id",
		scopeID:  channelID,
		editPayload: func(content string) map[string]any {
			return map[string]any{
				"content":    content,
				"updated_at": time.Now().UTC().Format(editTimeLayout),
			}
		},
		applyEdit: func(m models.Message, content string) models.Message {
			m.Content = content
			m.UpdatedAt = time.Now().UTC().Format(editTimeLayout)
			return m
		},
	}
}

// NewDMFeed synchronizes one direct-message conversation. DM rows carry no
// updated_at, so edits replace content only.
func NewDMFeed(data *postgrest.Client, sugar *zap.SugaredLogger, dmID string) *Feed[models.DMMessage] {
	return &Feed[models.DMMessage]{
		data:     data,
		sugar:    sugar,
		table:    "dm_messages",
		scopeCol: "dm_id",
		scopeID:  dmID,
		editPayload: func(content string) map[string]any {
			return map[string]any{"content": content}
		},
		applyEdit: func(m models.DMMessage, content string) models.DMMessage {
			m.Content = content
			return m
		},
	}
}

// Load fetches the initial page, oldest first, replacing local state.
func (f *Feed[M]) Load(ctx context.Context) error {
	var rows []M
	err := f.data.From(f.table).
		Select(authorEmbed).
		Eq(f.scopeCol, f.scopeID).
		Order("created_at", true).
		Limit(initialLimit).
		Get(ctx, &rows)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.messages = rows
	f.mu.Unlock()

	f.notify()
	return nil
}

// Poll is one synchronization pass: a delta query for rows newer than the
// last known one, or a full reload when the feed is empty. Failures are
// logged and swallowed; the next tick tries again.
func (f *Feed[M]) Poll(ctx context.Context) {
	f.mu.Lock()
	var last string
	if n := len(f.messages); n > 0 {
		last = f.messages[n-1].RecordCreatedAt()
	}
	f.mu.Unlock()

	if last == "" {
		if err := f.Load(ctx); err != nil {
			f.sugar.Errorw("reloading feed", "table", f.table, "scope", f.scopeID,
				"retryable", postgrest.IsRetryable(err), "error", err)
		}
		return
	}

	var rows []M
	err := f.data.From(f.table).
		Select(authorEmbed).
		Eq(f.scopeCol, f.scopeID).
		Gt("created_at", last).
		Order("created_at", true).
		Get(ctx, &rows)
	if err != nil {
		f.sugar.Errorw("polling feed", "table", f.table, "scope", f.scopeID,
			"retryable", postgrest.IsRetryable(err), "error", err)
		return
	}

	if f.merge(rows) {
		f.notify()
	}
}

// merge appends records not yet present, preserving arrival order. The delta
// query already returns rows ascending, so concatenation keeps the list
// sorted. Reports whether anything was added.
func (f *Feed[M]) merge(rows []M) bool {
	if len(rows) == 0 {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]struct{}, len(f.messages))
	for _, m := range f.messages {
		seen[m.RecordID()] = struct{}{}
	}

	added := false
	for _, m := range rows {
		if _, ok := seen[m.RecordID()]; ok {
			continue
		}
		seen[m.RecordID()] = struct{}{}
		f.messages = append(f.messages, m)
		added = true
	}
	return added
}

// Messages returns a snapshot of the visible list.
func (f *Feed[M]) Messages() []M {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]M, len(f.messages))
	copy(out, f.messages)
	return out
}

// Edit updates one record remotely, then patches it in place. No re-fetch
// follows; the local copy is trusted until the scope is reopened.
func (f *Feed[M]) Edit(ctx context.Context, id, content string) error {
	err := f.data.From(f.table).
		Eq("id", id).
		Update(ctx, f.editPayload(content))
	if err != nil {
		return err
	}

	f.mu.Lock()
	for i, m := range f.messages {
		if m.RecordID() == id {
			f.messages[i] = f.applyEdit(m, content)
			break
		}
	}
	f.mu.Unlock()

	f.notify()
	return nil
}

// Delete removes one record, gated by the Confirm hook. Declining leaves
// both remote and local state untouched. There is no undo.
func (f *Feed[M]) Delete(ctx context.Context, id string) error {
	if f.Confirm != nil && !f.Confirm("Are you sure you want to delete this message?") {
		return nil
	}

	err := f.data.From(f.table).
		Eq("id", id).
		Delete(ctx)
	if err != nil {
		return err
	}

	f.mu.Lock()
	for i, m := range f.messages {
		if m.RecordID() == id {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			break
		}
	}
	f.mu.Unlock()

	f.notify()
	return nil
}

// Topic is the shared poller key for this scope.
func (f *Feed[M]) Topic() string {
	return "feed:" + f.table + ":" + f.scopeID
}

func (f *Feed[M]) notify() {
	if f.OnChange != nil {
		f.OnChange()
	}
}

var imageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)

// IsImageURL reports whether an attachment URL should render as an inline
// preview rather than a download link.
func IsImageURL(url string) bool {
	return imageExt.MatchString(url)
}
