// Package composer turns local draft state, text plus staged files, into one
// persisted message row.
package composer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chatapp-client/internal/postgrest"
	"chatapp-client/internal/storage"
)

// ErrEmptyDraft means there was nothing to send; no remote call is made.
var ErrEmptyDraft = errors.New("composer: empty draft")

// Attachment is a staged file waiting to be uploaded on send.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Composer struct {
	data   *postgrest.Client
	store  *storage.Client
	sugar  *zap.SugaredLogger
	userID string

	mu          sync.Mutex
	content     string
	attachments []Attachment
}

func New(data *postgrest.Client, store *storage.Client, sugar *zap.SugaredLogger, userID string) *Composer {
	return &Composer{data: data, store: store, sugar: sugar, userID: userID}
}

func (c *Composer) SetContent(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = content
}

// Stage adds a file to the draft.
func (c *Composer) Stage(a Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachments = append(c.attachments, a)
}

// Unstage drops the staged file at index i.
func (c *Composer) Unstage(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.attachments) {
		return
	}
	c.attachments = append(c.attachments[:i], c.attachments[i+1:]...)
}

// Draft returns the current text and staged file count.
func (c *Composer) Draft() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, len(c.attachments)
}

// SendChannelMessage persists the draft into a channel.
func (c *Composer) SendChannelMessage(ctx context.Context, channelID string) error {
	return c.send(ctx, "messages", "channel_id", channelID)
}

// SendDMMessage persists the draft into a direct-message conversation.
func (c *Composer) SendDMMessage(ctx context.Context, dmID string) error {
	return c.send(ctx, "dm_messages", "dm_id", dmID)
}

// send uploads staged attachments one after another, then inserts a single
// row referencing the successful URLs. An individual upload failure is logged
// and skipped; it neither aborts the remaining uploads nor the message. On
// success the draft is cleared; the feed picks the row up on its next poll.
func (c *Composer) send(ctx context.Context, table, scopeCol, scopeID string) error {
	c.mu.Lock()
	content := strings.TrimSpace(c.content)
	staged := make([]Attachment, len(c.attachments))
	copy(staged, c.attachments)
	c.mu.Unlock()

	if content == "" && len(staged) == 0 {
		return ErrEmptyDraft
	}

	var urls []string
	for _, a := range staged {
		objectPath := storage.AttachmentPath(c.userID, a.Name)
		if err := c.store.Upload(ctx, storage.AttachmentsBucket, objectPath, a.Data, a.ContentType); err != nil {
			c.sugar.Errorw("uploading attachment", "name", a.Name, "error", err)
			continue
		}
		urls = append(urls, c.store.PublicURL(storage.AttachmentsBucket, objectPath))
	}

	row := map[string]any{
		scopeCol:  scopeID,
		"user_id": c.userID,
		"content": content,
	}
	if len(urls) > 0 {
		row["attachments"] = urls
	} else {
		row["attachments"] = nil
	}

	if err := c.data.From(table).Insert(ctx, row, nil); err != nil {
		return err
	}

	c.mu.Lock()
	c.content = ""
	c.attachments = nil
	c.mu.Unlock()
	return nil
}
