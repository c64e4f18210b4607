// Package storage uploads binary objects to the hosted blob store and
// resolves their public URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AttachmentsBucket is where message attachments live.
const AttachmentsBucket = "attachments"

type Client struct {
	baseURL string
	apiKey  string
	token   string
	http    *http.Client
	sugar   *zap.SugaredLogger
}

func New(baseURL string, apiKey string, sugar *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
		sugar:   sugar,
	}
}

func (c *Client) SetToken(token string) {
	c.token = token
}

// Upload stores data under bucket/objectPath. Paths are expected to be
// unique per upload; nothing is overwritten intentionally.
func (c *Client) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("storage: upload of %s/%s failed with status %d", bucket, objectPath, resp.StatusCode)
	}
	return nil
}

// PublicURL returns the unauthenticated URL for a stored object.
func (c *Client) PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, objectPath)
}

// AttachmentPath builds the per-identity, timestamp-namespaced object path
// used for message attachments: attachments/<userID>/<unix-ms>.<ext>.
func AttachmentPath(userID, filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	name := fmt.Sprintf("%d", time.Now().UnixMilli())
	if ext != "" {
		name += "." + ext
	}
	return fmt.Sprintf("attachments/%s/%s", userID, name)
}
