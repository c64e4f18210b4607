package postgrest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client talks to the relational data service's REST surface. All state it
// holds is connection configuration; one instance is shared by every loader
// and mutation in the process.
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
		http:    &http.Client{Timeout: 30 * time.Second},
		sugar:   sugar,
	}
}

// SetToken installs the access token used for every subsequent request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// From starts a query against one table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, selectCols: "*", limit: -1}
}

func (c *Client) do(ctx context.Context, method string, rawURL string, headers map[string]string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Message: err.Error()}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return &Error{Message: err.Error()}
	}

	req.Header.Set("apikey", c.apiKey)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &Error{Message: "decoding response: " + err.Error()}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	// object-accept queries answer 406 when no row matched
	if resp.StatusCode == http.StatusNotAcceptable {
		io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	}

	var payload struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		payload.Message = strings.TrimSpace(string(raw))
	}
	return &Error{StatusCode: resp.StatusCode, Message: payload.Message}
}
