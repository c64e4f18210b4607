// Package gotrue is a minimal client for the identity service: establish a
// session, fetch the current identity, sign out. Tokens are the service's
// JWTs; claims are parsed locally only for cheap expiry checks, verification
// stays with the services that consume the token.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrNotAuthenticated means there is no usable session: missing token, or the
// identity service rejected it.
var ErrNotAuthenticated = errors.New("gotrue: not authenticated")

// User is the identity the service reports for the current session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the result of a sign-in.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        User   `json:"user"`
}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

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

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Token() string {
	return c.token
}

// SignIn exchanges credentials for a session and installs its token on the
// client.
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v1/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Session{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Session{}, fmt.Errorf("gotrue: sign-in failed with status %d", resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return Session{}, err
	}
	c.token = session.AccessToken
	return session, nil
}

// CurrentUser fetches the identity behind the installed token. A missing or
// rejected token is reported as ErrNotAuthenticated so callers can redirect
// to login.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	if c.token == "" {
		return User{}, ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, resp.Body)
		return User{}, ErrNotAuthenticated
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return User{}, fmt.Errorf("gotrue: fetching user failed with status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return User{}, err
	}
	return user, nil
}

// SignOut revokes the session and clears the token.
func (c *Client) SignOut(ctx context.Context) error {
	if c.token == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	c.token = ""
	return nil
}

// ParseClaims decodes a token's claims without verifying the signature; the
// signing secret belongs to the service side.
func ParseClaims(token string) (Claims, error) {
	var claims Claims
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// Expired reports whether a token's exp claim has passed.
func Expired(claims Claims) bool {
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Now().UTC().After(claims.ExpiresAt.UTC())
}
