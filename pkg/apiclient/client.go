// Package apiclient is the REST side of the messenger: login, history
// fetches and read markers against the darasa API service.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/makini/darasa/pkg/model"
)

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Token returns the bearer token obtained by Login.
func (c *Client) Token() string { return c.token }

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges a user id and role for a JWT and keeps it for
// subsequent calls.
func (c *Client) Login(ctx context.Context, userID, role string) (string, error) {
	body, _ := json.Marshal(loginRequest{UserID: userID, Role: role})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp loginResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// History fetches the confirmed messages of one thread.
func (c *Client) History(ctx context.Context, thread model.ThreadID) ([]model.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/threads/"+thread.Key()+"/messages", nil)
	if err != nil {
		return nil, err
	}

	var msgs []model.Message
	if err := c.do(req, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Threads lists the caller's conversations and spaces with unread
// counts.
func (c *Client) Threads(ctx context.Context) ([]model.ThreadSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/threads", nil)
	if err != nil {
		return nil, err
	}

	var out []model.ThreadSummary
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead resets the caller's unread counter for a thread.
func (c *Client) MarkRead(ctx context.Context, thread model.ThreadID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/threads/"+thread.Key()+"/read", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// do runs the request with auth attached and decodes the JSON reply.
// Non-2xx responses become errors carrying the body text, so failure
// banners have something human-readable to show.
func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path,
			strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
