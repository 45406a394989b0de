// Package api is the client side of the REST boundary: account, topic, history and stats calls.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/parley-app/parley/internal/model/chat"
	"github.com/parley-app/parley/internal/model/conversation"
	"github.com/parley-app/parley/internal/model/topic"
	"github.com/parley-app/parley/pkg/utils"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// HistoryEntry is one past conversation of the signed-in user.
type HistoryEntry struct {
	chat.Session
	TopicName    string `json:"topicName"`
	MessageCount int    `json:"messageCount"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Option customizes a Client.
type Option func(*retryablehttp.Client)

// WithRetry sets how often GET requests are retried after connection errors, 429 or 5xx.
// Signup, login and the password calls are never retried.
func WithRetry(max int, wait time.Duration) Option {
	return func(c *retryablehttp.Client) {
		c.RetryMax = max
		c.RetryWaitMin = wait
		c.RetryWaitMax = 4 * wait
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *retryablehttp.Client) {
		c.HTTPClient = hc
	}
}

// Client talks to the parley REST API.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewClient creates a client for baseURL, e.g. "http://localhost:8000".
func NewClient(baseURL string, opts ...Option) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.HTTPClient.Timeout = 15 * time.Second
	hc.Logger = leveledLogger{}
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	hc.CheckRetry = retryIdempotent
	for _, opt := range opts {
		opt(hc)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    hc,
	}
}

// BaseURL returns the server root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Signup registers an account and returns its access token.
func (c *Client) Signup(ctx context.Context, username, email, password string) (conversation.Credential, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &out); err != nil {
		return "", err
	}
	return conversation.Credential(out.AccessToken), nil
}

// Login exchanges email and password for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (conversation.Credential, error) {
	body := map[string]string{"email": email, "password": password}
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/login", "", body, &out); err != nil {
		return "", err
	}
	return conversation.Credential(out.AccessToken), nil
}

// ForgotPassword asks the server to send a reset link for email and returns its message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageResponse
	if err := c.do(ctx, http.MethodPost, "/forget-password", "", map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ResetPassword sets a new password with a token from the reset link.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	body := map[string]string{"token": token, "new_password": newPassword}
	var out messageResponse
	if err := c.do(ctx, http.MethodPost, "/reset-password", "", body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Topics lists topics, optionally restricted to one category.
func (c *Client) Topics(ctx context.Context, category string) ([]topic.Topic, error) {
	path := "/topics"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var out []topic.Topic
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Categories lists topic categories.
func (c *Client) Categories(ctx context.Context) ([]topic.Category, error) {
	var out []topic.Category
	if err := c.do(ctx, http.MethodGet, "/categories", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// History lists the conversations of the credential's owner, newest first.
func (c *Client) History(ctx context.Context, cred conversation.Credential) ([]HistoryEntry, error) {
	var out []HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/history", cred.Bearer(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transcript returns the recorded lines of one past conversation.
func (c *Client) Transcript(ctx context.Context, cred conversation.Credential, sessionID string) ([]chat.Message, error) {
	var out []chat.Message
	if err := c.do(ctx, http.MethodGet, "/history/"+url.PathEscape(sessionID), cred.Bearer(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats summarizes the scored conversations of the credential's owner.
func (c *Client) Stats(ctx context.Context, cred conversation.Credential) (chat.Stats, error) {
	var out chat.Stats
	if err := c.do(ctx, http.MethodGet, "/stats", cred.Bearer(), nil, &out); err != nil {
		return chat.Stats{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path, authorization string, in, out any) error {
	var body []byte
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = encoded
	}

	var reader any
	if body != nil {
		reader = bytes.NewReader(body)
	}
	if method == http.MethodGet {
		ctx = context.WithValue(ctx, idempotentKey{}, true)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	// 重试耗尽时仍返回最后一次响应，状态码交给 decodeError
	resp, err := c.http.Do(req)
	if resp == nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type idempotentKey struct{}

// retryIdempotent applies the default retry policy to requests marked idempotent and
// hands every other answer back on the first attempt.
func retryIdempotent(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if idempotent, _ := ctx.Value(idempotentKey{}).(bool); !idempotent {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}

	var body utils.ErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
