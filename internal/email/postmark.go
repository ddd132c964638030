package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

// ErrNotConfigured is returned when sends are attempted without a
// Postmark server token. The server still runs without one; code and
// invite emails just cannot go out.
var ErrNotConfigured = errors.New("email: no server token configured")

// Client sends transactional mail through Postmark.
type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL points the client at a different Postmark endpoint.
// Tests aim it at an httptest server.
func WithAPIURL(u string) Option {
	return func(cl *Client) {
		cl.apiURL = u
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      defaultAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a server token is present.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type message struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendLoginCode emails a short-lived sign-in code.
func (c *Client) SendLoginCode(ctx context.Context, toEmail, code string) error {
	return c.send(ctx, message{
		From:    c.fromEmail,
		To:      toEmail,
		Subject: "Sign in to ChoreBoard",
		TextBody: fmt.Sprintf(
			"Your ChoreBoard sign-in code is %s.\n\nIt expires in 15 minutes.", code),
		HtmlBody: fmt.Sprintf(
			`<p>Your ChoreBoard sign-in code is:</p><p style="font-size:2em"><strong>%s</strong></p><p>It expires in 15 minutes.</p>`,
			code),
	})
}

// SendInvite emails a household invitation link carrying a signed token.
func (c *Client) SendInvite(ctx context.Context, toEmail, token, householdName string) error {
	link := fmt.Sprintf("%s/invite/accept?token=%s", c.baseURL, token)
	return c.send(ctx, message{
		From:    c.fromEmail,
		To:      toEmail,
		Subject: fmt.Sprintf("You've been invited to %s on ChoreBoard", householdName),
		TextBody: fmt.Sprintf(
			"You've been invited to join %s on ChoreBoard.\n\nAccept here:\n\n%s\n\nThis invitation expires in 7 days.",
			householdName, link),
		HtmlBody: fmt.Sprintf(
			`<p>You've been invited to join <strong>%s</strong> on ChoreBoard.</p><p><a href="%s">Accept your invitation</a></p><p>This invitation expires in 7 days.</p>`,
			householdName, link),
	})
}

func (c *Client) send(ctx context.Context, msg message) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark: status %d", resp.StatusCode)
	}
	return nil
}
