// Package sms sends appointment reminder text messages through the
// Africa's Talking messaging gateway.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Sender delivers a text message to a single recipient. The recipient
// must already be in international format.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(s *Client) { s.httpClient = c }
}

// Client is an Africa's Talking SMS sender.
type Client struct {
	apiKey     string
	username   string
	senderID   string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient builds an SMS client. baseURL is the messaging endpoint,
// e.g. https://api.africastalking.com/version1/messaging.
func NewClient(apiKey, username, senderID, baseURL string, logger zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:   apiKey,
		username: username,
		senderID: senderID,
		baseURL:  baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type sendResponse struct {
	SMSMessageData struct {
		Recipients []struct {
			Number     string `json:"number"`
			Status     string `json:"status"`
			StatusCode int    `json:"statusCode"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send delivers a single message. The gateway reports per-recipient
// status inside a 2xx response, so both the HTTP status and the
// recipient status are checked.
func (c *Client) Send(ctx context.Context, to, message string) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("to", to)
	form.Set("message", message)
	if c.senderID != "" {
		form.Set("from", c.senderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode sms response: %w", err)
	}
	if len(parsed.SMSMessageData.Recipients) == 0 {
		return fmt.Errorf("sms gateway accepted no recipients")
	}
	recipient := parsed.SMSMessageData.Recipients[0]
	if recipient.Status != "Success" {
		return fmt.Errorf("sms delivery failed for %s: %s", Mask(to), recipient.Status)
	}

	c.logger.Info().
		Str("to", Mask(to)).
		Int("length", len(message)).
		Msg("sms sent")
	return nil
}

// NoopSender logs messages instead of sending them, for development
// environments without gateway credentials.
type NoopSender struct {
	Logger zerolog.Logger
}

func (n *NoopSender) Send(_ context.Context, to, message string) error {
	n.Logger.Info().
		Str("to", Mask(to)).
		Str("message", message).
		Msg("sms suppressed (no gateway configured)")
	return nil
}
