// Package messenger delivers replies through the WAHA chat gateway.
// Sending is a side effect, so a failed send is reported and never
// retried here; a retry would risk the user seeing the answer twice.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrSendFailed indicates the gateway rejected or never received the message.
var ErrSendFailed = errors.New("messenger: send failed")

// Sender delivers one text message to a conversation.
type Sender interface {
	SendText(ctx context.Context, conversationID, text string) error
}

// Client is the HTTP Sender for a WAHA instance.
type Client struct {
	baseURL    string
	session    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a Client for the given WAHA base URL and session name.
// apiKey may be empty when the instance runs without auth.
func NewClient(baseURL, session, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		session:    session,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sendTextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
}

// SendText implements Sender.
func (c *Client) SendText(ctx context.Context, conversationID, text string) error {
	body, err := json.Marshal(sendTextRequest{
		Session: c.session,
		ChatID:  conversationID,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sendText", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode)
	}
	return nil
}
