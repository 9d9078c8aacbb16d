package vetapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wolfman30/vetbot/internal/session"
)

type chatRequest struct {
	Message   string           `json:"message,omitempty"`
	SessionID string           `json:"sessionId"`
	Context   *session.Context `json:"context"`
}

// InitSession asks the service for a greeting for the current session. An empty
// string with a nil error means the service had no greeting to offer.
func (c *Client) InitSession(ctx context.Context) (string, error) {
	req := chatRequest{SessionID: c.meta.SessionID(ctx), Context: c.meta.Context(ctx)}
	var out struct {
		Response string `json:"response"`
	}
	if err := c.doRequest(ctx, "chat.init", http.MethodPost, "/chat/init", nil, req, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// SendMessage forwards a user utterance and returns the assistant reply.
func (c *Client) SendMessage(ctx context.Context, message string) (*ChatReply, error) {
	req := chatRequest{Message: message, SessionID: c.meta.SessionID(ctx), Context: c.meta.Context(ctx)}
	var out ChatReply
	if err := c.doRequest(ctx, "chat.message", http.MethodPost, "/chat/message", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns up to limit stored turns for the current session.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := fmt.Sprintf("/chat/history/%s", url.PathEscape(c.meta.SessionID(ctx)))
	var out struct {
		Messages []HistoryMessage `json:"messages"`
	}
	if err := c.doRequest(ctx, "chat.history", http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// ResetSession clears the server-side conversation and booking state.
func (c *Client) ResetSession(ctx context.Context) error {
	path := fmt.Sprintf("/chat/session/%s", url.PathEscape(c.meta.SessionID(ctx)))
	return c.doRequest(ctx, "chat.reset", http.MethodDelete, path, nil, nil, nil)
}
