// Package client implements the sync engine: an HTTP API client, a local
// chat cache, and the session-owned pollers that keep the cache eventually
// consistent with the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fluent-messenger/api"
	"fluent-messenger/domain"
	"fluent-messenger/errors"
	"fluent-messenger/services"
)

// TransportError marks network-level failures (connection refused, timeout,
// unreadable response). The pollers treat it differently from API errors:
// the active poll fail-stops, the global poll skips the tick.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a network-level failure rather than an
// API rejection.
func IsTransport(err error) bool {
	var te *TransportError
	return stderrors.As(err, &te)
}

// APIClient talks to the messenger's JSON endpoints.
type APIClient struct {
	baseURL string
	http    *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *APIClient) Register(ctx context.Context, email, name, password string) (api.AuthResponse, error) {
	var out api.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register",
		map[string]string{"email": email, "name": name, "password": password}, &out)
	return out, err
}

func (c *APIClient) Login(ctx context.Context, email, password string) (api.AuthResponse, error) {
	var out api.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password}, &out)
	return out, err
}

func (c *APIClient) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := c.do(ctx, http.MethodGet, "/api/users", nil, &out)
	return out, err
}

func (c *APIClient) UpdateProfile(ctx context.Context, userID string, name, avatar *string) (domain.User, error) {
	var out domain.User
	body := map[string]*string{"name": name, "avatar": avatar}
	err := c.do(ctx, http.MethodPut, "/api/users/"+userID, body, &out)
	return out, err
}

// ListChatSummaries fetches the user's chats without message bodies.
func (c *APIClient) ListChatSummaries(ctx context.Context, userID string) ([]domain.Chat, error) {
	var out []domain.Chat
	err := c.do(ctx, http.MethodGet, "/api/chats?userId="+userID, nil, &out)
	return out, err
}

// GetChat fetches the full aggregate including all messages.
func (c *APIClient) GetChat(ctx context.Context, chatID string) (domain.Chat, error) {
	var out domain.Chat
	err := c.do(ctx, http.MethodGet, "/api/chats/"+chatID, nil, &out)
	return out, err
}

func (c *APIClient) CreateChat(ctx context.Context, req services.CreateChatRequest) (domain.Chat, error) {
	var out domain.Chat
	body := map[string]any{
		"type":           req.Type,
		"name":           req.Name,
		"participantIds": req.ParticipantIDs,
	}
	err := c.do(ctx, http.MethodPost, "/api/chats", body, &out)
	return out, err
}

func (c *APIClient) SendMessage(ctx context.Context, chatID, senderID string, content domain.MessageContent) (domain.Message, error) {
	var out domain.Message
	body := map[string]any{"senderId": senderID, "content": content}
	err := c.do(ctx, http.MethodPost, "/api/chats/"+chatID+"/messages", body, &out)
	return out, err
}

func (c *APIClient) MarkRead(ctx context.Context, chatID, userID string) error {
	return c.do(ctx, http.MethodPost, "/api/chats/"+chatID+"/read",
		map[string]string{"userId": userID}, nil)
}

// do performs one round-trip and unwraps the response envelope. Network
// failures come back as *TransportError; API rejections map onto the shared
// sentinel errors by status code.
func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	var envelope api.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}

	if !envelope.Success {
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", errors.ErrValidation, envelope.Error)
		case http.StatusNotFound:
			sentinel := errors.ErrChatNotFound
			if strings.HasPrefix(path, "/api/users") {
				sentinel = errors.ErrUserNotFound
			}
			return fmt.Errorf("%w: %s", sentinel, envelope.Error)
		default:
			return &TransportError{Op: method + " " + path,
				Err: fmt.Errorf("status %d: %s", resp.StatusCode, envelope.Error)}
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	return nil
}
