package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"fluent-messenger/auth"
	"fluent-messenger/domain"
	"fluent-messenger/repositories"
	"fluent-messenger/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	chatRepo := repositories.NewChatRepository(db, log)
	userRepo := repositories.NewUserRepository(db)
	tokens := auth.NewTokenIssuer("test-key", time.Hour)

	router := NewRouter(log,
		services.NewAuthService(userRepo, tokens),
		services.NewUserService(userRepo),
		services.NewChatService(chatRepo, nil),
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) (int, Envelope) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func getJSON(t *testing.T, url string) (int, Envelope) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func registerUser(t *testing.T, server *httptest.Server, email, name string) domain.User {
	t.Helper()
	status, envelope := postJSON(t, server.URL+"/api/auth/register", map[string]string{
		"email": email, "name": name, "password": "a sufficiently long password",
	})
	require.Equal(t, http.StatusOK, status)

	var authResp AuthResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &authResp))
	return authResp.User
}

func Test_Register_Login_Flow(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	user := registerUser(t, server, "alice@example.com", "Alice")
	req.NotEmpty(user.ID)
	req.Empty(user.PasswordHash)

	status, envelope := postJSON(t, server.URL+"/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "a sufficiently long password",
	})
	req.Equal(http.StatusOK, status)
	req.True(envelope.Success)

	status, envelope = postJSON(t, server.URL+"/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	req.Equal(http.StatusBadRequest, status)
	req.False(envelope.Success)
	req.NotEmpty(envelope.Error)
}

func Test_Create_Chat_Endpoint_Validation(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	// Group of three without a name fails.
	status, envelope := postJSON(t, server.URL+"/api/chats", map[string]any{
		"type": "group", "participantIds": []string{"a", "b", "c"},
	})
	req.Equal(http.StatusBadRequest, status)
	req.False(envelope.Success)

	// The same call with a name succeeds and returns a group chat.
	status, envelope = postJSON(t, server.URL+"/api/chats", map[string]any{
		"type": "group", "name": "plans", "participantIds": []string{"a", "b", "c"},
	})
	req.Equal(http.StatusOK, status)

	var chat domain.Chat
	req.NoError(json.Unmarshal(envelope.Data, &chat))
	req.Equal(domain.ChatGroup, chat.Type)
}

func Test_Message_And_Read_Endpoints(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	alice := registerUser(t, server, "alice@example.com", "Alice")
	bob := registerUser(t, server, "bob@example.com", "Bob")

	status, envelope := postJSON(t, server.URL+"/api/chats", map[string]any{
		"type": "private", "participantIds": []string{alice.ID, bob.ID},
	})
	req.Equal(http.StatusOK, status)
	var chat domain.Chat
	req.NoError(json.Unmarshal(envelope.Data, &chat))

	// Append a message.
	status, envelope = postJSON(t, server.URL+"/api/chats/"+chat.ID+"/messages", map[string]any{
		"senderId": alice.ID,
		"content":  map[string]any{"type": "text", "text": "hi"},
	})
	req.Equal(http.StatusOK, status)
	var message domain.Message
	req.NoError(json.Unmarshal(envelope.Data, &message))
	req.Positive(message.Timestamp)

	// Missing chat is a 404.
	status, _ = postJSON(t, server.URL+"/api/chats/no-such-chat/messages", map[string]any{
		"senderId": alice.ID,
		"content":  map[string]any{"type": "text", "text": "hi"},
	})
	req.Equal(http.StatusNotFound, status)

	// Missing fields are a 400.
	status, _ = postJSON(t, server.URL+"/api/chats/"+chat.ID+"/messages", map[string]any{
		"content": map[string]any{"type": "text", "text": "hi"},
	})
	req.Equal(http.StatusBadRequest, status)

	// Mark read requires a userId.
	status, _ = postJSON(t, server.URL+"/api/chats/"+chat.ID+"/read", map[string]string{})
	req.Equal(http.StatusBadRequest, status)

	status, _ = postJSON(t, server.URL+"/api/chats/"+chat.ID+"/read", map[string]string{"userId": bob.ID})
	req.Equal(http.StatusOK, status)

	// The full chat now carries the message, the advanced updatedAt and
	// bob's read marker.
	status, envelope = getJSON(t, server.URL+"/api/chats/"+chat.ID)
	req.Equal(http.StatusOK, status)
	var full domain.Chat
	req.NoError(json.Unmarshal(envelope.Data, &full))
	req.Len(full.Messages, 1)
	req.Equal(message.Timestamp, full.UpdatedAt)
	req.GreaterOrEqual(full.LastReadTimestamp[bob.ID], message.Timestamp)

	// Summaries omit bodies and require a userId.
	status, _ = getJSON(t, server.URL+"/api/chats")
	req.Equal(http.StatusBadRequest, status)

	status, envelope = getJSON(t, server.URL+"/api/chats?userId="+bob.ID)
	req.Equal(http.StatusOK, status)
	var summaries []domain.Chat
	req.NoError(json.Unmarshal(envelope.Data, &summaries))
	req.Len(summaries, 1)
	req.Empty(summaries[0].Messages)
}

func Test_User_Endpoints(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	alice := registerUser(t, server, "alice@example.com", "Alice")

	status, envelope := getJSON(t, server.URL+"/api/users")
	req.Equal(http.StatusOK, status)
	var users []domain.User
	req.NoError(json.Unmarshal(envelope.Data, &users))
	req.Len(users, 1)
	req.Empty(users[0].PasswordHash)

	status, _ = getJSON(t, server.URL+"/api/users/"+alice.ID)
	req.Equal(http.StatusOK, status)

	status, _ = getJSON(t, server.URL+"/api/users/u404")
	req.Equal(http.StatusNotFound, status)

	// Empty patch is rejected.
	req1, err := http.NewRequest(http.MethodPut, server.URL+"/api/users/"+alice.ID, bytes.NewReader([]byte(`{}`)))
	req.NoError(err)
	resp, err := http.DefaultClient.Do(req1)
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)

	req2, err := http.NewRequest(http.MethodPut, server.URL+"/api/users/"+alice.ID, bytes.NewReader([]byte(`{"name":"Alice B."}`)))
	req.NoError(err)
	resp, err = http.DefaultClient.Do(req2)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var patched Envelope
	req.NoError(json.NewDecoder(resp.Body).Decode(&patched))
	var user domain.User
	req.NoError(json.Unmarshal(patched.Data, &user))
	req.Equal("Alice B.", user.Name)
}
