package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"showdesk/internal/auth"
	"showdesk/internal/blob"
	"showdesk/internal/config"
	"showdesk/internal/db"
	"showdesk/internal/models"
	"showdesk/internal/translate"
)

type stubTranslator struct{}

func (stubTranslator) Translate(_ context.Context, _, _ string) (*translate.Result, error) {
	return nil, translate.ErrNotConfigured
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	staffRepo := db.NewStaffRepository(database)
	seed := []struct {
		name  string
		email string
		key   string
		roles []string
	}{
		{"Avery Quinn", "avery@example.com", "stagekey123", []string{"FOH"}},
		{"Sam Reyes", "sam@example.com", "soundkey456", []string{"SOUND", "STAGE"}},
	}
	for _, s := range seed {
		if _, err := staffRepo.Upsert(context.Background(), s.name, s.email, auth.HashAccessKey(s.key), s.roles); err != nil {
			t.Fatalf("seeding staff: %v", err)
		}
	}

	blobs, err := blob.NewService(filepath.Join(dir, "blobs"), 1<<20)
	if err != nil {
		t.Fatalf("creating blob service: %v", err)
	}

	cfg := &config.Config{}
	cfg.Server.BaseURL = "http://showdesk.test"
	cfg.Auth.JWTSecret = strings.Repeat("s", 32)
	cfg.Auth.AccessTokenTTL = time.Hour

	server, err := NewServer(cfg, database, blobs, nil, stubTranslator{})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	return server
}

func login(t *testing.T, server *Server, email, key string) string {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"accessKey":%q}`, email, key)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	return resp.AccessToken
}

func doJSON(server *Server, method, path, token string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":     "avery@example.com",
		"accessKey": "wrong-key-entirely",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	rec = doJSON(server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":     "nobody@example.com",
		"accessKey": "wrong-key-entirely",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email status = %d, want 401", rec.Code)
	}
}

func TestSendMessage(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server, "avery@example.com", "stagekey123")

	clientID := uuid.NewString()

	t.Run("stores and confirms", func(t *testing.T) {
		rec := doJSON(server, http.MethodPost, "/api/v1/events/evt-1/messages", token, map[string]any{
			"clientMessageId": clientID,
			"bodyText":        "  Doors in five, @sound check monitors <b>now</b>  ",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var msg models.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
			t.Fatalf("decoding message: %v", err)
		}
		if !strings.HasPrefix(msg.ID, "msg_") {
			t.Errorf("message ID = %q", msg.ID)
		}
		if msg.BodyText != "Doors in five, @sound check monitors now" {
			t.Errorf("body = %q, markup or whitespace survived", msg.BodyText)
		}
		if msg.AuthorName != "Avery Quinn" {
			t.Errorf("author name = %q", msg.AuthorName)
		}
		if len(msg.Mentions) != 1 || msg.Mentions[0].MentionedRoleKey != "SOUND" {
			t.Errorf("mentions = %+v, want one SOUND role mention", msg.Mentions)
		}
		if msg.DeliveryState != models.DeliverySent {
			t.Errorf("delivery state = %q", msg.DeliveryState)
		}
	})

	t.Run("same clientMessageId returns stored row", func(t *testing.T) {
		rec := doJSON(server, http.MethodPost, "/api/v1/events/evt-1/messages", token, map[string]any{
			"clientMessageId": clientID,
			"bodyText":        "retry after timeout",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var msg models.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
			t.Fatalf("decoding message: %v", err)
		}
		if msg.BodyText != "Doors in five, @sound check monitors now" {
			t.Errorf("retry produced a second message: %q", msg.BodyText)
		}
	})

	t.Run("list returns message and conversation", func(t *testing.T) {
		rec := doJSON(server, http.MethodGet, "/api/v1/events/evt-1/messages", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp listMessagesResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding list response: %v", err)
		}
		if len(resp.Messages) != 1 {
			t.Fatalf("len(messages) = %d, want 1", len(resp.Messages))
		}
		if resp.Conversation == nil || resp.Conversation.ShowModeEnabled {
			t.Errorf("conversation = %+v, want defaults", resp.Conversation)
		}
	})
}

func TestSendMessageValidation(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server, "avery@example.com", "stagekey123")

	t.Run("rejects empty body without attachments", func(t *testing.T) {
		rec := doJSON(server, http.MethodPost, "/api/v1/events/evt-1/messages", token, map[string]any{
			"clientMessageId": uuid.NewString(),
			"bodyText":        "   \r\n  ",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "EMPTY_MESSAGE") {
			t.Errorf("body = %s, want EMPTY_MESSAGE code", rec.Body.String())
		}
	})

	t.Run("rejects non-uuid clientMessageId", func(t *testing.T) {
		rec := doJSON(server, http.MethodPost, "/api/v1/events/evt-1/messages", token, map[string]any{
			"clientMessageId": "not-a-uuid",
			"bodyText":        "hello",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects overlong body", func(t *testing.T) {
		rec := doJSON(server, http.MethodPost, "/api/v1/events/evt-1/messages", token, map[string]any{
			"clientMessageId": uuid.NewString(),
			"bodyText":        strings.Repeat("a", 4001),
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "MESSAGE_TOO_LONG") {
			t.Errorf("body = %s, want MESSAGE_TOO_LONG code", rec.Body.String())
		}
	})

	t.Run("rejects attachment urls outside media", func(t *testing.T) {
		rec := doJSON(server, http.MethodPost, "/api/v1/events/evt-1/messages", token, map[string]any{
			"clientMessageId": uuid.NewString(),
			"bodyText":        "with file",
			"attachments": []map[string]any{
				{"url": "https://evil.example/x", "name": "x", "mimeType": "text/plain", "size": 1},
			},
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "ATTACHMENT_INVALID") {
			t.Errorf("body = %s, want ATTACHMENT_INVALID code", rec.Body.String())
		}
	})
}

func TestReactionToggle(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server, "avery@example.com", "stagekey123")

	rec := doJSON(server, http.MethodPost, "/api/v1/events/evt-1/messages", token, map[string]any{
		"clientMessageId": uuid.NewString(),
		"bodyText":        "standby lights",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d", rec.Code)
	}
	var msg models.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decoding message: %v", err)
	}

	path := "/api/v1/messages/" + msg.ID + "/reactions"

	rec = doJSON(server, http.MethodPost, path, token, map[string]string{"emoji": "👍"})
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result toggleReactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding toggle response: %v", err)
	}
	if len(result.ReactionSummary) != 1 || result.ReactionSummary[0].Count != 1 || !result.ReactionSummary[0].ReactedByCurrentUser {
		t.Fatalf("summary = %+v, want one own reaction", result.ReactionSummary)
	}

	rec = doJSON(server, http.MethodPost, path, token, map[string]string{"emoji": "👍"})
	if rec.Code != http.StatusOK {
		t.Fatalf("second toggle status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding toggle response: %v", err)
	}
	if len(result.Reactions) != 0 {
		t.Fatalf("reactions = %+v, want removed", result.Reactions)
	}

	rec = doJSON(server, http.MethodPost, "/api/v1/messages/msg_000000000000000000000000/reactions", token, map[string]string{"emoji": "👍"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown message status = %d, want 404", rec.Code)
	}
}

func TestConversationPatch(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server, "avery@example.com", "stagekey123")

	rec := doJSON(server, http.MethodPatch, "/api/v1/events/evt-9/conversation", token, map[string]any{
		"showModeEnabled":   true,
		"pinnedOpsCommands": []string{"standby", "go"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(server, http.MethodGet, "/api/v1/events/evt-9/conversation", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var conv models.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decoding conversation: %v", err)
	}
	if !conv.ShowModeEnabled || conv.MuteNonCritical {
		t.Errorf("conversation = %+v, patch lost or widened", conv)
	}
	if len(conv.PinnedOpsCommands) != 2 || conv.PinnedOpsCommands[0] != "standby" {
		t.Errorf("pinned = %v", conv.PinnedOpsCommands)
	}
}

func TestRosterListsStaffAndRoles(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server, "avery@example.com", "stagekey123")

	rec := doJSON(server, http.MethodGet, "/api/v1/events/evt-1/roster", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp rosterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding roster: %v", err)
	}
	if len(resp.Staff) != 2 {
		t.Errorf("len(staff) = %d, want 2", len(resp.Staff))
	}
	if len(resp.RoleKeys) != 3 {
		t.Errorf("roleKeys = %v, want FOH SOUND STAGE", resp.RoleKeys)
	}
}

func TestTranslateNotConfigured(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server, "avery@example.com", "stagekey123")

	rec := doJSON(server, http.MethodPost, "/api/v1/events/evt-1/messages", token, map[string]any{
		"clientMessageId": uuid.NewString(),
		"bodyText":        "hola",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d", rec.Code)
	}
	var msg models.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decoding message: %v", err)
	}

	rec = doJSON(server, http.MethodPost, "/api/v1/messages/"+msg.ID+"/translate", token, map[string]string{"targetLanguage": "en"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "TRANSLATION_FAILED") {
		t.Errorf("body = %s, want TRANSLATION_FAILED code", rec.Body.String())
	}
}

func TestRequiresAuth(t *testing.T) {
	server := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/events/evt-1/messages"},
		{http.MethodGet, "/api/v1/events/evt-1/conversation"},
		{http.MethodGet, "/api/v1/events/evt-1/roster"},
		{http.MethodPost, "/api/v1/uploads"},
	}
	for _, p := range paths {
		rec := doJSON(server, p.method, p.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/events/evt-1/messages", nil)
	req.Header.Set("Origin", "http://portal.example")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Allow-Origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Errorf("Allow-Headers = %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}
