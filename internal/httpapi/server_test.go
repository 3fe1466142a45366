package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/user/bedrockchat/internal/state"
	"github.com/user/bedrockchat/internal/trace"
	"github.com/user/bedrockchat/internal/types"
	"github.com/user/bedrockchat/pkg/agent"
)

type mockGateway struct {
	lastSessionKey string
	lastPrompt     string
	response       string
	resetKeys      []string
	traceSummary   *trace.Summary
}

func (m *mockGateway) Chat(sessionKey, prompt string) (string, error) {
	m.lastSessionKey = sessionKey
	m.lastPrompt = prompt
	return m.response, nil
}

func (m *mockGateway) Reset(sessionKey string) error {
	m.resetKeys = append(m.resetKeys, sessionKey)
	return nil
}

func (m *mockGateway) Trace(sessionKey string) (*trace.Summary, error) {
	return m.traceSummary, nil
}

func setupServer(t *testing.T, mock *mockGateway) *Server {
	t.Helper()
	return NewServer(mock.Chat, mock.Reset, mock.Trace, nil, nil)
}

func TestHealthEndpoint(t *testing.T) {
	mock := &mockGateway{response: "unused"}
	srv := setupServer(t, mock)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestChatEndpoint(t *testing.T) {
	mock := &mockGateway{response: "Paris<sup>[1]</sup>"}
	srv := setupServer(t, mock)

	body := `{"prompt":"capital of France?","session_key":"http:test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["response"] != "Paris<sup>[1]</sup>" {
		t.Errorf("unexpected response %q", resp["response"])
	}
	if mock.lastSessionKey != "http:test" {
		t.Errorf("expected session key 'http:test', got %q", mock.lastSessionKey)
	}
	if mock.lastPrompt != "capital of France?" {
		t.Errorf("unexpected prompt %q", mock.lastPrompt)
	}
}

func TestChatMissingFields(t *testing.T) {
	mock := &mockGateway{response: "unused"}
	srv := setupServer(t, mock)

	// Missing session_key
	body := `{"prompt":"say hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestResetEndpoint(t *testing.T) {
	mock := &mockGateway{}
	srv := setupServer(t, mock)

	body := `{"session_key":"http:reset-me"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reset", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if len(mock.resetKeys) != 1 || mock.resetKeys[0] != "http:reset-me" {
		t.Errorf("expected reset call for 'http:reset-me', got %v", mock.resetKeys)
	}
}

func TestResetMissingKey(t *testing.T) {
	mock := &mockGateway{}
	srv := setupServer(t, mock)

	req := httptest.NewRequest(http.MethodPost, "/api/reset", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestTraceEndpoint(t *testing.T) {
	summary := trace.Aggregate(agent.RawTrace{
		"orchestrationTrace": {
			{"rationale": map[string]any{"traceId": "t1", "text": "thinking"}},
		},
	})
	mock := &mockGateway{traceSummary: summary}
	srv := setupServer(t, mock)

	req := httptest.NewRequest(http.MethodGet, "/api/trace?session_key=http:test", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var got trace.Summary
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.TotalSteps != 1 {
		t.Errorf("expected 1 total step, got %d", got.TotalSteps)
	}
	if len(got.Phases) != 3 {
		t.Errorf("expected 3 phases, got %d", len(got.Phases))
	}
}

func TestTraceMissingKey(t *testing.T) {
	mock := &mockGateway{}
	srv := setupServer(t, mock)

	req := httptest.NewRequest(http.MethodGet, "/api/trace", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestAPISessionsList(t *testing.T) {
	mock := &mockGateway{response: "unused"}
	dir := t.TempDir()
	sessions := state.NewSessionStore(dir)
	transcripts := state.NewTranscriptStore(dir)

	// Create a session so there's something to list
	ctx := context.Background()
	sid, err := sessions.ResolveOrCreate(ctx, types.SessionKey("test:key"), "default")
	if err != nil {
		t.Fatal(err)
	}

	srv := NewServer(mock.Chat, mock.Reset, mock.Trace, sessions, transcripts)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var result []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 session, got %d", len(result))
	}
	if result[0]["session_id"] != string(sid) {
		t.Errorf("expected session_id %s, got %v", sid, result[0]["session_id"])
	}
}

func TestAPITranscript(t *testing.T) {
	mock := &mockGateway{response: "unused"}
	dir := t.TempDir()
	sessions := state.NewSessionStore(dir)
	transcripts := state.NewTranscriptStore(dir)
	ctx := context.Background()

	sid, err := sessions.ResolveOrCreate(ctx, types.SessionKey("test:key"), "default")
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range []*types.ChatRecord{
		{Role: types.RoleUser, Content: "hello", At: time.Now()},
		{Role: types.RoleAssistant, Content: "hi there", At: time.Now()},
	} {
		if err := transcripts.Append(ctx, sid, rec); err != nil {
			t.Fatal(err)
		}
	}

	srv := NewServer(mock.Chat, mock.Reset, mock.Trace, sessions, transcripts)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+string(sid)+"/transcript", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var records []*types.ChatRecord
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Content != "hello" || records[1].Content != "hi there" {
		t.Errorf("unexpected transcript contents: %+v", records)
	}
}
