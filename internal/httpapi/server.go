// internal/httpapi/server.go
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/user/bedrockchat/internal/trace"
	"github.com/user/bedrockchat/internal/types"
)

// ChatHandler processes a prompt within the given session and returns
// the processed reply.
type ChatHandler func(sessionKey, prompt string) (string, error)

// ResetHandler archives the key's session and starts a fresh one.
type ResetHandler func(sessionKey string) error

// TraceHandler returns the step-grouped trace of the key's most recent
// response, or nil when no response has arrived yet.
type TraceHandler func(sessionKey string) (*trace.Summary, error)

// Server is a lightweight HTTP handler for the chat API endpoints.
type Server struct {
	chat        ChatHandler
	reset       ResetHandler
	traceOf     TraceHandler
	sessions    types.SessionStore
	transcripts types.TranscriptStore
	mux         *http.ServeMux
}

// NewServer creates a Server with the given handler callbacks and stores.
func NewServer(chat ChatHandler, reset ResetHandler, traceOf TraceHandler, sessions types.SessionStore, transcripts types.TranscriptStore) *Server {
	s := &Server{
		chat:        chat,
		reset:       reset,
		traceOf:     traceOf,
		sessions:    sessions,
		transcripts: transcripts,
		mux:         http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/reset", s.handleReset)
	s.mux.HandleFunc("GET /api/trace", s.handleTrace)
	s.mux.HandleFunc("GET /api/sessions", s.handleAPISessions)
	s.mux.HandleFunc("GET /api/sessions/", s.handleAPITranscript)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	Prompt     string `json:"prompt"`
	SessionKey string `json:"session_key"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	if req.Prompt == "" || req.SessionKey == "" {
		http.Error(w, `{"error":"prompt and session_key are required"}`, http.StatusBadRequest)
		return
	}

	reply, err := s.chat(req.SessionKey, req.Prompt)
	if err != nil {
		slog.Error("chat handler failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"response": reply})
}

// resetRequest is the JSON body for POST /api/reset.
type resetRequest struct {
	SessionKey string `json:"session_key"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.SessionKey == "" {
		http.Error(w, `{"error":"session_key is required"}`, http.StatusBadRequest)
		return
	}

	if err := s.reset(req.SessionKey); err != nil {
		slog.Error("reset handler failed", "session_key", req.SessionKey, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "reset"})
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("session_key")
	if key == "" {
		http.Error(w, `{"error":"session_key is required"}`, http.StatusBadRequest)
		return
	}

	summary, err := s.traceOf(key)
	if err != nil {
		slog.Error("trace handler failed", "session_key", key, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if summary == nil {
		summary = &trace.Summary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

type sessionResponse struct {
	SessionID    string `json:"session_id"`
	SessionKey   string `json:"session_key"`
	Agent        string `json:"agent"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int64  `json:"message_count"`
}

func (s *Server) handleAPISessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil || s.transcripts == nil {
		http.Error(w, `{"error":"session API not configured"}`, http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	result := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		count, err := s.transcripts.Count(ctx, sess.SessionID)
		if err != nil {
			slog.Warn("count messages failed", "session_id", sess.SessionID, "error", err)
		}
		result = append(result, sessionResponse{
			SessionID:    string(sess.SessionID),
			SessionKey:   string(sess.SessionKey),
			Agent:        sess.Agent,
			Status:       sess.Status,
			CreatedAt:    sess.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			UpdatedAt:    sess.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
			MessageCount: count,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt > result[j].UpdatedAt
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleAPITranscript(w http.ResponseWriter, r *http.Request) {
	if s.transcripts == nil {
		http.Error(w, `{"error":"session API not configured"}`, http.StatusServiceUnavailable)
		return
	}

	// Path: /api/sessions/{id}/transcript
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 || parts[1] != "transcript" {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	sessionID := types.SessionID(parts[0])

	limit := 200
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.transcripts.Tail(r.Context(), sessionID, limit)
	if err != nil {
		slog.Error("tail transcript failed", "session_id", sessionID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*types.ChatRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
