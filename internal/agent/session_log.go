package agent

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/yolodolo42/deskpilot/internal/llm"
)

// sessionLog appends one JSON event per line to dataDir/sessions/<id>.jsonl.
// Screenshots are counted, never written.
type sessionLog struct {
	mu   sync.Mutex
	path string
	f    *os.File
	log  *slog.Logger
}

func openSessionLog(dataDir, sessionID string) (*sessionLog, error) {
	if dataDir == "" {
		return nil, errors.New("data dir not configured")
	}
	dir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, sessionID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	h := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &sessionLog{path: path, f: f, log: slog.New(h).With("session", sessionID)}, nil
}

func (l *sessionLog) event(kind string, attrs ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}
	l.log.Info(kind, attrs...)
}

// message logs m as one event per content part.
func (l *sessionLog) message(m llm.Message, provider llm.ProviderID, model string) {
	switch {
	case len(m.ToolResults) > 0:
		for _, r := range m.ToolResults {
			l.event("tool_result", "tool_use_id", r.ToolUseID, "text", r.Content, "images", len(r.Images), "is_error", r.IsError)
		}
	case m.Role == llm.RoleAssistant:
		l.event("assistant", "provider", provider, "model", model, "content", m.Content)
		for _, tc := range m.ToolCalls {
			l.event("tool_call", "tool_use_id", tc.ID, "tool", tc.Name, "input", RedactInput(string(tc.Input)))
		}
	default:
		l.event("user", "content", m.Content)
	}
}

func (l *sessionLog) apiError(provider llm.ProviderID, model string, err error) {
	l.event("api_error", "provider", provider, "model", model, "error", err.Error())
}

func (l *sessionLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
}
