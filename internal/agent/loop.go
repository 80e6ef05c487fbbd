package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yolodolo42/deskpilot/internal/llm"
	"github.com/yolodolo42/deskpilot/internal/observability"
)

// ErrMaxTurns is returned when the loop stops because it hit Config.MaxTurns.
var ErrMaxTurns = errors.New("maximum number of turns reached")

// BlockType identifies a content block reported to Callbacks.Output.
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockThinking BlockType = "thinking"
	BlockToolUse  BlockType = "tool_use"
)

// Block is one piece of an assistant turn.
type Block struct {
	Type     BlockType
	Text     string
	Thinking string
	ToolCall *llm.ToolCall
}

// Callbacks observe the loop. Any of them may be nil.
type Callbacks struct {
	// Output receives each assistant content block in order.
	Output func(Block)
	// ToolOutput receives each tool outcome with the call it answers.
	ToolOutput func(out ToolOutput, res *ToolResult)
	// APIResponse receives every model exchange, successful or not.
	APIResponse func(resp *llm.ChatResponse, err error)
}

// Config tunes the loop.
type Config struct {
	SystemPromptSuffix  string
	MaxTokens           int
	ThinkingBudget      int
	TokenEfficientTools bool
	// OnlyNMostRecentImages keeps only that many screenshots in the
	// conversation; zero keeps all of them.
	OnlyNMostRecentImages int
	// MinRemovalThreshold makes screenshots go in chunks of this size so
	// the conversation prefix stays stable between turns.
	MinRemovalThreshold int
	// MaxTurns bounds model calls per Run; zero means unbounded.
	MaxTurns int
	// OpenRouterAPIKey lets the capability check query the OpenRouter model list.
	OpenRouterAPIKey string
}

// DefaultConfig mirrors the CLI defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:             16384,
		OnlyNMostRecentImages: 10,
		MinRemovalThreshold:   10,
	}
}

// Agent drives a provider and a tool collection through the sampling loop.
type Agent struct {
	// mu protects conversation from concurrent access. Prevents concurrent Chat()
	// calls from interleaving messages and corrupting conversation state.
	mu           sync.Mutex
	provider     llm.Provider
	tools        *ToolCollection
	cfg          Config
	callbacks    Callbacks
	logger       *slog.Logger
	metrics      *observability.Metrics
	history      *HistoryStore
	session      *sessionLog
	transcript   *Conversation
	sessionID    string
	conversation []llm.Message

	now func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithCallbacks sets the loop observers.
func WithCallbacks(cb Callbacks) Option { return func(a *Agent) { a.callbacks = cb } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(a *Agent) { a.logger = l } }

// WithMetrics records model and image metrics.
func WithMetrics(m *observability.Metrics) Option { return func(a *Agent) { a.metrics = m } }

// WithHistory records every tool call in store.
func WithHistory(store *HistoryStore) Option { return func(a *Agent) { a.history = store } }

// WithTranscript mirrors every message into conv.
func WithTranscript(conv *Conversation) Option { return func(a *Agent) { a.transcript = conv } }

// WithSessionLog writes a JSONL session log under dataDir/sessions.
// Failures to open the log are logged and otherwise ignored.
func WithSessionLog(dataDir string) Option {
	return func(a *Agent) {
		l, err := openSessionLog(dataDir, a.sessionID)
		if err != nil {
			a.logger.Warn("session log disabled", "error", err)
			return
		}
		a.session = l
	}
}

// New creates an agent. Options are applied in order, after the session ID
// and logger defaults are set.
func New(provider llm.Provider, tools *ToolCollection, cfg Config, opts ...Option) (*Agent, error) {
	if provider == nil {
		return nil, fmt.Errorf("agent provider not initialized")
	}
	if tools == nil {
		tools = NewToolCollection()
	}
	if cfg.MinRemovalThreshold <= 0 {
		cfg.MinRemovalThreshold = 1
	}
	a := &Agent{
		provider:     provider,
		tools:        tools,
		cfg:          cfg,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessionID:    uuid.NewString(),
		conversation: make([]llm.Message, 0),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.transcript != nil {
		a.transcript.Provider = string(provider.ID())
		a.transcript.Model = provider.DefaultModel()
	}
	return a, nil
}

// SessionID identifies this agent's session in logs and history.
func (a *Agent) SessionID() string { return a.sessionID }

// Chat appends a user turn to the held conversation and runs the loop on it.
func (a *Agent) Chat(ctx context.Context, userMessage string) ([]llm.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	msgs := append(a.conversation, llm.Message{Role: llm.RoleUser, Content: userMessage})
	out, err := a.run(ctx, msgs, len(a.conversation))
	a.conversation = out
	return out, err
}

// Run executes the sampling loop on messages and returns the extended list.
// The list is returned even on error, holding every turn completed so far.
func (a *Agent) Run(ctx context.Context, messages []llm.Message) ([]llm.Message, error) {
	return a.run(ctx, cloneMessages(messages), 0)
}

// run loops until the model stops calling tools. Messages from index
// recorded onward are new and go to the transcript and session log.
func (a *Agent) run(ctx context.Context, messages []llm.Message, recorded int) ([]llm.Message, error) {
	for _, m := range messages[recorded:] {
		a.record(m)
	}

	req, err := a.baseRequest(ctx)
	if err != nil {
		return messages, err
	}

	for turn := 0; a.cfg.MaxTurns <= 0 || turn < a.cfg.MaxTurns; turn++ {
		if keep := a.cfg.OnlyNMostRecentImages; keep > 0 {
			if n := FilterRecentImages(messages, keep, a.cfg.MinRemovalThreshold); n > 0 {
				a.metrics.ObserveImagesTrimmed(n)
				a.logger.Debug("trimmed screenshots", "removed", n)
			}
		}

		req.Messages = messages
		resp, err := a.call(ctx, req)
		if err != nil {
			return messages, err
		}

		assistant := resp.AssistantMessage()
		messages = append(messages, assistant)
		a.record(assistant)
		a.emitBlocks(resp)

		if len(resp.ToolCalls) == 0 {
			return messages, nil
		}

		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			tr, err := a.runTool(ctx, tc)
			if err != nil {
				return messages, err
			}
			results = append(results, tr)
		}
		user := llm.Message{Role: llm.RoleUser, ToolResults: results}
		messages = append(messages, user)
		a.record(user)
	}

	a.logger.Warn("stopping early", "max_turns", a.cfg.MaxTurns)
	return messages, ErrMaxTurns
}

// baseRequest builds the parts of the request that stay fixed for a Run and
// checks the model can drive the computer.
func (a *Agent) baseRequest(ctx context.Context) (*llm.ChatRequest, error) {
	req := &llm.ChatRequest{
		MaxTokens:           a.cfg.MaxTokens,
		ThinkingBudget:      a.cfg.ThinkingBudget,
		TokenEfficientTools: a.cfg.TokenEfficientTools,
	}
	if c := a.tools.Computer(); c != nil {
		req.Computer = c.Spec()
	}
	req.Tools = a.tools.FunctionTools()
	req.SystemPrompt = SystemPrompt(req.Computer, a.now(), a.cfg.SystemPromptSuffix)

	model := a.provider.DefaultModel()
	caps, known := llm.CapabilitiesForModel(ctx, a.provider, model, a.cfg.OpenRouterAPIKey)
	if known && !caps.Tools && (req.Computer != nil || len(req.Tools) > 0) {
		return nil, fmt.Errorf("model %s does not support tool use; switch to a tool-capable model", model)
	}
	if known && !caps.Vision && req.Computer != nil {
		a.logger.Warn("model does not accept images; screenshots will not be visible to it", "model", model)
	}
	return req, nil
}

func (a *Agent) call(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := a.provider.DefaultModel()
	start := time.Now()
	resp, err := a.provider.Chat(ctx, req)
	status := "success"
	var in, out int
	if err != nil {
		status = "error"
	} else {
		in, out = resp.Usage.InputTokens, resp.Usage.OutputTokens
	}
	a.metrics.ObserveModelRequest(string(a.provider.ID()), model, status, time.Since(start), in, out)

	if a.callbacks.APIResponse != nil {
		a.callbacks.APIResponse(resp, err)
	}
	if err != nil {
		a.logger.Error("model request failed", "provider", a.provider.ID(), "model", model, "error", err)
		if a.session != nil {
			a.session.apiError(a.provider.ID(), model, err)
		}
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	a.logger.Debug("model response", "stop_reason", resp.StopReason, "tool_calls", len(resp.ToolCalls),
		"input_tokens", in, "output_tokens", out)
	return resp, nil
}

func (a *Agent) emitBlocks(resp *llm.ChatResponse) {
	if a.callbacks.Output == nil {
		return
	}
	for _, th := range resp.Thinking {
		if th.Thinking != "" {
			a.callbacks.Output(Block{Type: BlockThinking, Thinking: th.Thinking})
		}
	}
	if resp.Content != "" {
		a.callbacks.Output(Block{Type: BlockText, Text: resp.Content})
	}
	for i := range resp.ToolCalls {
		a.callbacks.Output(Block{Type: BlockToolUse, ToolCall: &resp.ToolCalls[i]})
	}
}

// ToolResult pairs a tool call with its outcome for callbacks.
type ToolResult struct {
	Call     llm.ToolCall
	Result   llm.ToolResult
	Image    string // base64 PNG, if any
	Duration time.Duration
}

func (a *Agent) runTool(ctx context.Context, tc llm.ToolCall) (llm.ToolResult, error) {
	start := time.Now()
	res, err := a.tools.Run(ctx, tc.Name, tc.Input)
	if err != nil {
		return llm.ToolResult{}, err
	}
	elapsed := time.Since(start)
	tr := toToolResult(tc.ID, tc.Name, res)

	if a.callbacks.ToolOutput != nil {
		a.callbacks.ToolOutput(NewToolOutput(tc.ID, res), &ToolResult{
			Call:     tc,
			Result:   tr,
			Image:    res.Base64Image,
			Duration: elapsed,
		})
	}

	if a.history != nil {
		rec := ActionRecord{
			SessionID: a.sessionID,
			ToolUseID: tc.ID,
			Tool:      tc.Name,
			Input:     string(tc.Input),
			Output:    res.Output,
			Error:     res.Error,
			HasImage:  res.Base64Image != "",
			Duration:  elapsed,
			CreatedAt: a.now(),
		}
		// History is best-effort.
		if err := a.history.Record(ctx, rec); err != nil {
			a.logger.Warn("record action", "tool_use_id", tc.ID, "error", err)
		}
	}
	return tr, nil
}

// record mirrors a message into the transcript and session log.
func (a *Agent) record(m llm.Message) {
	if a.transcript != nil {
		a.transcript.Add(m)
	}
	if a.session != nil {
		a.session.message(m, a.provider.ID(), a.provider.DefaultModel())
	}
}

// FunctionTools returns the non-computer tools that describe themselves.
func (tc *ToolCollection) FunctionTools() []llm.Tool {
	var out []llm.Tool
	for _, name := range tc.order {
		if f, ok := tc.tools[name].(interface{ FunctionTool() llm.Tool }); ok {
			out = append(out, f.FunctionTool())
		}
	}
	return out
}

// FilterRecentImages drops the oldest screenshots from tool results so at
// most keep remain, rounding the number removed down to a multiple of
// threshold. It edits messages in place and returns how many were removed.
func FilterRecentImages(messages []llm.Message, keep, threshold int) int {
	total := 0
	for _, m := range messages {
		for _, r := range m.ToolResults {
			total += len(r.Images)
		}
	}
	toRemove := total - keep
	if threshold > 1 {
		toRemove -= toRemove % threshold
	}
	if toRemove <= 0 {
		return 0
	}

	removed := 0
	for i := range messages {
		for j := range messages[i].ToolResults {
			r := &messages[i].ToolResults[j]
			if len(r.Images) == 0 {
				continue
			}
			drop := min(len(r.Images), toRemove-removed)
			if drop == 0 {
				return removed
			}
			r.Images = append([]llm.Image(nil), r.Images[drop:]...)
			removed += drop
		}
	}
	return removed
}

// SystemPrompt describes the environment to the model. suffix is appended
// after a space when non-empty.
func SystemPrompt(c *llm.ComputerTool, now time.Time, suffix string) string {
	var b strings.Builder
	b.WriteString("<SYSTEM_CAPABILITY>\n")
	fmt.Fprintf(&b, "* You are operating a %s computer with %s architecture through the computer tool, which moves and clicks the mouse, types, presses keys, scrolls and takes screenshots.\n",
		platformName(runtime.GOOS), runtime.GOARCH)
	if c != nil {
		fmt.Fprintf(&b, "* The screen is %dx%d pixels. Coordinates are [x, y] measured from the top-left corner of that area.\n",
			c.DisplayWidth, c.DisplayHeight)
	}
	b.WriteString("* Take a screenshot before you act and after any action that changes the screen, and check that the action worked before continuing.\n")
	b.WriteString("* Screenshots take a moment. When you are confident of the outcome, chain several actions before the next screenshot.\n")
	b.WriteString("* If a page or dialog has not finished loading, wait and take another screenshot instead of clicking blindly.\n")
	fmt.Fprintf(&b, "* The current date is %s.\n", now.Format("Monday, January 2, 2006"))
	b.WriteString("</SYSTEM_CAPABILITY>")
	if suffix != "" {
		b.WriteString(" ")
		b.WriteString(suffix)
	}
	return b.String()
}

func platformName(goos string) string {
	switch goos {
	case "darwin":
		return "macOS"
	case "linux":
		return "Linux"
	case "windows":
		return "Windows"
	default:
		return goos
	}
}

// CurrentProvider returns the active provider
func (a *Agent) CurrentProvider() llm.Provider {
	return a.provider
}

// SetModel switches the active model on the current provider.
// Clears conversation history since prior messages may be incompatible.
func (a *Agent) SetModel(modelID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.provider.SetModel(modelID); err != nil {
		return err
	}
	a.conversation = make([]llm.Message, 0)
	return nil
}

// CurrentModel returns the active model ID for the current provider.
func (a *Agent) CurrentModel() string {
	return a.provider.DefaultModel()
}

// ListModels returns the available models for the current provider.
func (a *Agent) ListModels() []llm.Model {
	return a.provider.Models()
}

// ProviderName returns the human-readable name of the current provider.
func (a *Agent) ProviderName() string {
	return a.provider.Name()
}

// Conversation returns a copy of the held conversation.
func (a *Agent) Conversation() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneMessages(a.conversation)
}

// cloneMessages copies the tool result slices that FilterRecentImages
// rewrites, so the copy and the original can be trimmed independently.
func cloneMessages(messages []llm.Message) []llm.Message {
	out := make([]llm.Message, len(messages))
	for i, m := range messages {
		if m.ToolResults != nil {
			m.ToolResults = append([]llm.ToolResult(nil), m.ToolResults...)
		}
		out[i] = m
	}
	return out
}

// Reset clears the conversation history. Safe to call concurrently with Chat().
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conversation = make([]llm.Message, 0)
}

// Close cleans up agent resources
func (a *Agent) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if gemini, ok := a.provider.(*llm.GeminiProvider); ok {
		_ = gemini.Close()
	}
}
