package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yolodolo42/deskpilot/internal/llm"
)

// ConversationTurn represents a single turn in a conversation
type ConversationTurn struct {
	Timestamp   time.Time           `json:"timestamp"`
	Role        string              `json:"role"`
	Content     string              `json:"content,omitempty"`
	Thinking    []llm.ThinkingBlock `json:"thinking,omitempty"`
	ToolCalls   []llm.ToolCall      `json:"tool_calls,omitempty"`
	ToolResults []TranscriptResult  `json:"tool_results,omitempty"`
}

// TranscriptResult is a tool result with screenshots reduced to a count.
type TranscriptResult struct {
	ToolUseID string `json:"tool_use_id"`
	Name      string `json:"name,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
	Images    int    `json:"images,omitempty"`
}

// Conversation holds the full conversation state
type Conversation struct {
	ID        string             `json:"id"`
	StartedAt time.Time          `json:"started_at"`
	Provider  string             `json:"provider,omitempty"`
	Model     string             `json:"model,omitempty"`
	Turns     []ConversationTurn `json:"turns"`
}

// NewConversation creates a new conversation
func NewConversation() *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Turns:     make([]ConversationTurn, 0),
	}
}

// Add appends a message as a turn.
func (c *Conversation) Add(msg llm.Message) {
	turn := ConversationTurn{
		Timestamp: time.Now(),
		Role:      msg.Role,
		Content:   msg.Content,
		Thinking:  msg.Thinking,
		ToolCalls: msg.ToolCalls,
	}
	for _, r := range msg.ToolResults {
		turn.ToolResults = append(turn.ToolResults, TranscriptResult{
			ToolUseID: r.ToolUseID,
			Name:      r.Name,
			Content:   r.Content,
			IsError:   r.IsError,
			Images:    len(r.Images),
		})
	}
	c.Turns = append(c.Turns, turn)
}

// AddUserMessage adds a user message to the conversation
func (c *Conversation) AddUserMessage(content string) {
	c.Add(llm.Message{Role: llm.RoleUser, Content: content})
}

// AddAssistantMessage adds an assistant message to the conversation
func (c *Conversation) AddAssistantMessage(content string, toolCalls []llm.ToolCall) {
	c.Add(llm.Message{Role: llm.RoleAssistant, Content: content, ToolCalls: toolCalls})
}

// ToMessages converts the conversation back to LLM messages. Screenshots
// are not kept in transcripts, so results come back text-only.
func (c *Conversation) ToMessages() []llm.Message {
	messages := make([]llm.Message, 0, len(c.Turns))
	for _, turn := range c.Turns {
		msg := llm.Message{
			Role:      turn.Role,
			Content:   turn.Content,
			Thinking:  turn.Thinking,
			ToolCalls: turn.ToolCalls,
		}
		for _, r := range turn.ToolResults {
			msg.ToolResults = append(msg.ToolResults, llm.ToolResult{
				ToolUseID: r.ToolUseID,
				Name:      r.Name,
				Content:   r.Content,
				IsError:   r.IsError,
			})
		}
		messages = append(messages, msg)
	}
	return messages
}

// ToJSON serializes the conversation to JSON
func (c *Conversation) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Save writes the transcript to dir/<id>.json with owner-only permissions.
func (c *Conversation) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}
	b, err := c.ToJSON()
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	path := filepath.Join(dir, c.ID+".json")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

// LoadConversation reads a transcript written by Save.
func LoadConversation(path string) (*Conversation, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Conversation
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", path, err)
	}
	return &c, nil
}
