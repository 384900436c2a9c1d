package agent

import (
	"sync"
	"time"

	"github.com/aiyo-oss/aiyo/internal/provider"
)

// Message is one entry of the conversation history.
type Message struct {
	Role      string    `json:"role"` // system, user, assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// History is the conversation sent to the model. The first message is always
// the system prompt and survives Trim and Reset.
type History struct {
	mu        sync.RWMutex
	maxTokens int
	messages  []Message
}

// NewHistory creates a history seeded with systemPrompt.
func NewHistory(systemPrompt string, maxTokens int) *History {
	if maxTokens <= 0 {
		maxTokens = 6000
	}
	return &History{
		maxTokens: maxTokens,
		messages:  []Message{{Role: provider.RoleSystem, Content: systemPrompt, Timestamp: time.Now()}},
	}
}

// Add appends a message. It never truncates; call Trim once a turn is complete.
func (h *History) Add(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, Message{Role: role, Content: content, Timestamp: time.Now()})
}

// Trim drops the oldest whole turns while the estimate exceeds the token
// budget. A turn runs from a user message up to the next one, so the first
// message after the system prompt is always a user message. The newest turn
// is kept even when it alone is over budget.
func (h *History) Trim() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for h.estimatedTokensLocked() > h.maxTokens {
		next := h.nextTurnLocked()
		if next < 0 {
			break
		}
		dropped += next - 1
		h.messages = append(h.messages[:1], h.messages[next:]...)
	}
	return dropped
}

// RemoveLast drops the newest message if it has the given role.
func (h *History) RemoveLast(role string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.messages)
	if n <= 1 || h.messages[n-1].Role != role {
		return false
	}
	h.messages = h.messages[:n-1]
	return true
}

// Reset drops every message except the system prompt.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = h.messages[:1]
}

// SystemPrompt returns the pinned first message.
func (h *History) SystemPrompt() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.messages[0].Content
}

// Messages returns a copy of the history, system prompt first.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Message, len(h.messages))
	copy(result, h.messages)
	return result
}

// Len returns the number of messages, system prompt included.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// EstimatedTokens returns a rough token count (1 token ≈ 4 characters).
func (h *History) EstimatedTokens() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.estimatedTokensLocked()
}

// nextTurnLocked returns the index of the second turn's user message, or -1
// when at most one turn remains. Caller must hold h.mu.
func (h *History) nextTurnLocked() int {
	for i := 2; i < len(h.messages); i++ {
		if h.messages[i].Role == provider.RoleUser {
			return i
		}
	}
	return -1
}

func (h *History) estimatedTokensLocked() int {
	total := 0
	for _, msg := range h.messages {
		total += len(msg.Content)
	}
	return total / 4
}
