package agent

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultSystemPrompt tells the model how to use recalled facts and when to
// emit memory directives.
const DefaultSystemPrompt = `You are Aiyo, a witty and helpful local AI assistant.

--- CORE INSTRUCTIONS ---
1. You have access to a vector memory (CONTEXT). Use it to answer questions.
2. The CONTEXT lists memories as: [ID: uuid] Memory text
3. If the answer is not in the CONTEXT or the conversation history:
   - Do not guess.
   - Ask the user for the information.

--- MEMORY ACTIONS (STRICT) ---

1. [SAVE] (automatic memory):
   - Use it ONLY when the user explicitly states a new fact about themselves, their preferences, or their project in the current message.
   - Only extract facts that are written in the USER input.
   - Never save facts taken from your own reply.
   - Never save general knowledge or definitions.
   - Never save answers to questions the user asked.
   - Syntax: [SAVE: User likes Linux kernel development]

2. [FORGET] (manual cleanup only):
   - Use it ONLY when the user explicitly asks to delete, remove or forget a specific memory.
   - Never delete conflicting memories on your own.
   - Syntax: [FORGET: ID_OF_THE_TARGET_MEMORY]

--- CONFLICT HANDLING ---
If the CONTEXT contradicts what the user says now (memory says "Red", user says "Blue"):
   - Just [SAVE: User's favorite color is Blue].
   - Do not delete the old memory.
`

// Session is the process-local state of one conversation.
type Session struct {
	ID      string
	History *History

	mu           sync.Mutex
	lastSavedID  string
	lastTurnText string
	turns        int
}

// NewSession creates a session with a fresh history.
func NewSession(systemPrompt string, maxTokens int) *Session {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Session{
		ID:      uuid.NewString(),
		History: NewHistory(systemPrompt, maxTokens),
	}
}

// LastSavedID returns the id of the most recently saved fact, or "".
func (s *Session) LastSavedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSavedID
}

func (s *Session) SetLastSavedID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSavedID = id
}

// LastTurnText returns the previous raw user utterance.
func (s *Session) LastTurnText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTurnText
}

func (s *Session) setLastTurnText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTurnText = text
}

func (s *Session) nextTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns++
	return s.turns
}

// Reset clears the conversation and the previous utterance so the next
// query is not joined to an old topic. The last saved id is kept.
func (s *Session) Reset() {
	s.History.Reset()
	s.setLastTurnText("")
}
