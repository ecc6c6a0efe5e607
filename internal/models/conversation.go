package models

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a role-tagged chat message.
type Message struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// Conversation is the message history of a chat-mode session.
// The system message, when configured, is written once on the first committed turn.
// History is never truncated.
type Conversation struct {
	system   string
	messages []Message
}

// NewConversation returns an empty conversation. An empty system prompt means no system message.
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{system: systemPrompt}
}

// Pending returns the history that would be sent for a turn with the given user message,
// without modifying the conversation.
func (c *Conversation) Pending(user Message) []Message {
	out := make([]Message, 0, len(c.messages)+2)
	if len(c.messages) == 0 && c.system != "" {
		out = append(out, Message{Role: RoleSystem, Content: c.system})
	}
	out = append(out, c.messages...)
	return append(out, user)
}

// Commit appends one completed turn.
func (c *Conversation) Commit(user, assistant Message) {
	if len(c.messages) == 0 && c.system != "" {
		c.messages = append(c.messages, Message{Role: RoleSystem, Content: c.system})
	}
	c.messages = append(c.messages, user, assistant)
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Turns returns the number of committed turns.
func (c *Conversation) Turns() int {
	n := len(c.messages)
	if n > 0 && c.messages[0].Role == RoleSystem {
		n--
	}
	return n / 2
}

// FirstTurn reports whether no turn has been committed yet.
func (c *Conversation) FirstTurn() bool {
	return len(c.messages) == 0
}
