package chatmodel

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
)

// Conversation is the ordered message history of one chat.
// The system prompt is always the first message and is never changed.
// Conversation is not safe for concurrent use.
type Conversation struct {
	id       string
	messages []llms.Message
}

// NewConversation returns a conversation seeded with the system prompt
func NewConversation(systemPrompt string) *Conversation {
	return NewConversationWithID("", systemPrompt)
}

// NewConversationWithID returns a conversation seeded with the system prompt,
// a new ID is generated if id is empty
func NewConversationWithID(id, systemPrompt string) *Conversation {
	if id == "" {
		id = NewChatID()
	}
	return &Conversation{
		id:       id,
		messages: []llms.Message{llms.NewMessage(llms.RoleSystem, systemPrompt)},
	}
}

// ID returns the conversation ID
func (c *Conversation) ID() string {
	return c.id
}

// Append adds a message to the end of the history.
// The system role is reserved for the first message.
func (c *Conversation) Append(role llms.Role, content string) error {
	if role == llms.RoleSystem {
		return errors.WithMessage(llms.ErrUnexpectedRole, "system message can not be appended")
	}
	if !role.Valid() {
		return errors.WithMessagef(llms.ErrUnexpectedRole, "%q", string(role))
	}
	c.messages = append(c.messages, llms.NewMessage(role, content))
	return nil
}

// Snapshot returns a copy of the history, system message first
func (c *Conversation) Snapshot() []llms.Message {
	return slices.Clone(c.messages)
}

// Len returns the number of messages, including the system message
func (c *Conversation) Len() int {
	return len(c.messages)
}

// SystemPrompt returns the content of the system message
func (c *Conversation) SystemPrompt() string {
	return c.messages[0].Content
}

// Last returns the last message
func (c *Conversation) Last() llms.Message {
	return c.messages[len(c.messages)-1]
}
