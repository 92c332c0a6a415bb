package llms

import (
	"github.com/cockroachdb/errors"
)

// ErrUnexpectedRole is returned when a message role is of an unexpected type.
var ErrUnexpectedRole = errors.New("unexpected role")

// ErrEmptyResponse is returned when the model returned no choices.
var ErrEmptyResponse = errors.New("no response from model")

// Role is the type of chat message.
type Role string

const (
	// RoleSystem is the instruction message, always first in a conversation.
	RoleSystem Role = "system"
	// RoleUser is a message sent by the user.
	RoleUser Role = "user"
	// RoleAssistant is a message sent by the model.
	RoleAssistant Role = "assistant"
	// RoleDeveloper is a message injected by the agent, such as a tool observation.
	RoleDeveloper Role = "developer"
)

// Valid returns true if the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleDeveloper:
		return true
	}
	return false
}

// Message is one entry of the conversation history sent to a LLM.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// NewMessage creates a Message with a role and content.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:    role,
		Content: content,
	}
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	InputTokens  int64 `json:"input_tokens,omitempty"`
	OutputTokens int64 `json:"output_tokens,omitempty"`
	TotalTokens  int64 `json:"total_tokens,omitempty"`
}

// ContentResponse is the response returned by a GenerateContent call.
// It can potentially return multiple content choices.
type ContentResponse struct {
	Choices []*ContentChoice `json:"choices"`
	Usage   Usage            `json:"usage"`
}

// ContentChoice is one of the response choices returned by GenerateContent
// calls.
type ContentChoice struct {
	// Content is the textual content of a response
	Content string `json:"content"`

	// StopReason is the reason the model stopped generating output.
	StopReason string `json:"stop_reason"`

	// GenerationInfo is arbitrary information the model adds to the response.
	GenerationInfo map[string]any `json:"generation_info,omitempty"`
}

// FirstContent returns the content of the first choice,
// or ErrEmptyResponse if there are no choices.
func (r *ContentResponse) FirstContent() (string, error) {
	if r == nil || len(r.Choices) == 0 || r.Choices[0] == nil {
		return "", errors.WithStack(ErrEmptyResponse)
	}
	return r.Choices[0].Content, nil
}
