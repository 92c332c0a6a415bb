package assistants

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/protocol"
)

var (
	// ErrMalformedResponse is returned when the model reply can not be decoded
	ErrMalformedResponse = protocol.ErrMalformedResponse
	// ErrUnknownResponseType is returned when the model reply has unsupported type
	ErrUnknownResponseType = protocol.ErrUnknownResponseType
	// ErrUnknownTool is returned when the model requests a tool that is not registered
	ErrUnknownTool = errors.New("unknown tool")
	// ErrTurnBudgetExceeded is returned when the model did not produce output
	// within the allowed number of calls
	ErrTurnBudgetExceeded = errors.New("turn budget exceeded")
	// ErrMessagesLimit is returned when the conversation exceeds the messages limit
	ErrMessagesLimit = errors.New("messages count exceeded limit")
	// ErrContentSizeLimit is returned when the conversation exceeds the content size limit
	ErrContentSizeLimit = errors.New("content size exceeded limit")
)

// UnknownToolError is returned when the action names a tool
// that is not in the registry.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "Unknown function: " + e.Name
}

// Is makes errors.Is(err, ErrUnknownTool) true
func (e *UnknownToolError) Is(target error) bool {
	return target == ErrUnknownTool
}

// FailureReason returns the metric tag for the turn error
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownTool):
		return "unknown_tool"
	case errors.Is(err, ErrUnknownResponseType):
		return "unknown_type"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrTurnBudgetExceeded):
		return "budget"
	case errors.Is(err, ErrMessagesLimit), errors.Is(err, ErrContentSizeLimit):
		return "limits"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "model"
}
