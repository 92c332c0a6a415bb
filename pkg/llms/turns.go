package llms

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ContinuePrompt is appended when the history ends with an assistant message,
// for providers that treat a trailing assistant message as a prefill.
const ContinuePrompt = "Continue with the next step."

// Turn is a group of consecutive messages with the same provider role.
type Turn struct {
	Role  Role
	Parts []string
}

// ToTurns separates the system prompt and groups the rest of the history
// into alternating user and assistant turns.
// Developer messages are sent as user messages.
// The result always ends with a user turn.
func ToTurns(messages []Message) (string, []Turn, error) {
	var system []string
	var turns []Turn

	for _, m := range messages {
		role := m.Role
		switch role {
		case RoleSystem:
			system = append(system, m.Content)
			continue
		case RoleUser, RoleAssistant:
		case RoleDeveloper:
			role = RoleUser
		default:
			return "", nil, errors.WithMessagef(ErrUnexpectedRole, "role %q not supported", string(m.Role))
		}

		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Parts = append(turns[n-1].Parts, m.Content)
			continue
		}
		turns = append(turns, Turn{Role: role, Parts: []string{m.Content}})
	}

	if n := len(turns); n == 0 || turns[n-1].Role != RoleUser {
		turns = append(turns, Turn{Role: RoleUser, Parts: []string{ContinuePrompt}})
	}
	return strings.Join(system, "\n\n"), turns, nil
}
