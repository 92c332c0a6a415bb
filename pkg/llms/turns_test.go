package llms_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTurns(t *testing.T) {
	t.Parallel()

	system, turns, err := llms.ToTurns([]llms.Message{
		llms.NewMessage(llms.RoleSystem, "sys"),
		llms.NewMessage(llms.RoleUser, "weather in Delhi?"),
		llms.NewMessage(llms.RoleAssistant, "plan"),
		llms.NewMessage(llms.RoleAssistant, "action"),
		llms.NewMessage(llms.RoleDeveloper, "observation"),
	})
	require.NoError(t, err)
	assert.Equal(t, "sys", system)
	assert.Equal(t, []llms.Turn{
		{Role: llms.RoleUser, Parts: []string{"weather in Delhi?"}},
		{Role: llms.RoleAssistant, Parts: []string{"plan", "action"}},
		{Role: llms.RoleUser, Parts: []string{"observation"}},
	}, turns)

	// trailing assistant message gets a user turn
	_, turns, err = llms.ToTurns([]llms.Message{
		llms.NewMessage(llms.RoleSystem, "sys"),
		llms.NewMessage(llms.RoleUser, "q"),
		llms.NewMessage(llms.RoleAssistant, "plan"),
	})
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, llms.Turn{Role: llms.RoleUser, Parts: []string{llms.ContinuePrompt}}, turns[2])

	_, _, err = llms.ToTurns([]llms.Message{{Role: "tool", Content: "x"}})
	assert.True(t, errors.Is(err, llms.ErrUnexpectedRole))
}
