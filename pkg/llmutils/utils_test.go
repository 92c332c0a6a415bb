package llmutils_test

import (
	"bytes"
	"testing"

	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/stretchr/testify/assert"
)

func Test_CleanJSON(t *testing.T) {
	llmOutput := "\n```json\n\n{\"type\": \"plan\", \"plan\": \"call getWeather\"}\n\n```\n\n"
	assert.Equal(t, `{"type": "plan", "plan": "call getWeather"}`, string(llmutils.CleanJSON([]byte(llmOutput))))

	llmOutput = "Sure, here you go: {\"type\":\"output\",\"output\":\"hi\"} Hope this helps."
	assert.Equal(t, `{"type":"output","output":"hi"}`, string(llmutils.CleanJSON([]byte(llmOutput))))

	// nested braces in values are preserved
	resp := `{"type":"output","output":"use {curly} and [square]"}`
	assert.Equal(t, resp, string(llmutils.CleanJSON([]byte(resp))))

	// no JSON at all is returned as is
	assert.Equal(t, "just text", string(llmutils.CleanJSON([]byte("just text"))))
}

func Test_EnsureNewline(t *testing.T) {
	assert.Equal(t, "", llmutils.EnsureEndsWithNewline(" \n"))
	assert.Equal(t, "Hello\n", llmutils.EnsureEndsWithNewline(" \nHello"))
	assert.Equal(t, "Hello\n", llmutils.EnsureEndsWithNewline("\nHello\n"))
	assert.Equal(t, "Hello\n", llmutils.EnsureEndsWithNewline("Hello\n\n\n"))
}

func Test_ToJSONIndent(t *testing.T) {
	m := llms.NewMessage(llms.RoleDeveloper, "obs")
	assert.Equal(t, "{\n\t\"role\": \"developer\",\n\t\"content\": \"obs\"\n}", llmutils.ToJSONIndent(m))
}

func Test_Counts(t *testing.T) {
	msgs := []llms.Message{
		llms.NewMessage(llms.RoleSystem, "sys"),
		llms.NewMessage(llms.RoleUser, "hello"),
	}
	// "system"+"sys" + "user"+"hello"
	assert.Equal(t, uint64(6+3+4+5), llmutils.CountMessagesContentSize(msgs))

	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "1234"}},
		Usage:   llms.Usage{InputTokens: 10, OutputTokens: 5},
	}
	assert.Equal(t, uint64(4), llmutils.CountResponseContentSize(resp))
	assert.Equal(t, uint64(0), llmutils.CountResponseContentSize(nil))

	in, out, total := llmutils.CountTokens(resp)
	assert.Equal(t, int64(10), in)
	assert.Equal(t, int64(5), out)
	assert.Equal(t, int64(15), total)

	resp.Usage.TotalTokens = 20
	_, _, total = llmutils.CountTokens(resp)
	assert.Equal(t, int64(20), total)
}

func Test_FindLastUserQuestion(t *testing.T) {
	msgs := []llms.Message{
		llms.NewMessage(llms.RoleSystem, "sys"),
		llms.NewMessage(llms.RoleUser, "first"),
		llms.NewMessage(llms.RoleAssistant, "a"),
		llms.NewMessage(llms.RoleUser, "second"),
		llms.NewMessage(llms.RoleDeveloper, "obs"),
	}
	assert.Equal(t, "second", llmutils.FindLastUserQuestion(msgs))
	assert.Equal(t, "", llmutils.FindLastUserQuestion(msgs[:1]))
}

func TestPrintMessages(t *testing.T) {
	msgs := []llms.Message{
		llms.NewMessage(llms.RoleUser, "What is the weather in Delhi?"),
		llms.NewMessage(llms.RoleDeveloper, `{"type":"observation","observation":"25°C, clear sky"}`),
	}
	var buf bytes.Buffer
	llmutils.PrintMessages(&buf, msgs, 0)
	assert.Equal(t, "USER: What is the weather in Delhi?\nDEVELOPER: {\"type\":\"observation\",\"observation\":\"25°C, clear sky\"}\n", buf.String())
}
