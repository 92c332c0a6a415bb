package callbacks_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/callbacks"
	"github.com/effective-security/toolagent/mocks/mocktools"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/protocol"
	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type fakeModel struct{}

func (fakeModel) GetName() string                    { return "fake-model" }
func (fakeModel) GetProviderType() llms.ProviderType { return llms.ProviderOpenAI }
func (fakeModel) GenerateContent(context.Context, []llms.Message, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, errors.New("not implemented")
}

func newAgent() *assistants.Agent {
	return assistants.NewAgent(fakeModel{}, nil, assistants.WithName("test-agent"))
}

func newTool(t *testing.T) *mocktools.MockITool {
	tool := mocktools.NewMockITool(gomock.NewController(t))
	tool.EXPECT().Name().Return("getWeather").AnyTimes()
	return tool
}

func emit(ctx context.Context, cb assistants.Callback, agent *assistants.Agent, tool *mocktools.MockITool) {
	resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: `{"type":"plan","plan":"p"}`}}}
	cb.OnTurnStart(ctx, agent, "weather in Delhi?")
	cb.OnModelCallStart(ctx, agent, []llms.Message{llms.NewMessage(llms.RoleUser, "weather in Delhi?")})
	cb.OnModelCallEnd(ctx, agent, resp)
	cb.OnPlan(ctx, agent, "I will call getWeather for Delhi")
	cb.OnAction(ctx, agent, "getWeather", "Delhi")
	cb.OnToolStart(ctx, tool, agent.Name(), "Delhi")
	cb.OnToolEnd(ctx, tool, agent.Name(), "Delhi", "25°C, clear sky")
	cb.OnToolError(ctx, tool, agent.Name(), "Delhi", errors.New("test error"))
	cb.OnObservation(ctx, agent, "25°C, clear sky")
	cb.OnToolNotFound(ctx, agent, "getStockPrice")
	cb.OnParseError(ctx, agent, "not json", errors.Wrap(protocol.ErrMalformedResponse, "invalid JSON"))
	cb.OnTurnError(ctx, agent, "weather in Delhi?", errors.New("turn failed"))
	cb.OnTurnEnd(ctx, agent, "weather in Delhi?", &assistants.Result{Output: "It is 25°C", Iterations: 3, ToolCalls: 1})
}

func TestPrinter_Default(t *testing.T) {
	var buf bytes.Buffer
	cb := callbacks.NewPrinter(&buf, callbacks.ModeDefault)
	emit(context.Background(), cb, newAgent(), newTool(t))

	res := buf.String()
	assert.Contains(t, res, "AI PLAN: I will call getWeather for Delhi\n")
	assert.Contains(t, res, "AI OBSERVATION: 25°C, clear sky\n")
	assert.Contains(t, res, "Tool Error: getWeather (test-agent): test error\n")
	assert.Contains(t, res, "LLM Parse Error: ")
	assert.NotContains(t, res, "Tool Start")
	assert.NotContains(t, res, "Tool Not Found")
	assert.NotContains(t, res, "Turn End")
}

func TestPrinter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	cb := callbacks.NewPrinter(&buf, callbacks.ModeVerbose)
	emit(context.Background(), cb, newAgent(), newTool(t))

	res := buf.String()
	assert.Contains(t, res, "Turn Start: test-agent\n")
	assert.Contains(t, res, "LLM Call: test-agent: fake-model model, 1 messages\n")
	assert.Contains(t, res, `{"type":"plan","plan":"p"}`)
	assert.Contains(t, res, "AI ACTION: getWeather(Delhi)\n")
	assert.Contains(t, res, "Tool Start: getWeather (test-agent)\nInput: Delhi\n")
	assert.Contains(t, res, "Tool End: getWeather (test-agent)\nOutput: 25°C, clear sky\n")
	assert.Contains(t, res, "Tool Not Found: getStockPrice\n")
	assert.Contains(t, res, "Response: not json\n")
	assert.Contains(t, res, "Turn Error: test-agent: turn failed\n")
	assert.Contains(t, res, "Turn End: test-agent: 3 model calls, 1 tool calls\n")
}

func TestPrinter_UnknownResponseType(t *testing.T) {
	var buf bytes.Buffer
	cb := callbacks.NewPrinter(&buf, callbacks.ModeDefault)

	raw := `{"type":"thought","thought":"x"}`
	_, err := protocol.Decode(raw)
	cb.OnParseError(context.Background(), newAgent(), raw, err)
	assert.Equal(t, "Unknown response type: thought\n", buf.String())
}

func TestFanout(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	fanout := callbacks.NewFanout(callbacks.NewPrinter(&buf1, callbacks.ModeVerbose))
	fanout.Add(callbacks.NewPrinter(&buf2, callbacks.ModeVerbose))
	fanout.Add(callbacks.NewNoop())
	fanout.Add(callbacks.NewPackageLogger(xlog.NewPackageLogger("github.com/effective-security/toolagent", "callbacks_test")))

	emit(context.Background(), fanout, newAgent(), newTool(t))

	assert.NotEmpty(t, buf1.String())
	assert.Equal(t, buf1.String(), buf2.String())
}
