package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/callbacks"
	"github.com/effective-security/toolagent/console"
	"github.com/effective-security/toolagent/mocks/mockllms"
	"github.com/effective-security/toolagent/mocks/mocktools"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/protocol"
	"github.com/effective-security/toolagent/tools"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func respond(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}
}

type fixture struct {
	model *mockllms.MockModel
	tool  *mocktools.MockITool
	out   bytes.Buffer
	con   *console.Console
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		model: mockllms.NewMockModel(ctrl),
		tool:  mocktools.NewMockITool(ctrl),
	}
	f.model.EXPECT().GetName().Return("gpt-4o-mini").AnyTimes()
	f.tool.EXPECT().Name().Return("getWeather").AnyTimes()
	f.tool.EXPECT().Description().Return("returns weather info.").AnyTimes()
	f.tool.EXPECT().Parameters().Return(&jsonschema.Schema{Type: "object"}).AnyTimes()

	registry, err := tools.NewRegistry(f.tool)
	require.NoError(t, err)

	agent := assistants.NewAgent(f.model, registry,
		assistants.WithCallback(callbacks.NewPrinter(&f.out, callbacks.ModeDefault)),
	)
	f.con = console.New(agent)
	return f
}

func TestRun_Session(t *testing.T) {
	f := newFixture(t)

	f.tool.EXPECT().Call(gomock.Any(), "Delhi").Return("25°C, clear sky", nil)
	gomock.InOrder(
		f.model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(respond(`{"type":"plan","plan":"I will call getWeather for Delhi"}`), nil),
		f.model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(respond(`{"type":"action","function":"getWeather","input":"Delhi"}`), nil),
		f.model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(respond(`{"type":"output","output":"It is 25°C with clear sky in Delhi."}`), nil),
		// the second turn sees the whole history
		f.model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				assert.Len(t, msgs, 7)
				return respond(`{"type":"output","output":"You are welcome!"}`), nil
			}),
	)

	in := strings.NewReader("What is the weather in Delhi?\n\nthanks\nexit\nnot read\n")
	err := f.con.Run(context.Background(), in, &f.out)
	require.NoError(t, err)

	assert.Equal(t,
		"You: AI PLAN: I will call getWeather for Delhi\n"+
			"Assistant: It is 25°C with clear sky in Delhi.\n"+
			"You: You: Assistant: You are welcome!\n"+
			"You: ",
		f.out.String())
}

func TestRun_ErrorsDoNotEndSession(t *testing.T) {
	f := newFixture(t)

	gomock.InOrder(
		f.model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(respond(`{"type":"action","function":"getStockPrice","input":"AAPL"}`), nil),
		f.model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(respond("It is sunny"), nil),
		f.model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("status 429")),
		f.model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(respond(`{"type":"output","output":"Hi"}`), nil),
	)

	in := strings.NewReader("AAPL?\nweather?\nretry\nhello")
	err := f.con.Run(context.Background(), in, &f.out)
	require.NoError(t, err)

	res := f.out.String()
	assert.Contains(t, res, "Unknown function: getStockPrice\n")
	assert.Contains(t, res, "LLM Parse Error: ")
	assert.Contains(t, res, "Response: It is sunny\n")
	assert.Contains(t, res, "status 429")
	assert.Contains(t, res, "Assistant: Hi\n")
	// EOF ends the session with a new line
	assert.True(t, strings.HasSuffix(res, "You: \n"))
}

func TestRun_Canceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.con.Run(ctx, strings.NewReader("hi\n"), &f.out)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestIsExit(t *testing.T) {
	for _, s := range []string{"exit", "quit", "EXIT", "Quit"} {
		assert.True(t, console.IsExit(s), s)
	}
	for _, s := range []string{"", "exit now", "q"} {
		assert.False(t, console.IsExit(s), s)
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Unknown function: x", console.Describe(errors.WithStack(&assistants.UnknownToolError{Name: "x"})))
	assert.Equal(t, "Error: boom", console.Describe(errors.New("boom")))

	_, err := protocol.Decode(`{"type":"output","output":"hi`)
	require.Error(t, err)
	assert.Equal(t, "Error: agent weather: invalid JSON: malformed model response\nResponse: {\"type\":\"output\",\"output\":\"hi",
		console.Describe(errors.WithMessage(err, "agent weather")))
}
