package assistants

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/pkg/metricskey"
	"github.com/effective-security/toolagent/pkg/prompts"
	"github.com/effective-security/toolagent/protocol"
	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "assistants")

// Agent runs turns of the plan/action/observation/output protocol
// against a model, dispatching actions to the registered tools.
// Agent is immutable after construction and can be shared
// between concurrent turns on different conversations.
type Agent struct {
	model    llms.Model
	registry *tools.Registry
	cfg      *Config
}

// Result is the outcome of a successful turn
type Result struct {
	// Output is the final answer
	Output string `json:"output" yaml:"output"`
	// Iterations is the number of model calls in the turn
	Iterations int `json:"iterations" yaml:"iterations"`
	// ToolCalls is the number of tool invocations in the turn
	ToolCalls int `json:"tool_calls" yaml:"tool_calls"`
}

// NewAgent returns an agent for the model and tools
func NewAgent(model llms.Model, registry *tools.Registry, opts ...Option) *Agent {
	if registry == nil {
		registry, _ = tools.NewRegistry()
	}
	return &Agent{
		model:    model,
		registry: registry,
		cfg:      NewConfig(opts...),
	}
}

// Name returns the agent name
func (a *Agent) Name() string {
	return a.cfg.Name
}

// Model returns the model used by the agent
func (a *Agent) Model() llms.Model {
	return a.model
}

// Registry returns the tools available to the agent
func (a *Agent) Registry() *tools.Registry {
	return a.registry
}

// Config returns the agent configuration
func (a *Agent) Config() *Config {
	return a.cfg
}

// SystemPrompt renders the system prompt for the registered tools
func (a *Agent) SystemPrompt() (string, error) {
	data := &prompts.SystemPromptData{}
	for _, t := range a.registry.Tools() {
		data.Tools = append(data.Tools, prompts.NewTool(t.Name(), t.Description(), t.Parameters()))
	}
	if a.cfg.IncludeSchema {
		sc, err := protocol.Schema()
		if err != nil {
			return "", err
		}
		data.Schema = sc.String()
	}
	prompt, err := a.cfg.SystemPrompt.Render(data)
	if err != nil {
		return "", errors.WithMessage(err, "failed to render system prompt")
	}
	return prompt, nil
}

// NewConversation returns a conversation seeded with the system prompt.
// The chat ID from the context is used when present.
func (a *Agent) NewConversation(ctx context.Context) (*chatmodel.Conversation, error) {
	prompt, err := a.SystemPrompt()
	if err != nil {
		return nil, err
	}
	return chatmodel.NewConversationWithID(chatmodel.GetChatID(ctx), prompt), nil
}

// Run executes one turn: the user input is appended to the conversation
// and the model is called until it produces an output,
// the response can not be handled, or the turn budget is exhausted.
func (a *Agent) Run(ctx context.Context, conv *chatmodel.Conversation, input string) (res *Result, err error) {
	started := time.Now()
	agentName := a.Name()
	callback := a.cfg.CallbackHandler

	callback.OnTurnStart(ctx, a, input)
	defer func() {
		metricskey.PerfTurnRun.MeasureSince(started, agentName)
		if err != nil {
			reason := FailureReason(err)
			metricskey.StatsTurnsFailed.IncrCounter(1, agentName, reason)
			logger.ContextKV(ctx, xlog.ERROR,
				"agent", agentName,
				"chat_id", conv.ID(),
				"status", "turn_failed",
				"reason", reason,
				"input", slices.StringUpto(input, 64),
				"err", err.Error(),
			)
			callback.OnTurnError(ctx, a, input, err)
			return
		}
		metricskey.StatsTurnsSucceeded.IncrCounter(1, agentName)
		callback.OnTurnEnd(ctx, a, input, res)
	}()

	if err = conv.Append(llms.RoleUser, input); err != nil {
		return nil, err
	}

	res = &Result{}
	callOpts := a.cfg.GetCallOptions()
	for res.Iterations < a.cfg.MaxIterations {
		if err = ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		var raw string
		raw, err = a.callModel(ctx, conv, callOpts)
		res.Iterations++
		if err != nil {
			return nil, err
		}

		var step *protocol.Response
		step, err = a.decode(ctx, raw)
		if err != nil {
			return nil, err
		}

		var encoded string
		encoded, err = protocol.Encode(step)
		if err != nil {
			return nil, err
		}
		if err = conv.Append(llms.RoleAssistant, encoded); err != nil {
			return nil, err
		}

		switch step.Type {
		case protocol.TypePlan:
			callback.OnPlan(ctx, a, step.Plan)

		case protocol.TypeObservation:
			// the model is not expected to observe, nothing to feed back
			logger.ContextKV(ctx, xlog.DEBUG,
				"agent", agentName,
				"status", "model_observation",
				"observation", slices.StringUpto(step.Observation, 64),
			)
			callback.OnObservation(ctx, a, step.Observation)

		case protocol.TypeAction:
			callback.OnAction(ctx, a, step.Function, step.Input)
			var observation string
			observation, err = a.callTool(ctx, step.Function, step.Input)
			if err != nil {
				return nil, err
			}
			res.ToolCalls++
			if err = conv.Append(llms.RoleDeveloper, protocol.EncodeObservation(observation)); err != nil {
				return nil, err
			}

		case protocol.TypeOutput:
			res.Output = step.Output
			logger.ContextKV(ctx, xlog.DEBUG,
				"agent", agentName,
				"chat_id", conv.ID(),
				"status", "turn_completed",
				"iterations", res.Iterations,
				"tool_calls", res.ToolCalls,
			)
			return res, nil
		}
	}

	return nil, errors.WithMessagef(ErrTurnBudgetExceeded, "no output after %d model calls", res.Iterations)
}

// callModel sends the full history to the model and returns the text of the first choice
func (a *Agent) callModel(ctx context.Context, conv *chatmodel.Conversation, callOpts []llms.CallOption) (string, error) {
	agentName := a.Name()
	modelName := a.model.GetName()

	messages := conv.Snapshot()
	if a.cfg.MaxMessages > 0 && len(messages) > a.cfg.MaxMessages {
		return "", errors.WithMessagef(ErrMessagesLimit, "agent %s: %d messages", agentName, len(messages))
	}
	bytesSent := llmutils.CountMessagesContentSize(messages)
	if a.cfg.MaxContentSize > 0 && bytesSent > a.cfg.MaxContentSize {
		return "", errors.WithMessagef(ErrContentSizeLimit, "agent %s: %d bytes", agentName, bytesSent)
	}

	a.cfg.CallbackHandler.OnModelCallStart(ctx, a, messages)
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messages)), agentName, modelName)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), agentName, modelName)

	started := time.Now()
	resp, err := a.model.GenerateContent(ctx, messages, callOpts...)
	metricskey.PerfModelCall.MeasureSince(started, agentName, modelName)
	if err != nil {
		if errors.Is(err, llms.ErrEmptyResponse) {
			return "", errors.WithMessagef(ErrMalformedResponse, "agent %s: %s", agentName, err.Error())
		}
		return "", errors.WithMessage(err, "failed to generate content from LLM")
	}

	a.cfg.CallbackHandler.OnModelCallEnd(ctx, a, resp)

	metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), agentName, modelName)
	tokensIn, tokensOut, _ := llmutils.CountTokens(resp)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), agentName, modelName)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), agentName, modelName)

	content, err := resp.FirstContent()
	if err != nil {
		return "", errors.WithMessagef(ErrMalformedResponse, "agent %s: %s", agentName, err.Error())
	}
	return content, nil
}

func (a *Agent) decode(ctx context.Context, raw string) (*protocol.Response, error) {
	agentName := a.Name()
	step, err := protocol.Decode(raw)
	if err != nil {
		metricskey.StatsProtocolParseErrors.IncrCounter(1, agentName)
		logger.ContextKV(ctx, xlog.DEBUG,
			"agent", agentName,
			"status", "failed_to_parse_llm_response",
			"err", err.Error(),
			"result", slices.StringUpto(raw, 256),
		)
		a.cfg.CallbackHandler.OnParseError(ctx, a, raw, err)
		return nil, err
	}
	metricskey.StatsTurnResponses.IncrCounter(1, agentName, step.Type.String())
	return step, nil
}

// callTool invokes the tool once and returns the observation text.
// A tool error becomes the observation, so the model can recover.
func (a *Agent) callTool(ctx context.Context, toolName, input string) (string, error) {
	tool, ok := a.registry.Lookup(toolName)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", a.Name(),
			"status", "tool_not_found",
			"tool_name", toolName,
			"available_tools", a.registry.Names(),
		)
		a.cfg.CallbackHandler.OnToolNotFound(ctx, a, toolName)
		return "", errors.WithStack(&UnknownToolError{Name: toolName})
	}

	callback := a.cfg.CallbackHandler
	callback.OnToolStart(ctx, tool, a.Name(), input)

	started := time.Now()
	observation, err := tool.Call(ctx, input)
	metricskey.PerfToolCall.MeasureSince(started, toolName)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		callback.OnToolError(ctx, tool, a.Name(), input, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.WithStack(ctxErr)
		}
		return "Tool call failed: " + values.StringsCoalesce(err.Error(), "unknown error"), nil
	}
	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
	callback.OnToolEnd(ctx, tool, a.Name(), input, observation)
	return observation, nil
}
