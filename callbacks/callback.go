package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/protocol"
	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ assistants.Callback = (*Noop)(nil)
	_ tools.Callback      = (*Noop)(nil)
	_ assistants.Callback = (*Printer)(nil)
	_ tools.Callback      = (*Printer)(nil)
	_ assistants.Callback = (*PackageLogger)(nil)
	_ tools.Callback      = (*PackageLogger)(nil)
	_ assistants.Callback = (*Fanout)(nil)
	_ tools.Callback      = (*Fanout)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault prints the plan, observation and unknown function lines
	ModeDefault Mode = iota
	// ModeVerbose also prints the raw model responses and tool activity
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []assistants.Callback
}

func NewFanout(callbacks ...assistants.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback assistants.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnTurnStart(ctx context.Context, agent *assistants.Agent, input string) {
	for _, callback := range l.callbacks {
		callback.OnTurnStart(ctx, agent, input)
	}
}

func (l *Fanout) OnTurnEnd(ctx context.Context, agent *assistants.Agent, input string, result *assistants.Result) {
	for _, callback := range l.callbacks {
		callback.OnTurnEnd(ctx, agent, input, result)
	}
}

func (l *Fanout) OnTurnError(ctx context.Context, agent *assistants.Agent, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnTurnError(ctx, agent, input, err)
	}
}

func (l *Fanout) OnModelCallStart(ctx context.Context, agent *assistants.Agent, payload []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnModelCallStart(ctx, agent, payload)
	}
}

func (l *Fanout) OnModelCallEnd(ctx context.Context, agent *assistants.Agent, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnModelCallEnd(ctx, agent, resp)
	}
}

func (l *Fanout) OnParseError(ctx context.Context, agent *assistants.Agent, response string, err error) {
	for _, callback := range l.callbacks {
		callback.OnParseError(ctx, agent, response, err)
	}
}

func (l *Fanout) OnPlan(ctx context.Context, agent *assistants.Agent, plan string) {
	for _, callback := range l.callbacks {
		callback.OnPlan(ctx, agent, plan)
	}
}

func (l *Fanout) OnAction(ctx context.Context, agent *assistants.Agent, function, input string) {
	for _, callback := range l.callbacks {
		callback.OnAction(ctx, agent, function, input)
	}
}

func (l *Fanout) OnObservation(ctx context.Context, agent *assistants.Agent, observation string) {
	for _, callback := range l.callbacks {
		callback.OnObservation(ctx, agent, observation)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, agent *assistants.Agent, tool string) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, agent, tool)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, tool tools.ITool, assistantName, input string) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, tool, assistantName, input)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, tool tools.ITool, assistantName, input string, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, tool, assistantName, input, output)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, tool tools.ITool, assistantName, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, tool, assistantName, input, err)
	}
}

// Noop does nothing.
type Noop struct {
	assistants.NoopCallback
}

func NewNoop() *Noop {
	return &Noop{}
}

// Printer is a callback handler that prints the turn progress to the Writer,
// in the format of the interactive console.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) printf(format string, args ...any) {
	l.lock.Lock()
	defer l.lock.Unlock()
	_, _ = fmt.Fprintf(l.Out, format, args...)
}

func (l *Printer) OnTurnStart(ctx context.Context, agent *assistants.Agent, input string) {
	if l.Mode == ModeVerbose {
		l.printf("Turn Start: %s\n", agent.Name())
	}
}

func (l *Printer) OnTurnEnd(ctx context.Context, agent *assistants.Agent, input string, result *assistants.Result) {
	if l.Mode == ModeVerbose {
		l.printf("Turn End: %s: %d model calls, %d tool calls\n", agent.Name(), result.Iterations, result.ToolCalls)
	}
}

func (l *Printer) OnTurnError(ctx context.Context, agent *assistants.Agent, input string, err error) {
	if l.Mode == ModeVerbose {
		l.printf("Turn Error: %s: %s\n", agent.Name(), err.Error())
	}
}

func (l *Printer) OnModelCallStart(ctx context.Context, agent *assistants.Agent, payload []llms.Message) {
	if l.Mode == ModeVerbose {
		l.printf("LLM Call: %s: %s model, %d messages\n", agent.Name(), agent.Model().GetName(), len(payload))
	}
}

func (l *Printer) OnModelCallEnd(ctx context.Context, agent *assistants.Agent, resp *llms.ContentResponse) {
	if l.Mode == ModeVerbose {
		for _, choice := range resp.Choices {
			if choice.Content != "" {
				l.printf("%s", llmutils.EnsureEndsWithNewline(choice.Content))
			}
		}
	}
}

func (l *Printer) OnParseError(ctx context.Context, agent *assistants.Agent, response string, err error) {
	if errors.Is(err, protocol.ErrUnknownResponseType) {
		typ := gjson.GetBytes(llmutils.CleanJSON([]byte(response)), "type").String()
		l.printf("Unknown response type: %s\n", typ)
		return
	}
	l.printf("LLM Parse Error: %s\n", err.Error())
	if l.Mode == ModeVerbose {
		l.printf("Response: %s\n", response)
	}
}

func (l *Printer) OnPlan(ctx context.Context, agent *assistants.Agent, plan string) {
	l.printf("AI PLAN: %s\n", plan)
}

func (l *Printer) OnAction(ctx context.Context, agent *assistants.Agent, function, input string) {
	if l.Mode == ModeVerbose {
		l.printf("AI ACTION: %s(%s)\n", function, input)
	}
}

func (l *Printer) OnObservation(ctx context.Context, agent *assistants.Agent, observation string) {
	l.printf("AI OBSERVATION: %s\n", observation)
}

func (l *Printer) OnToolNotFound(ctx context.Context, agent *assistants.Agent, tool string) {
	if l.Mode == ModeVerbose {
		l.printf("Tool Not Found: %s\n", tool)
	}
}

func (l *Printer) OnToolStart(ctx context.Context, tool tools.ITool, assistantName, input string) {
	if l.Mode == ModeVerbose {
		l.printf("Tool Start: %s (%s)\nInput: %s\n", tool.Name(), assistantName, input)
	}
}

func (l *Printer) OnToolEnd(ctx context.Context, tool tools.ITool, assistantName, input string, output string) {
	if l.Mode == ModeVerbose {
		l.printf("Tool End: %s (%s)\nOutput: %s\n", tool.Name(), assistantName, output)
	}
}

func (l *Printer) OnToolError(ctx context.Context, tool tools.ITool, assistantName, input string, err error) {
	l.printf("Tool Error: %s (%s): %s\n", tool.Name(), assistantName, err.Error())
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnTurnStart(ctx context.Context, agent *assistants.Agent, input string) {
	var chatID, source string
	if chatCtx := chatmodel.GetChatContext(ctx); chatCtx != nil {
		chatID = chatCtx.GetChatID()
		source = chatCtx.GetSource()
	}
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "turn_start",
		"agent", agent.Name(),
		"chat_id", chatID,
		"source", source,
		"input", slices.StringUpto(input, 256),
	)
}

func (l *PackageLogger) OnTurnEnd(ctx context.Context, agent *assistants.Agent, input string, result *assistants.Result) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "turn_end",
		"agent", agent.Name(),
		"iterations", result.Iterations,
		"tool_calls", result.ToolCalls,
		"output", slices.StringUpto(result.Output, 256),
	)
}

func (l *PackageLogger) OnTurnError(ctx context.Context, agent *assistants.Agent, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "turn_error",
		"agent", agent.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnModelCallStart(ctx context.Context, agent *assistants.Agent, payload []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_start",
		"agent", agent.Name(),
		"model", agent.Model().GetName(),
		"messages", len(payload),
		"question", slices.StringUpto(llmutils.FindLastUserQuestion(payload), 64),
	)
}

func (l *PackageLogger) OnModelCallEnd(ctx context.Context, agent *assistants.Agent, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_end",
		"agent", agent.Name(),
		"model", agent.Model().GetName(),
		"choices", len(resp.Choices),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
}

func (l *PackageLogger) OnParseError(ctx context.Context, agent *assistants.Agent, response string, err error) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "parse_error",
		"agent", agent.Name(),
		"err", err.Error(),
		"response", slices.StringUpto(response, 256),
	)
}

func (l *PackageLogger) OnPlan(ctx context.Context, agent *assistants.Agent, plan string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "plan",
		"agent", agent.Name(),
		"plan", plan,
	)
}

func (l *PackageLogger) OnAction(ctx context.Context, agent *assistants.Agent, function, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "action",
		"agent", agent.Name(),
		"function", function,
		"input", input,
	)
}

func (l *PackageLogger) OnObservation(ctx context.Context, agent *assistants.Agent, observation string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "observation",
		"agent", agent.Name(),
		"observation", observation,
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, agent *assistants.Agent, tool string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_not_found",
		"agent", agent.Name(),
		"tool", tool,
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, tool tools.ITool, assistantName, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"agent", assistantName,
		"tool", tool.Name(),
		"input", input,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, tool tools.ITool, assistantName, input string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"agent", assistantName,
		"tool", tool.Name(),
		"output", output,
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, tool tools.ITool, assistantName, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"agent", assistantName,
		"tool", tool.Name(),
		"err", err.Error(),
	)
}
