package assistants

import (
	"context"

	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/tools"
)

// Callback receives the agent turn events
type Callback interface {
	tools.Callback
	OnTurnStart(ctx context.Context, agent *Agent, input string)
	OnTurnEnd(ctx context.Context, agent *Agent, input string, result *Result)
	OnTurnError(ctx context.Context, agent *Agent, input string, err error)
	OnModelCallStart(ctx context.Context, agent *Agent, payload []llms.Message)
	OnModelCallEnd(ctx context.Context, agent *Agent, resp *llms.ContentResponse)
	OnParseError(ctx context.Context, agent *Agent, response string, err error)
	OnPlan(ctx context.Context, agent *Agent, plan string)
	OnAction(ctx context.Context, agent *Agent, function, input string)
	// OnObservation is called when the model itself declared an observation
	OnObservation(ctx context.Context, agent *Agent, observation string)
	OnToolNotFound(ctx context.Context, agent *Agent, tool string)
}

// NoopCallback does nothing.
type NoopCallback struct{}

var _ Callback = NoopCallback{}

func (NoopCallback) OnTurnStart(context.Context, *Agent, string)                     {}
func (NoopCallback) OnTurnEnd(context.Context, *Agent, string, *Result)              {}
func (NoopCallback) OnTurnError(context.Context, *Agent, string, error)              {}
func (NoopCallback) OnModelCallStart(context.Context, *Agent, []llms.Message)        {}
func (NoopCallback) OnModelCallEnd(context.Context, *Agent, *llms.ContentResponse)   {}
func (NoopCallback) OnParseError(context.Context, *Agent, string, error)             {}
func (NoopCallback) OnPlan(context.Context, *Agent, string)                          {}
func (NoopCallback) OnAction(context.Context, *Agent, string, string)                {}
func (NoopCallback) OnObservation(context.Context, *Agent, string)                   {}
func (NoopCallback) OnToolNotFound(context.Context, *Agent, string)                  {}
func (NoopCallback) OnToolStart(context.Context, tools.ITool, string, string)        {}
func (NoopCallback) OnToolEnd(context.Context, tools.ITool, string, string, string)  {}
func (NoopCallback) OnToolError(context.Context, tools.ITool, string, string, error) {}
