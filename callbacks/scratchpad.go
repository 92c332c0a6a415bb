package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/tools"
)

// ensure Scratchpad implements assistants.Callback
var _ assistants.Callback = (*Scratchpad)(nil)

var TimeNowFn = time.Now

// RunStats is the accounting of one turn
type RunStats struct {
	ChatID string `json:"chat_id" yaml:"chat_id"`

	Duration            time.Duration `json:"duration" yaml:"duration"`
	TotalMessages       uint32        `json:"total_messages" yaml:"total_messages"`
	LLMBytesOut         uint64        `json:"llm_bytes_out" yaml:"llm_bytes_out"`
	LLMBytesIn          uint64        `json:"llm_bytes_in" yaml:"llm_bytes_in"`
	LLMInputTokens      uint64        `json:"llm_input_tokens" yaml:"llm_input_tokens"`
	LLMOutputTokens     uint64        `json:"llm_output_tokens" yaml:"llm_output_tokens"`
	LLMCalls            uint32        `json:"llm_calls" yaml:"llm_calls"`
	ParseErrors         uint32        `json:"parse_errors" yaml:"parse_errors"`
	Plans               uint32        `json:"plans" yaml:"plans"`
	Observations        uint32        `json:"observations" yaml:"observations"`
	ToolsCalls          uint32        `json:"tools_calls" yaml:"tools_calls"`
	ToolsCallsSucceeded uint32        `json:"tools_calls_succeeded" yaml:"tools_calls_succeeded"`
	ToolsCallsFailed    uint32        `json:"tools_calls_failed" yaml:"tools_calls_failed"`
	ToolNotFound        uint32        `json:"tool_not_found" yaml:"tool_not_found"`
	Failed              bool          `json:"failed" yaml:"failed"`
}

// Scratchpad records a transcript and stats of the turns, per chat ID.
// Events of chats without StartRun are ignored.
type Scratchpad struct {
	runs map[string]*run
	mode Mode
	lock sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs: make(map[string]*run),
		mode: mode,
	}
}

// StartRun starts recording the chat from the context
func (l *Scratchpad) StartRun(ctx context.Context) {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return
	}

	r := &run{
		stats: RunStats{
			ChatID: chatID,
		},
		chatID:  chatID,
		started: time.Now(),
	}

	l.lock.Lock()
	l.runs[chatID] = r
	l.lock.Unlock()

	r.print("*** Run Started ***")
}

// EndRun stops recording and returns the stats and the transcript
func (l *Scratchpad) EndRun(ctx context.Context) (*RunStats, []byte) {
	run := l.getRun(ctx)
	if run == nil {
		return nil, nil
	}

	stats := run.stats
	stats.Duration = time.Since(run.started)

	run.print(fmt.Sprintf("Plans: %d, Observations: %d, Parse errors: %d",
		stats.Plans,
		stats.Observations,
		stats.ParseErrors,
	))
	run.print(fmt.Sprintf("Tool calls: %d, Failed: %d, Not Found: %d",
		stats.ToolsCalls,
		stats.ToolsCallsFailed,
		stats.ToolNotFound,
	))
	run.print(fmt.Sprintf("LLM calls: %d, Messages: %d, Bytes Out: %d, Bytes In: %d, Input Tokens: %d, Output Tokens: %d",
		stats.LLMCalls,
		stats.TotalMessages,
		stats.LLMBytesOut,
		stats.LLMBytesIn,
		stats.LLMInputTokens,
		stats.LLMOutputTokens,
	))

	run.print(fmt.Sprintf("*** Run Ended. Duration: %s ***", stats.Duration))

	l.lock.Lock()
	delete(l.runs, run.chatID)
	l.lock.Unlock()

	return &stats, run.w.Bytes()
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[chatID]
}

func (l *Scratchpad) OnTurnStart(ctx context.Context, agent *assistants.Agent, input string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	run.print(agent.Name(), "*** Turn Start ***")
	run.print(agent.Name(), "Input:", input)
}

func (l *Scratchpad) OnTurnEnd(ctx context.Context, agent *assistants.Agent, input string, result *assistants.Result) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	if l.mode == ModeVerbose {
		run.print(agent.Name(), "Output:", result.Output)
	}
	run.print(agent.Name(), "*** Turn End ***")
}

func (l *Scratchpad) OnTurnError(ctx context.Context, agent *assistants.Agent, input string, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	run.setFailed()
	run.print(agent.Name(), "*** Error ***", err.Error())
}

func (l *Scratchpad) printMessages(messages []llms.Message) string {
	var buf strings.Builder
	buf.WriteString("Messages:\n")
	llmutils.PrintMessages(&buf, messages, 80)
	return buf.String()
}

func (l *Scratchpad) OnModelCallStart(ctx context.Context, agent *assistants.Agent, payload []llms.Message) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesOut, llmutils.CountMessagesContentSize(payload))
	atomic.AddUint32(&run.stats.LLMCalls, 1)
	count := uint32(len(payload))
	atomic.AddUint32(&run.stats.TotalMessages, count)

	run.print(agent.Name(), "*** LLM Call ***", fmt.Sprintf("%s model, %d messages", agent.Model().GetName(), count))
	if l.mode == ModeVerbose {
		run.print(agent.Name(), l.printMessages(payload))
	}
}

func (l *Scratchpad) OnModelCallEnd(ctx context.Context, agent *assistants.Agent, resp *llms.ContentResponse) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesIn, llmutils.CountResponseContentSize(resp))
	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	atomic.AddUint64(&run.stats.LLMInputTokens, uint64(tokensIn))
	atomic.AddUint64(&run.stats.LLMOutputTokens, uint64(tokensOut))

	run.print(agent.Name(), "*** LLM Call End ***", fmt.Sprintf("%d input tokens, %d output tokens, %d total tokens", tokensIn, tokensOut, tokensTotal))
}

func (l *Scratchpad) OnParseError(ctx context.Context, agent *assistants.Agent, response string, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ParseErrors, 1)
	run.print(agent.Name(), "*** LLM Parse Error ***", err.Error())
	run.print("Response:", response)
}

func (l *Scratchpad) OnPlan(ctx context.Context, agent *assistants.Agent, plan string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.Plans, 1)
	run.print(agent.Name(), "Plan:", plan)
}

func (l *Scratchpad) OnAction(ctx context.Context, agent *assistants.Agent, function, input string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	run.print(agent.Name(), "Action:", function+"("+input+")")
}

func (l *Scratchpad) OnObservation(ctx context.Context, agent *assistants.Agent, observation string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.Observations, 1)
	run.print(agent.Name(), "Observation:", observation)
}

func (l *Scratchpad) OnToolStart(ctx context.Context, tool tools.ITool, assistantName, input string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCalls, 1)
	run.print(assistantName, tool.Name(), "*** Tool Start ***")
	run.print(assistantName, tool.Name(), "Input:", input)
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, tool tools.ITool, assistantName, input string, output string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsSucceeded, 1)
	if l.mode == ModeVerbose {
		run.print(assistantName, tool.Name(), "Output:", output)
	}
	run.print(assistantName, tool.Name(), "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, tool tools.ITool, assistantName, input string, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsFailed, 1)
	run.print(assistantName, tool.Name(), "*** Tool Error ***", err.Error())
}

func (l *Scratchpad) OnToolNotFound(ctx context.Context, agent *assistants.Agent, tool string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolNotFound, 1)
	run.print(agent.Name(), "*** Tool Not Found ***", tool)
}

type run struct {
	chatID  string
	w       bytes.Buffer
	started time.Time
	lock    sync.Mutex
	stats   RunStats
}

func (r *run) setFailed() {
	r.lock.Lock()
	r.stats.Failed = true
	r.lock.Unlock()
}

// print writes the entries to the run's output.
// The entries are written in the following format:
// [timestamp chatID] entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ts := TimeNowFn().Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.chatID)
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
