// Package console implements the interactive chat session:
// one conversation per process, one turn per input line.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/protocol"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "console")

const (
	// Prompt is printed before reading the user input
	Prompt = "You: "
	// AnswerPrefix is printed before the output of the turn
	AnswerPrefix = "Assistant: "

	maxLineSize = 1 << 20
)

// Console runs the chat session on the agent
type Console struct {
	agent *assistants.Agent
}

// New returns a console for the agent
func New(agent *assistants.Agent) *Console {
	return &Console{agent: agent}
}

// Run reads the user input line by line and prints the answers,
// until EOF, exit or quit, or the context is canceled.
// A failed turn is reported and the session continues.
func (c *Console) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	conv, err := c.agent.NewConversation(ctx)
	if err != nil {
		return err
	}
	ctx = chatmodel.WithChatContext(ctx, chatmodel.NewChatContext(conv.ID(), chatmodel.SourceConsole))

	logger.ContextKV(ctx, xlog.INFO,
		"status", "session_started",
		"agent", c.agent.Name(),
		"chat_id", conv.ID(),
	)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for {
		if err = ctx.Err(); err != nil {
			return errors.WithStack(err)
		}

		_, _ = fmt.Fprint(out, Prompt)
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			if err = scanner.Err(); err != nil {
				return errors.Wrap(err, "failed to read input")
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if IsExit(line) {
			return nil
		}

		res, err := c.agent.Run(ctx, conv, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return errors.WithStack(err)
			}
			_, _ = fmt.Fprintln(out, Describe(err))
			continue
		}
		_, _ = fmt.Fprintln(out, AnswerPrefix+res.Output)
	}
}

// IsExit returns true for the commands that end the session
func IsExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit":
		return true
	}
	return false
}

// Describe returns the text printed for a failed turn,
// with the model reply that could not be decoded.
func Describe(err error) string {
	var ute *assistants.UnknownToolError
	if errors.As(err, &ute) {
		return ute.Error()
	}
	msg := "Error: " + err.Error()
	if raw := protocol.RawText(err); raw != "" {
		msg += "\nResponse: " + raw
	}
	return msg
}
