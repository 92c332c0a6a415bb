package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/callbacks"
	"github.com/effective-security/toolagent/config"
	"github.com/effective-security/toolagent/console"
	"github.com/effective-security/toolagent/pkg/llmfactory"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/prompts"
	"github.com/effective-security/toolagent/server"
	"github.com/effective-security/toolagent/tools"
	"github.com/effective-security/toolagent/tools/weather"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "cmd")

const usage = `usage: toolagent [flags] [chat|serve|tools]

Commands:
  chat   interactive session in the terminal (default)
  serve  HTTP server with GET /ask?question=...
  tools  print the tools available to the agent

Flags:
`

type flags struct {
	configFile  string
	printConfig bool
	logLevel    string
	verbose     bool
	provider    string
	model       string
	command     string
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := new(flags)
	fs := flag.NewFlagSet("toolagent", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&f.configFile, "config", "", "configuration file, YAML, JSON or TOML")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective configuration and exit")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: TRACE|DEBUG|INFO|NOTICE|WARNING|ERROR|CRITICAL")
	fs.BoolVar(&f.verbose, "verbose", false, "print model responses and tool calls")
	fs.StringVar(&f.provider, "provider", "", "LLM provider to use, overrides the configuration")
	fs.StringVar(&f.model, "model", "", "model to use, overrides the configuration")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 0:
		f.command = "chat"
	case 1:
		f.command = fs.Arg(0)
	default:
		fs.Usage()
		return nil, errors.Newf("unexpected arguments: %s", strings.Join(fs.Args()[1:], " "))
	}
	switch f.command {
	case "chat", "serve", "tools":
	default:
		fs.Usage()
		return nil, errors.Newf("unknown command: %s", f.command)
	}
	return f, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 2
	}

	cfg, err := config.Load(f.configFile)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}
	if f.provider != "" {
		cfg.Agent.Provider = f.provider
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	xlog.SetFormatter(xlog.NewStringFormatter(stderr))
	level, err := parseLogLevel(cfg.LogLevel, f.command)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 2
	}
	xlog.SetGlobalLogLevel(level)

	if f.printConfig {
		y, err := cfg.YAML()
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return 1
		}
		_, _ = fmt.Fprint(stdout, y)
		return 0
	}

	mode := callbacks.ModeDefault
	if f.verbose {
		mode = callbacks.ModeVerbose
	}

	switch f.command {
	case "tools":
		registry, err := newRegistry(cfg)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return 1
		}
		_, _ = fmt.Fprintln(stdout, tools.GetDescriptions(registry.Tools()...))
	case "serve":
		sp := callbacks.NewScratchpad(mode)
		agent, err := newAgent(cfg, f.model, callbacks.NewFanout(
			callbacks.NewPackageLogger(logger),
			sp,
		))
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return 1
		}
		srv := server.New(agent,
			server.WithAddr(cfg.Server.Addr()),
			server.WithPublicDir(cfg.Server.PublicDir),
			server.WithScratchpad(sp),
		)
		_, _ = fmt.Fprintf(stdout, "AI backend running on http://localhost:%d\n", cfg.Server.Port)
		if err = srv.ListenAndServe(ctx); err != nil {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return 1
		}
	default:
		agent, err := newAgent(cfg, f.model, callbacks.NewFanout(
			callbacks.NewPrinter(stdout, mode),
			callbacks.NewPackageLogger(logger),
		), assistants.WithMaxMessages(cfg.Agent.MaxMessages))
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return 1
		}
		if err = console.New(agent).Run(ctx, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return 1
		}
	}
	return 0
}

// newAgent builds the weather agent from the configuration
func newAgent(cfg *config.Config, modelName string, cb assistants.Callback, extra ...assistants.Option) (*assistants.Agent, error) {
	model, err := newModel(cfg, modelName)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create LLM")
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}

	opts := []assistants.Option{
		assistants.WithName(cfg.Agent.Name),
		assistants.WithMaxIterations(cfg.Agent.MaxIterations),
		assistants.WithJSONMode(model.GetProviderType().Supports(llms.CapabilityJSONResponse)),
		assistants.WithProtocolSchema(cfg.Agent.IncludeSchema),
		assistants.WithCallback(cb),
	}
	if cfg.Agent.Temperature != nil {
		opts = append(opts, assistants.WithTemperature(*cfg.Agent.Temperature))
	}
	if cfg.Agent.MaxTokens > 0 {
		opts = append(opts, assistants.WithMaxTokens(cfg.Agent.MaxTokens))
	}
	if cfg.Agent.SystemPrompt != "" {
		tmpl, err := prompts.Load(cfg.Agent.SystemPrompt)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to load system prompt")
		}
		opts = append(opts, assistants.WithSystemPrompt(tmpl))
	}
	opts = append(opts, extra...)

	agent := assistants.NewAgent(model, registry, opts...)
	// fail early on a broken template
	if _, err = agent.SystemPrompt(); err != nil {
		return nil, err
	}

	logger.KV(xlog.INFO,
		"status", "agent_created",
		"agent", agent.Name(),
		"provider", model.GetProviderType(),
		"model", model.GetName(),
		"tools", registry.Names(),
	)
	return agent, nil
}

func newRegistry(cfg *config.Config) (*tools.Registry, error) {
	wt, err := weather.New(
		weather.WithAPIKey(cfg.Weather.APIKey),
		weather.WithBaseURL(cfg.Weather.BaseURL),
		weather.WithUnits(cfg.Weather.Units),
	)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create weather tool")
	}
	return tools.NewRegistry(wt)
}

// newModel returns the model for the agent.
// An explicit model name is used as is with the resolved provider,
// even if the provider does not list it.
func newModel(cfg *config.Config, modelName string) (llms.Model, error) {
	if cfg.Agent.Provider == "" && modelName == "" {
		return llmfactory.New(&cfg.LLM).AgentModel(cfg.Agent.Name)
	}

	p, err := cfg.Provider()
	if err != nil {
		return nil, err
	}
	if modelName != "" {
		pc := *p
		pc.DefaultModel = modelName
		p = &pc
	}
	return llmfactory.NewLLM(p, p.DefaultModel)
}

// parseLogLevel returns the level by name,
// the console is quiet by default to keep the transcript readable.
func parseLogLevel(name, command string) (xlog.LogLevel, error) {
	switch strings.ToUpper(name) {
	case "":
		if command == "serve" {
			return xlog.INFO, nil
		}
		return xlog.ERROR, nil
	case "TRACE":
		return xlog.TRACE, nil
	case "DEBUG":
		return xlog.DEBUG, nil
	case "INFO":
		return xlog.INFO, nil
	case "NOTICE":
		return xlog.NOTICE, nil
	case "WARNING", "WARN":
		return xlog.WARNING, nil
	case "ERROR":
		return xlog.ERROR, nil
	case "CRITICAL":
		return xlog.CRITICAL, nil
	}
	return xlog.ERROR, errors.Newf("invalid log level: %s", name)
}
