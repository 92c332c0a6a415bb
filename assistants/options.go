package assistants

import (
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/prompts"
)

const (
	// DefaultName is the agent name used in logs and metrics
	DefaultName = "agent"
	// DefaultMaxIterations is the default number of model calls per turn
	DefaultMaxIterations = 10
)

// Option is a function that can be used to modify the behavior of the Agent Config.
type Option func(*Config)

type Config struct {
	// Name of the agent, used in logs and metrics
	Name string

	// MaxIterations is the maximum number of model calls in one turn
	MaxIterations int

	// Model is the model to use in an LLM call.
	Model    string
	modelSet bool

	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens    int
	maxTokensSet bool

	// Temperature is the temperature for sampling to use in an LLM call, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// JSONMode requests a JSON object response, when supported by the provider
	JSONMode bool

	// MaxMessages limits the conversation length, 0 means no limit
	MaxMessages int
	// MaxContentSize limits the total size of the conversation content in bytes, 0 means no limit
	MaxContentSize uint64

	// SystemPrompt is the system prompt template
	SystemPrompt *prompts.Template
	// IncludeSchema adds the JSON schema of the response object to the system prompt
	IncludeSchema bool

	// CallbackHandler is the callback handler for the turn events
	CallbackHandler Callback
}

func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Name:          DefaultName,
		MaxIterations: DefaultMaxIterations,
		JSONMode:      true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.SystemPrompt == nil {
		cfg.SystemPrompt = prompts.DefaultSystemPrompt()
	}
	if cfg.CallbackHandler == nil {
		cfg.CallbackHandler = NoopCallback{}
	}
	return cfg
}

// WithName sets the name of the agent
func WithName(name string) Option {
	return func(o *Config) {
		if name != "" {
			o.Name = name
		}
	}
}

// WithMaxIterations sets the maximum number of model calls in one turn
func WithMaxIterations(n int) Option {
	return func(o *Config) {
		o.MaxIterations = n
	}
}

// WithModel is an option for LLM.Call.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
		o.modelSet = true
	}
}

// WithMaxTokens is an option for LLM.Call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
		o.maxTokensSet = true
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithJSONMode is an option for LLM.Call that allows the user to specify whether to use JSON mode.
func WithJSONMode(jsonMode bool) Option {
	return func(o *Config) {
		o.JSONMode = jsonMode
	}
}

// WithMaxMessages limits the conversation length
func WithMaxMessages(n int) Option {
	return func(o *Config) {
		o.MaxMessages = n
	}
}

// WithMaxContentSize limits the total conversation size in bytes
func WithMaxContentSize(n uint64) Option {
	return func(o *Config) {
		o.MaxContentSize = n
	}
}

// WithSystemPrompt sets the system prompt template
func WithSystemPrompt(tmpl *prompts.Template) Option {
	return func(o *Config) {
		o.SystemPrompt = tmpl
	}
}

// WithProtocolSchema adds the response JSON schema to the system prompt
func WithProtocolSchema(include bool) Option {
	return func(o *Config) {
		o.IncludeSchema = include
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}

// GetCallOptions returns the options for the model call
func (c *Config) GetCallOptions() []llms.CallOption {
	var callOptions []llms.CallOption
	if c.modelSet {
		callOptions = append(callOptions, llms.WithModel(c.Model))
	}
	if c.maxTokensSet {
		callOptions = append(callOptions, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.temperatureSet {
		callOptions = append(callOptions, llms.WithTemperature(c.Temperature))
	}
	if c.JSONMode {
		callOptions = append(callOptions, llms.WithJSONMode())
	}
	return callOptions
}
