// Package config provides the application configuration,
// loaded from a YAML, JSON or TOML file and the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llmfactory"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llms/openai"
	"github.com/effective-security/toolagent/tools/weather"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPort is the environment variable with the HTTP port
	EnvPort = "PORT"
	// EnvOpenAIKey is the environment variable with the OpenAI API key
	EnvOpenAIKey = "OPENAI_API_KEY"

	// DefaultPort is the HTTP port
	DefaultPort = 3000
	// DefaultPublicDir is the directory of static files
	DefaultPublicDir = "public"
	// DefaultAgentName is the agent name used in logs and metrics
	DefaultAgentName = "weather"
	// DefaultModel is the OpenAI model used when no provider is configured
	DefaultModel = openai.DefaultChatModel

	redacted = "***"
)

// Config is the application configuration
type Config struct {
	// LLM specifies the model providers
	LLM llmfactory.Config `json:"llm" yaml:"llm" toml:"llm"`
	// Agent specifies the agent loop settings
	Agent Agent `json:"agent" yaml:"agent" toml:"agent"`
	// Weather specifies the weather tool settings
	Weather Weather `json:"weather" yaml:"weather" toml:"weather"`
	// Server specifies the HTTP server settings
	Server Server `json:"server" yaml:"server" toml:"server"`
	// LogLevel is the global log level: TRACE|DEBUG|INFO|NOTICE|WARNING|ERROR|CRITICAL
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty"`
}

// Agent settings
type Agent struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	// Provider is the name of the provider to use, the default provider if empty
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty" toml:"provider,omitempty"`
	// MaxIterations is the number of model calls allowed in one turn
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty" toml:"max_iterations,omitempty"`
	// Temperature for the model, the provider default if not set
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	// MaxMessages limits the console conversation, 0 means no limit
	MaxMessages int `json:"max_messages,omitempty" yaml:"max_messages,omitempty" toml:"max_messages,omitempty"`
	// SystemPrompt is an optional template file, Jinja2 for .j2 files, Go template otherwise
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty" toml:"system_prompt,omitempty"`
	// IncludeSchema adds the response JSON schema to the system prompt
	IncludeSchema bool `json:"include_schema,omitempty" yaml:"include_schema,omitempty" toml:"include_schema,omitempty"`
}

// Weather tool settings
type Weather struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" toml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	Units   string `json:"units,omitempty" yaml:"units,omitempty" toml:"units,omitempty"`
}

// Server settings
type Server struct {
	Host      string `json:"host,omitempty" yaml:"host,omitempty" toml:"host,omitempty"`
	Port      int    `json:"port,omitempty" yaml:"port,omitempty" toml:"port,omitempty"`
	PublicDir string `json:"public_dir,omitempty" yaml:"public_dir,omitempty" toml:"public_dir,omitempty"`
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Load returns the configuration from the file, with the environment applied.
// An empty file name returns the configuration from the environment only.
// Environment variables in the file are expanded.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		if strings.EqualFold(filepath.Ext(file), ".toml") {
			b, err := os.ReadFile(file)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			if _, err = toml.Decode(os.ExpandEnv(string(b)), cfg); err != nil {
				return nil, errors.Wrapf(err, "failed to parse %s", file)
			}
		} else if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, errors.WithMessagef(err, "failed to load %s", file)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv(EnvPort); port != "" && c.Server.Port == 0 {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 {
			return errors.Newf("invalid %s: %q", EnvPort, port)
		}
		c.Server.Port = p
	}
	c.Weather.APIKey = values.StringsCoalesce(c.Weather.APIKey, os.Getenv(weather.EnvAPIKey))

	// OpenAI with the key from the environment is the default provider
	if len(c.LLM.Providers) == 0 {
		c.LLM.Providers = []*llmfactory.ProviderConfig{
			{
				Name:         string(llms.ProviderOpenAI),
				Token:        os.Getenv(EnvOpenAIKey),
				DefaultModel: DefaultModel,
			},
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Agent.Name = values.StringsCoalesce(c.Agent.Name, DefaultAgentName)
	c.Server.Port = values.NumbersCoalesce(c.Server.Port, DefaultPort)
	c.Server.PublicDir = values.StringsCoalesce(c.Server.PublicDir, DefaultPublicDir)
}

// Provider returns the provider config for the agent
func (c *Config) Provider() (*llmfactory.ProviderConfig, error) {
	name := values.StringsCoalesce(c.Agent.Provider, c.LLM.DefaultProvider)
	if name == "" {
		if len(c.LLM.Providers) == 0 {
			return nil, errors.New("no providers configured")
		}
		return c.LLM.Providers[0], nil
	}
	for _, p := range c.LLM.Providers {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, errors.Newf("provider not configured: %s", name)
}

// Redacted returns a copy of the configuration with secrets masked
func (c *Config) Redacted() *Config {
	cp := *c
	cp.LLM.Providers = make([]*llmfactory.ProviderConfig, len(c.LLM.Providers))
	for i, p := range c.LLM.Providers {
		pc := *p
		pc.Token = mask(pc.Token)
		cp.LLM.Providers[i] = &pc
	}
	cp.Weather.APIKey = mask(cp.Weather.APIKey)
	return &cp
}

// YAML returns the redacted configuration in YAML
func (c *Config) YAML() (string, error) {
	b, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(b), nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}
