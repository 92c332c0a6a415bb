package llmfactory

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
)

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" toml:"providers"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider" toml:"default_provider"`
	// AgentModels specifies the mapping of agents to models.
	// key is the agent name, value is the list of preferred model names.
	// Use `default: [<model_name>]` as the default model for agents.
	AgentModels map[string][]string `json:"agent_models" yaml:"agent_models" toml:"agent_models"`
}

// ProviderConfig for a single LLM provider
type ProviderConfig struct {
	// Name of the provider:
	// OPENAI|AZURE|ANTHROPIC|GOOGLEAI|BEDROCK|PERPLEXITY
	Name            string   `json:"name" yaml:"name" toml:"name"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty" toml:"token,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty" toml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty" toml:"available_models,omitempty"`
	BaseURL         string   `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	// APIVersion is used by Azure
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty" toml:"api_version,omitempty"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty" toml:"org_id,omitempty"`
	// Region is used by Bedrock, and as Vertex AI location by Google AI
	Region string `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`
	// Project is the GCP project for Vertex AI
	Project string `json:"project,omitempty" yaml:"project,omitempty" toml:"project,omitempty"`
}

// FindModel returns the first of models available at the provider,
// or the provider's default model.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// LoadConfig from file.
// YAML and JSON files are loaded by configloader, TOML by its extension.
// Environment variables are expanded in both cases.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	if strings.EqualFold(filepath.Ext(file), ".toml") {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if _, err = toml.Decode(os.ExpandEnv(string(b)), cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", file)
		}
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
