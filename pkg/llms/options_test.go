package llms_test

import (
	"testing"

	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	opts := llms.NewCallOptions()
	assert.Equal(t, -1.0, opts.Temperature)
	assert.False(t, opts.JSONMode)

	opts = llms.NewCallOptions(
		llms.WithModel("gpt-4o-mini"),
		llms.WithMaxTokens(512),
		llms.WithTemperature(0.2),
		llms.WithJSONMode(),
		llms.WithMetadata(map[string]any{"user": "u1"}),
	)
	assert.Equal(t, "gpt-4o-mini", opts.Model)
	assert.Equal(t, 512, opts.MaxTokens)
	assert.Equal(t, 0.2, opts.Temperature)
	assert.True(t, opts.JSONMode)
	assert.Equal(t, "u1", opts.Metadata["user"])

	opts = llms.NewCallOptions(llms.WithOptions(llms.CallOptions{Model: "m"}))
	assert.Equal(t, llms.CallOptions{Model: "m"}, *opts)
}

func TestCapabilities(t *testing.T) {
	assert.True(t, llms.ProviderOpenAI.Supports(llms.CapabilityJSONResponse))
	assert.True(t, llms.ProviderOpenAI.Supports(llms.CapabilityDeveloperRole))
	assert.False(t, llms.ProviderAnthropic.Supports(llms.CapabilityJSONResponse))
	assert.False(t, llms.ProviderType("UNKNOWN").Supports(llms.CapabilityText))
}
