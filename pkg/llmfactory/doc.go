// Package llmfactory creates LLM models from provider configuration,
// supporting OpenAI, Azure, Perplexity, Anthropic, Google AI and Bedrock.
package llmfactory
