package bedrock

import (
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	ModelAnthropicClaude35Haiku = "us.anthropic.claude-3-5-haiku-20241022-v1:0"
)

type options struct {
	modelID      string
	region       string
	baseEndpoint string
	accessKey    string
	secretKey    string
	client       *bedrockruntime.Client
}

// Option is an option for the Bedrock LLM.
type Option func(*options)

// WithModel allows setting a custom modelId.
func WithModel(modelID string) Option {
	return func(o *options) {
		o.modelID = modelID
	}
}

// WithClient allows setting a custom bedrockruntime.Client.
func WithClient(client *bedrockruntime.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithRegion sets the AWS region, by default it is loaded from the environment.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithBaseEndpoint overrides the Bedrock Runtime endpoint.
func WithBaseEndpoint(endpoint string) Option {
	return func(o *options) {
		o.baseEndpoint = endpoint
	}
}

// WithStaticCredentials uses the provided access key instead of the default credentials chain.
func WithStaticCredentials(accessKey, secretKey string) Option {
	return func(o *options) {
		o.accessKey = accessKey
		o.secretKey = secretKey
	}
}
