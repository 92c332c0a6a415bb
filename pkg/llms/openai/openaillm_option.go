package openai

import (
	"os"
	"time"

	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/openai/openai-go/v3/option"
)

const (
	tokenEnvVarName        = "OPENAI_API_KEY"      //nolint:gosec
	modelEnvVarName        = "OPENAI_MODEL"        //nolint:gosec
	baseURLEnvVarName      = "OPENAI_BASE_URL"     //nolint:gosec
	organizationEnvVarName = "OPENAI_ORGANIZATION" //nolint:gosec
)

const (
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultPerplexityBaseURL = "https://api.perplexity.ai"
	DefaultChatModel         = "gpt-4o-mini"
	DefaultAPIVersion        = "2024-10-21"
)

type options struct {
	token        string
	model        string
	baseURL      string
	organization string
	provider     llms.ProviderType
	httpClient   option.HTTPClient
	apiVersion   string
	maxRetries   int
	timeout      time.Duration
}

// Option is a functional option for the OpenAI client.
type Option func(*options)

// WithToken passes the OpenAI API token to the client. If not set, the token
// is read from the OPENAI_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *options) {
		opts.token = token
	}
}

// WithModel passes the OpenAI model to the client. If not set, the model
// is read from the OPENAI_MODEL environment variable.
// Required when the provider is Azure, where it is the deployment name.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithBaseURL passes the OpenAI base url to the client. If not set, the base url
// is read from the OPENAI_BASE_URL environment variable. If still not set,
// then the default value is https://api.openai.com/v1 is used.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithOrganization passes the OpenAI organization to the client. If not set, the
// organization is read from the OPENAI_ORGANIZATION.
func WithOrganization(organization string) Option {
	return func(opts *options) {
		opts.organization = organization
	}
}

// WithProvider passes the api type to the client. If not set, the default value
// is ProviderOpenAI. Azure and Perplexity expose the same Chat Completions API.
func WithProvider(provider llms.ProviderType) Option {
	return func(opts *options) {
		opts.provider = provider
	}
}

// WithAPIVersion passes the api version to the client, used with Azure.
// If not set, the default value is DefaultAPIVersion.
func WithAPIVersion(apiVersion string) Option {
	return func(opts *options) {
		opts.apiVersion = apiVersion
	}
}

// WithHTTPClient allows setting a custom HTTP client. If not set, the default value
// is http.DefaultClient.
func WithHTTPClient(client option.HTTPClient) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

// WithMaxRetries sets the SDK retry count, the default is no retries.
func WithMaxRetries(retries int) Option {
	return func(opts *options) {
		opts.maxRetries = retries
	}
}

// WithRequestTimeout sets the timeout for each request
func WithRequestTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.timeout = timeout
	}
}

func (o *options) applyDefaults() {
	o.provider = llms.ProviderType(values.StringsCoalesce(string(o.provider), string(llms.ProviderOpenAI)))
	o.token = values.StringsCoalesce(o.token, os.Getenv(tokenEnvVarName))
	o.model = values.StringsCoalesce(o.model, os.Getenv(modelEnvVarName), DefaultChatModel)
	o.organization = values.StringsCoalesce(o.organization, os.Getenv(organizationEnvVarName))
	o.apiVersion = values.StringsCoalesce(o.apiVersion, DefaultAPIVersion)

	defaultBaseURL := DefaultBaseURL
	if o.provider == llms.ProviderPerplexity {
		defaultBaseURL = DefaultPerplexityBaseURL
	}
	o.baseURL = values.StringsCoalesce(o.baseURL, os.Getenv(baseURLEnvVarName), defaultBaseURL)
}
