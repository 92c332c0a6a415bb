package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)


// LLM is the Chat Completions client
type LLM struct {
	client   openai.Client
	model    string
	provider llms.ProviderType
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	o.applyDefaults()

	if o.provider == llms.ProviderAzure && o.baseURL == DefaultBaseURL {
		return nil, errors.New("base URL is required for Azure")
	}

	baseURL := o.baseURL
	if o.provider == llms.ProviderAzure {
		// Azure routes by deployment name
		baseURL = strings.TrimSuffix(baseURL, "/") + "/openai/deployments/" + o.model
	}
	reqOpts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(o.maxRetries),
	}
	if o.provider == llms.ProviderAzure {
		reqOpts = append(reqOpts,
			option.WithHeader("api-key", o.token),
			option.WithQuery("api-version", o.apiVersion),
		)
	} else {
		reqOpts = append(reqOpts, option.WithAPIKey(o.token))
	}
	if o.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(o.organization))
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}
	if o.timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(o.timeout))
	}

	return &LLM{
		client:   openai.NewClient(reqOpts...),
		model:    o.model,
		provider: o.provider,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return o.provider
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(options...)

	msgs, err := o.convertMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.model),
		Messages: msgs,
	}
	if opts.Model != "" {
		params.Model = shared.ChatModel(opts.Model)
	}
	if opts.Temperature >= 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.JSONMode && o.provider.Supports(llms.CapabilityJSONResponse) {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if user, ok := opts.Metadata["user"].(string); ok && user != "" {
		params.User = openai.String(user)
	}

	result, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create chat completion")
	}
	if len(result.Choices) == 0 {
		return nil, errors.WithStack(llms.ErrEmptyResponse)
	}

	resp := &llms.ContentResponse{
		Choices: make([]*llms.ContentChoice, len(result.Choices)),
		Usage: llms.Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
			TotalTokens:  result.Usage.TotalTokens,
		},
	}
	for i, c := range result.Choices {
		resp.Choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: c.FinishReason,
			GenerationInfo: map[string]any{
				"ID":    result.ID,
				"Model": result.Model,
			},
		}
	}
	return resp, nil
}

func (o *LLM) convertMessages(messages []llms.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	developer := o.provider.Supports(llms.CapabilityDeveloperRole)

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llms.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case llms.RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Content))
		case llms.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		case llms.RoleDeveloper:
			if developer {
				msgs = append(msgs, openai.DeveloperMessage(m.Content))
			} else {
				msgs = append(msgs, openai.UserMessage(m.Content))
			}
		default:
			return nil, errors.WithMessage(llms.ErrUnexpectedRole, fmt.Sprintf("role %q not supported", m.Role))
		}
	}
	return msgs, nil
}
