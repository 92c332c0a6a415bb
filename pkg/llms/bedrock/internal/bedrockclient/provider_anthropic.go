package bedrockclient

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
)

// Ref: https://docs.aws.amazon.com/bedrock/latest/userguide/model-parameters-anthropic-claude-messages.html

type anthropicTextGenerationInputContent struct {
	// One of: "text", "image"
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicTextGenerationInputMessage struct {
	// One of: ["user", "assistant"]
	// For system prompt, use the system field in the input
	Role    string                                `json:"role"`
	Content []anthropicTextGenerationInputContent `json:"content"`
}

type anthropicTextGenerationInput struct {
	AnthropicVersion string `json:"anthropic_version"`
	MaxTokens        int    `json:"max_tokens"`
	System           string `json:"system,omitempty"`

	Messages []*anthropicTextGenerationInputMessage `json:"messages"`
	// Optional, default = 1
	Temperature *float64 `json:"temperature,omitempty"`
}

type anthropicTextGenerationOutputContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicTextGenerationOutput struct {
	Type       string                                 `json:"type"`
	Role       string                                 `json:"role"`
	Content    []anthropicTextGenerationOutputContent `json:"content"`
	StopReason string                                 `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// Finish reason for the completion of the generation.
const (
	AnthropicCompletionReasonEndTurn      = "end_turn"
	AnthropicCompletionReasonMaxTokens    = "max_tokens"
	AnthropicCompletionReasonStopSequence = "stop_sequence"
)

const (
	AnthropicLatestVersion   = "bedrock-2023-05-31"
	AnthropicDefaultMaxToken = 2048
)

const (
	AnthropicRoleUser      = "user"
	AnthropicRoleAssistant = "assistant"

	AnthropicMessageTypeText = "text"
)

func createAnthropicCompletion(ctx context.Context,
	client InvokeModelAPI,
	modelID string,
	messages []llms.Message,
	options *llms.CallOptions,
) (*llms.ContentResponse, error) {
	input, err := newAnthropicInput(messages, options)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Accept:      aws.String("*/*"),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrap(err, "bedrock: failed to invoke model")
	}

	var output anthropicTextGenerationOutput
	if err = json.Unmarshal(resp.Body, &output); err != nil {
		return nil, errors.Wrap(err, "bedrock: failed to decode response")
	}

	if output.StopReason == AnthropicCompletionReasonMaxTokens {
		return nil, errors.New("bedrock: completed due to max_tokens, try increasing max tokens")
	}

	var text strings.Builder
	for _, c := range output.Content {
		if c.Type == AnthropicMessageTypeText {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return nil, errors.WithStack(llms.ErrEmptyResponse)
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:    text.String(),
				StopReason: output.StopReason,
			},
		},
		Usage: llms.Usage{
			InputTokens:  output.Usage.InputTokens,
			OutputTokens: output.Usage.OutputTokens,
			TotalTokens:  output.Usage.InputTokens + output.Usage.OutputTokens,
		},
	}, nil
}

func newAnthropicInput(messages []llms.Message, options *llms.CallOptions) (*anthropicTextGenerationInput, error) {
	system, turns, err := llms.ToTurns(messages)
	if err != nil {
		return nil, errors.WithMessage(err, "bedrock: failed to process messages")
	}

	input := &anthropicTextGenerationInput{
		AnthropicVersion: AnthropicLatestVersion,
		MaxTokens:        getMaxTokens(options.MaxTokens, AnthropicDefaultMaxToken),
		System:           system,
		Messages:         make([]*anthropicTextGenerationInputMessage, 0, len(turns)),
	}
	if options.Temperature >= 0 {
		input.Temperature = aws.Float64(options.Temperature)
	}

	for _, turn := range turns {
		role := AnthropicRoleUser
		if turn.Role == llms.RoleAssistant {
			role = AnthropicRoleAssistant
		}
		msg := &anthropicTextGenerationInputMessage{Role: role}
		for _, part := range turn.Parts {
			msg.Content = append(msg.Content, anthropicTextGenerationInputContent{
				Type: AnthropicMessageTypeText,
				Text: part,
			})
		}
		input.Messages = append(input.Messages, msg)
	}
	return input, nil
}
