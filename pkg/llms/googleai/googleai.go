package googleai

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/x/values"
	"google.golang.org/genai"
)

var (
	ErrNoContentInResponse = errors.New("no content in generation response")
)

const (
	CITATIONS            = "citations"
	SAFETY               = "safety"
	ResponseMIMETypeJson = "application/json"
)

// GetName implements the Model interface.
func (g *GoogleAI) GetName() string {
	return g.opts.DefaultModel
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the [llms.Model] interface.
func (g *GoogleAI) GenerateContent(
	ctx context.Context,
	messages []llms.Message,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(options...)
	model := values.StringsCoalesce(opts.Model, g.opts.DefaultModel)

	callCfg, history, err := NewGenerateRequest(messages, opts, &g.opts)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, history, callCfg)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to generate content")
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.WithStack(ErrNoContentInResponse)
	}
	return convertCandidates(resp.Candidates, resp.UsageMetadata), nil
}

// NewGenerateRequest converts the history to Gemini contents,
// the system prompt is sent as SystemInstruction.
func NewGenerateRequest(messages []llms.Message, opts *llms.CallOptions, defaults *Options) (*genai.GenerateContentConfig, []*genai.Content, error) {
	system, turns, err := llms.ToTurns(messages)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "googleai: failed to process messages")
	}

	cfg := &genai.GenerateContentConfig{
		CandidateCount:  1,
		MaxOutputTokens: int32(values.NumbersCoalesce(opts.MaxTokens, defaults.DefaultMaxTokens)),
	}
	temperature := opts.Temperature
	if temperature < 0 {
		temperature = defaults.DefaultTemperature
	}
	if temperature >= 0 {
		cfg.Temperature = genai.Ptr(float32(temperature))
	}
	if opts.JSONMode {
		cfg.ResponseMIMEType = ResponseMIMETypeJson
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if defaults.HarmThreshold != "" {
		for _, category := range []genai.HarmCategory{
			genai.HarmCategoryDangerousContent,
			genai.HarmCategoryHarassment,
			genai.HarmCategoryHateSpeech,
			genai.HarmCategorySexuallyExplicit,
		} {
			cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
				Category:  category,
				Threshold: defaults.HarmThreshold,
			})
		}
	}

	history := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == llms.RoleAssistant {
			role = genai.RoleModel
		}
		parts := make([]*genai.Part, len(turn.Parts))
		for i, text := range turn.Parts {
			parts[i] = genai.NewPartFromText(text)
		}
		history = append(history, genai.NewContentFromParts(parts, role))
	}
	return cfg, history, nil
}

// convertCandidates converts a sequence of genai.Candidate to a response.
func convertCandidates(candidates []*genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) *llms.ContentResponse {
	var contentResponse llms.ContentResponse

	for _, candidate := range candidates {
		var buf strings.Builder
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				// thoughts are not part of the answer
				if part.Text != "" && !part.Thought {
					buf.WriteString(part.Text)
				}
			}
		}

		metadata := map[string]any{
			CITATIONS: candidate.CitationMetadata,
			SAFETY:    candidate.SafetyRatings,
		}

		contentResponse.Choices = append(contentResponse.Choices,
			&llms.ContentChoice{
				Content:        buf.String(),
				StopReason:     string(candidate.FinishReason),
				GenerationInfo: metadata,
			})
	}

	if usage != nil {
		contentResponse.Usage = llms.Usage{
			InputTokens:  int64(usage.PromptTokenCount),
			OutputTokens: int64(usage.CandidatesTokenCount + usage.ToolUsePromptTokenCount + usage.ThoughtsTokenCount),
			TotalTokens:  int64(usage.TotalTokenCount),
		}
	}
	return &contentResponse
}
