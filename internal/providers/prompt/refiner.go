package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ytthumbs/internal/domain"
)

// Refiner rewrites a raw idea and style into a prompt suited to the image
// generation backend. Implementations return domain.ErrRefinementUnavailable
// (wrapped) on any failure; callers fall back to the raw prompt.
type Refiner interface {
	Refine(ctx context.Context, raw, style string) (string, error)
}

const (
	defaultModel   = "gemini-2.5-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultTimeout = 20 * time.Second
)

var modelAliases = map[string]string{
	"gemini-flash":      "gemini-2.5-flash",
	"gemini-2.5":        "gemini-2.5-flash",
	"gemini-2-5-flash":  "gemini-2.5-flash",
	"flash":             "gemini-2.5-flash",
	"gemini-flash-lite": "gemini-2.5-flash-lite",
}

const systemPrompt = `You are a Thumbnail Prompt Refiner AI.
Your job is to take the user's raw thumbnail idea and transform it into a clean, detailed, professional prompt suitable for a thumbnail image generator.

The user may provide a raw prompt or idea, a thumbnail style, preferred colors, a mood, visual elements and a text style (fonts, placement, size).
Merge ALL of the user's details into a single cohesive description.

Rules:
1. Convert short or messy input into a polished, production-ready thumbnail prompt.
2. Keep the final prompt descriptive but short (5-10 lines).
3. Always clarify the subject and main focus, composition and layout, camera perspective when suitable, colors with contrast and lighting, mood or emotion, thumbnail style, text styling (font, placement, outline, color) and any extra visual effects.
4. NEVER add your own ideas unless the user gives styles or themes.
5. If the user does not specify something, keep it neutral and professional.
6. Output ONLY the final refined prompt. No explanations.`

// Requirements is appended to every refinement request.
const Requirements = "Requirements: eye-catching, high contrast, readable text, optimized for small screens, " +
	"professional YouTube thumbnail quality, vibrant colors, clear focal point."

// Options configures a GeminiRefiner.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	// OnFailure observes every refinement failure with a short reason code.
	OnFailure func(reason string, err error)
	OnWarning func(reason, detail string)
}

// GeminiRefiner calls Gemini through its OpenAI-compatible chat endpoint.
type GeminiRefiner struct {
	client    *openai.Client
	model     string
	onFailure func(reason string, err error)
}

// NewGeminiRefiner builds a refiner. An empty API key is rejected.
func NewGeminiRefiner(opts Options) (*GeminiRefiner, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("prompt: gemini api key is required")
	}
	model, reason := normalizeModel(opts.Model)
	if reason != "" && opts.OnWarning != nil {
		opts.OnWarning("model_"+reason, fmt.Sprintf("requested=%s resolved=%s", strings.TrimSpace(opts.Model), model))
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSpace(opts.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	// A nil *http.Client must not reach the HTTPDoer interface.
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	} else {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}

	return &GeminiRefiner{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		onFailure: opts.OnFailure,
	}, nil
}

// Model reports the resolved chat model.
func (g *GeminiRefiner) Model() string { return g.model }

func (g *GeminiRefiner) Refine(ctx context.Context, raw, style string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserMessage(raw, style)},
		},
	})
	if err != nil {
		reason := "http_request"
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			reason = fmt.Sprintf("http_%d", apiErr.HTTPStatusCode)
		}
		return "", g.fail(reason, err)
	}
	if len(resp.Choices) == 0 {
		return "", g.fail("empty_choices", errors.New("no choices"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", g.fail("empty_response", errors.New("empty completion"))
	}
	return text, nil
}

func (g *GeminiRefiner) fail(reason string, err error) error {
	if g.onFailure != nil {
		g.onFailure(reason, err)
	}
	return domain.NewPipelineError(domain.ErrRefinementUnavailable, domain.StageRefine, reason, err)
}

// BuildUserMessage renders the user turn sent to the model.
func BuildUserMessage(raw, style string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Raw thumbnail idea: %s\n", strings.TrimSpace(raw))
	if style = strings.TrimSpace(style); style != "" {
		fmt.Fprintf(&sb, "Thumbnail style, colors, mood & emotion, visual elements and text style:\n%s\n", style)
	}
	sb.WriteString(Requirements)
	return sb.String()
}

func normalizeModel(input string) (string, string) {
	key := strings.ToLower(strings.Join(strings.Fields(input), "-"))
	if key == "" {
		return defaultModel, ""
	}
	if strings.HasPrefix(key, "gemini-") && strings.Count(key, "-") >= 2 {
		if alias, ok := modelAliases[key]; ok {
			return alias, "alias"
		}
		return key, ""
	}
	if alias, ok := modelAliases[key]; ok {
		return alias, "alias"
	}
	return defaultModel, "defaulted"
}

var _ Refiner = (*GeminiRefiner)(nil)
