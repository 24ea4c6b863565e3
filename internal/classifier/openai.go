package classifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"content-moderation-go/internal/config"
	"content-moderation-go/internal/model"
)

const moderationPrompt = `You are a content moderation expert. Analyze the given content and classify it into one of these categories:
- SAFE: Appropriate content that follows community guidelines
- TOXIC: Content that is harmful, offensive, or promotes hate speech
- SPAM: Unwanted promotional content or repetitive messages
- HARASSMENT: Content that targets individuals with abuse or threats
- INAPPROPRIATE: Content that is unsuitable for general audiences

Provide your response in JSON format with:
- classification: one of the above categories
- confidence: confidence score (0.0 to 1.0)
- reasoning: brief explanation for your classification`

// OpenAIGateway classifies content through an OpenAI-compatible
// chat-completions endpoint. Text and image content go to separate models;
// a shared circuit breaker stops hammering a provider that keeps failing.
type OpenAIGateway struct {
	textModel   llms.Model
	visionModel llms.Model
	breaker     *gobreaker.CircuitBreaker
	timeout     time.Duration
	temperature float64
	maxTokens   int
}

// NewOpenAIGateway builds the gateway from configuration
func NewOpenAIGateway(cfg config.ClassifierConfig) (*OpenAIGateway, error) {
	return NewOpenAIGatewayWithClient(cfg, nil)
}

// NewOpenAIGatewayWithClient builds the gateway with an explicit HTTP
// client, which lets tests intercept provider traffic
func NewOpenAIGatewayWithClient(cfg config.ClassifierConfig, client *http.Client) (*OpenAIGateway, error) {
	textModel, err := newLLM(cfg, cfg.TextModel, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create text model client: %w", err)
	}
	visionModel, err := newLLM(cfg, cfg.VisionModel, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision model client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.Warnf("Circuit breaker %s changed state: %s -> %s", name, from, to)
		},
	})

	return &OpenAIGateway{
		textModel:   textModel,
		visionModel: visionModel,
		breaker:     breaker,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func newLLM(cfg config.ClassifierConfig, modelName string, client *http.Client) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(modelName),
	}
	if client != nil {
		opts = append(opts, openai.WithHTTPClient(client))
	}
	return openai.New(opts...)
}

// Classify sends the content to the model matching its kind and maps the
// provider's answer onto the moderation taxonomy
func (g *OpenAIGateway) Classify(ctx context.Context, kind model.ContentKind, content string) (*ClassificationResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	llm := g.textModel
	if kind == model.ContentKindImage {
		llm = g.visionModel
	}
	messages, err := buildMessages(kind, content)
	if err != nil {
		return nil, err
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return llm.GenerateContent(callCtx, messages,
			llms.WithTemperature(g.temperature),
			llms.WithMaxTokens(g.maxTokens),
		)
	})
	if err != nil {
		return nil, g.mapError(callCtx, err)
	}

	resp, ok := out.(*llms.ContentResponse)
	if !ok || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: provider returned no choices", ErrUnavailable)
	}

	result := parseResponse(resp.Choices[0].Content)
	logrus.Infof("Classification completed: %s (confidence: %.2f)", result.Classification, result.Confidence)
	return result, nil
}

func buildMessages(kind model.ContentKind, content string) ([]llms.MessageContent, error) {
	switch kind {
	case model.ContentKindText:
		return []llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeSystem, moderationPrompt),
			llms.TextParts(schema.ChatMessageTypeHuman, "Please analyze this text for content moderation:\n\n"+content),
		}, nil
	case model.ContentKindImage:
		return []llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeSystem, moderationPrompt),
			{
				Role: schema.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{
					llms.TextPart("Please analyze this image for content moderation."),
					llms.ImageURLPart(imageDataURL(content)),
				},
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported content kind %q", ErrRejected, kind)
	}
}

// imageDataURL wraps base64 image content in a data URL, sniffing the MIME
// type from the decoded prefix. 684 base64 characters decode to the 512
// bytes DetectContentType looks at; the slice boundary stays on a 4-char
// group so the prefix decodes on its own.
func imageDataURL(content string) string {
	mime := "image/jpeg"
	prefixLen := 684
	if len(content) < prefixLen {
		prefixLen = len(content) - len(content)%4
	}
	if prefixLen > 0 {
		if decoded, err := base64.StdEncoding.DecodeString(content[:prefixLen]); err == nil && len(decoded) > 0 {
			mime = http.DetectContentType(decoded)
		}
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, content)
}

// mapError folds provider failures into the gateway error taxonomy. The
// provider client exposes HTTP failures only through error strings, so 4xx
// detection is textual, the same way rate limit errors are usually sniffed.
func (g *OpenAIGateway) mapError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: circuit breaker open", ErrUnavailable)
	case errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	msg := err.Error()
	if strings.Contains(msg, "status code: 4") && !strings.Contains(msg, "status code: 429") {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// parseResponse extracts a verdict from the model output. Well-behaved
// models return the requested JSON; anything else goes through a token scan
// before falling back to a flagged verdict, never a silent pass.
func parseResponse(raw string) *ClassificationResult {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed struct {
		Classification string  `json:"classification"`
		Confidence     float64 `json:"confidence"`
		Reasoning      string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil && parsed.Classification != "" {
		reasoning := parsed.Reasoning
		if reasoning == "" {
			reasoning = "No reasoning provided"
		}
		return &ClassificationResult{
			Classification: model.NormalizeClassification(parsed.Classification),
			Confidence:     clampConfidence(parsed.Confidence),
			Reasoning:      reasoning,
			RawResponse:    raw,
		}
	}

	logrus.Warnf("Failed to parse classifier response as JSON: %s", raw)
	if label, ok := scanForLabel(cleaned); ok {
		return &ClassificationResult{
			Classification: label,
			Confidence:     0.5,
			Reasoning:      "Recovered label from unstructured classifier response",
			RawResponse:    raw,
		}
	}
	return &ClassificationResult{
		Classification: model.ClassificationInappropriate,
		Confidence:     0.5,
		Reasoning:      "Failed to parse classifier response",
		RawResponse:    raw,
	}
}

// scanForLabel looks for a known verdict word in free-form model output
func scanForLabel(text string) (model.Classification, bool) {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, token := range tokens {
		switch c := model.Classification(token); c {
		case model.ClassificationSafe, model.ClassificationToxic, model.ClassificationSpam,
			model.ClassificationHarassment, model.ClassificationInappropriate:
			return c, true
		}
	}
	return "", false
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
