package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"sahayak/grievance"
)

// ErrUnavailable signals the classification capability timed out, errored,
// or is not configured. Callers proceed with null derived fields.
var ErrUnavailable = errors.New("classify: capability unavailable")

// Config holds OpenAI provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds each classification call.
	Timeout time.Duration
	// RatePerMinute caps calls to the API; 0 disables the limiter.
	RatePerMinute int
}

// OpenAIClassifier implements Classifier over the Chat Completions API.
type OpenAIClassifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

func NewOpenAIClassifier(cfg Config) (*OpenAIClassifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classify: api key required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}

	return &OpenAIClassifier{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
		limiter: limiter,
	}, nil
}

const systemPrompt = `You triage municipal civic complaints. Respond with a single JSON object:
{"sentiment": "negative"|"neutral"|"positive", "summary": "<one sentence>", "category": "garbage"|"water"|"streetlight"|"road"|"pest-control"|"sewage"|"trees"|"other"}
Do not include any other text.`

// Classify derives sentiment, summary, and a best-effort category. Any
// transport or parse failure maps to ErrUnavailable so intake degrades
// instead of failing.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, fmt.Errorf("classify: empty text")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   200,
		Temperature: 0.2,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	result, err := parseResult(resp.Choices[0].Message.Content)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}

type rawResult struct {
	Sentiment string `json:"sentiment"`
	Summary   string `json:"summary"`
	Category  string `json:"category"`
}

// parseResult tolerates code fences and stray prose around the JSON object.
func parseResult(content string) (Result, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Result{}, fmt.Errorf("parse response: %w", err)
	}

	res := Result{Summary: strings.TrimSpace(raw.Summary)}

	switch grievance.Sentiment(strings.ToLower(raw.Sentiment)) {
	case grievance.SentimentNegative:
		res.Sentiment = grievance.SentimentNegative
	case grievance.SentimentPositive:
		res.Sentiment = grievance.SentimentPositive
	case grievance.SentimentNeutral:
		res.Sentiment = grievance.SentimentNeutral
	default:
		return Result{}, fmt.Errorf("unknown sentiment %q", raw.Sentiment)
	}

	if cat := grievance.Category(strings.ToLower(raw.Category)); grievance.ValidCategory(cat) {
		res.Category = cat
	}
	return res, nil
}
