package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/sirupsen/logrus"
)

// ErrAnalysisFailed wraps any failure to obtain a usable model answer.
var ErrAnalysisFailed = errors.New("mood analysis failed")

const (
	defaultModel = "gpt-4o-mini"

	analyzeTemperature = 0.7
	replyTemperature   = 0.8
)

const analyzePrompt = `You are a music recommendation assistant for VibeCheck. Your job is to:
1. Understand the user's mood and feelings from their messages
2. Generate appropriate Spotify search queries based on their mood
3. Suggest playlist sizes (10, 20, 50, or 100 songs)
4. Provide a friendly, conversational response

When analyzing mood, consider:
- Emotional state (happy, sad, energetic, calm, etc.)
- Activity context (workout, study, party, relaxation, etc.)
- Genre preferences if mentioned
- Energy level desired

Generate 3-5 Spotify search queries that would find relevant songs for this mood.
Format your response as JSON with: mood, energyLevel, suggestedSize, searchQueries (array), and response (friendly message).`

const narratePrompt = `You are a friendly music assistant. The user has received a playlist with %d songs.
Generate a warm, conversational response about the playlist. Mention a few standout tracks if relevant.
Ask if they'd like any changes or if they're ready to add it to Spotify.`

const replyPrompt = `You are a friendly music recommendation assistant for VibeCheck. Help users express their mood and create personalized playlists.
Be conversational, empathetic, and guide them to describe how they're feeling.`

// Analyzer talks to the OpenAI chat completions API.
type Analyzer struct {
	client  openai.Client
	model   string
	logger  *logrus.Logger
	reqOpts []option.RequestOption
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(a *Analyzer) {
		if model != "" {
			a.model = model
		}
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(a *Analyzer) {
		if u != "" {
			a.reqOpts = append(a.reqOpts, option.WithBaseURL(u))
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.reqOpts = append(a.reqOpts, option.WithRequestTimeout(d))
		}
	}
}

// WithMaxRetries sets how often failed requests are retried.
func WithMaxRetries(n int) Option {
	return func(a *Analyzer) {
		a.reqOpts = append(a.reqOpts, option.WithMaxRetries(n))
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// New creates an Analyzer.
func New(apiKey string, opts ...Option) *Analyzer {
	a := &Analyzer{
		model:   defaultModel,
		logger:  logrus.StandardLogger(),
		reqOpts: []option.RequestOption{option.WithAPIKey(apiKey)},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.client = openai.NewClient(a.reqOpts...)
	return a
}

// Analyze reads the mood of text given the prior conversation.
func (a *Analyzer) Analyze(ctx context.Context, text string, history []Turn) (*MoodAnalysis, error) {
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(analyzePrompt)}
	messages = append(messages, historyMessages(history)...)
	messages = append(messages, openai.UserMessage(text))

	content, err := a.complete(ctx, "analyze", openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(analyzeTemperature),
	})
	if err != nil {
		return nil, err
	}

	var analysis MoodAnalysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return nil, fmt.Errorf("%w: decoding analysis: %w", ErrAnalysisFailed, err)
	}
	if analysis.ignoredSize != "" {
		a.logger.WithFields(logrus.Fields{
			"component":      "llm",
			"suggested_size": analysis.ignoredSize,
		}).Warn("Ignoring unusable suggested playlist size")
	}
	return &analysis, nil
}

// Narrate phrases a reply presenting a freshly generated playlist of trackCount
// songs, highlighting trackNames.
func (a *Analyzer) Narrate(ctx context.Context, trackNames []string, trackCount int, text string, history []Turn) (string, error) {
	if text == "" {
		text = "Here's my playlist"
	}

	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(fmt.Sprintf(narratePrompt, trackCount))}
	messages = append(messages, historyMessages(history)...)
	messages = append(messages,
		openai.UserMessage(text),
		openai.AssistantMessage(fmt.Sprintf("I've created a playlist with %d songs for you! Here are some highlights: %s...",
			trackCount, strings.Join(trackNames, ", "))),
	)

	return a.complete(ctx, "narrate", openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(a.model),
		Messages:    messages,
		Temperature: openai.Float(replyTemperature),
	})
}

// Reply produces a plain conversational answer.
func (a *Analyzer) Reply(ctx context.Context, text string, history []Turn) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(replyPrompt)}
	messages = append(messages, historyMessages(history)...)
	messages = append(messages, openai.UserMessage(text))

	return a.complete(ctx, "reply", openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(a.model),
		Messages:    messages,
		Temperature: openai.Float(replyTemperature),
	})
}

// complete runs one chat completion inside a Sentry span and returns the
// first choice's content.
func (a *Analyzer) complete(ctx context.Context, op string, params openai.ChatCompletionNewParams) (string, error) {
	span := sentry.StartSpan(ctx, "llm."+op)
	span.Description = fmt.Sprintf("openai %s (%s)", op, a.model)
	span.SetTag("openai.model", a.model)
	defer span.Finish()

	start := time.Now()
	resp, err := a.client.Chat.Completions.New(span.Context(), params)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return "", fmt.Errorf("%w: %s: %w", ErrAnalysisFailed, op, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		span.Status = sentry.SpanStatusInternalError
		return "", fmt.Errorf("%w: %s: empty completion", ErrAnalysisFailed, op)
	}

	span.Status = sentry.SpanStatusOK
	span.SetData("openai.total_tokens", resp.Usage.TotalTokens)
	span.SetData("openai.input_tokens", resp.Usage.PromptTokens)
	span.SetData("openai.output_tokens", resp.Usage.CompletionTokens)

	a.logger.WithFields(logrus.Fields{
		"component":    "llm",
		"operation":    op,
		"model":        resp.Model,
		"total_tokens": resp.Usage.TotalTokens,
		"duration":     time.Since(start).String(),
	}).Debug("Chat completion finished")

	return resp.Choices[0].Message.Content, nil
}

func historyMessages(history []Turn) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, t := range history {
		if t.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(t.Content))
		} else {
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	return messages
}
