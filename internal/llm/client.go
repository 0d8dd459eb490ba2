package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/krishi-sahayak/backend/internal/metrics"
	"github.com/krishi-sahayak/backend/pkg/circuitbreaker"
	"github.com/krishi-sahayak/backend/pkg/logger"
)

// ErrorPrefixes mark a generated text as a failure rather than an answer.
// They match the language-tagged error strings this package produces.
var ErrorPrefixes = []string{"Error:", "Sorry,", "Warning:", "Could not", "Internal error"}

// IsErrorResponse classifies generator output: empty text or a sentinel
// prefix means the advice failed and must not be logged as an interaction.
func IsErrorResponse(response string) bool {
	if strings.TrimSpace(response) == "" {
		return true
	}
	for _, prefix := range ErrorPrefixes {
		if strings.HasPrefix(response, prefix) {
			return true
		}
	}
	return false
}

const systemPromptTemplate = `You are Krishi-Sahayak AI, a helpful and practical farming advisor for farmers in India. Your goal is to provide clear, concise, and actionable advice based on the context provided, which addresses the farmer's likely need or query. Respond ONLY in %s. Pay attention if the location context says 'Location Not Set'.`

const taskPromptTemplate = `Context and Data:
---
%s
---

Task: Based *only* on the context above, provide a helpful and actionable response relevant to farming in %s.
- If weather data is present (meaning location was set), summarize the key conditions (temperature trends, rain chances, alerts) for the next few days and suggest relevant farming actions (e.g., irrigation planning, taking precautions).
- If weather context indicates an error or that location was not set, clearly state that specific weather advice cannot be given and why.
- If crop suggestions are given, present them clearly.
- If market data is provided, explain the price trend simply.
- If plant health info is present, state the finding and suggestion.
- If it's a general query, provide a concise agricultural answer using the context. If location isn't set, make advice more general.
- If 'Recent Interaction History' is provided, consider it to maintain consistency. Avoid repeating the exact same advice unless conditions haven't changed or the query asks again. Do not list the history back.
- Synthesize information; do NOT just repeat the raw data.
- Do NOT suggest doing external research. Provide the answer based only on the given context.
- Ensure the entire response is in %s.`

// Client generates one advice completion per call. No retries and no
// streaming; continuity across turns is rebuilt from the interaction log, not
// carried by the endpoint.
type Client struct {
	apiKey      string
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
}

func NewClient(apiKey, model string, temperature float32, maxTokens, timeoutSec int) *Client {
	if timeoutSec <= 0 {
		timeoutSec = 60
	}

	logger.Info("LLM client initialized",
		zap.String("model", model), zap.Bool("key_configured", apiKey != ""))

	return &Client{
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     time.Duration(timeoutSec) * time.Second,
		cb: circuitbreaker.New("llm", circuitbreaker.Config{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			OpenTimeout:      30 * time.Second,
			Logger:           logger.GetLogger(),
		}),
	}
}

// Generate wraps the assembled context in the advisor instruction template
// and returns the model's reply. Every failure is converted into a
// language-tagged, prefix-marked error string; nothing propagates as an error
// value past this boundary.
func (c *Client) Generate(ctx context.Context, internalPrompt, outputLanguage, apiKeyOverride string) string {
	apiKey := c.apiKey
	if apiKeyOverride != "" {
		// A key supplied with the request overrides the configured default
		// for this call only.
		apiKey = apiKeyOverride
	}
	if apiKey == "" {
		logger.Error("Advice generation attempted without an API key")
		return fmt.Sprintf("Error: AI Model is not initialized properly (in %s).", outputLanguage)
	}

	client := openai.NewClient(apiKey)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logger.Info("Generating advice", zap.String("language", outputLanguage))

	var resp openai.ChatCompletionResponse
	err := c.cb.Execute(ctx, func() error {
		var callErr error
		resp, callErr = client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: fmt.Sprintf(systemPromptTemplate, outputLanguage),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf(taskPromptTemplate, internalPrompt, outputLanguage, outputLanguage),
				},
			},
		})
		return callErr
	})

	if err != nil {
		logger.Error("LLM completion failed", zap.Error(err))
		return classifyError(err, outputLanguage)
	}

	if len(resp.Choices) == 0 {
		logger.Warn("LLM returned no choices")
		return ""
	}

	metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	logger.Info("Received response from LLM",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

// classifyError maps endpoint failures into the fixed cause set
// {authentication, quota, safety block, generic} by substring match.
func classifyError(err error, outputLanguage string) string {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "permission") || strings.Contains(msg, "denied") ||
		strings.Contains(msg, "authenticate"):
		return fmt.Sprintf("Error: Could not authenticate with the AI service due to an invalid API key or permission issues (in %s). Please check the key.", outputLanguage)
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource has been exhausted") || strings.Contains(msg, "429"):
		return fmt.Sprintf("Error: The AI service API quota has been exceeded or the rate limit reached (in %s). Please try again later.", outputLanguage)
	case strings.Contains(msg, "safety") || strings.Contains(msg, "content_filter") ||
		strings.Contains(msg, "blocked"):
		return fmt.Sprintf("Warning: The AI's response was blocked by content safety settings (in %s).", outputLanguage)
	default:
		return fmt.Sprintf("Sorry, there was a communication error with the AI assistant (in %s).", outputLanguage)
	}
}
