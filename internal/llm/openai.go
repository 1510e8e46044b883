package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient calls the OpenAI chat completion API. Every call is bounded
// by a per-call timeout so a slow upstream can never stall an intake turn.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient constructs an OpenAI-backed completer. The timeout applies
// to each Complete call on top of whatever deadline the caller's context
// already carries.
func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

// Complete sends the system prompt and message history to the chat
// completion API and returns the assistant's text.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt string, messages []Message, opts Options) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	// go-openai omits a zero temperature from the request body, which the
	// API then treats as the 1.0 default. Send the smallest non-zero value
	// instead so temperature 0 actually means deterministic.
	temp := opts.Temperature
	if temp == 0 {
		temp = math.SmallestNonzeroFloat32
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    oaMsgs,
		Temperature: temp,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
