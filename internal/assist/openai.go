package assist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/model"
)

const analysisSystemPrompt = `You are an English grammar tutor. Analyze the sentence you are given.
Return a JSON object with this structure:
{
    "translation": "natural translation or paraphrase",
    "structure": "clause and phrase breakdown",
    "grammar_points": ["point 1", "point 2"],
    "difficulty": "beginner|intermediate|advanced"
}`

const lookupSystemPrompt = `You are a dictionary assistant. Explain the given word as it is used in the given context.
Return a JSON object with this structure:
{
    "word": "the word",
    "definition": "meaning in this context",
    "part_of_speech": "pos tag",
    "example": "one short example sentence"
}`

// OpenAIProvider implements Provider against any OpenAI-compatible chat
// completion endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIProvider builds a provider for the given credentials. baseURL may
// be empty to use the public API, or point at a local gateway.
func NewOpenAIProvider(apiKey, baseURL, chatModel string, logger *zap.Logger) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  chatModel,
		logger: logger,
	}
}

// AnalyzeSentence asks the model for a structured grammar analysis.
func (p *OpenAIProvider) AnalyzeSentence(ctx context.Context, sentence string) (json.RawMessage, error) {
	content, err := p.completeJSON(ctx, analysisSystemPrompt, sentence)
	if err != nil {
		return nil, fmt.Errorf("analyze sentence: %w", err)
	}
	return content, nil
}

// QuickLookup asks the model to explain word inside wordContext. The caller's
// sourceURL is echoed into the result object untouched.
func (p *OpenAIProvider) QuickLookup(ctx context.Context, word, wordContext, sourceURL string) (json.RawMessage, error) {
	prompt := fmt.Sprintf("Word: %s\nContext: %s", word, wordContext)
	content, err := p.completeJSON(ctx, lookupSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("quick lookup: %w", err)
	}

	if sourceURL == "" {
		return content, nil
	}

	var result map[string]any
	if err := json.Unmarshal(content, &result); err != nil {
		return nil, fmt.Errorf("quick lookup: decode result: %w", err)
	}
	result["source_url"] = sourceURL
	enriched, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("quick lookup: re-encode result: %w", err)
	}
	return enriched, nil
}

// ChatReply answers a free-form question with the thread history and bound
// context in the prompt.
func (p *OpenAIProvider) ChatReply(ctx context.Context, history []model.Message, contextText *string, ctxType model.ContextType, userMessage string) (string, error) {
	system := "You are a friendly English learning assistant embedded in a study app. Answer concisely."
	if contextText != nil {
		system += fmt.Sprintf("\nThe learner is currently looking at this %s:\n%s", ctxType, *contextText)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}
	for _, msg := range history {
		if msg.Content == "" {
			// Payload-only turns carry nothing the model can read.
			continue
		}
		role := openai.ChatMessageRoleUser
		if msg.Role == model.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat reply: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat reply: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// completeJSON runs a single-turn completion in JSON mode and validates that
// the model actually returned an object.
func (p *OpenAIProvider) completeJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	content := resp.Choices[0].Message.Content
	var probe map[string]any
	if err := json.Unmarshal([]byte(content), &probe); err != nil {
		p.logger.Warn("model returned non-JSON payload", zap.String("content", content))
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	return json.RawMessage(content), nil
}
