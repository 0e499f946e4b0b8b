package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash-latest"

// GeminiClient adapts the Gemini API to the Completer interface. System
// messages become the model's system instruction; user/assistant turns map
// onto the chat session history.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set; configure it via the secrets file or an environment variable")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

func (c *GeminiClient) Complete(ctx context.Context, messages []Message) (string, error) {
	var systemParts []string
	var turns []Message
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}

	if len(turns) == 0 {
		return "", fmt.Errorf("no conversation turns for chat completion")
	}
	last := turns[len(turns)-1]
	if last.Role != RoleUser {
		return "", fmt.Errorf("last message in history is not from 'user', cannot proceed with chat completion")
	}

	model := c.client.GenerativeModel(c.model)
	if len(systemParts) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(systemParts, "\n\n"))},
		}
	}

	temp := float32(chatTemperature)
	maxTokens := int32(chatMaxTokens)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	chatSession := model.StartChat()
	for _, msg := range turns[:len(turns)-1] {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		chatSession.History = append(chatSession.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	resp, err := chatSession.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response was empty or had no valid candidates")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}

	content := strings.TrimSpace(responseText.String())
	if content == "" {
		return "", fmt.Errorf("gemini response contained an empty completion")
	}
	return content, nil
}
