package generator

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/lingua-prep/backend/internal/models"
)

// LLMClient is the narrow interface the generator consumes. The engine
// core never talks to the provider directly.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Generator turns selected learning items into question text. It is a
// thin adapter: item selection and scoring never depend on it.
type Generator struct {
	llm   LLMClient
	model string
}

func NewGenerator() *Generator {
	if os.Getenv("MOCK_GENERATOR") == "true" {
		log.Println("Generator using template questions")
		return &Generator{model: "template"}
	}

	model := os.Getenv("ANTHROPIC_MODEL")
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	log.Println("Generator using Anthropic API:", model)
	return &Generator{llm: NewAPIClient(model), model: model}
}

func (g *Generator) ModelName() string {
	return g.model
}

// GenerateQuestions produces one question per selected item. When no LLM
// is configured, or the LLM response cannot be used, deterministic
// template questions keep sessions servable.
func (g *Generator) GenerateQuestions(ctx context.Context, vocab []models.VocabularyItem, grammar []models.GrammarItem) ([]models.Question, error) {
	if len(vocab) == 0 && len(grammar) == 0 {
		return nil, fmt.Errorf("no items to generate questions for")
	}

	if g.llm == nil {
		return TemplateQuestions(vocab, grammar), nil
	}

	resp, err := g.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(vocab, grammar))
	if err != nil {
		log.Printf("WARN: [generator] LLM call failed, falling back to templates: %v", err)
		return TemplateQuestions(vocab, grammar), nil
	}

	questions, err := ParseQuestions(resp.Content, vocab, grammar)
	if err != nil {
		log.Printf("WARN: [generator] unusable LLM response, falling back to templates: %v", err)
		return TemplateQuestions(vocab, grammar), nil
	}
	return questions, nil
}

// ── APIClient — Anthropic SDK ──────────────────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("Retrying Anthropic API call in %v (attempt %d)", sleepDuration, attempt+1)
			time.Sleep(sleepDuration)
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}
