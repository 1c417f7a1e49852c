package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"parentdoctor/backend/internal/chat"
	"parentdoctor/backend/internal/config"
)

const maxErrorBodyLog = 600

// OpenAIClient calls the chat-completions endpoint. It implements
// chat.Completer.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenAIClient(cfg config.Config) *OpenAIClient {
	return &OpenAIClient{
		apiKey:      strings.TrimSpace(cfg.OpenAIAPIKey),
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"),
		model:       strings.TrimSpace(cfg.OpenAIModel),
		maxTokens:   cfg.AIMaxOutputTokens,
		temperature: cfg.AITemperature,
		httpClient: &http.Client{
			Timeout: cfg.AITimeout(),
		},
	}
}

// Configured reports whether a credential is present.
func (c *OpenAIClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt string, history []chat.Turn) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: OPENAI_API_KEY is not configured", chat.ErrUnavailable)
	}
	if c.baseURL == "" {
		return "", fmt.Errorf("%w: OPENAI_BASE_URL is not configured", chat.ErrUnavailable)
	}
	if c.model == "" {
		return "", fmt.Errorf("%w: OPENAI_MODEL is not configured", chat.ErrUnavailable)
	}

	messages := buildMessages(systemPrompt, history)
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: request has no messages", chat.ErrTransport)
	}
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %w", chat.ErrTransport, err)
	}

	status, responseBody, err := c.post(ctx, body)
	if err == nil && status >= http.StatusInternalServerError {
		log.Printf("openai chat completion retrying status=%d", status)
		status, responseBody, err = c.post(ctx, body)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", chat.ErrTransport, err)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: openai chat completion error (%d): %s", chat.ErrTransport, status, truncateForLog(string(responseBody), maxErrorBodyLog))
	}

	var parsed chatResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", chat.ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", chat.ErrMalformedResponse)
	}
	answer := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if answer == "" {
		log.Printf("openai response had no extractable answer: %s", truncateForLog(string(responseBody), 1200))
		return "", fmt.Errorf("%w: response answer is empty", chat.ErrMalformedResponse)
	}
	return answer, nil
}

func (c *OpenAIClient) post(ctx context.Context, body []byte) (int, []byte, error) {
	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/chat/completions",
		bytes.NewReader(body),
	)
	if err != nil {
		return 0, nil, err
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, err
	}
	return response.StatusCode, responseBody, nil
}

func buildMessages(systemPrompt string, history []chat.Turn) []chatMessage {
	messages := make([]chatMessage, 0, len(history)+1)
	if prompt := strings.TrimSpace(systemPrompt); prompt != "" {
		messages = append(messages, chatMessage{Role: string(chat.RoleSystem), Content: prompt})
	}
	for _, turn := range history {
		if turn.Role != chat.RoleUser && turn.Role != chat.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		messages = append(messages, chatMessage{Role: string(turn.Role), Content: content})
	}
	return messages
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}

// Mock answers deterministically without a network call. Delay lets tests
// exercise the engine's timeout.
type Mock struct {
	Delay time.Duration
}

func (m Mock) Complete(ctx context.Context, _ string, history []chat.Turn) (string, error) {
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	question := ""
	for idx := len(history) - 1; idx >= 0; idx-- {
		if history[idx].Role == chat.RoleUser {
			question = strings.TrimSpace(history[idx].Content)
			break
		}
	}
	if question == "" {
		question = "No question provided."
	}
	lowered := strings.ToLower(question)

	answer := "Mock response: " + question
	if strings.Contains(lowered, "fever") || strings.Contains(lowered, "cough") || strings.Contains(question, "发烧") {
		answer = strings.Join([]string{
			"1) Keep track of temperature and fluids.",
			"2) Rest helps recovery.",
			"3) See a pediatrician if symptoms persist or worsen.",
		}, "\n")
	}
	return answer, nil
}
