package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/ports"
)

const (
	defaultChatModel = "gpt-4o"
	defaultBaseURL   = "https://api.openai.com/v1"
)

// Client speaks the OpenAI chat-completions wire protocol against any
// compatible provider. Credentials come from the admin settings record
// on every call, so key rotation needs no restart.
type Client struct {
	settings ports.SettingsSource

	// streamClient has no overall timeout; a completion stream can
	// legitimately run for minutes. jsonClient bounds one-shot calls.
	streamClient *http.Client
	jsonClient   *http.Client
}

func NewClient(settings ports.SettingsSource) *Client {
	return &Client{
		settings:     settings,
		streamClient: &http.Client{},
		jsonClient:   &http.Client{Timeout: 120 * time.Second},
	}
}

type llmConfig struct {
	model   string
	baseURL string
	apiKey  string
}

func (c *Client) llmConfig(ctx context.Context) (llmConfig, error) {
	s, err := c.settings.Current(ctx)
	if err != nil {
		return llmConfig{}, fmt.Errorf("load settings: %w", err)
	}

	key := s.LLMAPIKey.Reveal()
	if key == "" {
		return llmConfig{}, domain.WrapError(domain.ErrNotConfigured, "chat completion", errors.New("no llm api key configured"))
	}

	cfg := llmConfig{model: s.LLMModel, baseURL: s.LLMBaseURL, apiKey: key}
	if cfg.model == "" {
		cfg.model = defaultChatModel
	}
	if cfg.baseURL == "" {
		cfg.baseURL = defaultBaseURL
	}
	cfg.baseURL = strings.TrimRight(cfg.baseURL, "/")
	return cfg, nil
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func messagesFromTurns(turns []domain.Turn) []chatMessage {
	messages := make([]chatMessage, 0, len(turns))
	for _, t := range turns {
		m := chatMessage{
			Role:       string(t.Role),
			Content:    t.Content,
			ToolCallID: t.ToolCallID,
		}
		for _, call := range t.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, wireToolCall{
				ID:   call.ID,
				Type: "function",
				Function: wireFunction{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		messages = append(messages, m)
	}
	return messages
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamCompletion runs one streamed chat completion and invokes fn
// for every event in arrival order.
func (c *Client) StreamCompletion(ctx context.Context, turns []domain.Turn, withTools bool, fn func(ports.ModelEvent) error) error {
	cfg, err := c.llmConfig(ctx)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"model":    cfg.model,
		"messages": messagesFromTurns(turns),
		"stream":   true,
	}
	if withTools {
		payload["tools"] = searchTools()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+cfg.apiKey)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return wrapTemporaryIfNeeded("chat completion", fmt.Errorf("completion request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return wrapTemporaryIfNeeded("chat completion", newHTTPStatusError("chat completion", resp))
	}

	return readStream(resp.Body, fn)
}

func readStream(body io.Reader, fn func(ports.ModelEvent) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("decode stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			if err := fn(ports.ModelEvent{TextDelta: choice.Delta.Content}); err != nil {
				return err
			}
		}
		for _, tc := range choice.Delta.ToolCalls {
			event := ports.ModelEvent{
				IsToolDelta:   true,
				ToolCallIndex: tc.Index,
				ToolCallID:    tc.ID,
				ToolCallName:  tc.Function.Name,
				ArgsFragment:  tc.Function.Arguments,
			}
			if err := fn(event); err != nil {
				return err
			}
		}
		if choice.FinishReason != "" {
			if err := fn(ports.ModelEvent{FinishReason: choice.FinishReason}); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return wrapTemporaryIfNeeded("chat completion", fmt.Errorf("read stream: %w", err))
	}
	return nil
}

// complete runs a non-streaming completion and returns the full text.
// Metadata extraction uses it.
func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	cfg, err := c.llmConfig(ctx)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"model":    cfg.model,
		"messages": messages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.apiKey)

	resp, err := c.jsonClient.Do(req)
	if err != nil {
		return "", wrapTemporaryIfNeeded("completion", fmt.Errorf("completion request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", wrapTemporaryIfNeeded("completion", newHTTPStatusError("completion", resp))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
