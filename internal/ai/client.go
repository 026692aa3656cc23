package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client обращается к OpenAI-совместимому API (chat/completions).
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient создаёт клиент. Пустой baseURL означает, что модель недоступна
// и все запросы сразу уходят в fallback.
func NewClient(baseURL, model, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled сообщает, настроен ли адрес модели.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletion отправляет сообщения и возвращает текст первого варианта ответа.
func (c *Client) chatCompletion(ctx context.Context, messages []chatMessage, maxTokens int, temperature float64) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("ai: baseURL не задан")
	}

	payload := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Тело ошибки провайдера не пишем: там может оказаться текст запроса.
		return "", fmt.Errorf("ai: код ответа %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("ai: пустой ответ")
	}

	return result.Choices[0].Message.Content, nil
}

// parseJSONFromText достаёт JSON объект из ответа модели: голый или внутри markdown блока.
func parseJSONFromText(text string) (map[string]any, bool) {
	result := make(map[string]any)

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start != -1 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &result); err == nil {
			return result, true
		}
	}

	if match := codeBlockPattern.FindStringSubmatch(text); len(match) > 1 {
		if err := json.Unmarshal([]byte(match[1]), &result); err == nil {
			return result, true
		}
	}

	return nil, false
}
