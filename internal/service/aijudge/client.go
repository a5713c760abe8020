package aijudge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// GradeResult представляет нормализованный вердикт судьи.
// Score уже ограничен диапазоном [0, marks] вопроса.
type GradeResult struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Judge абстрагирует внешний AI-сервис оценивания.
// Ошибка означает "не удалось оценить": агрегатор записывает вопрос
// как ожидающий проверки, а не как ноль баллов.
type Judge interface {
	Grade(ctx context.Context, question *entity.Question, studentAnswer string) (*GradeResult, error)
}

// Disabled - заглушка для развертываний без AI-судьи.
// Каждый запрос завершается ошибкой, и агрегатор оставляет вопрос
// на ручную проверку.
type Disabled struct{}

// Grade всегда возвращает ошибку "судья отключен"
func (Disabled) Grade(ctx context.Context, question *entity.Question, studentAnswer string) (*GradeResult, error) {
	return nil, fmt.Errorf("ai judge is not configured")
}

// Client - HTTP-клиент AI-судьи (OpenAI-совместимый chat completions API)
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient создает клиент AI-судьи. timeout ограничивает ожидание
// одного запроса: судья не должен блокировать submit бесконечно.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Grade строит запрос (вопрос, ответ студента, эталон, рубрика),
// вызывает судью и разбирает структурированный ответ {score, feedback}.
// Любая неудача (сеть, парсинг, ошибка API) возвращается как ошибка -
// вызывающий код понижает ее до предупреждения, не роняя submit.
func (c *Client) Grade(ctx context.Context, question *entity.Question, studentAnswer string) (*GradeResult, error) {
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: BuildRubric(question)},
			{Role: "user", Content: BuildUserPrompt(question, studentAnswer)},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal judge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode judge response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("judge API error: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("judge returned status %d", resp.StatusCode)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("judge returned no choices")
	}

	result, err := ParseReply(chatResp.Choices[0].Message.Content, question.Marks)
	if err != nil {
		return nil, err
	}

	log.Printf("[AIJudge] Вопрос #%d оценен: score=%.1f из %d", question.ID, result.Score, question.Marks)
	return result, nil
}

// judgeReply описывает ожидаемый JSON в ответе судьи
type judgeReply struct {
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}

// ParseReply разбирает текст ответа судьи в GradeResult.
// Счет ограничивается диапазоном [0, marks]; ответ без поля score
// считается невалидным.
func ParseReply(content string, marks int) (*GradeResult, error) {
	payload := stripCodeFence(strings.TrimSpace(content))

	var reply judgeReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return nil, fmt.Errorf("malformed judge reply: %w", err)
	}
	if reply.Score == nil {
		return nil, fmt.Errorf("judge reply missing score")
	}

	score := *reply.Score
	if score < 0 {
		score = 0
	}
	if score > float64(marks) {
		score = float64(marks)
	}

	return &GradeResult{Score: score, Feedback: reply.Feedback}, nil
}

// stripCodeFence убирает обрамление ```json ... ```, которым модели
// часто оборачивают структурированный ответ
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
