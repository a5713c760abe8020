package codeexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RunFile представляет один исходный файл для исполнения
type RunFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// RunRequest представляет запрос к внешнему сервису исполнения кода
type RunRequest struct {
	Language string    `json:"language"`
	Version  string    `json:"version"`
	Files    []RunFile `json:"files"`
}

// RunResult представляет интерпретированный результат исполнения.
// Непустой Stderr и ошибка API - это классификация неудачи,
// а не исключение: вызывающий код получает результат, не ошибку.
type RunResult struct {
	Stdout   string
	Stderr   string
	APIError string
	TimedOut bool
}

// Failed проверяет, завершилось ли исполнение ошибкой любого вида
func (r *RunResult) Failed() bool {
	return r.Stderr != "" || r.APIError != "" || r.TimedOut
}

// ErrorText возвращает текст ошибки исполнения для показа студенту
func (r *RunResult) ErrorText() string {
	switch {
	case r.TimedOut:
		return "Execution timed out"
	case r.APIError != "":
		return r.APIError
	default:
		return r.Stderr
	}
}

// Runner абстрагирует внешний сервис исполнения кода.
// Позволяет подменять сервис фейком в тестах.
type Runner interface {
	Execute(ctx context.Context, req RunRequest) (*RunResult, error)
}

// Client - HTTP-клиент сервиса исполнения кода (Piston-совместимый API)
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создает клиент сервиса исполнения.
// timeout - жесткий лимит на один запуск: зависший запрос
// превращается в RunResult{TimedOut: true}, а не в вечное ожидание.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// executeResponse описывает ответ сервиса исполнения
type executeResponse struct {
	Run struct {
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
	} `json:"run"`
	// Message - сообщение об ошибке уровня API
	Message string `json:"message,omitempty"`
}

// Execute отправляет код на исполнение и интерпретирует ответ.
// Ошибка возвращается только при транспортных проблемах, не связанных
// с таймаутом; ошибки компиляции/выполнения приходят внутри RunResult.
func (c *Client) Execute(ctx context.Context, req RunRequest) (*RunResult, error) {
	requestID := uuid.New().String()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execute request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build execute request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	log.Printf("[CodeExec] Запуск кода (request_id=%s, language=%s %s, files=%d)",
		requestID, req.Language, req.Version, len(req.Files))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Таймаут - отдельный вид неудачи, а не зависание и не исключение
		if ctx.Err() == context.DeadlineExceeded || isTimeout(err) {
			log.Printf("[CodeExec] Таймаут исполнения (request_id=%s)", requestID)
			return &RunResult{TimedOut: true}, nil
		}
		return nil, fmt.Errorf("execution service request failed: %w", err)
	}
	defer resp.Body.Close()

	var execResp executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&execResp); err != nil {
		return nil, fmt.Errorf("failed to decode execution response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := execResp.Message
		if msg == "" {
			msg = fmt.Sprintf("execution service returned status %d", resp.StatusCode)
		}
		log.Printf("[CodeExec] Ошибка API сервиса исполнения (request_id=%s): %s", requestID, msg)
		return &RunResult{APIError: msg}, nil
	}

	return &RunResult{
		Stdout:   execResp.Run.Stdout,
		Stderr:   execResp.Run.Stderr,
		APIError: execResp.Message,
	}, nil
}

// isTimeout проверяет, является ли транспортная ошибка таймаутом
func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok {
		return te.Timeout()
	}
	return false
}
