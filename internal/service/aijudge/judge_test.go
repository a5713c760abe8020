package aijudge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

func TestBuildRubric_KeywordOverride(t *testing.T) {
	// Arrange: вопрос с ключевыми словами
	question := &entity.Question{
		Text:             "Что дает наследование в ООП?",
		Marks:            10,
		ExpectedKeywords: entity.StringArray{"inheritance"},
	}

	// Act
	rubric := BuildRubric(question)

	// Assert: рубрика обязывает судью выставить полный балл при
	// совпадении с любым одним ключевым словом
	assert.Contains(t, rubric, "MANDATORY OVERRIDE")
	assert.Contains(t, rubric, "any single one")
	assert.Contains(t, rubric, "close synonym")
	assert.Contains(t, rubric, "award the full score of 10")
	assert.Contains(t, rubric, "inheritance")
}

func TestBuildRubric_NoKeywordsFallsBackToPartialCredit(t *testing.T) {
	question := &entity.Question{Text: "Объясните рекурсию", Marks: 5}

	rubric := BuildRubric(question)

	assert.NotContains(t, rubric, "MANDATORY OVERRIDE", "Без ключевых слов override-инструкции быть не должно")
	assert.Contains(t, rubric, "partial credit")
}

func TestBuildUserPrompt_IncludesModelAnswer(t *testing.T) {
	question := &entity.Question{
		Text:        "Что такое стек?",
		ModelAnswer: "Структура данных LIFO",
	}

	prompt := BuildUserPrompt(question, "Стек - это LIFO")

	assert.Contains(t, prompt, "Что такое стек?")
	assert.Contains(t, prompt, "Model answer:\nСтруктура данных LIFO")
	assert.Contains(t, prompt, "Student answer:\nСтек - это LIFO")
}

func TestParseReply_ValidJSON(t *testing.T) {
	result, err := ParseReply(`{"score": 7.5, "feedback": "Good answer"}`, 10)

	require.NoError(t, err)
	assert.Equal(t, 7.5, result.Score)
	assert.Equal(t, "Good answer", result.Feedback)
}

func TestParseReply_FullMarksAcceptedWithoutDownweighting(t *testing.T) {
	// Ответ судьи с полным баллом принимается как есть
	result, err := ParseReply(`{"score": 10, "feedback": "Keyword matched"}`, 10)

	require.NoError(t, err)
	assert.Equal(t, 10.0, result.Score)
}

func TestParseReply_ClampsToMarksRange(t *testing.T) {
	above, err := ParseReply(`{"score": 150, "feedback": "x"}`, 10)
	require.NoError(t, err)
	assert.Equal(t, 10.0, above.Score, "Счет выше максимума ограничивается баллами вопроса")

	below, err := ParseReply(`{"score": -3, "feedback": "x"}`, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.0, below.Score, "Отрицательный счет ограничивается нулем")
}

func TestParseReply_CodeFenceStripped(t *testing.T) {
	result, err := ParseReply("```json\n{\"score\": 4, \"feedback\": \"ok\"}\n```", 5)

	require.NoError(t, err)
	assert.Equal(t, 4.0, result.Score)
}

func TestParseReply_MalformedIsError(t *testing.T) {
	_, err := ParseReply("I think this deserves a 7", 10)
	require.Error(t, err, "Неструктурированный ответ судьи - это отказ оценивания")

	_, err = ParseReply(`{"feedback": "no score here"}`, 10)
	require.Error(t, err, "Ответ без поля score невалиден")
}

func TestClient_Grade_KeywordScenario(t *testing.T) {
	// Arrange: фейковый судья проверяет, что запрос несет override-инструкцию,
	// и возвращает полный балл
	var capturedSystem string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		capturedSystem = req.Messages[0].Content

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"score\": 10, \"feedback\": \"Mentions inheritance\"}"}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	question := &entity.Question{
		ID:               1,
		Text:             "Зачем нужно наследование?",
		Marks:            10,
		ExpectedKeywords: entity.StringArray{"inheritance"},
	}

	// Act
	result, err := client.Grade(context.Background(), question, "Inheritance lets subclasses reuse code")

	// Assert: запрос инструктирует о полном балле за ключевое слово,
	// полный балл в ответе принимается без занижения
	require.NoError(t, err)
	assert.Contains(t, capturedSystem, "MANDATORY OVERRIDE")
	assert.Contains(t, capturedSystem, "inheritance")
	assert.Equal(t, 10.0, result.Score)
	assert.Equal(t, "Mentions inheritance", result.Feedback)
}

func TestClient_Grade_APIErrorIsPropagated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	question := &entity.Question{Marks: 10, Text: "q"}

	_, err := client.Grade(context.Background(), question, "answer")

	require.Error(t, err, "Сбой судьи возвращается как ошибка, понижение до предупреждения - дело агрегатора")
	assert.Contains(t, err.Error(), "rate limit exceeded")
}
