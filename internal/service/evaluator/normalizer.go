package evaluator

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// Answer представляет нормализованный ответ студента в форме,
// пригодной для сравнения оценщиком конкретного типа вопроса
type Answer struct {
	// Answered == false означает отсутствие ответа: оценивание
	// дает 0 баллов без ошибки
	Answered bool

	// Text - обрезанный текстовый ответ
	Text string

	// SelectedIDs - отсортированный набор выбранных ID вариантов
	SelectedIDs []string

	// Number - численное значение ответа; nil, если текст не парсится как число
	Number *float64

	// BlankValues - карта "ID пропуска -> фрагмент студента"
	BlankValues map[string]string
}

// Normalize приводит сырой ответ UI к канонической форме для типа вопроса.
// Контракт: никогда не возвращает ошибку; пустой/невалидный ввод дает
// Answered == false либо форму, которую оценщик трактует как неверный ответ.
func Normalize(question *entity.Question, raw string) *Answer {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &Answer{Answered: false}
	}

	answer := &Answer{Answered: true, Text: trimmed}

	switch question.Type {
	case entity.QuestionTypeMCQ, entity.QuestionTypeDropdown, entity.QuestionTypeCheckbox:
		answer.SelectedIDs = splitSelection(trimmed)
		if len(answer.SelectedIDs) == 0 {
			return &Answer{Answered: false}
		}

	case entity.QuestionTypeNumerical:
		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			answer.Number = &n
		}
		// Нечисловой ввод оставляет Number == nil: оценщик трактует
		// его как неверный ответ, а не как ошибку

	case entity.QuestionTypeCodeCompletion, entity.QuestionTypeFillBlanks:
		if question.HasBlanks() {
			values, ok := parseBlankMap(trimmed)
			if !ok || len(values) == 0 {
				// Ни одного заполненного пропуска - ответа нет
				return &Answer{Answered: false}
			}
			answer.BlankValues = values
		}
	}

	return answer
}

// splitSelection разбирает выбор вариантов: один ID или список ID через запятую.
// Результат отсортирован для сравнения множеств.
func splitSelection(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// parseBlankMap разбирает JSON-карту "ID пропуска -> фрагмент".
// Пустые фрагменты отбрасываются.
func parseBlankMap(raw string) (map[string]string, bool) {
	var values map[string]string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, false
	}

	out := make(map[string]string, len(values))
	for id, fragment := range values {
		if strings.TrimSpace(fragment) != "" {
			out[id] = fragment
		}
	}
	return out, true
}
