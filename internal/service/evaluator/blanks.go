package evaluator

import (
	"strings"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// BlankSetEvaluator оценивает вопросы со структурой пропусков
// (code_completion, fill_blanks). Это единственный путь частичного
// зачета в детерминированном слое: балл равен сумме баллов совпавших
// пропусков, полный балл вопроса складывается из баллов пропусков.
type BlankSetEvaluator struct{}

// Evaluate реализует интерфейс Evaluator.
// Для вопроса без структуры пропусков возвращает nil: такой вопрос
// оценивается исполнением кода, текстовым сравнением или вручную.
func (e *BlankSetEvaluator) Evaluate(question *entity.Question, answer *Answer) (*EvalResult, error) {
	if !question.HasBlanks() {
		return nil, nil
	}

	score := 0
	matched := 0
	for _, blank := range question.Blanks {
		fragment, ok := answer.BlankValues[blank.ID]
		if !ok {
			continue
		}
		if matchesBlank(blank, fragment, question.CaseSensitive) {
			score += blank.Marks
			matched++
		}
	}

	allCorrect := matched == len(question.Blanks)
	feedback := FeedbackIncorrect
	if allCorrect {
		feedback = FeedbackCorrect
	} else if matched > 0 {
		feedback = "Partially correct"
	}

	return &EvalResult{
		Score:     float64(score),
		IsCorrect: allCorrect,
		Feedback:  feedback,
	}, nil
}

// matchesBlank проверяет вхождение фрагмента в набор допустимых ответов пропуска
func matchesBlank(blank entity.Blank, fragment string, caseSensitive bool) bool {
	fragment = strings.TrimSpace(fragment)
	for _, accepted := range blank.Accepted {
		accepted = strings.TrimSpace(accepted)
		if caseSensitive {
			if fragment == accepted {
				return true
			}
		} else if strings.EqualFold(fragment, accepted) {
			return true
		}
	}
	return false
}
