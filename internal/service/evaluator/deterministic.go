package evaluator

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// SingleSelectEvaluator оценивает вопросы с единственным выбором (mcq, dropdown).
// Верно тогда и только тогда, когда у выбранного варианта установлен флаг is_correct.
type SingleSelectEvaluator struct{}

// Evaluate реализует интерфейс Evaluator
func (e *SingleSelectEvaluator) Evaluate(question *entity.Question, answer *Answer) (*EvalResult, error) {
	if len(answer.SelectedIDs) != 1 {
		return &EvalResult{Score: 0, IsCorrect: false, Feedback: FeedbackIncorrect}, nil
	}

	opt, ok := question.OptionByID(answer.SelectedIDs[0])
	if ok && opt.IsCorrect {
		return fullMarks(question), nil
	}
	return zeroMarks(), nil
}

// MultiSelectEvaluator оценивает вопросы с множественным выбором (checkbox).
// Верно только при точном совпадении множеств выбранных и правильных вариантов;
// частичного зачета за подмножества нет.
type MultiSelectEvaluator struct{}

// Evaluate реализует интерфейс Evaluator
func (e *MultiSelectEvaluator) Evaluate(question *entity.Question, answer *Answer) (*EvalResult, error) {
	correct := question.CorrectOptionIDs()
	if equalStringSets(answer.SelectedIDs, correct) {
		return fullMarks(question), nil
	}
	return zeroMarks(), nil
}

// TextMatchEvaluator оценивает текстовые ответы точным сравнением
// (short_answer, output_prediction, error_identification,
// concept_identification, fill_blanks без структуры пропусков).
// Запятая в correct_answer разделяет синонимы: тогда сравнение
// без учета регистра с любым из них; единственный вариант
// сравнивается с учетом регистра.
type TextMatchEvaluator struct{}

// Evaluate реализует интерфейс Evaluator
func (e *TextMatchEvaluator) Evaluate(question *entity.Question, answer *Answer) (*EvalResult, error) {
	given := strings.TrimSpace(answer.Text)
	alternatives := question.CorrectAnswerAlternatives()

	// Эталонный ответ не задан или состоит из одних разделителей:
	// автопроверка невозможна, вопрос уходит на ручное оценивание
	if len(alternatives) == 0 {
		return nil, nil
	}

	if len(alternatives) > 1 {
		for _, alt := range alternatives {
			if strings.EqualFold(given, alt) {
				return fullMarks(question), nil
			}
		}
		return zeroMarks(), nil
	}

	if given == alternatives[0] {
		return fullMarks(question), nil
	}
	return zeroMarks(), nil
}

// NumericEvaluator оценивает численные ответы (numerical).
// При заданном допуске верно, если |answer - correct| <= tolerance,
// иначе требуется точное равенство. Нечисловой ввод - неверный ответ,
// а не ошибка.
type NumericEvaluator struct{}

// Evaluate реализует интерфейс Evaluator
func (e *NumericEvaluator) Evaluate(question *entity.Question, answer *Answer) (*EvalResult, error) {
	if answer.Number == nil {
		return zeroMarks(), nil
	}

	correct, err := strconv.ParseFloat(strings.TrimSpace(question.CorrectAnswer), 64)
	if err != nil {
		// Эталон не число - автопроверка невозможна, вопрос уходит
		// на ручное оценивание
		return nil, nil
	}

	if question.Tolerance != nil {
		if math.Abs(*answer.Number-correct) <= *question.Tolerance {
			return fullMarks(question), nil
		}
		return zeroMarks(), nil
	}

	if *answer.Number == correct {
		return fullMarks(question), nil
	}
	return zeroMarks(), nil
}

// fullMarks возвращает результат с полным баллом вопроса
func fullMarks(question *entity.Question) *EvalResult {
	return &EvalResult{
		Score:     float64(question.Marks),
		IsCorrect: true,
		Feedback:  FeedbackCorrect,
	}
}

// zeroMarks возвращает нулевой результат за отвеченный, но неверный вопрос
func zeroMarks() *EvalResult {
	return &EvalResult{Score: 0, IsCorrect: false, Feedback: FeedbackIncorrect}
}

// equalStringSets сравнивает два набора строк как множества.
// Пустые наборы не считаются совпадением: вопрос без правильных
// вариантов не должен давать полный балл.
func equalStringSets(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
