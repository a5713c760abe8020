package evaluator

import (
	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// Стандартные сообщения для студента. Сообщения различают
// "вы ответили неверно" и "мы пока не смогли оценить ответ".
const (
	FeedbackNoAnswer      = "No answer provided"
	FeedbackCorrect       = "Correct answer"
	FeedbackIncorrect     = "Incorrect answer"
	FeedbackPendingReview = "Pending review"
)

// EvalResult представляет результат оценивания одного вопроса
type EvalResult struct {
	Score     float64 `json:"score"`
	IsCorrect bool    `json:"is_correct"`
	Feedback  string  `json:"feedback"`
}

// Evaluator оценивает нормализованный ответ на вопрос одного типа.
// nil-результат (без ошибки) означает "не поддается автопроверке":
// агрегатор оставляет вопрос для AI или ручного оценивания.
type Evaluator interface {
	Evaluate(question *entity.Question, answer *Answer) (*EvalResult, error)
}

// Registry диспетчеризует оценивание по типу вопроса.
// Добавление нового типа - это один вариант и одна регистрация,
// существующие оценщики не затрагиваются.
type Registry struct {
	evaluators map[string]Evaluator
}

// NewRegistry создает реестр со встроенными детерминированными оценщиками
func NewRegistry() *Registry {
	single := &SingleSelectEvaluator{}
	text := &TextMatchEvaluator{}
	blanks := &BlankSetEvaluator{}

	return &Registry{
		evaluators: map[string]Evaluator{
			entity.QuestionTypeMCQ:                   single,
			entity.QuestionTypeDropdown:              single,
			entity.QuestionTypeCheckbox:              &MultiSelectEvaluator{},
			entity.QuestionTypeShortAnswer:           text,
			entity.QuestionTypeOutputPrediction:      text,
			entity.QuestionTypeErrorIdentification:   text,
			entity.QuestionTypeConceptIdentification: text,
			entity.QuestionTypeFillBlanks:            &fillBlanksEvaluator{blanks: blanks, text: text},
			entity.QuestionTypeNumerical:             &NumericEvaluator{},
			entity.QuestionTypeCodeCompletion:        blanks,
		},
	}
}

// fillBlanksEvaluator направляет fill_blanks по структуре вопроса:
// со структурой пропусков работает попропусковый зачет, без нее
// ответ сравнивается с эталоном как обычный текст.
type fillBlanksEvaluator struct {
	blanks *BlankSetEvaluator
	text   *TextMatchEvaluator
}

// Evaluate реализует интерфейс Evaluator
func (e *fillBlanksEvaluator) Evaluate(question *entity.Question, answer *Answer) (*EvalResult, error) {
	if question.HasBlanks() {
		return e.blanks.Evaluate(question, answer)
	}
	return e.text.Evaluate(question, answer)
}

// Evaluate нормализует сырой ответ и направляет его оценщику типа вопроса.
// Возвращает (nil, nil) для типов без автопроверки. Пустой ответ всегда
// дает 0 баллов и сообщение FeedbackNoAnswer, никогда не ошибку.
func (r *Registry) Evaluate(question *entity.Question, rawAnswer string) (*EvalResult, error) {
	answer := Normalize(question, rawAnswer)

	ev, ok := r.evaluators[question.Type]
	if !ok {
		// Типы paragraph, trace_execution, justification, error_correction,
		// file_upload автопроверке не подлежат
		return nil, nil
	}

	if !answer.Answered {
		return &EvalResult{Score: 0, IsCorrect: false, Feedback: FeedbackNoAnswer}, nil
	}

	return ev.Evaluate(question, answer)
}
