package codeexec

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// blankMarkerRe находит маркеры пропусков вида {{...}} в шаблоне кода
var blankMarkerRe = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// Сообщения о состоянии запуска
const (
	MessageNoCode       = "No code to run"
	MessageRanOK        = "Code executed successfully"
	MessageOutputsMatch = "Output matches the prediction"
	MessageOutputsDiff  = "Output does not match the prediction"
)

// Verification представляет итог проверки исполнением кода.
// Score == nil означает, что запуск не дал оценки (вывод только для
// отображения либо запуск не состоялся).
type Verification struct {
	Ran       bool     `json:"ran"`
	Score     *float64 `json:"score,omitempty"`
	IsCorrect *bool    `json:"is_correct,omitempty"`
	Feedback  string   `json:"feedback"`
	Output    string   `json:"output"`
	ErrorText string   `json:"error_text,omitempty"`
}

// Verifier восстанавливает исполняемую программу из шаблона и фрагментов
// студента, запускает ее через внешний сервис и интерпретирует результат
type Verifier struct {
	runner Runner
}

// NewVerifier создает верификатор поверх сервиса исполнения
func NewVerifier(runner Runner) *Verifier {
	return &Verifier{runner: runner}
}

// BuildRunnable восстанавливает программу из шаблона: каждый маркер {{...}}
// заменяется фрагментом соответствующего пропуска в порядке шаблона.
// Пустой фрагмент заменяется одним пробелом - это намеренно приводит
// к ошибке компиляции вместо молчаливо "правильного" кода.
func BuildRunnable(template string, blanks entity.BlankList, values map[string]string) string {
	idx := 0
	return blankMarkerRe.ReplaceAllStringFunc(template, func(marker string) string {
		inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(marker, "{{"), "}}"))

		// Сначала маркер сопоставляется по ID пропуска, затем по позиции
		var fragment string
		if v, ok := values[inner]; ok {
			fragment = v
		} else if idx < len(blanks) {
			fragment = values[blanks[idx].ID]
		}
		idx++

		if strings.TrimSpace(fragment) == "" {
			return " "
		}
		return fragment
	})
}

// Verify запускает проверку исполнением для вопроса и сырого ответа студента.
// Все неудачи исполнения (компиляция, рантайм, таймаут) записываются текстом
// для отображения и никогда не пробрасываются как ошибки. Возвращаемая
// ошибка возможна только при транспортном сбое до сервиса исполнения.
func (v *Verifier) Verify(ctx context.Context, question *entity.Question, rawAnswer string) (*Verification, error) {
	switch question.Type {
	case entity.QuestionTypeErrorCorrection:
		return v.verifyErrorCorrection(ctx, question, rawAnswer)
	case entity.QuestionTypeOutputPrediction:
		return v.verifyOutputPrediction(ctx, question, rawAnswer)
	case entity.QuestionTypeCodeCompletion:
		return v.verifyCodeCompletion(ctx, question, rawAnswer)
	default:
		return nil, fmt.Errorf("question type %s is not execution-verified", question.Type)
	}
}

// verifyErrorCorrection исполняет исправленный студентом код целиком.
// Оценка детерминированная: код запустился без ошибки - полный балл;
// сравнение текста с эталонным исправлением не используется.
func (v *Verifier) verifyErrorCorrection(ctx context.Context, question *entity.Question, rawAnswer string) (*Verification, error) {
	code := strings.TrimSpace(rawAnswer)
	if code == "" {
		return notRun(MessageNoCode), nil
	}

	result, err := v.run(ctx, question, code)
	if err != nil {
		return nil, err
	}

	if result.Failed() {
		return &Verification{
			Ran:       true,
			Score:     floatPtr(0),
			IsCorrect: boolPtr(false),
			Feedback:  "Code still fails: " + result.ErrorText(),
			Output:    result.Stdout,
			ErrorText: result.ErrorText(),
		}, nil
	}

	return &Verification{
		Ran:       true,
		Score:     floatPtr(float64(question.Marks)),
		IsCorrect: boolPtr(true),
		Feedback:  MessageRanOK,
		Output:    result.Stdout,
	}, nil
}

// verifyOutputPrediction исполняет ШАБЛОН вопроса (не ответ студента)
// и сравнивает обрезанный фактический stdout с обрезанным предсказанием
// студента с учетом регистра.
func (v *Verifier) verifyOutputPrediction(ctx context.Context, question *entity.Question, rawAnswer string) (*Verification, error) {
	predicted := strings.TrimSpace(rawAnswer)
	if predicted == "" {
		return notRun("No prediction provided"), nil
	}
	if strings.TrimSpace(question.CodeTemplate) == "" {
		return notRun("Cannot construct code to run"), nil
	}

	result, err := v.run(ctx, question, question.CodeTemplate)
	if err != nil {
		return nil, err
	}

	if result.Failed() {
		// Предсказание нельзя проверить - оценка не выставляется
		return &Verification{
			Ran:       true,
			Feedback:  "Could not verify prediction: " + result.ErrorText(),
			Output:    result.Stdout,
			ErrorText: result.ErrorText(),
		}, nil
	}

	if strings.TrimSpace(result.Stdout) == predicted {
		return &Verification{
			Ran:       true,
			Score:     floatPtr(float64(question.Marks)),
			IsCorrect: boolPtr(true),
			Feedback:  MessageOutputsMatch,
			Output:    result.Stdout,
		}, nil
	}

	return &Verification{
		Ran:       true,
		Score:     floatPtr(0),
		IsCorrect: boolPtr(false),
		Feedback:  MessageOutputsDiff,
		Output:    result.Stdout,
	}, nil
}

// verifyCodeCompletion собирает программу из шаблона и фрагментов студента
// и запускает ее. Результат запуска - только вывод/ошибка для отображения;
// баллы за пропуски выставляет детерминированный слой независимо.
func (v *Verifier) verifyCodeCompletion(ctx context.Context, question *entity.Question, rawAnswer string) (*Verification, error) {
	if strings.TrimSpace(question.CodeTemplate) == "" {
		return notRun("Cannot construct code to run"), nil
	}

	values := map[string]string{}
	if strings.TrimSpace(rawAnswer) != "" {
		// Невалидная карта равнозначна пустым фрагментам: шаблон
		// соберется с пробелами и упадет на компиляции
		_ = json.Unmarshal([]byte(rawAnswer), &values)
	}

	runnable := BuildRunnable(question.CodeTemplate, question.Blanks, values)

	result, err := v.run(ctx, question, runnable)
	if err != nil {
		return nil, err
	}

	verification := &Verification{
		Ran:      true,
		Feedback: MessageRanOK,
		Output:   result.Stdout,
	}
	if result.Failed() {
		verification.Feedback = result.ErrorText()
		verification.ErrorText = result.ErrorText()
	}
	return verification, nil
}

// run отправляет один исходный файл на исполнение
func (v *Verifier) run(ctx context.Context, question *entity.Question, source string) (*RunResult, error) {
	language := question.Language
	if language == "" {
		language = "c"
	}

	result, err := v.runner.Execute(ctx, RunRequest{
		Language: language,
		Version:  question.LanguageVersion,
		Files:    []RunFile{{Name: sourceFileName(language), Content: source}},
	})
	if err != nil {
		log.Printf("[CodeExec] Сбой обращения к сервису исполнения (question=%d): %v", question.ID, err)
		return nil, err
	}
	return result, nil
}

// sourceFileName возвращает имя исходного файла для языка
func sourceFileName(language string) string {
	switch language {
	case "c":
		return "main.c"
	case "cpp", "c++":
		return "main.cpp"
	case "python":
		return "main.py"
	case "java":
		return "Main.java"
	case "go":
		return "main.go"
	default:
		return "main.txt"
	}
}

// notRun формирует состояние "запуск не состоялся" с явным сообщением.
// Такое состояние никогда не засчитывается как правильный ответ.
func notRun(message string) *Verification {
	return &Verification{Ran: false, Feedback: message}
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
