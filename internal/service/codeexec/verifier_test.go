package codeexec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// fakeRunner подменяет внешний сервис исполнения в тестах
type fakeRunner struct {
	result   *RunResult
	err      error
	lastReq  *RunRequest
	executed int
}

func (f *fakeRunner) Execute(_ context.Context, req RunRequest) (*RunResult, error) {
	f.executed++
	f.lastReq = &req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestBuildRunnable_ReplacesMarkersInOrder(t *testing.T) {
	// Arrange
	template := "int {{b1}} = {{b2}};"
	blanks := entity.BlankList{
		{ID: "b1", Marks: 2},
		{ID: "b2", Marks: 3},
	}
	values := map[string]string{"b1": "x", "b2": "42"}

	// Act
	runnable := BuildRunnable(template, blanks, values)

	// Assert
	assert.Equal(t, "int x = 42;", runnable)
}

func TestBuildRunnable_EmptyFragmentBecomesSpace(t *testing.T) {
	// Пустой фрагмент заменяется пробелом: компиляция должна упасть,
	// а не молча пройти
	template := "int {{b1}} = 1;"
	blanks := entity.BlankList{{ID: "b1", Marks: 2}}

	runnable := BuildRunnable(template, blanks, map[string]string{})

	assert.Equal(t, "int   = 1;", runnable)
}

func TestBuildRunnable_PositionalFallback(t *testing.T) {
	// Маркеры без ID заменяются по позиции пропуска
	template := "{{ }} main() { return {{ }}; }"
	blanks := entity.BlankList{
		{ID: "b1", Marks: 1},
		{ID: "b2", Marks: 1},
	}
	values := map[string]string{"b1": "int", "b2": "0"}

	runnable := BuildRunnable(template, blanks, values)

	assert.Equal(t, "int main() { return 0; }", runnable)
}

func TestVerify_ErrorCorrection_SuccessEarnsFullMarks(t *testing.T) {
	// Arrange: код исполнился без ошибки
	runner := &fakeRunner{result: &RunResult{Stdout: "ok"}}
	verifier := NewVerifier(runner)
	question := &entity.Question{
		ID:       1,
		Type:     entity.QuestionTypeErrorCorrection,
		Marks:    10,
		Language: "c",
	}

	// Act
	verification, err := verifier.Verify(context.Background(), question, "int main() { return 0; }")

	// Assert: успешное исполнение само по себе дает полный балл,
	// сравнение с эталонным исправлением не выполняется
	require.NoError(t, err)
	require.True(t, verification.Ran)
	require.NotNil(t, verification.Score)
	assert.Equal(t, 10.0, *verification.Score)
	assert.True(t, *verification.IsCorrect)
}

func TestVerify_ErrorCorrection_CompileErrorScoresZero(t *testing.T) {
	runner := &fakeRunner{result: &RunResult{Stderr: "main.c:1: error: expected ';'"}}
	verifier := NewVerifier(runner)
	question := &entity.Question{Type: entity.QuestionTypeErrorCorrection, Marks: 10}

	verification, err := verifier.Verify(context.Background(), question, "int main() { return 0 }")

	require.NoError(t, err, "Ошибка компиляции - это классификация, а не исключение")
	require.True(t, verification.Ran)
	require.NotNil(t, verification.Score)
	assert.Equal(t, 0.0, *verification.Score)
	assert.False(t, *verification.IsCorrect)
	assert.Contains(t, verification.ErrorText, "expected ';'", "Текст ошибки сохраняется для показа студенту")
}

func TestVerify_ErrorCorrection_EmptyCodeDoesNotRun(t *testing.T) {
	runner := &fakeRunner{result: &RunResult{}}
	verifier := NewVerifier(runner)
	question := &entity.Question{Type: entity.QuestionTypeErrorCorrection, Marks: 10}

	verification, err := verifier.Verify(context.Background(), question, "   ")

	require.NoError(t, err)
	assert.False(t, verification.Ran, "Пустой код не должен отправляться на исполнение")
	assert.Nil(t, verification.Score, "Без запуска оценка не выставляется")
	assert.Equal(t, MessageNoCode, verification.Feedback)
	assert.Equal(t, 0, runner.executed)
}

func TestVerify_OutputPrediction_RunsTemplateNotAnswer(t *testing.T) {
	// Arrange: для output_prediction исполняется шаблон вопроса,
	// ответ студента - это предсказанный stdout
	runner := &fakeRunner{result: &RunResult{Stdout: "Hello\n"}}
	verifier := NewVerifier(runner)
	question := &entity.Question{
		Type:         entity.QuestionTypeOutputPrediction,
		Marks:        5,
		CodeTemplate: `printf("Hello\n");`,
		Language:     "c",
	}

	// Act
	verification, err := verifier.Verify(context.Background(), question, "Hello")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, runner.lastReq)
	assert.Equal(t, question.CodeTemplate, runner.lastReq.Files[0].Content, "Исполняться должен шаблон, а не ответ")
	require.NotNil(t, verification.Score)
	assert.Equal(t, 5.0, *verification.Score, "Совпадение обрезанного stdout с предсказанием дает полный балл")
	assert.True(t, *verification.IsCorrect)
}

func TestVerify_OutputPrediction_CaseSensitiveComparison(t *testing.T) {
	runner := &fakeRunner{result: &RunResult{Stdout: "Hello"}}
	verifier := NewVerifier(runner)
	question := &entity.Question{
		Type:         entity.QuestionTypeOutputPrediction,
		Marks:        5,
		CodeTemplate: "...",
	}

	verification, err := verifier.Verify(context.Background(), question, "hello")

	require.NoError(t, err)
	require.NotNil(t, verification.Score)
	assert.Equal(t, 0.0, *verification.Score, "Сравнение stdout с предсказанием чувствительно к регистру")
	assert.False(t, *verification.IsCorrect)
}

func TestVerify_OutputPrediction_ExecutionFailureLeavesUngraded(t *testing.T) {
	runner := &fakeRunner{result: &RunResult{TimedOut: true}}
	verifier := NewVerifier(runner)
	question := &entity.Question{
		Type:         entity.QuestionTypeOutputPrediction,
		Marks:        5,
		CodeTemplate: "...",
	}

	verification, err := verifier.Verify(context.Background(), question, "Hello")

	require.NoError(t, err)
	assert.True(t, verification.Ran)
	assert.Nil(t, verification.Score, "При сбое исполнения предсказание нельзя проверить - оценки нет")
	assert.Contains(t, verification.Feedback, "Could not verify prediction")
}

func TestVerify_CodeCompletion_OutputForDisplayOnly(t *testing.T) {
	// Arrange
	runner := &fakeRunner{result: &RunResult{Stdout: "42\n"}}
	verifier := NewVerifier(runner)
	question := &entity.Question{
		Type:         entity.QuestionTypeCodeCompletion,
		Marks:        5,
		CodeTemplate: "int {{b1}} = 42; printf({{b2}});",
		Blanks: entity.BlankList{
			{ID: "b1", Marks: 2},
			{ID: "b2", Marks: 3},
		},
	}

	// Act
	verification, err := verifier.Verify(context.Background(), question, `{"b1":"x","b2":"\"%d\", x"}`)

	// Assert: запуск дает только вывод для отображения, баллы за пропуски
	// выставляет детерминированный слой независимо
	require.NoError(t, err)
	assert.True(t, verification.Ran)
	assert.Nil(t, verification.Score)
	assert.Equal(t, "42\n", verification.Output)
}

func TestVerify_CodeCompletion_NoTemplateDoesNotRun(t *testing.T) {
	runner := &fakeRunner{result: &RunResult{}}
	verifier := NewVerifier(runner)
	question := &entity.Question{Type: entity.QuestionTypeCodeCompletion, Marks: 5}

	verification, err := verifier.Verify(context.Background(), question, `{"b1":"x"}`)

	require.NoError(t, err)
	assert.False(t, verification.Ran)
	assert.Equal(t, "Cannot construct code to run", verification.Feedback)
	assert.Equal(t, 0, runner.executed)
}

func TestVerify_TransportErrorIsPropagated(t *testing.T) {
	// Транспортный сбой до сервиса исполнения - единственный случай,
	// когда Verify возвращает ошибку
	runner := &fakeRunner{err: errors.New("connection refused")}
	verifier := NewVerifier(runner)
	question := &entity.Question{Type: entity.QuestionTypeErrorCorrection, Marks: 5}

	_, err := verifier.Verify(context.Background(), question, "int main() {}")

	require.Error(t, err)
}

func TestVerify_UnsupportedTypeReturnsError(t *testing.T) {
	verifier := NewVerifier(&fakeRunner{})

	_, err := verifier.Verify(context.Background(), &entity.Question{Type: entity.QuestionTypeMCQ}, "a")

	require.Error(t, err)
}
