package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

func mcqQuestion() *entity.Question {
	return &entity.Question{
		ID:    1,
		Type:  entity.QuestionTypeMCQ,
		Marks: 10,
		Options: entity.OptionList{
			{ID: "a", Text: "Вариант A", IsCorrect: true},
			{ID: "b", Text: "Вариант B", IsCorrect: false},
			{ID: "c", Text: "Вариант C", IsCorrect: false},
		},
	}
}

func TestRegistry_SingleSelect_CorrectOption(t *testing.T) {
	// Arrange
	registry := NewRegistry()

	// Act
	result, err := registry.Evaluate(mcqQuestion(), "a")

	// Assert: балл равен Marks тогда и только тогда, когда у выбранного
	// варианта установлен флаг is_correct
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 10.0, result.Score)
	assert.True(t, result.IsCorrect)
}

func TestRegistry_SingleSelect_WrongOption(t *testing.T) {
	registry := NewRegistry()

	result, err := registry.Evaluate(mcqQuestion(), "b")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 0.0, result.Score, "Неверный вариант должен давать 0 баллов")
	assert.False(t, result.IsCorrect)
}

func TestRegistry_SingleSelect_UnknownOption(t *testing.T) {
	registry := NewRegistry()

	result, err := registry.Evaluate(mcqQuestion(), "zzz")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 0.0, result.Score, "Несуществующий ID варианта - неверный ответ, не ошибка")
}

func checkboxQuestion() *entity.Question {
	return &entity.Question{
		ID:    2,
		Type:  entity.QuestionTypeCheckbox,
		Marks: 6,
		Options: entity.OptionList{
			{ID: "a", IsCorrect: true},
			{ID: "b", IsCorrect: false},
			{ID: "c", IsCorrect: true},
			{ID: "d", IsCorrect: false},
		},
	}
}

func TestRegistry_MultiSelect_ExactMatch(t *testing.T) {
	registry := NewRegistry()

	// Порядок выбора не важен - сравниваются множества
	result, err := registry.Evaluate(checkboxQuestion(), "c,a")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 6.0, result.Score)
	assert.True(t, result.IsCorrect)
}

func TestRegistry_MultiSelect_SubsetScoresZero(t *testing.T) {
	registry := NewRegistry()

	// Строгое подмножество правильных вариантов: частичного зачета нет
	result, err := registry.Evaluate(checkboxQuestion(), "a")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 0.0, result.Score, "Подмножество правильных вариантов должно давать 0")
	assert.False(t, result.IsCorrect)
}

func TestRegistry_MultiSelect_SupersetScoresZero(t *testing.T) {
	registry := NewRegistry()

	result, err := registry.Evaluate(checkboxQuestion(), "a,c,b")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 0.0, result.Score, "Надмножество правильных вариантов должно давать 0")
}

func TestRegistry_TextMatch_SynonymsCaseInsensitive(t *testing.T) {
	// Arrange: запятая в correct_answer разделяет синонимы,
	// сравнение с ними без учета регистра
	question := &entity.Question{
		ID:            3,
		Type:          entity.QuestionTypeFillBlanks,
		Marks:         5,
		CorrectAnswer: "print, println",
	}
	registry := NewRegistry()

	// Act & Assert
	for _, raw := range []string{"Print", "PRINTLN", "println"} {
		result, err := registry.Evaluate(question, raw)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, 5.0, result.Score, "Ответ %q должен совпасть без учета регистра", raw)
		assert.True(t, result.IsCorrect)
	}
}

func TestRegistry_TextMatch_SingleAnswerCaseSensitive(t *testing.T) {
	// Единственный эталон без запятой сравнивается с учетом регистра
	question := &entity.Question{
		ID:            4,
		Type:          entity.QuestionTypeShortAnswer,
		Marks:         3,
		CorrectAnswer: "Hello World",
	}
	registry := NewRegistry()

	correct, err := registry.Evaluate(question, "Hello World")
	require.NoError(t, err)
	assert.True(t, correct.IsCorrect)

	wrongCase, err := registry.Evaluate(question, "hello world")
	require.NoError(t, err)
	assert.False(t, wrongCase.IsCorrect, "Несовпадение регистра при единственном эталоне - неверный ответ")
}

func TestRegistry_TextMatch_TrimsWhitespace(t *testing.T) {
	question := &entity.Question{
		Type:          entity.QuestionTypeShortAnswer,
		Marks:         2,
		CorrectAnswer: "stack",
	}
	registry := NewRegistry()

	result, err := registry.Evaluate(question, "  stack  ")

	require.NoError(t, err)
	assert.True(t, result.IsCorrect, "Пробельное обрамление ответа должно игнорироваться")
}

func numericalQuestion(tolerance *float64) *entity.Question {
	return &entity.Question{
		ID:            5,
		Type:          entity.QuestionTypeNumerical,
		Marks:         5,
		CorrectAnswer: "10",
		Tolerance:     tolerance,
	}
}

func TestRegistry_Numeric_WithinTolerance(t *testing.T) {
	tolerance := 0.5
	registry := NewRegistry()

	// correct=10, tolerance=0.5, answer="10.4" => верно
	result, err := registry.Evaluate(numericalQuestion(&tolerance), "10.4")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 5.0, result.Score)
}

func TestRegistry_Numeric_OutsideTolerance(t *testing.T) {
	tolerance := 0.5
	registry := NewRegistry()

	// answer="10.6" => |10.6 - 10| > 0.5 => неверно
	result, err := registry.Evaluate(numericalQuestion(&tolerance), "10.6")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 0.0, result.Score)
}

func TestRegistry_Numeric_ExactEqualityWithoutTolerance(t *testing.T) {
	registry := NewRegistry()

	exact, err := registry.Evaluate(numericalQuestion(nil), "10")
	require.NoError(t, err)
	assert.True(t, exact.IsCorrect)

	off, err := registry.Evaluate(numericalQuestion(nil), "10.0001")
	require.NoError(t, err)
	assert.False(t, off.IsCorrect, "Без допуска требуется точное равенство")
}

func TestRegistry_Numeric_NonNumericInput(t *testing.T) {
	tolerance := 0.5
	registry := NewRegistry()

	// Нечисловой ввод - неверный ответ, не ошибка
	result, err := registry.Evaluate(numericalQuestion(&tolerance), "десять")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 0.0, result.Score)
}

func TestRegistry_Unanswered_AlwaysZeroNeverError(t *testing.T) {
	registry := NewRegistry()

	questions := []*entity.Question{
		mcqQuestion(),
		checkboxQuestion(),
		numericalQuestion(nil),
		{Type: entity.QuestionTypeShortAnswer, Marks: 5, CorrectAnswer: "x"},
	}

	for _, q := range questions {
		result, err := registry.Evaluate(q, "   ")
		require.NoError(t, err, "Пустой ответ никогда не должен приводить к ошибке")
		require.NotNil(t, result)
		assert.Equal(t, 0.0, result.Score)
		assert.Equal(t, FeedbackNoAnswer, result.Feedback)
	}
}

func TestRegistry_NotAutoGradable_ReturnsNil(t *testing.T) {
	registry := NewRegistry()

	for _, qType := range []string{
		entity.QuestionTypeParagraph,
		entity.QuestionTypeTraceExecution,
		entity.QuestionTypeJustification,
		entity.QuestionTypeErrorCorrection,
		entity.QuestionTypeFileUpload,
	} {
		result, err := registry.Evaluate(&entity.Question{Type: qType, Marks: 5}, "какой-то ответ")
		require.NoError(t, err)
		assert.Nil(t, result, "Тип %s не должен оцениваться автоматически", qType)
	}
}

func TestRegistry_TextMatch_DegenerateCorrectAnswer(t *testing.T) {
	registry := NewRegistry()

	// Эталон из одних запятых и пробелов не дает ни одного варианта
	// сравнения: вопрос уходит на ручную проверку, а не в панику
	for _, correctAnswer := range []string{",", " , ,", ""} {
		question := &entity.Question{
			Type:          entity.QuestionTypeShortAnswer,
			Marks:         5,
			CorrectAnswer: correctAnswer,
		}
		result, err := registry.Evaluate(question, "anything")
		require.NoError(t, err)
		assert.Nil(t, result, "Эталон %q не поддается автопроверке", correctAnswer)
	}
}

func TestRegistry_FillBlanks_WithBlankStructure(t *testing.T) {
	// fill_blanks со структурой пропусков оценивается попропусково,
	// с частичным зачетом
	question := &entity.Question{
		Type:  entity.QuestionTypeFillBlanks,
		Marks: 5,
		Blanks: entity.BlankList{
			{ID: "b1", Marks: 2, Accepted: []string{"for"}},
			{ID: "b2", Marks: 3, Accepted: []string{"range"}},
		},
	}
	registry := NewRegistry()

	partial, err := registry.Evaluate(question, `{"b1": "for", "b2": "while"}`)
	require.NoError(t, err)
	require.NotNil(t, partial)
	assert.Equal(t, 2.0, partial.Score, "Совпавший пропуск дает свои баллы")
	assert.False(t, partial.IsCorrect)

	full, err := registry.Evaluate(question, `{"b1": "for", "b2": "range"}`)
	require.NoError(t, err)
	require.NotNil(t, full)
	assert.Equal(t, 5.0, full.Score)
	assert.True(t, full.IsCorrect)
}

func TestRegistry_FillBlanks_WithoutBlanksFallsBackToText(t *testing.T) {
	question := &entity.Question{
		Type:          entity.QuestionTypeFillBlanks,
		Marks:         3,
		CorrectAnswer: "append",
	}
	registry := NewRegistry()

	result, err := registry.Evaluate(question, "append")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsCorrect, "Без структуры пропусков ответ сравнивается с эталоном")
}
