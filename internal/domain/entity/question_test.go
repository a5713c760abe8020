package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuestion_CorrectOptionIDs(t *testing.T) {
	// Arrange
	question := &Question{
		ID:   1,
		Type: QuestionTypeCheckbox,
		Options: OptionList{
			{ID: "a", Text: "Стек", IsCorrect: true},
			{ID: "b", Text: "Очередь", IsCorrect: false},
			{ID: "c", Text: "Дек", IsCorrect: true},
		},
	}

	// Act
	ids := question.CorrectOptionIDs()

	// Assert
	assert.Equal(t, []string{"a", "c"}, ids, "Должны вернуться ID только правильных вариантов")
}

func TestQuestion_OptionByID(t *testing.T) {
	// Arrange
	question := &Question{
		Options: OptionList{
			{ID: "a", Text: "42", IsCorrect: true},
			{ID: "b", Text: "43", IsCorrect: false},
		},
	}

	// Act & Assert: существующий вариант
	opt, ok := question.OptionByID("a")
	assert.True(t, ok)
	assert.True(t, opt.IsCorrect)

	// Act & Assert: несуществующий вариант
	_, ok = question.OptionByID("z")
	assert.False(t, ok, "Несуществующий ID не должен находиться")
}

func TestQuestion_BlankMarksSum(t *testing.T) {
	// Arrange
	question := &Question{
		Type:  QuestionTypeCodeCompletion,
		Marks: 5,
		Blanks: BlankList{
			{ID: "b1", Marks: 2, Accepted: []string{"int"}},
			{ID: "b2", Marks: 3, Accepted: []string{"x"}},
		},
	}

	// Act & Assert: сумма баллов пропусков равна баллам вопроса
	assert.True(t, question.HasBlanks())
	assert.Equal(t, 5, question.BlankMarksSum(), "Сумма баллов пропусков должна равняться Marks")
}

func TestQuestion_CorrectAnswerAlternatives_Synonyms(t *testing.T) {
	// Arrange: запятая разделяет синонимы
	question := &Question{CorrectAnswer: "print, println"}

	// Act
	alts := question.CorrectAnswerAlternatives()

	// Assert
	assert.Equal(t, []string{"print", "println"}, alts)
}

func TestQuestion_CorrectAnswerAlternatives_SingleAnswer(t *testing.T) {
	// Arrange: без запятой — единственный точный вариант
	question := &Question{CorrectAnswer: "Hello World"}

	// Act
	alts := question.CorrectAnswerAlternatives()

	// Assert
	assert.Equal(t, []string{"Hello World"}, alts, "Единственный ответ не должен разбиваться")
}

func TestQuestion_IsExecutionVerified(t *testing.T) {
	// Act & Assert: типы с исполнением кода
	assert.True(t, (&Question{Type: QuestionTypeCodeCompletion}).IsExecutionVerified())
	assert.True(t, (&Question{Type: QuestionTypeOutputPrediction}).IsExecutionVerified())
	assert.True(t, (&Question{Type: QuestionTypeErrorCorrection}).IsExecutionVerified())

	// Assert: прочие типы
	assert.False(t, (&Question{Type: QuestionTypeMCQ}).IsExecutionVerified())
	assert.False(t, (&Question{Type: QuestionTypeParagraph}).IsExecutionVerified())
}

func TestQuestion_CorrectAnswerAlternatives_OnlySeparators(t *testing.T) {
	// Arrange: эталон из одних запятых и пробелов
	for _, correctAnswer := range []string{",", " , ,", "", "   "} {
		question := &Question{CorrectAnswer: correctAnswer}

		// Act & Assert
		assert.Empty(t, question.CorrectAnswerAlternatives(),
			"Эталон %q не должен давать вариантов сравнения", correctAnswer)
	}
}
