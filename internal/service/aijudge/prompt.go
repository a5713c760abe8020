package aijudge

import (
	"fmt"
	"strings"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// BuildRubric синтезирует рубрику оценивания для внешнего AI-судьи.
// Критичное правило: при заданных expected_keywords совпадение ответа
// (точное или близкий синоним) с ЛЮБЫМ одним ключевым словом обязывает
// судью выставить полный балл вопроса, перекрывая сравнение с эталонным
// ответом. Только без списка ключевых слов судья переходит к частичному
// оцениванию по рубрике.
func BuildRubric(question *entity.Question) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Grade the student's answer on a scale from 0 to %d.\n", question.Marks)

	if question.HasExpectedKeywords() {
		fmt.Fprintf(&b,
			"MANDATORY OVERRIDE: if the student's answer mentions any single one of the following keywords "+
				"(exact match or a close synonym), you MUST award the full score of %d, "+
				"regardless of how the answer compares to the model answer. Keywords: %s.\n",
			question.Marks, strings.Join(question.ExpectedKeywords, ", "))
		b.WriteString("Only when none of the keywords match may you grade against the rubric below.\n")
	}

	b.WriteString("Otherwise award partial credit for partially correct answers: ")
	b.WriteString("grade accuracy and completeness against the model answer when one is given, ")
	b.WriteString("or against the question itself when it is not.\n")
	b.WriteString(`Reply with a single JSON object: {"score": <number>, "feedback": "<short explanation for the student>"}. No other text.`)

	return b.String()
}

// BuildUserPrompt собирает пользовательскую часть запроса к судье:
// текст вопроса, ответ студента и, если задан, эталонный ответ
func BuildUserPrompt(question *entity.Question, studentAnswer string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question:\n%s\n\n", question.Text)
	if question.ModelAnswer != "" {
		fmt.Fprintf(&b, "Model answer:\n%s\n\n", question.ModelAnswer)
	}
	fmt.Fprintf(&b, "Student answer:\n%s\n", studentAnswer)

	return b.String()
}
