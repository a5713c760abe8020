package entity

import (
	"time"
)

// Источники оценки ответа
const (
	GradedByAuto      = "auto"
	GradedByExecution = "execution"
	GradedByAI        = "ai"
	GradedByManual    = "manual"
)

// SubmissionAnswer представляет ответ студента на один вопрос попытки.
// Уникальный ключ (submission_id, question_id) делает запись идемпотентной:
// повторные submit перезаписывают строку, а не дублируют ее.
type SubmissionAnswer struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	SubmissionID uint `gorm:"not null;index;uniqueIndex:idx_submission_question" json:"submission_id"`
	QuestionID   uint `gorm:"not null;index;uniqueIndex:idx_submission_question" json:"question_id"`

	// Сырой ответ студента: текст, список ID вариантов через запятую
	// или JSON-карта пропусков
	RawAnswer string `gorm:"type:text" json:"raw_answer"`

	// Score == nil означает "еще не оценено" (ожидает AI/ручной проверки).
	// Это состояние отличается от нулевой оценки за неверный ответ.
	Score     *float64 `json:"score,omitempty"`
	IsCorrect *bool    `json:"is_correct,omitempty"`
	Feedback  string   `gorm:"type:text" json:"feedback"`
	GradedBy  string   `gorm:"size:20;not null;default:''" json:"graded_by"`

	// Состояние исполнения кода (для code_completion/output_prediction/error_correction)
	Executed   bool   `gorm:"not null;default:false" json:"executed"`
	ExecOutput string `gorm:"type:text" json:"exec_output,omitempty"`
	ExecError  string `gorm:"type:text" json:"exec_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (SubmissionAnswer) TableName() string {
	return "submission_answers"
}

// IsGraded проверяет, получил ли ответ итоговую оценку
func (a *SubmissionAnswer) IsGraded() bool {
	return a.Score != nil
}
