package entity

import (
	"time"
)

// Константы статусов попытки
const (
	SubmissionStatusInProgress = "in_progress"
	SubmissionStatusSubmitted  = "submitted"
	SubmissionStatusEvaluated  = "evaluated"
)

// Submission представляет одну попытку студента пройти активность.
// Инвариант: не более одной попытки на пару (activity_id, student_id);
// переходы статуса монотонны: in_progress -> submitted -> evaluated.
type Submission struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ActivityID  uint       `gorm:"not null;index;uniqueIndex:idx_activity_student" json:"activity_id"`
	StudentID   uint       `gorm:"not null;index;uniqueIndex:idx_activity_student" json:"student_id"`
	Status      string     `gorm:"size:20;not null;default:'in_progress';index" json:"status"`
	TotalScore  float64    `gorm:"not null;default:0" json:"total_score"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Submission) TableName() string {
	return "submissions"
}

// IsInProgress проверяет, открыта ли попытка для ответов студента
func (s *Submission) IsInProgress() bool {
	return s.Status == SubmissionStatusInProgress
}

// IsSubmitted проверяет, зафиксирована ли попытка студентом
func (s *Submission) IsSubmitted() bool {
	return s.Status == SubmissionStatusSubmitted
}

// IsEvaluated проверяет, завершено ли итоговое оценивание попытки
func (s *Submission) IsEvaluated() bool {
	return s.Status == SubmissionStatusEvaluated
}

// CanTransitionTo проверяет допустимость перехода статуса.
// Переходы односторонние, откат запрещен.
func (s *Submission) CanTransitionTo(status string) bool {
	switch s.Status {
	case SubmissionStatusInProgress:
		return status == SubmissionStatusSubmitted
	case SubmissionStatusSubmitted:
		return status == SubmissionStatusEvaluated
	default:
		return false
	}
}
