package repository

import (
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// SubmissionRepository определяет методы для работы с попытками и ответами
type SubmissionRepository interface {
	// Create создает попытку. При нарушении уникального индекса
	// (activity_id, student_id) возвращает apperrors.ErrConflict.
	Create(submission *entity.Submission) error
	GetByID(id uint) (*entity.Submission, error)
	GetByActivityAndStudent(activityID, studentID uint) (*entity.Submission, error)
	// GetByActivityID возвращает попытки активности с пагинацией.
	// Непустой status сужает выборку до попыток в этом статусе.
	GetByActivityID(activityID uint, status string, limit, offset int) ([]entity.Submission, int64, error)
	// UpdateStatus точечно обновляет статус, итоговый балл и время фиксации
	UpdateStatus(id uint, status string, totalScore float64, submittedAt *time.Time) error

	// UpsertAnswer идемпотентно сохраняет ответ по ключу
	// (submission_id, question_id): повторный вызов перезаписывает
	// существующую строку, а не создает дубликат.
	UpsertAnswer(answer *entity.SubmissionAnswer) error
	GetAnswer(submissionID, questionID uint) (*entity.SubmissionAnswer, error)
	GetAnswers(submissionID uint) ([]entity.SubmissionAnswer, error)
}
