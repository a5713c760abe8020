package postgres

import (
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// SubmissionRepo реализует repository.SubmissionRepository
type SubmissionRepo struct {
	db *gorm.DB
}

// NewSubmissionRepo создает новый репозиторий попыток
func NewSubmissionRepo(db *gorm.DB) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

// Create создает новую попытку. Уникальный индекс (activity_id, student_id)
// в БД - последняя линия защиты от дубликатов при параллельном создании:
// нарушение транслируется в apperrors.ErrConflict.
func (r *SubmissionRepo) Create(submission *entity.Submission) error {
	err := r.db.Create(submission).Error
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // 23505 - unique_violation
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID возвращает попытку по ID
func (r *SubmissionRepo) GetByID(id uint) (*entity.Submission, error) {
	var submission entity.Submission
	err := r.db.First(&submission, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &submission, nil
}

// GetByActivityAndStudent возвращает попытку студента для активности
func (r *SubmissionRepo) GetByActivityAndStudent(activityID, studentID uint) (*entity.Submission, error) {
	var submission entity.Submission
	err := r.db.Where("activity_id = ? AND student_id = ?", activityID, studentID).First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &submission, nil
}

// GetByActivityID возвращает попытки для активности с пагинацией.
// Непустой status сужает выборку (например, submitted - ожидающие проверки).
func (r *SubmissionRepo) GetByActivityID(activityID uint, status string, limit, offset int) ([]entity.Submission, int64, error) {
	var submissions []entity.Submission
	var total int64

	query := r.db.Model(&entity.Submission{}).Where("activity_id = ?", activityID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("id").Limit(limit).Offset(offset).Find(&submissions).Error
	if err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

// UpdateStatus точечно обновляет статус, итоговый балл и время фиксации
func (r *SubmissionRepo) UpdateStatus(id uint, status string, totalScore float64, submittedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":      status,
		"total_score": totalScore,
	}
	if submittedAt != nil {
		updates["submitted_at"] = *submittedAt
	}

	result := r.db.Model(&entity.Submission{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpsertAnswer идемпотентно сохраняет ответ по ключу (submission_id, question_id).
// Повторный submit перезаписывает существующую строку, а не создает дубликат.
func (r *SubmissionRepo) UpsertAnswer(answer *entity.SubmissionAnswer) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"raw_answer", "score", "is_correct", "feedback", "graded_by",
			"executed", "exec_output", "exec_error", "updated_at",
		}),
	}).Create(answer).Error
}

// GetAnswer возвращает ответ попытки на вопрос
func (r *SubmissionRepo) GetAnswer(submissionID, questionID uint) (*entity.SubmissionAnswer, error) {
	var answer entity.SubmissionAnswer
	err := r.db.Where("submission_id = ? AND question_id = ?", submissionID, questionID).First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &answer, nil
}

// GetAnswers возвращает все ответы попытки
func (r *SubmissionRepo) GetAnswers(submissionID uint) ([]entity.SubmissionAnswer, error) {
	var answers []entity.SubmissionAnswer
	err := r.db.Where("submission_id = ?", submissionID).Order("question_id").Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}
