package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// ActivityRepo реализует repository.ActivityRepository
type ActivityRepo struct {
	db *gorm.DB
}

// NewActivityRepo создает новый репозиторий активностей
func NewActivityRepo(db *gorm.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// Create создает новую активность
func (r *ActivityRepo) Create(activity *entity.Activity) error {
	return r.db.Create(activity).Error
}

// GetByID возвращает активность по ID
func (r *ActivityRepo) GetByID(id uint) (*entity.Activity, error) {
	var activity entity.Activity
	err := r.db.First(&activity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// GetWithQuestions возвращает активность с разделами и вопросами
// в авторском порядке
func (r *ActivityRepo) GetWithQuestions(id uint) (*entity.Activity, error) {
	var activity entity.Activity
	err := r.db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, id")
		}).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, id")
		}).
		First(&activity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// List возвращает активности преподавателя с пагинацией.
// teacherID == 0 означает "все активности".
func (r *ActivityRepo) List(teacherID uint, limit, offset int) ([]entity.Activity, int64, error) {
	var activities []entity.Activity
	var total int64

	query := r.db.Model(&entity.Activity{})
	if teacherID != 0 {
		query = query.Where("teacher_id = ?", teacherID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&activities).Error
	if err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}

// UpdateStatus точечно обновляет статус активности (без full Save)
func (r *ActivityRepo) UpdateStatus(id uint, status string) error {
	result := r.db.Model(&entity.Activity{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete удаляет активность
func (r *ActivityRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Activity{}, id).Error
}

// CreateSection создает раздел активности
func (r *ActivityRepo) CreateSection(section *entity.Section) error {
	return r.db.Create(section).Error
}

// GetSectionByID возвращает раздел по ID
func (r *ActivityRepo) GetSectionByID(id uint) (*entity.Section, error) {
	var section entity.Section
	err := r.db.First(&section, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}
