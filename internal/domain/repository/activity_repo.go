package repository

import (
	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// ActivityRepository определяет методы для работы с активностями
type ActivityRepository interface {
	Create(activity *entity.Activity) error
	GetByID(id uint) (*entity.Activity, error)
	// GetWithQuestions возвращает активность с разделами и вопросами
	// в авторском порядке (разделы и вопросы по position)
	GetWithQuestions(id uint) (*entity.Activity, error)
	List(teacherID uint, limit, offset int) ([]entity.Activity, int64, error)
	UpdateStatus(id uint, status string) error
	Delete(id uint) error

	CreateSection(section *entity.Section) error
	GetSectionByID(id uint) (*entity.Section, error)
}
