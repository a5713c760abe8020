package repository

import (
	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	Create(question *entity.Question) error
	// CreateBatch сохраняет пакет вопросов в одной транзакции:
	// либо весь пакет, либо ничего
	CreateBatch(questions []entity.Question) error
	GetByID(id uint) (*entity.Question, error)
	// GetByActivityID возвращает все вопросы активности в порядке
	// разделов и позиций внутри раздела
	GetByActivityID(activityID uint) ([]entity.Question, error)
	Update(question *entity.Question) error
	Delete(id uint) error
}
