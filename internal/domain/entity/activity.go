package entity

import (
	"time"
)

// Константы статусов активности
const (
	ActivityStatusDraft     = "draft"
	ActivityStatusPublished = "published"
	ActivityStatusClosed    = "closed"
)

// Activity представляет оценочную активность, созданную преподавателем
type Activity struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:100;not null" json:"title"`
	Description string    `gorm:"size:500;not null;default:''" json:"description"`
	Status      string    `gorm:"size:20;not null;default:'draft';index" json:"status"`
	TeacherID   uint      `gorm:"not null;index" json:"teacher_id"`
	Sections    []Section `gorm:"foreignKey:ActivityID" json:"sections,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Activity) TableName() string {
	return "activities"
}

// IsPublished проверяет, доступна ли активность студентам
func (a *Activity) IsPublished() bool {
	return a.Status == ActivityStatusPublished
}

// IsDraft проверяет, находится ли активность в черновике
func (a *Activity) IsDraft() bool {
	return a.Status == ActivityStatusDraft
}

// Section представляет раздел активности. Каждый вопрос принадлежит
// ровно одному разделу.
type Section struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ActivityID uint       `gorm:"not null;index" json:"activity_id"`
	Title      string     `gorm:"size:100;not null" json:"title"`
	Position   int        `gorm:"not null;default:0" json:"position"`
	Questions  []Question `gorm:"foreignKey:SectionID" json:"questions,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Section) TableName() string {
	return "sections"
}
