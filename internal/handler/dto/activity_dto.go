package dto

import (
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// OptionView представляет вариант ответа без признака правильности
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// BlankView представляет пропуск без списка принимаемых ответов
type BlankView struct {
	ID    string `json:"id"`
	Marks int    `json:"marks"`
}

// QuestionResponse представляет вопрос в формате для ответа клиенту.
// Данные для проверки (правильные варианты, эталоны, принимаемые ответы
// пропусков) в ответ не попадают.
type QuestionResponse struct {
	ID              uint         `json:"id"`
	SectionID       uint         `json:"section_id"`
	Type            string       `json:"type"`
	Text            string       `json:"text"`
	Marks           int          `json:"marks"`
	EvaluationMode  string       `json:"evaluation_mode"`
	Position        int          `json:"position"`
	Options         []OptionView `json:"options,omitempty"`
	Blanks          []BlankView  `json:"blanks,omitempty"`
	CodeTemplate    string       `json:"code_template,omitempty"`
	Language        string       `json:"language,omitempty"`
	LanguageVersion string       `json:"language_version,omitempty"`
	FaultyCode      string       `json:"faulty_code,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// SectionResponse представляет раздел активности
type SectionResponse struct {
	ID        uint               `json:"id"`
	Title     string             `json:"title"`
	Position  int                `json:"position"`
	Questions []QuestionResponse `json:"questions,omitempty"`
}

// ActivityResponse представляет активность в формате для ответа клиенту
type ActivityResponse struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	TeacherID   uint              `json:"teacher_id"`
	Sections    []SectionResponse `json:"sections,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewQuestionResponse создает DTO для вопроса
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	options := make([]OptionView, len(q.Options))
	for i, opt := range q.Options {
		options[i] = OptionView{ID: opt.ID, Text: opt.Text}
	}

	blanks := make([]BlankView, len(q.Blanks))
	for i, b := range q.Blanks {
		blanks[i] = BlankView{ID: b.ID, Marks: b.Marks}
	}

	return QuestionResponse{
		ID:              q.ID,
		SectionID:       q.SectionID,
		Type:            q.Type,
		Text:            q.Text,
		Marks:           q.Marks,
		EvaluationMode:  q.EvaluationMode,
		Position:        q.Position,
		Options:         options,
		Blanks:          blanks,
		CodeTemplate:    q.CodeTemplate,
		Language:        q.Language,
		LanguageVersion: q.LanguageVersion,
		FaultyCode:      q.FaultyCode,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

// NewActivityResponse создает DTO для активности
func NewActivityResponse(activity *entity.Activity, includeQuestions bool) *ActivityResponse {
	if activity == nil {
		return nil
	}

	var sections []SectionResponse
	if len(activity.Sections) > 0 {
		sections = make([]SectionResponse, len(activity.Sections))
		for i, s := range activity.Sections {
			section := SectionResponse{
				ID:       s.ID,
				Title:    s.Title,
				Position: s.Position,
			}
			if includeQuestions {
				section.Questions = make([]QuestionResponse, len(s.Questions))
				for j := range s.Questions {
					section.Questions[j] = NewQuestionResponse(&s.Questions[j])
				}
			}
			sections[i] = section
		}
	}

	return &ActivityResponse{
		ID:          activity.ID,
		Title:       activity.Title,
		Description: activity.Description,
		Status:      activity.Status,
		TeacherID:   activity.TeacherID,
		Sections:    sections,
		CreatedAt:   activity.CreatedAt,
		UpdatedAt:   activity.UpdatedAt,
	}
}

// NewListActivityResponse создает список DTO активностей
func NewListActivityResponse(activities []entity.Activity) []*ActivityResponse {
	out := make([]*ActivityResponse, len(activities))
	for i := range activities {
		out[i] = NewActivityResponse(&activities[i], false)
	}
	return out
}
