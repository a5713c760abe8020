package dto

import (
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// SubmissionResponse представляет попытку в формате для ответа клиенту
type SubmissionResponse struct {
	ID          uint       `json:"id"`
	ActivityID  uint       `json:"activity_id"`
	StudentID   uint       `json:"student_id"`
	Status      string     `json:"status"`
	TotalScore  float64    `json:"total_score"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AnswerResponse представляет оцененный ответ на один вопрос
type AnswerResponse struct {
	QuestionID uint     `json:"question_id"`
	RawAnswer  string   `json:"raw_answer"`
	Score      *float64 `json:"score,omitempty"`
	IsCorrect  *bool    `json:"is_correct,omitempty"`
	Feedback   string   `json:"feedback"`
	GradedBy   string   `json:"graded_by,omitempty"`
	Executed   bool     `json:"executed"`
	ExecOutput string   `json:"exec_output,omitempty"`
	ExecError  string   `json:"exec_error,omitempty"`
}

// SubmissionResultResponse объединяет попытку с ответами и предупреждениями
type SubmissionResultResponse struct {
	Submission *SubmissionResponse `json:"submission"`
	Answers    []AnswerResponse    `json:"answers"`
	Warnings   []string            `json:"warnings,omitempty"`
}

// PaginatedSubmissionResponse представляет пагинированный список попыток
type PaginatedSubmissionResponse struct {
	Submissions []*SubmissionResponse `json:"submissions"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	PerPage     int                   `json:"per_page"`
}

// NewSubmissionResponse создает DTO для попытки
func NewSubmissionResponse(s *entity.Submission) *SubmissionResponse {
	if s == nil {
		return nil
	}
	return &SubmissionResponse{
		ID:          s.ID,
		ActivityID:  s.ActivityID,
		StudentID:   s.StudentID,
		Status:      s.Status,
		TotalScore:  s.TotalScore,
		SubmittedAt: s.SubmittedAt,
		CreatedAt:   s.CreatedAt,
	}
}

// NewAnswerResponse создает DTO для ответа на вопрос
func NewAnswerResponse(a *entity.SubmissionAnswer) AnswerResponse {
	return AnswerResponse{
		QuestionID: a.QuestionID,
		RawAnswer:  a.RawAnswer,
		Score:      a.Score,
		IsCorrect:  a.IsCorrect,
		Feedback:   a.Feedback,
		GradedBy:   a.GradedBy,
		Executed:   a.Executed,
		ExecOutput: a.ExecOutput,
		ExecError:  a.ExecError,
	}
}

// NewAnswerResponses создает список DTO ответов
func NewAnswerResponses(answers []entity.SubmissionAnswer) []AnswerResponse {
	out := make([]AnswerResponse, len(answers))
	for i := range answers {
		out[i] = NewAnswerResponse(&answers[i])
	}
	return out
}

// NewPaginatedSubmissionResponse создает пагинированный DTO списка попыток
func NewPaginatedSubmissionResponse(submissions []entity.Submission, total int64, page, perPage int) *PaginatedSubmissionResponse {
	out := make([]*SubmissionResponse, len(submissions))
	for i := range submissions {
		out[i] = NewSubmissionResponse(&submissions[i])
	}
	return &PaginatedSubmissionResponse{
		Submissions: out,
		Total:       total,
		Page:        page,
		PerPage:     perPage,
	}
}
