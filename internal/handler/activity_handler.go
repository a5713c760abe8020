package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/handler/dto"
	"github.com/yourusername/assessment-api/internal/middleware"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
	"github.com/yourusername/assessment-api/internal/service"
)

// ActivityHandler обрабатывает преподавательские запросы: авторинг
// активностей, публикация, просмотр и экспорт результатов
type ActivityHandler struct {
	activityService   *service.ActivityService
	submissionService *service.SubmissionService
}

// NewActivityHandler создает новый обработчик активностей
func NewActivityHandler(
	activityService *service.ActivityService,
	submissionService *service.SubmissionService,
) *ActivityHandler {
	return &ActivityHandler{
		activityService:   activityService,
		submissionService: submissionService,
	}
}

// CreateActivityRequest представляет запрос на создание активности
type CreateActivityRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=100"`
	Description string `json:"description" binding:"omitempty,max=500"`
}

// CreateActivity обрабатывает запрос на создание активности
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var req CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	teacherID := c.MustGet(middleware.ContextTeacherID).(uint)

	activity, err := h.activityService.CreateActivity(teacherID, req.Title, req.Description)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewActivityResponse(activity, false))
}

// AddSectionRequest представляет запрос на добавление раздела
type AddSectionRequest struct {
	Title    string `json:"title" binding:"required,min=1,max=100"`
	Position int    `json:"position" binding:"min=0"`
}

// AddSection обрабатывает запрос на добавление раздела к активности
func (h *ActivityHandler) AddSection(c *gin.Context) {
	activityID := c.MustGet("activityID").(uint)

	var req AddSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	section, err := h.activityService.AddSection(activityID, req.Title, req.Position)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, section)
}

// QuestionRequest представляет запрос на создание или обновление вопроса.
// Включает скрытые от студентов данные проверки: правильные варианты,
// эталонный ответ, принимаемые ответы пропусков, ключевые слова.
type QuestionRequest struct {
	SectionID      uint   `json:"section_id" binding:"required"`
	Type           string `json:"type" binding:"required"`
	Text           string `json:"text" binding:"required,min=3"`
	Marks          int    `json:"marks" binding:"required,min=1"`
	EvaluationMode string `json:"evaluation_mode" binding:"omitempty,oneof=auto ai manual"`
	Position       int    `json:"position" binding:"min=0"`

	Options       []entity.Option `json:"options,omitempty"`
	CorrectAnswer string          `json:"correct_answer,omitempty"`
	Tolerance     *float64        `json:"tolerance,omitempty"`
	Blanks        []entity.Blank  `json:"blanks,omitempty"`
	CaseSensitive bool            `json:"case_sensitive,omitempty"`

	ModelAnswer      string   `json:"model_answer,omitempty"`
	ExpectedKeywords []string `json:"expected_keywords,omitempty"`

	CodeTemplate    string `json:"code_template,omitempty"`
	Language        string `json:"language,omitempty"`
	LanguageVersion string `json:"language_version,omitempty"`
	FaultyCode      string `json:"faulty_code,omitempty"`
	CorrectionCode  string `json:"correction_code,omitempty"`
}

func (r *QuestionRequest) toEntity() *entity.Question {
	mode := r.EvaluationMode
	if mode == "" {
		mode = entity.EvaluationModeAuto
	}
	return &entity.Question{
		SectionID:        r.SectionID,
		Type:             r.Type,
		Text:             r.Text,
		Marks:            r.Marks,
		EvaluationMode:   mode,
		Position:         r.Position,
		Options:          entity.OptionList(r.Options),
		CorrectAnswer:    r.CorrectAnswer,
		Tolerance:        r.Tolerance,
		Blanks:           entity.BlankList(r.Blanks),
		CaseSensitive:    r.CaseSensitive,
		ModelAnswer:      r.ModelAnswer,
		ExpectedKeywords: entity.StringArray(r.ExpectedKeywords),
		CodeTemplate:     r.CodeTemplate,
		Language:         r.Language,
		LanguageVersion:  r.LanguageVersion,
		FaultyCode:       r.FaultyCode,
		CorrectionCode:   r.CorrectionCode,
	}
}

// AddQuestion обрабатывает запрос на добавление вопроса
func (h *ActivityHandler) AddQuestion(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.activityService.AddQuestion(req.toEntity())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// AddQuestionsRequest представляет запрос на пакетный импорт вопросов раздела.
// SectionID вопросов берется из URL, значение в теле игнорируется.
type AddQuestionsRequest struct {
	Questions []QuestionRequest `json:"questions" binding:"required,min=1"`
}

// AddQuestions импортирует пакет вопросов в раздел одним запросом.
// Сохраняется либо весь пакет, либо ничего.
func (h *ActivityHandler) AddQuestions(c *gin.Context) {
	sectionID := c.MustGet("sectionID").(uint)

	var req AddQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions := make([]entity.Question, 0, len(req.Questions))
	for _, qr := range req.Questions {
		questions = append(questions, *qr.toEntity())
	}

	created, err := h.activityService.AddQuestions(sectionID, questions)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"questions": created,
		"count":     len(created),
	})
}

// UpdateQuestion обрабатывает запрос на обновление вопроса
func (h *ActivityHandler) UpdateQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question := req.toEntity()
	question.ID = questionID

	updated, err := h.activityService.UpdateQuestion(question)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteQuestion обрабатывает запрос на удаление вопроса
func (h *ActivityHandler) DeleteQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	if err := h.activityService.DeleteQuestion(questionID); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}

// PublishActivity обрабатывает запрос на публикацию активности
func (h *ActivityHandler) PublishActivity(c *gin.Context) {
	activityID := c.MustGet("activityID").(uint)

	if err := h.activityService.Publish(activityID); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Activity published successfully"})
}

// GetActivity возвращает активность с разделами и вопросами
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	activityID := c.MustGet("activityID").(uint)

	activity, err := h.activityService.GetActivityWithQuestions(activityID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewActivityResponse(activity, true))
}

// ListActivities возвращает список активностей преподавателя с пагинацией
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	teacherID := c.MustGet(middleware.ContextTeacherID).(uint)
	page, pageSize := paginationParams(c)

	activities, total, err := h.activityService.ListActivities(teacherID, page, pageSize)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activities": dto.NewListActivityResponse(activities),
		"total":      total,
		"page":       page,
		"size":       pageSize,
	})
}

// ListSubmissions возвращает пагинированные попытки активности.
// ?status=submitted выбирает попытки, ожидающие проверки преподавателем.
func (h *ActivityHandler) ListSubmissions(c *gin.Context) {
	activityID := c.MustGet("activityID").(uint)
	page, pageSize := paginationParams(c)
	status := c.Query("status")

	submissions, total, err := h.submissionService.ListSubmissions(activityID, status, page, pageSize)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedSubmissionResponse(submissions, total, page, pageSize))
}

// GetSubmissionReview возвращает попытку с ответами для проверки преподавателем
func (h *ActivityHandler) GetSubmissionReview(c *gin.Context) {
	submissionID := c.MustGet("submissionID").(uint)

	// studentID = 0 пропускает проверку владельца: преподаватель
	// смотрит чужие попытки
	submission, answers, err := h.submissionService.GetAttemptResult(submissionID, 0)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SubmissionResultResponse{
		Submission: dto.NewSubmissionResponse(submission),
		Answers:    dto.NewAnswerResponses(answers),
	})
}

// FinalizeRequest представляет запрос на итоговое оценивание попытки
type FinalizeRequest struct {
	// Grades - оценки по ID вопросов, ожидающих AI/ручной проверки
	Grades map[uint]service.GradeInput `json:"grades" binding:"required"`
}

// FinalizeEvaluation обрабатывает запрос на итоговое оценивание попытки
func (h *ActivityHandler) FinalizeEvaluation(c *gin.Context) {
	submissionID := c.MustGet("submissionID").(uint)

	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.submissionService.FinalizeEvaluation(submissionID, req.Grades)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSubmissionResponse(submission))
}

// ExportResults экспортирует результаты активности в CSV или Excel формате
// GET /api/teacher/activities/:id/results/export?format=csv|xlsx
func (h *ActivityHandler) ExportResults(c *gin.Context) {
	activityID := c.MustGet("activityID").(uint)
	format := c.DefaultQuery("format", "csv")

	// Для экспорта нужны ВСЕ попытки без пагинации
	submissions, err := h.submissionService.ListAllSubmissions(activityID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	activity, err := h.activityService.GetActivity(activityID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	filename := fmt.Sprintf("activity_%d_results_%s", activityID, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, submissions, activity, filename)
	default:
		h.exportCSV(c, submissions, filename)
	}
}

// exportCSV экспортирует результаты в CSV с правильным экранированием спецсимволов
func (h *ActivityHandler) exportCSV(c *gin.Context, submissions []entity.Submission, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"Попытка", "Студент", "Статус", "Итоговый балл", "Сдано"})

	for _, s := range submissions {
		submittedAt := ""
		if s.SubmittedAt != nil {
			submittedAt = s.SubmittedAt.Format(time.RFC3339)
		}
		writer.Write([]string{
			strconv.FormatUint(uint64(s.ID), 10),
			strconv.FormatUint(uint64(s.StudentID), 10),
			translateSubmissionStatus(s.Status),
			strconv.FormatFloat(s.TotalScore, 'f', -1, 64),
			submittedAt,
		})
	}
}

// exportXLSX экспортирует результаты в Excel с использованием StreamWriter.
// Первая строка листа содержит название активности.
func (h *ActivityHandler) exportXLSX(c *gin.Context, submissions []entity.Submission, activity *entity.Activity, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Результаты"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[ActivityHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	title := []interface{}{fmt.Sprintf("Активность: %s", activity.Title)}
	if err := sw.SetRow("A1", title); err != nil {
		log.Printf("[ActivityHandler] Ошибка записи названия: %v", err)
	}

	headers := []interface{}{"Попытка", "Студент", "Статус", "Итоговый балл", "Сдано"}
	if err := sw.SetRow("A2", headers); err != nil {
		log.Printf("[ActivityHandler] Ошибка записи заголовков: %v", err)
	}

	for i, s := range submissions {
		rowNum := i + 3 // 1 - название активности, 2 - заголовки
		cell := fmt.Sprintf("A%d", rowNum)

		submittedAt := ""
		if s.SubmittedAt != nil {
			submittedAt = s.SubmittedAt.Format("2006-01-02 15:04:05")
		}

		row := []interface{}{s.ID, s.StudentID, translateSubmissionStatus(s.Status), s.TotalScore, submittedAt}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[ActivityHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[ActivityHandler] Ошибка при Flush: %v", err)
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[ActivityHandler] Ошибка записи Excel в response: %v", err)
	}
}

// translateSubmissionStatus переводит статус попытки на русский
func translateSubmissionStatus(status string) string {
	switch status {
	case entity.SubmissionStatusInProgress:
		return "В процессе"
	case entity.SubmissionStatusSubmitted:
		return "Сдано"
	case entity.SubmissionStatusEvaluated:
		return "Оценено"
	default:
		return status
	}
}

// paginationParams извлекает параметры пагинации из query
func paginationParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

// handleError обрабатывает ошибки от сервисов и отправляет соответствующий HTTP ответ
func (h *ActivityHandler) handleError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in ActivityHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
