package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/assessment-api/internal/handler/dto"
	"github.com/yourusername/assessment-api/internal/middleware"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
	"github.com/yourusername/assessment-api/internal/service"
)

// SubmissionHandler обрабатывает студенческие запросы: начало попытки,
// запуск кода, фиксацию ответов и просмотр результата
type SubmissionHandler struct {
	submissionService *service.SubmissionService
	activityService   *service.ActivityService
}

// NewSubmissionHandler создает новый обработчик попыток
func NewSubmissionHandler(
	submissionService *service.SubmissionService,
	activityService *service.ActivityService,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		activityService:   activityService,
	}
}

// GetActivity возвращает опубликованную активность для прохождения.
// Черновики для студентов не существуют; данные проверки в ответ
// не попадают (см. DTO вопроса).
func (h *SubmissionHandler) GetActivity(c *gin.Context) {
	activityID := c.MustGet("activityID").(uint)

	activity, err := h.activityService.GetPublishedActivity(activityID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewActivityResponse(activity, true))
}

// StartAttempt начинает (или возвращает существующую) попытку студента
func (h *SubmissionHandler) StartAttempt(c *gin.Context) {
	activityID := c.MustGet("activityID").(uint)
	studentID := c.MustGet(middleware.ContextStudentID).(uint)

	submission, err := h.submissionService.StartAttempt(activityID, studentID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSubmissionResponse(submission))
}

// SubmitRequest представляет запрос на фиксацию попытки.
// Answers - сырые ответы по ID вопросов: текст, ID вариантов через
// запятую или JSON-карта пропусков.
type SubmitRequest struct {
	Answers map[uint]string `json:"answers" binding:"required"`
}

// Submit фиксирует попытку и запускает оценивание всех ответов
func (h *SubmissionHandler) Submit(c *gin.Context) {
	submissionID := c.MustGet("submissionID").(uint)
	studentID := c.MustGet(middleware.ContextStudentID).(uint)

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.submissionService.Submit(c.Request.Context(), submissionID, studentID, req.Answers)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SubmissionResultResponse{
		Submission: dto.NewSubmissionResponse(result.Submission),
		Answers:    dto.NewAnswerResponses(result.Answers),
		Warnings:   result.Warnings,
	})
}

// RunCodeRequest представляет запрос на запуск кода вопроса
type RunCodeRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
}

// RunCode выполняет код вопроса по запросу студента и возвращает
// результат запуска
func (h *SubmissionHandler) RunCode(c *gin.Context) {
	submissionID := c.MustGet("submissionID").(uint)
	studentID := c.MustGet(middleware.ContextStudentID).(uint)

	var req RunCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verification, err := h.submissionService.RunCode(c.Request.Context(), submissionID, req.QuestionID, studentID, req.Answer)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, verification)
}

// GetResult возвращает попытку студента с оцененными ответами
func (h *SubmissionHandler) GetResult(c *gin.Context) {
	submissionID := c.MustGet("submissionID").(uint)
	studentID := c.MustGet(middleware.ContextStudentID).(uint)

	submission, answers, err := h.submissionService.GetAttemptResult(submissionID, studentID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SubmissionResultResponse{
		Submission: dto.NewSubmissionResponse(submission),
		Answers:    dto.NewAnswerResponses(answers),
	})
}

// handleError обрабатывает ошибки от сервисов и отправляет соответствующий HTTP ответ
func (h *SubmissionHandler) handleError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in SubmissionHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
