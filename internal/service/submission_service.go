package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/domain/repository"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
	"github.com/yourusername/assessment-api/internal/service/aijudge"
	"github.com/yourusername/assessment-api/internal/service/codeexec"
	"github.com/yourusername/assessment-api/internal/service/evaluator"
)

// attemptLockTTL ограничивает жизнь лока создания попытки
const attemptLockTTL = 10 * time.Second

// FeedbackPendingJudge показывается, когда судья не смог оценить ответ.
// Это состояние "не смогли оценить", а не "вы ответили неверно".
const FeedbackPendingJudge = "Could not auto-evaluate, pending manual review"

// SubmitResult представляет итог фиксации попытки
type SubmitResult struct {
	Submission *entity.Submission        `json:"submission"`
	Answers    []entity.SubmissionAnswer `json:"answers"`
	// Warnings - нефатальные сбои оценивания отдельных вопросов
	// (таймаут судьи и т.п.); попытка при этом зафиксирована
	Warnings []string `json:"warnings,omitempty"`
}

// CodeVerifier абстрагирует проверку исполнением кода (подменяется в тестах)
type CodeVerifier interface {
	Verify(ctx context.Context, question *entity.Question, rawAnswer string) (*codeexec.Verification, error)
}

// SubmissionService управляет жизненным циклом попытки и оцениванием ответов
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	activityRepo   repository.ActivityRepository
	questionRepo   repository.QuestionRepository
	cacheRepo      repository.CacheRepository
	registry       *evaluator.Registry
	judge          aijudge.Judge
	verifier       CodeVerifier
}

// NewSubmissionService создает новый сервис попыток
func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	activityRepo repository.ActivityRepository,
	questionRepo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
	registry *evaluator.Registry,
	judge aijudge.Judge,
	verifier CodeVerifier,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		activityRepo:   activityRepo,
		questionRepo:   questionRepo,
		cacheRepo:      cacheRepo,
		registry:       registry,
		judge:          judge,
		verifier:       verifier,
	}
}

// StartAttempt возвращает попытку студента для активности, создавая ее
// при первом обращении. Шаг create-if-absent атомарен: Redis-лок
// закрывает гонку параллельных запросов (две вкладки браузера),
// уникальный индекс БД - последняя линия защиты.
func (s *SubmissionService) StartAttempt(activityID, studentID uint) (*entity.Submission, error) {
	activity, err := s.activityRepo.GetByID(activityID)
	if err != nil {
		return nil, err
	}
	if !activity.IsPublished() {
		return nil, fmt.Errorf("%w: activity is not open for attempts", apperrors.ErrConflict)
	}

	// Существующая попытка возвращается как есть
	existing, err := s.submissionRepo.GetByActivityAndStudent(activityID, studentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	lockKey := fmt.Sprintf("attempt:lock:%d:%d", activityID, studentID)
	acquired, err := s.cacheRepo.SetNX(lockKey, "1", attemptLockTTL)
	if err != nil {
		// Redis недоступен - полагаемся на уникальный индекс БД
		log.Printf("[SubmissionService] WARNING: Не удалось взять лок создания попытки %s: %v", lockKey, err)
	} else if !acquired {
		// Параллельный запрос уже создает попытку - перечитываем
		if existing, err := s.submissionRepo.GetByActivityAndStudent(activityID, studentID); err == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: attempt is being created concurrently", apperrors.ErrConflict)
	} else {
		defer func() {
			if errDel := s.cacheRepo.Delete(lockKey); errDel != nil {
				log.Printf("[SubmissionService] WARNING: Не удалось снять лок %s: %v", lockKey, errDel)
			}
		}()
	}

	submission := &entity.Submission{
		ActivityID: activityID,
		StudentID:  studentID,
		Status:     entity.SubmissionStatusInProgress,
	}
	if err := s.submissionRepo.Create(submission); err != nil {
		// Дубликат под гонку: попытку успел создать параллельный запрос
		if errors.Is(err, apperrors.ErrConflict) {
			return s.submissionRepo.GetByActivityAndStudent(activityID, studentID)
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	log.Printf("[SubmissionService] Создана попытка #%d (activity=%d, student=%d)",
		submission.ID, activityID, studentID)
	return submission, nil
}

// RunCode выполняет код вопроса по явному запросу студента.
// Запуски независимы между вопросами и не входят в конвейер submit;
// оценка за исполнение записывается только после состоявшегося запуска.
func (s *SubmissionService) RunCode(ctx context.Context, submissionID, questionID, studentID uint, rawAnswer string) (*codeexec.Verification, error) {
	submission, err := s.submissionRepo.GetByID(submissionID)
	if err != nil {
		return nil, err
	}
	if submission.StudentID != studentID {
		return nil, apperrors.ErrForbidden
	}
	// После фиксации попытки ответы неизменяемы
	if !submission.IsInProgress() {
		return nil, fmt.Errorf("%w: submission is already %s", apperrors.ErrConflict, submission.Status)
	}

	question, err := s.questionRepo.GetByID(questionID)
	if err != nil {
		return nil, err
	}
	if !question.IsExecutionVerified() {
		return nil, fmt.Errorf("%w: question type %s cannot be executed", apperrors.ErrValidation, question.Type)
	}

	verification, err := s.verifier.Verify(ctx, question, rawAnswer)
	if err != nil {
		// Транспортный сбой до сервиса исполнения показывается студенту
		// как состояние, а не роняет запрос
		log.Printf("[SubmissionService] WARNING: Сбой сервиса исполнения (submission=%d, question=%d): %v",
			submissionID, questionID, err)
		verification = &codeexec.Verification{
			Ran:      false,
			Feedback: "Execution service is unavailable, try again later",
		}
	}

	answer := &entity.SubmissionAnswer{
		SubmissionID: submissionID,
		QuestionID:   questionID,
		RawAnswer:    rawAnswer,
		Feedback:     verification.Feedback,
		Executed:     verification.Ran,
		ExecOutput:   verification.Output,
		ExecError:    verification.ErrorText,
	}
	if verification.Score != nil {
		answer.Score = verification.Score
		answer.IsCorrect = verification.IsCorrect
		answer.GradedBy = entity.GradedByExecution
	}

	if err := s.submissionRepo.UpsertAnswer(answer); err != nil {
		return nil, fmt.Errorf("failed to save execution result: %w", err)
	}
	return verification, nil
}

// Submit фиксирует попытку: нормализует и оценивает ответы на все вопросы,
// идемпотентно сохраняет по одному SubmissionAnswer на вопрос, суммирует
// известные баллы и переводит попытку в submitted.
// Сбой оценивания одного вопроса не прерывает submit: вопрос остается
// неоцененным с предупреждением, остальные оцениваются дальше.
func (s *SubmissionService) Submit(ctx context.Context, submissionID, studentID uint, answers map[uint]string) (*SubmitResult, error) {
	submission, err := s.submissionRepo.GetByID(submissionID)
	if err != nil {
		return nil, err
	}
	if submission.StudentID != studentID {
		return nil, apperrors.ErrForbidden
	}
	// Повторный submit отклоняется до любой записи
	if !submission.IsInProgress() {
		return nil, fmt.Errorf("%w: submission is already %s", apperrors.ErrConflict, submission.Status)
	}

	questions, err := s.questionRepo.GetByActivityID(submission.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: activity has no questions", apperrors.ErrValidation)
	}

	// Все вопросы обязательны: незаполненные отклоняются до оценивания
	if missing := missingAnswers(questions, answers); len(missing) > 0 {
		return nil, fmt.Errorf("%w: questions %s are not answered",
			apperrors.ErrValidation, strings.Join(missing, ", "))
	}

	// Ранее записанные результаты запусков кода
	existingByQuestion := map[uint]*entity.SubmissionAnswer{}
	if existing, err := s.submissionRepo.GetAnswers(submissionID); err == nil {
		for i := range existing {
			existingByQuestion[existing[i].QuestionID] = &existing[i]
		}
	}

	result := &SubmitResult{Submission: submission}
	totalScore := 0.0

	for i := range questions {
		question := &questions[i]
		answer := s.gradeQuestion(ctx, question, answers[question.ID], existingByQuestion[question.ID], result)
		answer.SubmissionID = submissionID

		if err := s.submissionRepo.UpsertAnswer(answer); err != nil {
			// Сбой сохранения одного ответа фатален: иначе попытка
			// зафиксируется с потерянным ответом
			return nil, fmt.Errorf("failed to save answer for question %d: %w", question.ID, err)
		}

		if answer.Score != nil {
			totalScore += *answer.Score
		}
		result.Answers = append(result.Answers, *answer)
	}

	now := time.Now()
	if err := s.submissionRepo.UpdateStatus(submissionID, entity.SubmissionStatusSubmitted, totalScore, &now); err != nil {
		return nil, fmt.Errorf("failed to transition submission: %w", err)
	}

	submission.Status = entity.SubmissionStatusSubmitted
	submission.TotalScore = totalScore
	submission.SubmittedAt = &now

	log.Printf("[SubmissionService] Попытка #%d зафиксирована: total=%.1f, вопросов=%d, предупреждений=%d",
		submissionID, totalScore, len(questions), len(result.Warnings))
	return result, nil
}

// gradeQuestion оценивает один вопрос согласно его evaluation_mode и типу
func (s *SubmissionService) gradeQuestion(
	ctx context.Context,
	question *entity.Question,
	rawAnswer string,
	existing *entity.SubmissionAnswer,
	result *SubmitResult,
) *entity.SubmissionAnswer {
	answer := &entity.SubmissionAnswer{
		QuestionID: question.ID,
		RawAnswer:  rawAnswer,
	}

	// Состояние исполнения переносится из запусков до submit
	if existing != nil {
		answer.Executed = existing.Executed
		answer.ExecOutput = existing.ExecOutput
		answer.ExecError = existing.ExecError
	}

	switch {
	case question.EvaluationMode == entity.EvaluationModeAI && isJudgeEligible(question):
		graded, err := s.judge.Grade(ctx, question, strings.TrimSpace(rawAnswer))
		if err != nil {
			// Сбой судьи - предупреждение, не провал submit: вопрос
			// остается неоцененным до ручной проверки
			warning := fmt.Sprintf("question %d: %v", question.ID, err)
			result.Warnings = append(result.Warnings, warning)
			log.Printf("[SubmissionService] WARNING: AI-судья не оценил вопрос #%d: %v", question.ID, err)
			answer.Feedback = FeedbackPendingJudge
			return answer
		}
		isCorrect := graded.Score == float64(question.Marks)
		answer.Score = &graded.Score
		answer.IsCorrect = &isCorrect
		answer.Feedback = graded.Feedback
		answer.GradedBy = entity.GradedByAI

	case question.IsExecutionVerified():
		s.gradeExecutionQuestion(question, rawAnswer, existing, answer)

	case question.EvaluationMode == entity.EvaluationModeManual:
		answer.Feedback = evaluator.FeedbackPendingReview

	default:
		evalResult, err := s.registry.Evaluate(question, rawAnswer)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("question %d: %v", question.ID, err))
			answer.Feedback = evaluator.FeedbackPendingReview
			return answer
		}
		if evalResult == nil {
			// Тип без автопроверки - на ручное оценивание
			answer.Feedback = evaluator.FeedbackPendingReview
			return answer
		}
		answer.Score = &evalResult.Score
		answer.IsCorrect = &evalResult.IsCorrect
		answer.Feedback = evalResult.Feedback
		answer.GradedBy = entity.GradedByAuto
	}

	return answer
}

// gradeExecutionQuestion выставляет оценку вопросу с проверкой исполнением
// на момент submit. Новый запуск кода здесь не выполняется: оценка берется
// из детерминированного слоя, где он применим (пропуски code_completion,
// сверка предсказания output_prediction), иначе - из состоявшегося до
// submit запуска; без того и другого вопрос остается неоцененным.
func (s *SubmissionService) gradeExecutionQuestion(
	question *entity.Question,
	rawAnswer string,
	existing *entity.SubmissionAnswer,
	answer *entity.SubmissionAnswer,
) {
	// Детерминированные правила применяются и к кодовым типам:
	// структура пропусков для code_completion, эталон для output_prediction
	if question.Type != entity.QuestionTypeOutputPrediction || strings.TrimSpace(question.CorrectAnswer) != "" {
		if evalResult, err := s.registry.Evaluate(question, rawAnswer); err == nil && evalResult != nil {
			answer.Score = &evalResult.Score
			answer.IsCorrect = &evalResult.IsCorrect
			answer.Feedback = evalResult.Feedback
			answer.GradedBy = entity.GradedByAuto
			return
		}
	}

	// Оценка от запуска до submit сохраняется
	if existing != nil && existing.Executed && existing.Score != nil {
		answer.Score = existing.Score
		answer.IsCorrect = existing.IsCorrect
		answer.Feedback = existing.Feedback
		answer.GradedBy = entity.GradedByExecution
		return
	}

	// Код ни разу не запускался - без запуска оценки нет
	answer.Feedback = "Code has not been run, pending review"
}

// GradeInput представляет оценку одного вопроса при финализации
type GradeInput struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// FinalizeEvaluation закрывает попытку: выставляет оценки ожидающим
// AI/ручной проверки ответам, пересчитывает итог и переводит попытку
// в evaluated. Оценки, вычисленные детерминированно или исполнением
// кода, не изменяются.
func (s *SubmissionService) FinalizeEvaluation(submissionID uint, grades map[uint]GradeInput) (*entity.Submission, error) {
	submission, err := s.submissionRepo.GetByID(submissionID)
	if err != nil {
		return nil, err
	}
	if !submission.CanTransitionTo(entity.SubmissionStatusEvaluated) {
		return nil, fmt.Errorf("%w: submission in status %s cannot be evaluated", apperrors.ErrConflict, submission.Status)
	}

	answers, err := s.submissionRepo.GetAnswers(submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	questions, err := s.questionRepo.GetByActivityID(submission.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	marksByQuestion := make(map[uint]int, len(questions))
	for _, q := range questions {
		marksByQuestion[q.ID] = q.Marks
	}

	totalScore := 0.0
	for i := range answers {
		answer := &answers[i]

		grade, hasGrade := grades[answer.QuestionID]
		if answer.IsGraded() {
			// Ранее вычисленные оценки неприкосновенны
			if hasGrade && answer.GradedBy != entity.GradedByManual {
				return nil, fmt.Errorf("%w: question %d is already graded by %s",
					apperrors.ErrValidation, answer.QuestionID, answer.GradedBy)
			}
			totalScore += *answer.Score
			continue
		}

		if !hasGrade {
			return nil, fmt.Errorf("%w: question %d is still ungraded", apperrors.ErrValidation, answer.QuestionID)
		}

		score := grade.Score
		if maxMarks, ok := marksByQuestion[answer.QuestionID]; ok {
			if score < 0 {
				score = 0
			}
			if score > float64(maxMarks) {
				score = float64(maxMarks)
			}
			isCorrect := score == float64(maxMarks)
			answer.IsCorrect = &isCorrect
		}
		answer.Score = &score
		answer.Feedback = grade.Feedback
		answer.GradedBy = entity.GradedByManual
		answer.SubmissionID = submissionID

		if err := s.submissionRepo.UpsertAnswer(answer); err != nil {
			return nil, fmt.Errorf("failed to save grade for question %d: %w", answer.QuestionID, err)
		}
		totalScore += score
	}

	if err := s.submissionRepo.UpdateStatus(submissionID, entity.SubmissionStatusEvaluated, totalScore, nil); err != nil {
		return nil, fmt.Errorf("failed to transition submission: %w", err)
	}

	submission.Status = entity.SubmissionStatusEvaluated
	submission.TotalScore = totalScore

	log.Printf("[SubmissionService] Попытка #%d оценена окончательно: total=%.1f", submissionID, totalScore)
	return submission, nil
}

// GetAttemptResult возвращает попытку студента с ответами
func (s *SubmissionService) GetAttemptResult(submissionID, studentID uint) (*entity.Submission, []entity.SubmissionAnswer, error) {
	submission, err := s.submissionRepo.GetByID(submissionID)
	if err != nil {
		return nil, nil, err
	}
	if studentID != 0 && submission.StudentID != studentID {
		return nil, nil, apperrors.ErrForbidden
	}

	answers, err := s.submissionRepo.GetAnswers(submissionID)
	if err != nil {
		return nil, nil, err
	}
	return submission, answers, nil
}

// ListSubmissions возвращает попытки активности для преподавателя.
// Непустой status сужает выборку: status=submitted дает попытки,
// ожидающие ручной проверки перед FinalizeEvaluation.
func (s *SubmissionService) ListSubmissions(activityID uint, status string, page, pageSize int) ([]entity.Submission, int64, error) {
	switch status {
	case "", entity.SubmissionStatusInProgress, entity.SubmissionStatusSubmitted, entity.SubmissionStatusEvaluated:
	default:
		return nil, 0, fmt.Errorf("%w: unknown status '%s'", apperrors.ErrValidation, status)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize
	return s.submissionRepo.GetByActivityID(activityID, status, pageSize, offset)
}

// ListAllSubmissions возвращает все попытки активности без пагинации.
// Используется при экспорте результатов.
func (s *SubmissionService) ListAllSubmissions(activityID uint) ([]entity.Submission, error) {
	submissions, _, err := s.submissionRepo.GetByActivityID(activityID, "", -1, 0)
	return submissions, err
}

// missingAnswers возвращает ID вопросов без содержательного ответа
func missingAnswers(questions []entity.Question, answers map[uint]string) []string {
	var missing []string
	for _, q := range questions {
		if strings.TrimSpace(answers[q.ID]) == "" {
			missing = append(missing, fmt.Sprintf("%d", q.ID))
		}
	}
	return missing
}

// isJudgeEligible проверяет, пригоден ли тип вопроса для AI-судьи:
// свободный текстовый ответ, который можно сравнить с эталоном и рубрикой
func isJudgeEligible(q *entity.Question) bool {
	switch q.Type {
	case entity.QuestionTypeShortAnswer,
		entity.QuestionTypeParagraph,
		entity.QuestionTypeFillBlanks,
		entity.QuestionTypeTraceExecution,
		entity.QuestionTypeJustification,
		entity.QuestionTypeErrorIdentification,
		entity.QuestionTypeConceptIdentification:
		return true
	}
	return false
}
