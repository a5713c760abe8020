package service

import (
	"fmt"
	"log"
	"time"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	"github.com/yourusername/assessment-api/internal/domain/repository"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

// publishedActivityTTL ограничивает жизнь кеша опубликованной активности
const publishedActivityTTL = 5 * time.Minute

// ActivityService предоставляет методы авторинга активностей
type ActivityService struct {
	activityRepo repository.ActivityRepository
	questionRepo repository.QuestionRepository
	cacheRepo    repository.CacheRepository
}

// NewActivityService создает новый сервис активностей
func NewActivityService(
	activityRepo repository.ActivityRepository,
	questionRepo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		questionRepo: questionRepo,
		cacheRepo:    cacheRepo,
	}
}

// CreateActivity создает новую активность в статусе draft
func (s *ActivityService) CreateActivity(teacherID uint, title, description string) (*entity.Activity, error) {
	activity := &entity.Activity{
		Title:       title,
		Description: description,
		Status:      entity.ActivityStatusDraft,
		TeacherID:   teacherID,
	}

	if err := s.activityRepo.Create(activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	return activity, nil
}

// AddSection добавляет раздел к активности
func (s *ActivityService) AddSection(activityID uint, title string, position int) (*entity.Section, error) {
	activity, err := s.activityRepo.GetByID(activityID)
	if err != nil {
		return nil, err
	}

	// Разделы можно добавлять только в черновик
	if !activity.IsDraft() {
		return nil, fmt.Errorf("%w: sections can only be added to a draft activity", apperrors.ErrConflict)
	}

	section := &entity.Section{
		ActivityID: activity.ID,
		Title:      title,
		Position:   position,
	}
	if err := s.activityRepo.CreateSection(section); err != nil {
		return nil, fmt.Errorf("failed to create section: %w", err)
	}
	return section, nil
}

// AddQuestion добавляет вопрос в раздел после проверки инвариантов.
// Нарушение инвариантов отклоняется до любой записи в хранилище.
func (s *ActivityService) AddQuestion(question *entity.Question) (*entity.Question, error) {
	if err := ValidateQuestion(question); err != nil {
		return nil, err
	}

	section, err := s.activityRepo.GetSectionByID(question.SectionID)
	if err != nil {
		return nil, err
	}

	if err := s.questionRepo.Create(question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.invalidatePublishedActivity(section.ActivityID)
	return question, nil
}

// AddQuestions пакетно добавляет вопросы в раздел. Все вопросы проходят
// валидацию до записи: сохраняется либо весь пакет, либо ничего.
func (s *ActivityService) AddQuestions(sectionID uint, questions []entity.Question) ([]entity.Question, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: question batch is empty", apperrors.ErrValidation)
	}

	section, err := s.activityRepo.GetSectionByID(sectionID)
	if err != nil {
		return nil, err
	}

	for i := range questions {
		questions[i].SectionID = sectionID
		if err := ValidateQuestion(&questions[i]); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}

	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}

	s.invalidatePublishedActivity(section.ActivityID)
	return questions, nil
}

// UpdateQuestion обновляет вопрос c той же валидацией, что и при создании
func (s *ActivityService) UpdateQuestion(question *entity.Question) (*entity.Question, error) {
	if err := ValidateQuestion(question); err != nil {
		return nil, err
	}

	existing, err := s.questionRepo.GetByID(question.ID)
	if err != nil {
		return nil, err
	}
	question.SectionID = existing.SectionID

	if err := s.questionRepo.Update(question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	if section, err := s.activityRepo.GetSectionByID(question.SectionID); err == nil {
		s.invalidatePublishedActivity(section.ActivityID)
	}
	return question, nil
}

// DeleteQuestion удаляет вопрос
func (s *ActivityService) DeleteQuestion(id uint) error {
	question, err := s.questionRepo.GetByID(id)
	if err != nil {
		return err
	}

	if err := s.questionRepo.Delete(id); err != nil {
		return err
	}

	if section, err := s.activityRepo.GetSectionByID(question.SectionID); err == nil {
		s.invalidatePublishedActivity(section.ActivityID)
	}
	return nil
}

// Publish переводит активность из черновика в published
func (s *ActivityService) Publish(activityID uint) error {
	activity, err := s.activityRepo.GetByID(activityID)
	if err != nil {
		return err
	}

	if !activity.IsDraft() {
		return fmt.Errorf("%w: only a draft activity can be published", apperrors.ErrConflict)
	}

	questions, err := s.questionRepo.GetByActivityID(activityID)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}
	if len(questions) == 0 {
		return fmt.Errorf("%w: cannot publish an activity without questions", apperrors.ErrValidation)
	}

	log.Printf("[ActivityService] Публикация активности #%d (%d вопросов)", activityID, len(questions))
	if err := s.activityRepo.UpdateStatus(activityID, entity.ActivityStatusPublished); err != nil {
		return err
	}

	s.invalidatePublishedActivity(activityID)
	return nil
}

// GetActivity возвращает активность по ID
func (s *ActivityService) GetActivity(id uint) (*entity.Activity, error) {
	return s.activityRepo.GetByID(id)
}

// GetActivityWithQuestions возвращает активность с разделами и вопросами
func (s *ActivityService) GetActivityWithQuestions(id uint) (*entity.Activity, error) {
	return s.activityRepo.GetWithQuestions(id)
}

// GetPublishedActivity возвращает опубликованную активность с вопросами
// для студенческих маршрутов, используя кеш. Черновики для студентов
// не существуют: ErrNotFound.
//
// В кешированной копии нет скрытых полей проверки (они не
// сериализуются в JSON), поэтому она пригодна только для выдачи
// студенту; оценивание всегда читает вопросы из базы.
func (s *ActivityService) GetPublishedActivity(id uint) (*entity.Activity, error) {
	key := publishedActivityKey(id)

	var cached entity.Activity
	if err := s.cacheRepo.GetJSON(key, &cached); err == nil {
		return &cached, nil
	}

	activity, err := s.activityRepo.GetWithQuestions(id)
	if err != nil {
		return nil, err
	}
	if !activity.IsPublished() {
		return nil, apperrors.ErrNotFound
	}

	if err := s.cacheRepo.SetJSON(key, activity, publishedActivityTTL); err != nil {
		log.Printf("[ActivityService] Не удалось закешировать активность #%d: %v", id, err)
	}
	return activity, nil
}

// publishedActivityKey строит ключ кеша опубликованной активности
func publishedActivityKey(activityID uint) string {
	return fmt.Sprintf("activity:published:%d", activityID)
}

// invalidatePublishedActivity сбрасывает кеш активности после изменения
// ее вопросов или статуса. Ошибка кеша не фатальна: запись истечет по TTL.
func (s *ActivityService) invalidatePublishedActivity(activityID uint) {
	if err := s.cacheRepo.Delete(publishedActivityKey(activityID)); err != nil {
		log.Printf("[ActivityService] Не удалось сбросить кеш активности #%d: %v", activityID, err)
	}
}

// ListActivities возвращает активности с пагинацией
func (s *ActivityService) ListActivities(teacherID uint, page, pageSize int) ([]entity.Activity, int64, error) {
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
	return s.activityRepo.List(teacherID, pageSize, offset)
}

// ValidateQuestion проверяет инварианты вопроса:
// положительные баллы, корректный тип и режим, согласованность
// структуры пропусков с баллами вопроса
func ValidateQuestion(q *entity.Question) error {
	if q.Marks <= 0 {
		return fmt.Errorf("%w: question marks must be positive", apperrors.ErrValidation)
	}

	switch q.EvaluationMode {
	case entity.EvaluationModeAuto, entity.EvaluationModeAI, entity.EvaluationModeManual:
	default:
		return fmt.Errorf("%w: unknown evaluation mode %q", apperrors.ErrValidation, q.EvaluationMode)
	}

	switch q.Type {
	case entity.QuestionTypeMCQ, entity.QuestionTypeDropdown, entity.QuestionTypeCheckbox:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: choice question requires at least two options", apperrors.ErrValidation)
		}
		if len(q.CorrectOptionIDs()) == 0 {
			return fmt.Errorf("%w: choice question requires at least one correct option", apperrors.ErrValidation)
		}

	// Автопроверка текстовых типов сравнивает с эталоном: эталон из
	// одних запятых и пробелов не дает ни одного варианта сравнения
	case entity.QuestionTypeShortAnswer, entity.QuestionTypeErrorIdentification,
		entity.QuestionTypeConceptIdentification:
		if q.EvaluationMode == entity.EvaluationModeAuto && len(q.CorrectAnswerAlternatives()) == 0 {
			return fmt.Errorf("%w: auto-graded text question requires a correct answer", apperrors.ErrValidation)
		}

	case entity.QuestionTypeFillBlanks:
		if q.EvaluationMode == entity.EvaluationModeAuto && !q.HasBlanks() && len(q.CorrectAnswerAlternatives()) == 0 {
			return fmt.Errorf("%w: fill_blanks question requires blanks or a correct answer", apperrors.ErrValidation)
		}
	}

	// Инвариант: сумма баллов пропусков равна баллам вопроса
	if q.HasBlanks() {
		for _, b := range q.Blanks {
			if b.ID == "" {
				return fmt.Errorf("%w: blank without id", apperrors.ErrValidation)
			}
			if b.Marks <= 0 {
				return fmt.Errorf("%w: blank %q marks must be positive", apperrors.ErrValidation, b.ID)
			}
			if len(b.Accepted) == 0 {
				return fmt.Errorf("%w: blank %q has no accepted answers", apperrors.ErrValidation, b.ID)
			}
		}
		if sum := q.BlankMarksSum(); sum != q.Marks {
			return fmt.Errorf("%w: blank marks sum %d does not equal question marks %d",
				apperrors.ErrValidation, sum, q.Marks)
		}
	}

	return nil
}
