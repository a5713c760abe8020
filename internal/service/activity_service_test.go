package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/assessment-api/internal/domain/entity"
	apperrors "github.com/yourusername/assessment-api/internal/pkg/errors"
)

func newActivityService() (*ActivityService, *MockActivityRepo, *MockQuestionRepo, *MockCacheRepo) {
	actRepo := new(MockActivityRepo)
	qRepo := new(MockQuestionRepo)
	cache := new(MockCacheRepo)
	return NewActivityService(actRepo, qRepo, cache), actRepo, qRepo, cache
}

func TestCreateActivity_StartsAsDraft(t *testing.T) {
	svc, actRepo, _, _ := newActivityService()

	actRepo.On("Create", mock.AnythingOfType("*entity.Activity")).Return(nil)

	activity, err := svc.CreateActivity(3, "Networking quiz", "TCP basics")
	require.NoError(t, err)
	assert.Equal(t, entity.ActivityStatusDraft, activity.Status)
	assert.Equal(t, uint(3), activity.TeacherID)
}

func TestAddSection_RejectedForPublishedActivity(t *testing.T) {
	svc, actRepo, _, _ := newActivityService()

	actRepo.On("GetByID", uint(1)).Return(&entity.Activity{ID: 1, Status: entity.ActivityStatusPublished}, nil)

	_, err := svc.AddSection(1, "Part A", 0)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	actRepo.AssertNotCalled(t, "CreateSection", mock.Anything)
}

func TestAddQuestion_InvalidQuestionNeverPersisted(t *testing.T) {
	svc, _, qRepo, _ := newActivityService()

	question := &entity.Question{
		SectionID:      1,
		Type:           entity.QuestionTypeMCQ,
		Marks:          0,
		EvaluationMode: entity.EvaluationModeAuto,
	}
	_, err := svc.AddQuestion(question)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	qRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAddQuestion_ValidQuestionCreated(t *testing.T) {
	svc, actRepo, qRepo, cache := newActivityService()

	actRepo.On("GetSectionByID", uint(1)).Return(&entity.Section{ID: 1, ActivityID: 1}, nil)
	qRepo.On("Create", mock.AnythingOfType("*entity.Question")).Return(nil)
	cache.On("Delete", "activity:published:1").Return(nil)

	question := &entity.Question{
		SectionID:      1,
		Type:           entity.QuestionTypeMCQ,
		Text:           "Which layer does TCP belong to?",
		Marks:          5,
		EvaluationMode: entity.EvaluationModeAuto,
		Options: entity.OptionList{
			{ID: "a", Text: "Transport", IsCorrect: true},
			{ID: "b", Text: "Network"},
		},
	}
	created, err := svc.AddQuestion(question)
	require.NoError(t, err)
	assert.Equal(t, uint(1), created.SectionID)
	qRepo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestAddQuestions_BatchAllOrNothing(t *testing.T) {
	svc, actRepo, qRepo, _ := newActivityService()

	actRepo.On("GetSectionByID", uint(2)).Return(&entity.Section{ID: 2, ActivityID: 1}, nil)

	// Второй вопрос невалиден: весь пакет отклоняется до записи
	questions := []entity.Question{
		{
			Type:           entity.QuestionTypeShortAnswer,
			Text:           "Which command prints a line?",
			Marks:          2,
			EvaluationMode: entity.EvaluationModeAuto,
			CorrectAnswer:  "echo",
		},
		{
			Type:           entity.QuestionTypeMCQ,
			Text:           "Broken question",
			Marks:          3,
			EvaluationMode: entity.EvaluationModeAuto,
		},
	}
	_, err := svc.AddQuestions(2, questions)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	qRepo.AssertNotCalled(t, "CreateBatch", mock.Anything)
}

func TestAddQuestions_BatchCreated(t *testing.T) {
	svc, actRepo, qRepo, cache := newActivityService()

	actRepo.On("GetSectionByID", uint(2)).Return(&entity.Section{ID: 2, ActivityID: 1}, nil)
	qRepo.On("CreateBatch", mock.AnythingOfType("[]entity.Question")).Return(nil)
	cache.On("Delete", "activity:published:1").Return(nil)

	questions := []entity.Question{
		{
			// SectionID в пакете игнорируется: раздел задает URL
			SectionID:      99,
			Type:           entity.QuestionTypeShortAnswer,
			Text:           "Which command prints a line?",
			Marks:          2,
			EvaluationMode: entity.EvaluationModeAuto,
			CorrectAnswer:  "echo",
		},
		{
			Type:           entity.QuestionTypeNumerical,
			Text:           "2 + 2 = ?",
			Marks:          1,
			EvaluationMode: entity.EvaluationModeAuto,
			CorrectAnswer:  "4",
		},
	}
	created, err := svc.AddQuestions(2, questions)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, uint(2), created[0].SectionID)
	assert.Equal(t, uint(2), created[1].SectionID)
	qRepo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestPublish_DraftWithQuestions(t *testing.T) {
	svc, actRepo, qRepo, cache := newActivityService()

	actRepo.On("GetByID", uint(1)).Return(&entity.Activity{ID: 1, Status: entity.ActivityStatusDraft}, nil)
	qRepo.On("GetByActivityID", uint(1)).Return([]entity.Question{{ID: 1}}, nil)
	actRepo.On("UpdateStatus", uint(1), entity.ActivityStatusPublished).Return(nil)
	cache.On("Delete", "activity:published:1").Return(nil)

	require.NoError(t, svc.Publish(1))
	actRepo.AssertExpectations(t)
}

func TestPublish_EmptyActivityRejected(t *testing.T) {
	svc, actRepo, qRepo, _ := newActivityService()

	actRepo.On("GetByID", uint(1)).Return(&entity.Activity{ID: 1, Status: entity.ActivityStatusDraft}, nil)
	qRepo.On("GetByActivityID", uint(1)).Return([]entity.Question{}, nil)

	err := svc.Publish(1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	actRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestPublish_AlreadyPublishedRejected(t *testing.T) {
	svc, actRepo, _, _ := newActivityService()

	actRepo.On("GetByID", uint(1)).Return(&entity.Activity{ID: 1, Status: entity.ActivityStatusPublished}, nil)

	err := svc.Publish(1)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestGetPublishedActivity_CacheHitSkipsDatabase(t *testing.T) {
	svc, actRepo, _, cache := newActivityService()

	cache.On("GetJSON", "activity:published:1", mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(1).(*entity.Activity)
			*dest = entity.Activity{ID: 1, Title: "Cached", Status: entity.ActivityStatusPublished}
		}).
		Return(nil)

	activity, err := svc.GetPublishedActivity(1)
	require.NoError(t, err)
	assert.Equal(t, "Cached", activity.Title)
	actRepo.AssertNotCalled(t, "GetWithQuestions", mock.Anything)
}

func TestGetPublishedActivity_CacheMissReadsAndCaches(t *testing.T) {
	svc, actRepo, _, cache := newActivityService()

	published := &entity.Activity{ID: 1, Title: "Networking", Status: entity.ActivityStatusPublished}
	cache.On("GetJSON", "activity:published:1", mock.Anything).Return(apperrors.ErrNotFound)
	actRepo.On("GetWithQuestions", uint(1)).Return(published, nil)
	cache.On("SetJSON", "activity:published:1", published, publishedActivityTTL).Return(nil)

	activity, err := svc.GetPublishedActivity(1)
	require.NoError(t, err)
	assert.Equal(t, "Networking", activity.Title)
	cache.AssertExpectations(t)
}

func TestGetPublishedActivity_DraftHiddenFromStudents(t *testing.T) {
	svc, actRepo, _, cache := newActivityService()

	cache.On("GetJSON", "activity:published:2", mock.Anything).Return(apperrors.ErrNotFound)
	actRepo.On("GetWithQuestions", uint(2)).Return(&entity.Activity{ID: 2, Status: entity.ActivityStatusDraft}, nil)

	_, err := svc.GetPublishedActivity(2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	cache.AssertNotCalled(t, "SetJSON", mock.Anything, mock.Anything, mock.Anything)
}

func TestListActivities_ClampsPagination(t *testing.T) {
	svc, actRepo, _, _ := newActivityService()

	actRepo.On("List", uint(3), 100, 0).Return([]entity.Activity{}, int64(0), nil)

	_, _, err := svc.ListActivities(3, 0, 500)
	require.NoError(t, err)
	actRepo.AssertExpectations(t)
}

func TestValidateQuestion_BlankMarksMustSumToQuestionMarks(t *testing.T) {
	question := &entity.Question{
		Type:           entity.QuestionTypeFillBlanks,
		Marks:          5,
		EvaluationMode: entity.EvaluationModeAuto,
		Blanks: entity.BlankList{
			{ID: "b1", Marks: 2, Accepted: []string{"for"}},
			{ID: "b2", Marks: 2, Accepted: []string{"range"}},
		},
	}
	err := ValidateQuestion(question)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	question.Blanks[1].Marks = 3
	assert.NoError(t, ValidateQuestion(question))
}

func TestValidateQuestion_ChoiceNeedsCorrectOption(t *testing.T) {
	question := &entity.Question{
		Type:           entity.QuestionTypeCheckbox,
		Marks:          5,
		EvaluationMode: entity.EvaluationModeAuto,
		Options: entity.OptionList{
			{ID: "a", Text: "first"},
			{ID: "b", Text: "second"},
		},
	}
	assert.ErrorIs(t, ValidateQuestion(question), apperrors.ErrValidation)

	question.Options[0].IsCorrect = true
	assert.NoError(t, ValidateQuestion(question))
}

func TestValidateQuestion_AutoTextNeedsCorrectAnswer(t *testing.T) {
	// Эталон из одних запятых не дает ни одного варианта сравнения
	question := &entity.Question{
		Type:           entity.QuestionTypeShortAnswer,
		Marks:          5,
		EvaluationMode: entity.EvaluationModeAuto,
		CorrectAnswer:  ",",
	}
	assert.ErrorIs(t, ValidateQuestion(question), apperrors.ErrValidation)

	question.CorrectAnswer = "stack"
	assert.NoError(t, ValidateQuestion(question))

	// Для ai и manual режимов эталон не обязателен
	question.CorrectAnswer = ""
	question.EvaluationMode = entity.EvaluationModeAI
	assert.NoError(t, ValidateQuestion(question))
}

func TestValidateQuestion_AutoFillBlanksNeedsBlanksOrAnswer(t *testing.T) {
	question := &entity.Question{
		Type:           entity.QuestionTypeFillBlanks,
		Marks:          5,
		EvaluationMode: entity.EvaluationModeAuto,
	}
	assert.ErrorIs(t, ValidateQuestion(question), apperrors.ErrValidation)

	question.CorrectAnswer = "for, while"
	assert.NoError(t, ValidateQuestion(question))
}

func TestValidateQuestion_UnknownEvaluationMode(t *testing.T) {
	question := &entity.Question{
		Type:           entity.QuestionTypeShortAnswer,
		Marks:          5,
		EvaluationMode: "hybrid",
	}
	assert.ErrorIs(t, ValidateQuestion(question), apperrors.ErrValidation)
}
