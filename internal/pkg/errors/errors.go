package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных и
	// нарушений инвариантов (например, сумма баллов пропусков не равна баллам вопроса).
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния: повторный submit
	// уже зафиксированной попытки, дубликат попытки для пары (активность, студент).
	ErrConflict = errors.New("resource state conflict")
)
