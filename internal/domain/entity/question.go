package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Типы вопросов
const (
	QuestionTypeMCQ                   = "mcq"
	QuestionTypeCheckbox              = "checkbox"
	QuestionTypeDropdown              = "dropdown"
	QuestionTypeShortAnswer           = "short_answer"
	QuestionTypeParagraph             = "paragraph"
	QuestionTypeFillBlanks            = "fill_blanks"
	QuestionTypeNumerical             = "numerical"
	QuestionTypeCodeCompletion        = "code_completion"
	QuestionTypeOutputPrediction      = "output_prediction"
	QuestionTypeTraceExecution        = "trace_execution"
	QuestionTypeJustification         = "justification"
	QuestionTypeErrorIdentification   = "error_identification"
	QuestionTypeErrorCorrection       = "error_correction"
	QuestionTypeConceptIdentification = "concept_identification"
	QuestionTypeFileUpload            = "file_upload"
)

// Режимы оценивания вопроса
const (
	EvaluationModeAuto   = "auto"
	EvaluationModeAI     = "ai"
	EvaluationModeManual = "manual"
)

// Option представляет вариант ответа для вопросов с выбором
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// OptionList - пользовательский тип для хранения вариантов ответа в JSONB
type OptionList []Option

// Scan реализует интерфейс sql.Scanner для OptionList
// Используется GORM для чтения JSONB данных из базы
func (o *OptionList) Scan(value interface{}) error {
	if value == nil {
		*o = OptionList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = OptionList{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для OptionList
func (o OptionList) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Blank представляет отдельно оцениваемый пропуск внутри вопроса code_completion
type Blank struct {
	ID       string   `json:"id"`
	Marks    int      `json:"marks"`
	Accepted []string `json:"accepted"`
}

// BlankList - пользовательский тип для хранения пропусков в JSONB
type BlankList []Blank

// Scan реализует интерфейс sql.Scanner для BlankList
func (b *BlankList) Scan(value interface{}) error {
	if value == nil {
		*b = BlankList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*b = BlankList{}
		return nil
	}

	return json.Unmarshal(bytes, b)
}

// Value реализует интерфейс driver.Valuer для BlankList
func (b BlankList) Value() (driver.Value, error) {
	if len(b) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(b)
}

// StringArray - пользовательский тип для работы с JSONB-массивами строк
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
func (o *StringArray) Scan(value interface{}) error {
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// Question представляет одну оцениваемую единицу активности
type Question struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	SectionID      uint   `gorm:"not null;index" json:"section_id"`
	Type           string `gorm:"size:30;not null" json:"type"`
	Text           string `gorm:"type:text;not null" json:"text"`
	Marks          int    `gorm:"not null;default:1" json:"marks"`
	EvaluationMode string `gorm:"size:10;not null;default:'auto'" json:"evaluation_mode"`
	Position       int    `gorm:"not null;default:0" json:"position"`

	// Данные для детерминированной проверки
	Options       OptionList `gorm:"type:jsonb" json:"options,omitempty"`
	CorrectAnswer string     `gorm:"type:text" json:"-"` // Скрыто от клиента
	Tolerance     *float64   `json:"tolerance,omitempty"`
	Blanks        BlankList  `gorm:"type:jsonb" json:"blanks,omitempty"`
	CaseSensitive bool       `gorm:"not null;default:false" json:"case_sensitive"`

	// Данные для AI-проверки
	ModelAnswer      string      `gorm:"type:text" json:"-"`
	ExpectedKeywords StringArray `gorm:"type:jsonb" json:"-"`

	// Данные для вопросов с исполнением кода
	CodeTemplate    string `gorm:"type:text" json:"code_template,omitempty"`
	Language        string `gorm:"size:30" json:"language,omitempty"`
	LanguageVersion string `gorm:"size:20" json:"language_version,omitempty"`
	FaultyCode      string `gorm:"type:text" json:"faulty_code,omitempty"`
	CorrectionCode  string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// CorrectOptionIDs возвращает список ID правильных вариантов
func (q *Question) CorrectOptionIDs() []string {
	ids := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.IsCorrect {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// OptionByID возвращает вариант ответа по его ID
func (q *Question) OptionByID(id string) (*Option, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// HasBlanks проверяет, задана ли у вопроса структура пропусков
func (q *Question) HasBlanks() bool {
	return len(q.Blanks) > 0
}

// BlankMarksSum возвращает сумму баллов всех пропусков.
// Инвариант: при наличии пропусков сумма должна равняться Marks.
func (q *Question) BlankMarksSum() int {
	sum := 0
	for _, b := range q.Blanks {
		sum += b.Marks
	}
	return sum
}

// HasExpectedKeywords проверяет, задан ли список ключевых слов для AI-проверки
func (q *Question) HasExpectedKeywords() bool {
	return len(q.ExpectedKeywords) > 0
}

// IsExecutionVerified проверяет, относится ли вопрос к типам,
// проверяемым через внешний сервис исполнения кода
func (q *Question) IsExecutionVerified() bool {
	switch q.Type {
	case QuestionTypeCodeCompletion, QuestionTypeOutputPrediction, QuestionTypeErrorCorrection:
		return true
	}
	return false
}

// CorrectAnswerAlternatives возвращает допустимые варианты текстового ответа.
// Запятая в CorrectAnswer разделяет синонимы; при нескольких вариантах
// сравнение выполняется без учета регистра. Пустые части отбрасываются:
// эталон из одних запятых и пробелов дает пустой результат.
func (q *Question) CorrectAnswerAlternatives() []string {
	parts := strings.Split(q.CorrectAnswer, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
