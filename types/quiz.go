package types

import (
	"encoding/json"
	"time"
)

// QuizResult is a single quiz or assessment attempt. Results are append-only:
// every attempt is a new row, and the "current" result for a module is the
// most recently completed one.
type QuizResult struct {
	// ID is the unique identifier of the attempt.
	ID int64 `json:"id" db:"id"`

	// UserID identifies the user who took the quiz.
	UserID int `json:"-" db:"user_id"`

	// ModuleID identifies the module the quiz belongs to. Pre and post
	// assessments use the reserved ids "pretest" and "posttest".
	ModuleID string `json:"module_id" db:"module_id"`

	// LessonID identifies the lesson the quiz belongs to. Assessments reuse
	// the module id.
	LessonID string `json:"lesson_id" db:"lesson_id"`

	// Score is the number of correctly answered questions.
	Score int `json:"score" db:"score"`

	// TotalQuestions is the number of questions in the attempt.
	TotalQuestions int `json:"total_questions" db:"total_questions"`

	// Answers is the client-defined answer payload, stored as-is.
	Answers json.RawMessage `json:"answers,omitempty" db:"-"`

	// CompletedAt is the time the attempt was recorded.
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// AssessmentKind distinguishes the pre-test from the post-test.
type AssessmentKind string

const (
	AssessmentPre  AssessmentKind = "pre"
	AssessmentPost AssessmentKind = "post"
)

// Reserved module identifiers under which assessments are stored.
const (
	PretestModuleID  = "pretest"
	PosttestModuleID = "posttest"
)

// ParseAssessmentKind validates a raw "type" value.
func ParseAssessmentKind(raw string) (AssessmentKind, bool) {
	switch AssessmentKind(raw) {
	case AssessmentPre:
		return AssessmentPre, true
	case AssessmentPost:
		return AssessmentPost, true
	default:
		return "", false
	}
}

// ModuleID returns the reserved module identifier for the assessment kind.
func (k AssessmentKind) ModuleID() string {
	if k == AssessmentPre {
		return PretestModuleID
	}
	return PosttestModuleID
}
