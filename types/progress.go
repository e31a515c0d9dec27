package types

import "time"

// LessonProgress records that a user completed a lesson of a learning module.
// There is at most one row per (user, module, lesson); completing the lesson
// again refreshes CompletedAt.
type LessonProgress struct {
	// UserID identifies the learner. It is not serialized since every
	// progress response is already scoped to the caller.
	UserID int `json:"-" db:"user_id"`

	// ModuleID is the opaque identifier of the learning module (e.g. "module-1").
	ModuleID string `json:"module_id" db:"module_id"`

	// LessonID is the opaque identifier of the lesson (e.g. "lesson-1-1").
	LessonID string `json:"lesson_id" db:"lesson_id"`

	// CompletedAt is the time of the most recent completion.
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// CompletedModule records that a user completed a whole learning module,
// identified by its display order. Module completion is an explicit action
// and is never derived from lesson progress.
type CompletedModule struct {
	UserID      int       `json:"-" db:"user_id"`
	ModuleOrder int       `json:"module_order" db:"module_order"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}
