package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tersedak-care/apiserver/types"
)

// ProgressRepository handles persistence for lesson and module completion.
type ProgressRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db, now: utcNow}
}

// ListLessons returns the user's completed lessons, optionally limited to one module.
func (r *ProgressRepository) ListLessons(ctx context.Context, userID int, moduleID string) ([]types.LessonProgress, error) {
	query := `
		SELECT user_id, module_id, lesson_id, completed_at
		FROM learning_progress
		WHERE user_id = ?`
	args := []any{userID}
	if moduleID != "" {
		query += ` AND module_id = ?`
		args = append(args, moduleID)
	}
	query += ` ORDER BY module_id, lesson_id`

	lessons := make([]types.LessonProgress, 0)
	if err := r.db.SelectContext(ctx, &lessons, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return lessons, nil
}

// ListCompletedModules returns the orders of the modules the user completed, ascending.
func (r *ProgressRepository) ListCompletedModules(ctx context.Context, userID int) ([]int, error) {
	const query = `
		SELECT module_order
		FROM completed_modules
		WHERE user_id = ?
		ORDER BY module_order`
	orders := make([]int, 0)
	if err := r.db.SelectContext(ctx, &orders, r.db.Rebind(query), userID); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpsertLesson marks a lesson as completed. Repeating the call only refreshes completed_at.
func (r *ProgressRepository) UpsertLesson(ctx context.Context, userID int, moduleID, lessonID string) error {
	const query = `
		INSERT INTO learning_progress (user_id, module_id, lesson_id, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, module_id, lesson_id)
		DO UPDATE SET completed_at = excluded.completed_at`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), userID, moduleID, lessonID, r.now())
	return err
}

// UpsertModule marks a module as completed. Repeating the call only refreshes completed_at.
func (r *ProgressRepository) UpsertModule(ctx context.Context, userID, moduleOrder int) error {
	const query = `
		INSERT INTO completed_modules (user_id, module_order, completed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, module_order)
		DO UPDATE SET completed_at = excluded.completed_at`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), userID, moduleOrder, r.now())
	return err
}
