package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tersedak-care/apiserver/types"
)

// QuizRepository handles persistence for quiz and assessment attempts.
type QuizRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db, now: utcNow}
}

// quizRow mirrors quiz_results; answers may be NULL, which json.RawMessage
// cannot be scanned from directly.
type quizRow struct {
	ID             int64     `db:"id"`
	UserID         int       `db:"user_id"`
	ModuleID       string    `db:"module_id"`
	LessonID       string    `db:"lesson_id"`
	Score          int       `db:"score"`
	TotalQuestions int       `db:"total_questions"`
	Answers        []byte    `db:"answers"`
	CompletedAt    time.Time `db:"completed_at"`
}

func (row quizRow) toResult() types.QuizResult {
	result := types.QuizResult{
		ID:             row.ID,
		UserID:         row.UserID,
		ModuleID:       row.ModuleID,
		LessonID:       row.LessonID,
		Score:          row.Score,
		TotalQuestions: row.TotalQuestions,
		CompletedAt:    row.CompletedAt,
	}
	if len(row.Answers) > 0 {
		result.Answers = json.RawMessage(row.Answers)
	}
	return result
}

const quizColumns = `id, user_id, module_id, lesson_id, score, total_questions, answers, completed_at`

// Latest returns the most recently completed attempt of the user for a module.
func (r *QuizRepository) Latest(ctx context.Context, userID int, moduleID string) (types.QuizResult, error) {
	query := `
		SELECT ` + quizColumns + `
		FROM quiz_results
		WHERE user_id = ? AND module_id = ?
		ORDER BY completed_at DESC, id DESC
		LIMIT 1`
	var row quizRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), userID, moduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.QuizResult{}, ErrNotFound
		}
		return types.QuizResult{}, err
	}
	return row.toResult(), nil
}

// List returns the user's attempts, newest first, optionally limited to one module.
func (r *QuizRepository) List(ctx context.Context, userID int, moduleID string) ([]types.QuizResult, error) {
	query := `
		SELECT ` + quizColumns + `
		FROM quiz_results
		WHERE user_id = ?`
	args := []any{userID}
	if moduleID != "" {
		query += ` AND module_id = ?`
		args = append(args, moduleID)
	}
	query += ` ORDER BY completed_at DESC, id DESC`

	var rows []quizRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	results := make([]types.QuizResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toResult())
	}
	return results, nil
}

// Create appends a new attempt. Attempts are never deduplicated.
func (r *QuizRepository) Create(ctx context.Context, result types.QuizResult) (types.QuizResult, error) {
	result.CompletedAt = r.now()

	// Answers travel as text so lib/pq does not encode them as bytea.
	var answers any
	if len(result.Answers) > 0 {
		answers = string(result.Answers)
	}

	const query = `
		INSERT INTO quiz_results (user_id, module_id, lesson_id, score, total_questions, answers, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := r.db.QueryRowxContext(
		ctx,
		r.db.Rebind(query),
		result.UserID,
		result.ModuleID,
		result.LessonID,
		result.Score,
		result.TotalQuestions,
		answers,
		result.CompletedAt,
	).Scan(&result.ID); err != nil {
		return types.QuizResult{}, err
	}
	return result, nil
}
