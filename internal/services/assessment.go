package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tersedak-care/apiserver/internal/store"
	"github.com/tersedak-care/apiserver/types"
)

// QuizRepository defines persistence operations for quiz and assessment attempts.
type QuizRepository interface {
	Latest(ctx context.Context, userID int, moduleID string) (types.QuizResult, error)
	Create(ctx context.Context, result types.QuizResult) (types.QuizResult, error)
	List(ctx context.Context, userID int, moduleID string) ([]types.QuizResult, error)
}

// AssessmentInput is a pre or post-test attempt. Score is a pointer so a
// missing score can be told apart from zero.
type AssessmentInput struct {
	Kind    string
	Score   *int
	Total   int
	Answers json.RawMessage
}

// QuizInput is a module quiz attempt.
type QuizInput struct {
	ModuleID       string
	LessonID       string
	Score          *int
	TotalQuestions int
	Answers        json.RawMessage
}

// AssessmentService records pre/post-tests and module quizzes, both stored
// as quiz results.
type AssessmentService struct {
	repo QuizRepository
}

func NewAssessmentService(repo QuizRepository) *AssessmentService {
	return &AssessmentService{repo: repo}
}

// Latest returns the most recent attempt of the given kind, or nil when the
// user has none.
func (s *AssessmentService) Latest(ctx context.Context, userID int, rawKind string) (*types.QuizResult, error) {
	kind, ok := types.ParseAssessmentKind(rawKind)
	if !ok {
		return nil, invalid("type harus pre atau post")
	}
	result, err := s.repo.Latest(ctx, userID, kind.ModuleID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// Record appends a pre or post-test attempt.
func (s *AssessmentService) Record(ctx context.Context, userID int, in AssessmentInput) (types.QuizResult, error) {
	kind, ok := types.ParseAssessmentKind(in.Kind)
	if !ok || in.Score == nil || in.Total <= 0 {
		return types.QuizResult{}, invalid("Data tidak lengkap")
	}
	if *in.Score < 0 || *in.Score > in.Total {
		return types.QuizResult{}, invalid("Skor tidak valid")
	}

	return s.repo.Create(ctx, types.QuizResult{
		UserID:         userID,
		ModuleID:       kind.ModuleID(),
		LessonID:       kind.ModuleID(),
		Score:          *in.Score,
		TotalQuestions: in.Total,
		Answers:        normalizeAnswers(in.Answers),
	})
}

// RecordQuiz appends a module quiz attempt.
func (s *AssessmentService) RecordQuiz(ctx context.Context, userID int, in QuizInput) (types.QuizResult, error) {
	if in.ModuleID == "" || in.LessonID == "" || in.Score == nil || in.TotalQuestions <= 0 {
		return types.QuizResult{}, invalid("Data quiz tidak lengkap")
	}
	if *in.Score < 0 || *in.Score > in.TotalQuestions {
		return types.QuizResult{}, invalid("Skor tidak valid")
	}

	return s.repo.Create(ctx, types.QuizResult{
		UserID:         userID,
		ModuleID:       in.ModuleID,
		LessonID:       in.LessonID,
		Score:          *in.Score,
		TotalQuestions: in.TotalQuestions,
		Answers:        normalizeAnswers(in.Answers),
	})
}

// ListQuizzes returns the user's attempts, newest first.
func (s *AssessmentService) ListQuizzes(ctx context.Context, userID int, moduleID string) ([]types.QuizResult, error) {
	return s.repo.List(ctx, userID, moduleID)
}

// normalizeAnswers maps an absent or JSON null payload to nil.
func normalizeAnswers(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
