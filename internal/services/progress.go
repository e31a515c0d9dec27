package services

import (
	"context"

	"github.com/tersedak-care/apiserver/internal/mq"
	"github.com/tersedak-care/apiserver/types"
)

// ProgressRepository defines persistence operations for learning progress.
type ProgressRepository interface {
	ListLessons(ctx context.Context, userID int, moduleID string) ([]types.LessonProgress, error)
	ListCompletedModules(ctx context.Context, userID int) ([]int, error)
	UpsertLesson(ctx context.Context, userID int, moduleID, lessonID string) error
	UpsertModule(ctx context.Context, userID, moduleOrder int) error
}

// ProgressKind tags a progress update.
type ProgressKind int

const (
	ProgressLesson ProgressKind = iota + 1
	ProgressModule
	// ProgressLegacyLesson is a lesson completion sent by older clients
	// without a "type" field.
	ProgressLegacyLesson
)

func (k ProgressKind) String() string {
	switch k {
	case ProgressLesson:
		return "lesson"
	case ProgressModule:
		return "module"
	case ProgressLegacyLesson:
		return "legacy_lesson"
	default:
		return "unknown"
	}
}

// ProgressUpdate is one of: a lesson completion, a module completion,
// or a legacy lesson completion.
type ProgressUpdate struct {
	Kind        ProgressKind
	ModuleID    string
	LessonID    string
	ModuleOrder int
}

// ParseProgressUpdate resolves the raw request fields into a tagged update.
func ParseProgressUpdate(kind, moduleID, lessonID string, moduleOrder *int) (ProgressUpdate, error) {
	switch kind {
	case "lesson":
		if moduleID == "" || lessonID == "" {
			return ProgressUpdate{}, invalid("moduleId dan lessonId harus diisi")
		}
		return ProgressUpdate{Kind: ProgressLesson, ModuleID: moduleID, LessonID: lessonID}, nil
	case "module":
		if moduleOrder == nil {
			return ProgressUpdate{}, invalid("moduleOrder harus diisi")
		}
		return ProgressUpdate{Kind: ProgressModule, ModuleOrder: *moduleOrder}, nil
	case "":
		if moduleID == "" || lessonID == "" {
			return ProgressUpdate{}, invalid("Data progress tidak lengkap")
		}
		return ProgressUpdate{Kind: ProgressLegacyLesson, ModuleID: moduleID, LessonID: lessonID}, nil
	default:
		return ProgressUpdate{}, invalid("Tipe progress tidak dikenal")
	}
}

// ProgressSummary is the learner's progress view.
type ProgressSummary struct {
	Lessons          []types.LessonProgress `json:"lessons"`
	CompletedModules []int                  `json:"completedModules"`
}

// ProgressService encapsulates lesson and module completion use-cases.
// Completing every lesson of a module does not complete the module.
type ProgressService struct {
	repo   ProgressRepository
	events EventPublisher
}

func NewProgressService(repo ProgressRepository, events EventPublisher) *ProgressService {
	return &ProgressService{repo: repo, events: publisherOrNop(events)}
}

// Get returns the lessons (optionally of one module) and every completed module order.
func (s *ProgressService) Get(ctx context.Context, userID int, moduleID string) (ProgressSummary, error) {
	lessons, err := s.repo.ListLessons(ctx, userID, moduleID)
	if err != nil {
		return ProgressSummary{}, err
	}
	modules, err := s.repo.ListCompletedModules(ctx, userID)
	if err != nil {
		return ProgressSummary{}, err
	}
	return ProgressSummary{Lessons: lessons, CompletedModules: modules}, nil
}

// Record applies a tagged update.
func (s *ProgressService) Record(ctx context.Context, userID int, update ProgressUpdate) error {
	switch update.Kind {
	case ProgressLesson, ProgressLegacyLesson:
		return s.repo.UpsertLesson(ctx, userID, update.ModuleID, update.LessonID)
	case ProgressModule:
		return s.CompleteModule(ctx, userID, update.ModuleOrder)
	default:
		return invalid("Tipe progress tidak dikenal")
	}
}

// CompleteModule marks a module as completed and announces it.
func (s *ProgressService) CompleteModule(ctx context.Context, userID, moduleOrder int) error {
	if err := s.repo.UpsertModule(ctx, userID, moduleOrder); err != nil {
		return err
	}
	s.events.Publish(ctx, mq.Event{
		Type:   mq.EventModuleCompleted,
		UserID: userID,
		Data:   map[string]any{"module_order": moduleOrder},
	})
	return nil
}
