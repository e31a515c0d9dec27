package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tersedak-care/apiserver/internal/logger"
	"github.com/tersedak-care/apiserver/internal/services"
	"github.com/tersedak-care/apiserver/types"
)

// QuizHandler serves module quiz results.
type QuizHandler struct {
	assessmentService *services.AssessmentService
	log               *logger.Logger
}

func NewQuizHandler(assessmentService *services.AssessmentService, log *logger.Logger) *QuizHandler {
	return &QuizHandler{assessmentService: assessmentService, log: log.With("handler", "quiz")}
}

// QuizRouter registers quiz routes on the given router.
func QuizRouter(
	r chi.Router,
	assessmentService *services.AssessmentService,
	authMiddleware func(http.Handler) http.Handler,
	log *logger.Logger,
) {
	handler := NewQuizHandler(assessmentService, log)

	r.Use(authMiddleware)
	r.Get("/", handler.ListResults)
	r.Post("/", handler.SaveResult)
}

func (h *QuizHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	results, err := h.assessmentService.ListQuizzes(r.Context(), userID, r.URL.Query().Get("moduleId"))
	if err != nil {
		writeServerError(w, r, h.log, "Gagal mengambil hasil quiz", err)
		return
	}

	views := make([]QuizResultView, 0, len(results))
	for _, result := range results {
		views = append(views, newQuizResultView(result))
	}
	writeJSON(w, http.StatusOK, QuizResultsResponse{Results: views})
}

func (h *QuizHandler) SaveResult(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	var req QuizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	_, err = h.assessmentService.RecordQuiz(r.Context(), userID, services.QuizInput{
		ModuleID:       req.ModuleID,
		LessonID:       req.LessonID,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		Answers:        req.Answers,
	})
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		writeServerError(w, r, h.log, "Gagal menyimpan hasil quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Hasil quiz tersimpan"})
}

type QuizRequest struct {
	ModuleID       string          `json:"moduleId"`
	LessonID       string          `json:"lessonId"`
	Score          *int            `json:"score"`
	TotalQuestions int             `json:"totalQuestions"`
	Answers        json.RawMessage `json:"answers"`
}

// QuizResultView omits the stored answers from listings.
type QuizResultView struct {
	ModuleID       string    `json:"module_id"`
	LessonID       string    `json:"lesson_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	CompletedAt    time.Time `json:"completed_at"`
}

func newQuizResultView(result types.QuizResult) QuizResultView {
	return QuizResultView{
		ModuleID:       result.ModuleID,
		LessonID:       result.LessonID,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		CompletedAt:    result.CompletedAt,
	}
}

type QuizResultsResponse struct {
	Results []QuizResultView `json:"results"`
}
