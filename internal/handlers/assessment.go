package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tersedak-care/apiserver/internal/content"
	"github.com/tersedak-care/apiserver/internal/logger"
	"github.com/tersedak-care/apiserver/internal/services"
	"github.com/tersedak-care/apiserver/types"
)

// AssessmentHandler serves pre/post-test results and the public question bank.
type AssessmentHandler struct {
	assessmentService *services.AssessmentService
	catalog           *content.Catalog
	log               *logger.Logger
}

func NewAssessmentHandler(assessmentService *services.AssessmentService, catalog *content.Catalog, log *logger.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		assessmentService: assessmentService,
		catalog:           catalog,
		log:               log.With("handler", "assessment"),
	}
}

// AssessmentRouter registers assessment routes on the given router.
// Questions and scoring are public; results require a session.
func AssessmentRouter(
	r chi.Router,
	assessmentService *services.AssessmentService,
	catalog *content.Catalog,
	authMiddleware func(http.Handler) http.Handler,
	log *logger.Logger,
) {
	handler := NewAssessmentHandler(assessmentService, catalog, log)

	r.Get("/questions", handler.Questions)
	r.Post("/score", handler.Score)
	r.With(authMiddleware).Get("/", handler.GetResult)
	r.With(authMiddleware).Post("/", handler.SaveResult)
}

func (h *AssessmentHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	result, err := h.assessmentService.Latest(r.Context(), userID, r.URL.Query().Get("type"))
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		writeServerError(w, r, h.log, "Gagal mengambil hasil", err)
		return
	}

	writeJSON(w, http.StatusOK, AssessmentResultResponse{Result: newAssessmentView(result)})
}

func (h *AssessmentHandler) SaveResult(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	var req AssessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	_, err = h.assessmentService.Record(r.Context(), userID, services.AssessmentInput{
		Kind:    req.Type,
		Score:   req.Score,
		Total:   req.Total,
		Answers: req.Answers,
	})
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		writeServerError(w, r, h.log, "Gagal menyimpan hasil", err)
		return
	}

	writeJSON(w, http.StatusOK, SaveAssessmentResponse{Message: "Hasil tersimpan", Success: true})
}

// Questions returns a random subset of the question bank without the answers.
func (h *AssessmentHandler) Questions(w http.ResponseWriter, r *http.Request) {
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "count harus berupa angka positif")
			return
		}
		count = parsed
	}

	writeJSON(w, http.StatusOK, QuestionsResponse{Questions: h.catalog.Questions(count, nil)})
}

// Score grades answers against the question bank.
func (h *AssessmentHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	result, err := h.catalog.Score(req.QuestionIDs, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, content.ErrNoQuestions):
			writeError(w, http.StatusBadRequest, "questionIds harus diisi")
		case errors.Is(err, content.ErrUnknownQuestion):
			writeError(w, http.StatusBadRequest, "Soal tidak dikenal")
		default:
			writeServerError(w, r, h.log, msgServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type AssessmentRequest struct {
	Type    string          `json:"type"`
	Score   *int            `json:"score"`
	Total   int             `json:"total"`
	Answers json.RawMessage `json:"answers"`
}

type ScoreRequest struct {
	QuestionIDs []string `json:"questionIds"`
	Answers     []int    `json:"answers"`
}

// AssessmentView is the client-facing shape of a stored assessment.
type AssessmentView struct {
	Score       int             `json:"score"`
	Total       int             `json:"total"`
	Answers     json.RawMessage `json:"answers"`
	CompletedAt time.Time       `json:"completedAt"`
}

func newAssessmentView(result *types.QuizResult) *AssessmentView {
	if result == nil {
		return nil
	}
	answers := result.Answers
	if len(answers) == 0 {
		answers = json.RawMessage("null")
	}
	return &AssessmentView{
		Score:       result.Score,
		Total:       result.TotalQuestions,
		Answers:     answers,
		CompletedAt: result.CompletedAt,
	}
}

type AssessmentResultResponse struct {
	Result *AssessmentView `json:"result"`
}

type SaveAssessmentResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type QuestionsResponse struct {
	Questions []content.Question `json:"questions"`
}
