package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tersedak-care/apiserver/internal/logger"
	"github.com/tersedak-care/apiserver/internal/services"
)

// ProgressHandler provides HTTP handlers for learning progress.
type ProgressHandler struct {
	progressService *services.ProgressService
	log             *logger.Logger
}

func NewProgressHandler(progressService *services.ProgressService, log *logger.Logger) *ProgressHandler {
	return &ProgressHandler{progressService: progressService, log: log.With("handler", "progress")}
}

// ProgressRouter registers progress routes on the given router.
func ProgressRouter(
	r chi.Router,
	progressService *services.ProgressService,
	authMiddleware func(http.Handler) http.Handler,
	log *logger.Logger,
) {
	handler := NewProgressHandler(progressService, log)

	r.Use(authMiddleware)
	r.Get("/", handler.GetProgress)
	r.Post("/", handler.SaveProgress)
	r.Post("/complete", handler.CompleteModule)
}

func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	summary, err := h.progressService.Get(r.Context(), userID, r.URL.Query().Get("moduleId"))
	if err != nil {
		writeServerError(w, r, h.log, "Gagal mengambil progress", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *ProgressHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	var req ProgressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	update, err := services.ParseProgressUpdate(req.Type, req.ModuleID, req.LessonID, req.ModuleOrder)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.progressService.Record(r.Context(), userID, update); err != nil {
		if writeValidationError(w, err) {
			return
		}
		writeServerError(w, r, h.log, "Gagal menyimpan progress", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Progress tersimpan"})
}

func (h *ProgressHandler) CompleteModule(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	var req CompleteModuleRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.ModuleOrder == nil {
		writeError(w, http.StatusBadRequest, "moduleOrder harus diisi")
		return
	}

	if err := h.progressService.CompleteModule(r.Context(), userID, *req.ModuleOrder); err != nil {
		writeServerError(w, r, h.log, "Gagal menyimpan", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Modul selesai"})
}

type ProgressRequest struct {
	Type        string `json:"type"`
	ModuleID    string `json:"moduleId"`
	LessonID    string `json:"lessonId"`
	ModuleOrder *int   `json:"moduleOrder"`
}

type CompleteModuleRequest struct {
	ModuleOrder *int `json:"moduleOrder"`
}
