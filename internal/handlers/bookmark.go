package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tersedak-care/apiserver/internal/logger"
	"github.com/tersedak-care/apiserver/internal/services"
	"github.com/tersedak-care/apiserver/types"
)

// BookmarkHandler provides HTTP handlers for bookmarks.
type BookmarkHandler struct {
	bookmarkService *services.BookmarkService
	log             *logger.Logger
}

func NewBookmarkHandler(bookmarkService *services.BookmarkService, log *logger.Logger) *BookmarkHandler {
	return &BookmarkHandler{bookmarkService: bookmarkService, log: log.With("handler", "bookmark")}
}

// BookmarkRouter registers bookmark routes on the given router.
func BookmarkRouter(
	r chi.Router,
	bookmarkService *services.BookmarkService,
	authMiddleware func(http.Handler) http.Handler,
	log *logger.Logger,
) {
	handler := NewBookmarkHandler(bookmarkService, log)

	r.Use(authMiddleware)
	r.Get("/", handler.ListBookmarks)
	r.Post("/", handler.SaveBookmark)
	r.Delete("/", handler.DeleteBookmark)
}

func (h *BookmarkHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	bookmarks, err := h.bookmarkService.List(r.Context(), userID)
	if err != nil {
		writeServerError(w, r, h.log, "Gagal mengambil bookmarks", err)
		return
	}
	writeJSON(w, http.StatusOK, BookmarksResponse{Bookmarks: bookmarks})
}

func (h *BookmarkHandler) SaveBookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	var req BookmarkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	_, err = h.bookmarkService.Save(r.Context(), userID, services.BookmarkInput{
		ID:       req.ID,
		Title:    req.Title,
		Category: req.Category,
		Path:     req.Path,
	})
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		writeServerError(w, r, h.log, "Gagal menyimpan bookmark", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Bookmark tersimpan"})
}

// DeleteBookmark removes a bookmark named in the body ({"id": ...}) or the
// "id" query parameter.
func (h *BookmarkHandler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	var req DeleteBookmarkRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.ID == "" {
		req.ID = r.URL.Query().Get("id")
	}

	if err := h.bookmarkService.Remove(r.Context(), userID, req.ID); err != nil {
		if writeValidationError(w, err) {
			return
		}
		writeServerError(w, r, h.log, "Gagal menghapus bookmark", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Bookmark dihapus"})
}

type BookmarkRequest struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Path     string `json:"path"`
}

type DeleteBookmarkRequest struct {
	ID string `json:"id"`
}

type BookmarksResponse struct {
	Bookmarks []types.Bookmark `json:"bookmarks"`
}
