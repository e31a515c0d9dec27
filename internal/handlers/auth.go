package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tersedak-care/apiserver/internal/auth"
	"github.com/tersedak-care/apiserver/internal/logger"
	"github.com/tersedak-care/apiserver/internal/services"
	"github.com/tersedak-care/apiserver/internal/storage"
	"github.com/tersedak-care/apiserver/internal/store"
	"github.com/tersedak-care/apiserver/types"
)

const (
	formFieldAvatar         = "avatar"
	maxAvatarMultipartBytes = storage.MaxAvatarSize + 64<<10
)

// AuthHandler provides session authentication endpoints.
type AuthHandler struct {
	userService  *services.UserService
	tokens       *auth.Tokens
	secureCookie bool
	log          *logger.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *auth.Tokens, secureCookie bool, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		tokens:       tokens,
		secureCookie: secureCookie,
		log:          log.With("handler", "auth"),
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(
	r chi.Router,
	userService *services.UserService,
	tokens *auth.Tokens,
	secureCookie bool,
	authMiddleware func(http.Handler) http.Handler,
	log *logger.Logger,
) {
	handler := NewAuthHandler(userService, tokens, secureCookie, log)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(authMiddleware).Get("/me", handler.Me)
	r.With(authMiddleware).Put("/me/avatar", handler.UploadAvatar)
}

// Register creates a new user account and starts a session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := h.userService.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "Email sudah terdaftar")
			return
		}
		writeServerError(w, r, h.log, "Gagal membuat akun", err)
		return
	}

	h.startSession(w, r, http.StatusCreated, "Registrasi berhasil", user)
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Email atau password salah")
			return
		}
		writeServerError(w, r, h.log, msgServerError, err)
		return
	}

	h.startSession(w, r, http.StatusOK, "Login berhasil", user)
}

// Logout clears the session cookie. It does not require a valid session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearedCookie(h.secureCookie))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logout berhasil"})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User tidak ditemukan")
			return
		}
		writeServerError(w, r, h.log, msgServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

// UploadAvatar replaces the current user's avatar with the uploaded image.
func (h *AuthHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}
	if !h.userService.AvatarsEnabled() {
		writeError(w, http.StatusServiceUnavailable, "Penyimpanan avatar tidak tersedia")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarMultipartBytes)
	file, _, err := r.FormFile(formFieldAvatar)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Ukuran avatar maksimal 2 MB")
			return
		}
		writeError(w, http.StatusBadRequest, "File avatar harus diisi")
		return
	}
	defer file.Close()

	avatar, err := storage.ReadAvatar(file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAvatarTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "Ukuran avatar maksimal 2 MB")
		case errors.Is(err, storage.ErrUnsupportedImage):
			writeError(w, http.StatusBadRequest, "Format gambar tidak didukung")
		default:
			writeError(w, http.StatusBadRequest, "File avatar tidak dapat dibaca")
		}
		return
	}

	user, err := h.userService.SetAvatar(r.Context(), userID, avatar)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Penyimpanan avatar tidak tersedia")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User tidak ditemukan")
		default:
			writeServerError(w, r, h.log, "Gagal menyimpan avatar", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, message string, user types.UserProfile) {
	token, expiresAt, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		writeServerError(w, r, h.log, msgServerError, err)
		return
	}

	http.SetCookie(w, auth.SessionCookie(token, expiresAt, h.secureCookie))
	writeJSON(w, status, AuthResponse{Message: message, User: user, Token: token})
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Message string            `json:"message"`
	User    types.UserProfile `json:"user"`
	Token   string            `json:"token"`
}

type UserResponse struct {
	User types.UserProfile `json:"user"`
}
