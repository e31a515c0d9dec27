package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tersedak-care/apiserver/internal/auth"
	"github.com/tersedak-care/apiserver/internal/logger"
	"github.com/tersedak-care/apiserver/internal/mq"
	"github.com/tersedak-care/apiserver/internal/storage"
	"github.com/tersedak-care/apiserver/internal/store"
	"github.com/tersedak-care/apiserver/types"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrStorageUnavailable is returned when avatar uploads are not configured.
	ErrStorageUnavailable = errors.New("object storage unavailable")
)

// dummyHash is compared against when the email is unknown so both login
// failures cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := auth.HashPassword("tersedak-care-placeholder")
	return hash
})

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByID(ctx context.Context, id int) (types.UserProfile, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, name, email, passwordHash string) (types.UserProfile, error)
	UpdateAvatar(ctx context.Context, id int, avatarURL string) (types.UserProfile, error)
}

// AvatarStore stores avatar images and maps them to public URLs.
type AvatarStore interface {
	PutAvatar(ctx context.Context, userID int, avatar storage.Avatar) (string, error)
	KeyFromURL(url string) (string, bool)
	Delete(ctx context.Context, key string) error
}

// RegisterInput is the raw registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo    UserRepository
	avatars AvatarStore
	events  EventPublisher
	log     *logger.Logger
}

// NewUserService wires the service. avatars may be nil when no object
// storage is configured.
func NewUserService(repo UserRepository, avatars AvatarStore, events EventPublisher, log *logger.Logger) *UserService {
	if log == nil {
		log = logger.Nop()
	}
	return &UserService{
		repo:    repo,
		avatars: avatars,
		events:  publisherOrNop(events),
		log:     log.With("component", "user_service"),
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates the form and creates the account. A taken email yields
// store.ErrConflict, whether caught by the pre-check or by the unique index.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.UserProfile, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return types.UserProfile{}, invalid("Semua field harus diisi")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return types.UserProfile{}, invalid(fmt.Sprintf("Password minimal %d karakter", auth.MinPasswordLength))
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return types.UserProfile{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return types.UserProfile{}, store.ErrConflict
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return types.UserProfile{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, name, email, hash)
	if err != nil {
		return types.UserProfile{}, err
	}

	s.events.Publish(ctx, mq.Event{
		Type:   mq.EventUserRegistered,
		UserID: user.ID,
		Data:   map[string]any{"email": user.Email},
	})
	return user, nil
}

// Authenticate checks credentials and returns the profile on success.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.UserProfile, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return types.UserProfile{}, invalid("Email dan password harus diisi")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = auth.CheckPassword(dummyHash(), password)
			return types.UserProfile{}, ErrInvalidCredentials
		}
		return types.UserProfile{}, err
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return types.UserProfile{}, ErrInvalidCredentials
	}
	return user.Profile(), nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.UserProfile, error) {
	return s.repo.GetByID(ctx, id)
}

// SetAvatar uploads a new avatar and points the profile at it. The previous
// object is removed afterwards; failing to remove it only gets logged.
func (s *UserService) SetAvatar(ctx context.Context, userID int, avatar storage.Avatar) (types.UserProfile, error) {
	if s.avatars == nil {
		return types.UserProfile{}, ErrStorageUnavailable
	}

	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.UserProfile{}, err
	}

	url, err := s.avatars.PutAvatar(ctx, userID, avatar)
	if err != nil {
		return types.UserProfile{}, fmt.Errorf("upload avatar: %w", err)
	}

	updated, err := s.repo.UpdateAvatar(ctx, userID, url)
	if err != nil {
		return types.UserProfile{}, err
	}

	if current.AvatarURL != nil {
		if key, ok := s.avatars.KeyFromURL(*current.AvatarURL); ok {
			if err := s.avatars.Delete(ctx, key); err != nil {
				s.log.Warn("delete previous avatar failed", "user_id", userID, "key", key, "error", err)
			}
		}
	}
	return updated, nil
}

// AvatarsEnabled reports whether avatar uploads can be stored.
func (s *UserService) AvatarsEnabled() bool {
	return s.avatars != nil
}
