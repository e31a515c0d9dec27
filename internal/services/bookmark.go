package services

import (
	"context"
	"strings"

	"github.com/tersedak-care/apiserver/types"
)

// BookmarkRepository defines persistence operations for bookmarks.
type BookmarkRepository interface {
	List(ctx context.Context, userID int) ([]types.Bookmark, error)
	Upsert(ctx context.Context, bookmark types.Bookmark) (types.Bookmark, error)
	Delete(ctx context.Context, userID int, itemID string) error
}

// BookmarkInput is the raw bookmark form.
type BookmarkInput struct {
	ID       string
	Title    string
	Category string
	Path     string
}

type BookmarkService struct {
	repo BookmarkRepository
}

func NewBookmarkService(repo BookmarkRepository) *BookmarkService {
	return &BookmarkService{repo: repo}
}

func (s *BookmarkService) List(ctx context.Context, userID int) ([]types.Bookmark, error) {
	return s.repo.List(ctx, userID)
}

// Save creates or overwrites the user's bookmark for the item.
func (s *BookmarkService) Save(ctx context.Context, userID int, in BookmarkInput) (types.Bookmark, error) {
	id := strings.TrimSpace(in.ID)
	title := strings.TrimSpace(in.Title)
	path := strings.TrimSpace(in.Path)
	if id == "" || title == "" || path == "" {
		return types.Bookmark{}, invalid("Data bookmark tidak lengkap")
	}

	var category *string
	if c := strings.TrimSpace(in.Category); c != "" {
		category = &c
	}

	return s.repo.Upsert(ctx, types.Bookmark{
		UserID:       userID,
		ItemID:       id,
		ItemTitle:    title,
		ItemCategory: category,
		ItemPath:     path,
	})
}

// Remove deletes the bookmark. Removing an item that was never bookmarked succeeds.
func (s *BookmarkService) Remove(ctx context.Context, userID int, itemID string) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return invalid("ID bookmark harus diisi")
	}
	return s.repo.Delete(ctx, userID, itemID)
}
