package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tersedak-care/apiserver/types"
)

// BookmarkRepository handles persistence for bookmarks.
type BookmarkRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewBookmarkRepository(db *sqlx.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db, now: utcNow}
}

// List returns the user's bookmarks, newest first.
func (r *BookmarkRepository) List(ctx context.Context, userID int) ([]types.Bookmark, error) {
	const query = `
		SELECT user_id, item_id, item_title, item_category, item_path, created_at
		FROM bookmarks
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`
	bookmarks := make([]types.Bookmark, 0)
	if err := r.db.SelectContext(ctx, &bookmarks, r.db.Rebind(query), userID); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// Upsert saves a bookmark, overwriting title, category, path and created_at
// when the user already bookmarked the item.
func (r *BookmarkRepository) Upsert(ctx context.Context, bookmark types.Bookmark) (types.Bookmark, error) {
	bookmark.CreatedAt = r.now()

	const query = `
		INSERT INTO bookmarks (user_id, item_id, item_title, item_category, item_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, item_id)
		DO UPDATE SET
			item_title = excluded.item_title,
			item_category = excluded.item_category,
			item_path = excluded.item_path,
			created_at = excluded.created_at`
	_, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(query),
		bookmark.UserID,
		bookmark.ItemID,
		bookmark.ItemTitle,
		bookmark.ItemCategory,
		bookmark.ItemPath,
		bookmark.CreatedAt,
	)
	if err != nil {
		return types.Bookmark{}, err
	}
	return bookmark, nil
}

// Delete removes the bookmark if present. Deleting a missing bookmark is not an error.
func (r *BookmarkRepository) Delete(ctx context.Context, userID int, itemID string) error {
	const query = `DELETE FROM bookmarks WHERE user_id = ? AND item_id = ?`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), userID, itemID)
	return err
}
