package types

import "time"

// Bookmark is a piece of content a user saved for quick access.
// A user has at most one bookmark per item; saving it again overwrites
// the title, category, path and timestamp.
type Bookmark struct {
	UserID       int       `json:"-" db:"user_id"`
	ItemID       string    `json:"item_id" db:"item_id"`
	ItemTitle    string    `json:"item_title" db:"item_title"`
	ItemCategory *string   `json:"item_category" db:"item_category"`
	ItemPath     string    `json:"item_path" db:"item_path"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
