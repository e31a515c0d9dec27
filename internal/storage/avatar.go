package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

const (
	// AvatarPrefix is the key prefix under which avatars are stored.
	AvatarPrefix = "avatars/"

	// MaxAvatarSize is the largest accepted avatar upload.
	MaxAvatarSize = 2 << 20

	immutableCacheControl = "public, max-age=31536000, immutable"
)

var (
	ErrAvatarTooLarge   = errors.New("avatar exceeds size limit")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

var avatarExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Avatar is a validated image ready for upload.
type Avatar struct {
	Data        []byte
	ContentType string
	Extension   string
}

// ReadAvatar reads at most MaxAvatarSize bytes from r and sniffs the content type.
func ReadAvatar(r io.Reader) (Avatar, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarSize+1))
	if err != nil {
		return Avatar{}, err
	}
	if len(data) > MaxAvatarSize {
		return Avatar{}, ErrAvatarTooLarge
	}
	if len(data) == 0 {
		return Avatar{}, ErrUnsupportedImage
	}

	contentType := http.DetectContentType(data)
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return Avatar{}, ErrUnsupportedImage
	}
	return Avatar{Data: data, ContentType: contentType, Extension: ext}, nil
}

// AvatarKey returns a fresh object key for a user's avatar.
func AvatarKey(userID int, ext string) string {
	return fmt.Sprintf("%s%s/%s.%s", AvatarPrefix, strconv.Itoa(userID), uuid.NewString(), ext)
}

// PutAvatar uploads the avatar under a new key and returns its public URL.
func (s *Storage) PutAvatar(ctx context.Context, userID int, avatar Avatar) (string, error) {
	key := AvatarKey(userID, avatar.Extension)
	return s.Put(ctx, key, bytes.NewReader(avatar.Data), int64(len(avatar.Data)), avatar.ContentType)
}
