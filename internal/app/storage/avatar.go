package storage

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"babelchat/internal/pkg/errs"
)

const (
	// MaxAvatarSizeMB is the maximum allowed avatar size in megabytes.
	MaxAvatarSizeMB = 2

	// MaxAvatarSize is the maximum allowed avatar size in bytes.
	MaxAvatarSize = MaxAvatarSizeMB * 1024 * 1024

	// URLDuration is how long a presigned avatar URL stays valid.
	URLDuration = time.Hour
)

// allowedAvatarTypes maps the permitted sniffed MIME types to their file extension.
var allowedAvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Avatar is a validated image ready for upload.
type Avatar struct {
	ContentType string
	Ext         string
	Data        []byte
}

// Reader returns a fresh reader over the image bytes.
func (a *Avatar) Reader() io.Reader {
	return bytes.NewReader(a.Data)
}

// ReadAvatar reads r fully and checks its size and sniffed content type.
// The client-declared type is ignored.
func ReadAvatar(r io.Reader) (*Avatar, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarSize+1))
	if err != nil {
		return nil, errs.NewError(errs.ErrFormParseFailed)
	}

	if len(data) == 0 || len(data) > MaxAvatarSize {
		return nil, errs.NewError(errs.ErrInvalidFile, MaxAvatarSizeMB)
	}

	contentType := mimetype.Detect(data).String()
	ext, ok := allowedAvatarTypes[contentType]
	if !ok {
		return nil, errs.NewError(errs.ErrInvalidFile, MaxAvatarSizeMB)
	}

	return &Avatar{ContentType: contentType, Ext: ext, Data: data}, nil
}

// AvatarKey returns a fresh object key for userID's avatar.
func AvatarKey(userID, ext string) string {
	return fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), ext)
}
