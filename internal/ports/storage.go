package ports

import (
	"context"
	"io"
	"time"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// For localfs this is the same object_key.
	// For gdrive it is the real fileId (so reads/deletes work later).
	ObjectKey string
	Size      int64
	// URL is a retrievable location for the stored object. The avatar
	// provider fetches narration audio and source images through it.
	URL string
}

type SignedURLOutput struct {
	URL       string
	ExpiresAt time.Time
}

// StorageProvider: implementations (localfs, gdrive, s3, ...)
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error

	// PublicURL returns a fetchable URL for an already-stored object,
	// or "" when the provider cannot produce one.
	PublicURL(objectKey string) string

	// Optional; the API can keep serving /assets/{id}/content instead.
	GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (SignedURLOutput, error)
}
