package service

import (
	"context"
	"io"
)

// Uploader stores job attachments and profile images outside the ledger; the ledger keeps URLs only.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, folder string, publicID string) (string, error)
	Delete(ctx context.Context, publicID string) error
}
