package fsx

import (
	"context"
	"mime"
	"path/filepath"
	"time"

	"github.com/Abraxas-365/courier/pkg/errx"
)

var Errors = errx.NewRegistry("FSX")

var (
	ErrNotFound    = Errors.Register("NOT_FOUND", errx.TypeNotFound, 404, "File not found")
	ErrInvalidPath = Errors.Register("INVALID_PATH", errx.TypeValidation, 400, "Path escapes the storage root")
	ErrRead        = Errors.Register("READ", errx.TypeExternal, 502, "File could not be read")
)

// FileInfo describes a stored file.
type FileInfo struct {
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// FileReader reads files from a storage backend (local disk, S3).
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Stat(ctx context.Context, path string) (FileInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// ContentType guesses a MIME type from the file extension.
func ContentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
