package fsxlocal

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/fsx"
)

// LocalFileSystem reads files below a base directory.
type LocalFileSystem struct {
	basePath string
}

// NewLocalFileSystem creates basePath if needed.
func NewLocalFileSystem(basePath string) (*LocalFileSystem, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fsx.Errors.NewWithCause(fsx.ErrRead, err).WithDetail("path", basePath)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fsx.Errors.NewWithCause(fsx.ErrRead, err).WithDetail("path", basePath)
	}
	return &LocalFileSystem{basePath: abs}, nil
}

func (l *LocalFileSystem) ReadFile(_ context.Context, path string) ([]byte, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, readError(err, path)
	}
	return data, nil
}

func (l *LocalFileSystem) Stat(_ context.Context, path string) (fsx.FileInfo, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return fsx.FileInfo{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return fsx.FileInfo{}, readError(err, path)
	}
	return fsx.FileInfo{
		Name:        info.Name(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: fsx.ContentType(full),
	}, nil
}

func (l *LocalFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	_, err := l.Stat(ctx, path)
	if err == nil {
		return true, nil
	}
	if errx.HasCode(err, fsx.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (l *LocalFileSystem) BasePath() string {
	return l.basePath
}

// fullPath resolves path below the base directory. Absolute paths that
// already point inside it are accepted as is.
func (l *LocalFileSystem) fullPath(path string) (string, error) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(l.basePath, path)
	}
	full = filepath.Clean(full)
	if full != l.basePath && !strings.HasPrefix(full, l.basePath+string(filepath.Separator)) {
		return "", fsx.Errors.New(fsx.ErrInvalidPath).WithDetail("path", path)
	}
	return full, nil
}

func readError(err error, path string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fsx.Errors.New(fsx.ErrNotFound).WithDetail("path", path)
	}
	return fsx.Errors.NewWithCause(fsx.ErrRead, err).WithDetail("path", path)
}

var _ fsx.FileReader = (*LocalFileSystem)(nil)
