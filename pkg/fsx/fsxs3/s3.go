package fsxs3

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/fsx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// API is the part of the S3 client the file system uses.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3FileSystem reads objects from one bucket, keys relative to prefix.
type S3FileSystem struct {
	client API
	bucket string
	prefix string
}

func NewS3FileSystem(client API, bucket, prefix string) *S3FileSystem {
	return &S3FileSystem{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (f *S3FileSystem) key(p string) string {
	p = strings.TrimPrefix(p, "/")
	if f.prefix == "" {
		return p
	}
	return path.Join(f.prefix, p)
}

func (f *S3FileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(p)),
	})
	if err != nil {
		return nil, f.readError(err, p)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, f.readError(err, p)
	}
	return data, nil
}

func (f *S3FileSystem) Stat(ctx context.Context, p string) (fsx.FileInfo, error) {
	out, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(p)),
	})
	if err != nil {
		return fsx.FileInfo{}, f.readError(err, p)
	}

	info := fsx.FileInfo{
		Name:        path.Base(p),
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}
	if out.LastModified != nil {
		info.ModTime = *out.LastModified
	}
	if info.ContentType == "" {
		info.ContentType = fsx.ContentType(p)
	}
	return info, nil
}

func (f *S3FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	_, err := f.Stat(ctx, p)
	if err == nil {
		return true, nil
	}
	if errx.HasCode(err, fsx.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (f *S3FileSystem) readError(err error, p string) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	var apiErr smithy.APIError
	switch {
	case errors.As(err, &noKey), errors.As(err, &notFound):
		return fsx.Errors.New(fsx.ErrNotFound).WithDetail("bucket", f.bucket).WithDetail("key", f.key(p))
	case errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound":
		return fsx.Errors.New(fsx.ErrNotFound).WithDetail("bucket", f.bucket).WithDetail("key", f.key(p))
	}
	return fsx.Errors.NewWithCause(fsx.ErrRead, err).WithDetail("bucket", f.bucket).WithDetail("key", f.key(p))
}

var (
	_ fsx.FileReader = (*S3FileSystem)(nil)
	_ API            = (*s3.Client)(nil)
)
