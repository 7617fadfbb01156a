package minio

import (
	"bytes"
	"context"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/pkg/errors"
)

var (
	ErrUploadFailed   = errors.New(errors.CodeStorageError, "upload failed")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid request")
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ImageStore keeps uploaded pill photos under uploads/YYYY/MM/DD/ and hands
// back presigned GET URLs.
type ImageStore struct {
	client *MinIOClient
	logger logging.Logger
	now    func() time.Time
}

func NewImageStore(client *MinIOClient, log logging.Logger) *ImageStore {
	return &ImageStore{client: client, logger: log, now: time.Now}
}

// ObjectKey builds the storage key for an upload named name.
func (s *ImageStore) ObjectKey(name string) string {
	base := unsafeName.ReplaceAllString(path.Base(name), "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "image"
	}
	return path.Join("uploads", s.now().UTC().Format("2006/01/02"), uuid.NewString()+"-"+base)
}

// Save uploads data and returns a presigned URL valid for the configured
// expiry.
func (s *ImageStore) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrInvalidRequest.WithDetail("empty image")
	}
	bucket := s.client.config.Bucket
	key := s.ObjectKey(name)

	_, err := s.client.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-name": path.Base(name)},
	})
	if err != nil {
		return "", ErrUploadFailed.WithCause(err).WithDetail(key)
	}

	u, err := s.client.client.PresignedGetObject(ctx, bucket, key, s.client.config.PresignExpiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeStorageError, "failed to presign object").WithDetail(key)
	}

	s.logger.Debug("Stored upload", logging.String("key", key), logging.Int("bytes", len(data)))
	return u.String(), nil
}

// Exists reports whether key is present in the bucket.
func (s *ImageStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.client.StatObject(ctx, s.client.config.Bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, errors.Wrap(err, errors.CodeStorageError, "failed to stat object").WithDetail(key)
}

//Personal.AI order the ending
