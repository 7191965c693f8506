package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/P3chys/ustam-api/internal/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Allowed avatar content types and the extension stored with each.
var avatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

const MaxAvatarSize = 5 << 20

type StorageService struct {
	client *minio.Client
	bucket string
}

func NewStorageService(ctx context.Context, cfg *config.Config) (*StorageService, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, err
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinIOBucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, err
		}
	}

	return &StorageService{
		client: client,
		bucket: cfg.MinIOBucket,
	}, nil
}

// AvatarObjectKey returns the object key for a new avatar of the craftsman,
// or an error when the content type is not an accepted image type.
func AvatarObjectKey(craftsmanID uuid.UUID, contentType string) (string, error) {
	ext, ok := avatarTypes[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("unsupported avatar content type %q", contentType)
	}
	return path.Join("craftsmen", craftsmanID.String(), uuid.NewString()+ext), nil
}

func (s *StorageService) UploadFile(ctx context.Context, r io.Reader, key string, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *StorageService) DownloadFile(ctx context.Context, key string) (*minio.Object, error) {
	return s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
}

func (s *StorageService) DeleteFile(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
