package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/pkg/env"
)

// Config holds S3 file storage configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
	}

	if config.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required")
	}
	if config.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required")
	}
	if config.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required")
	}

	return config, nil
}

// ObjectKey builds the bucket key for a user upload. Keys are namespaced per
// user so ownership can be derived from the key alone.
func ObjectKey(userID uint, fileName string) string {
	base := strings.ReplaceAll(filepath.Base(fileName), " ", "_")
	return fmt.Sprintf("files/%d/%s_%s", userID, uuid.New().String(), base)
}

// OwnerID extracts the user id segment from an object key, or 0 if the key
// does not follow the files/<id>/... layout.
func OwnerID(key string) uint {
	parts := strings.Split(key, "/")
	if len(parts) < 3 || parts[0] != "files" {
		return 0
	}
	var id uint
	if _, err := fmt.Sscanf(parts[1], "%d", &id); err != nil {
		return 0
	}
	return id
}
