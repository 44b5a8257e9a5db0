package jobqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/taskpilot/taskpilot/internal/pkg/storage"
)

var (
	storageMu     sync.RWMutex
	storageClient *storage.Client
)

// SetStorageClient injects the S3 client used by cleanup jobs. Called once
// during application startup.
func SetStorageClient(client *storage.Client) {
	storageMu.Lock()
	defer storageMu.Unlock()
	storageClient = client
}

func getStorageClient() *storage.Client {
	storageMu.RLock()
	defer storageMu.RUnlock()
	return storageClient
}

// processS3DeleteJob removes a deleted file's object from the bucket.
func (q *Queue) processS3DeleteJob(ctx context.Context, job *Job) error {
	payload, err := S3DeleteJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid s3_delete payload: %w", err)
	}
	if payload.ObjectKey == "" {
		return fmt.Errorf("s3_delete payload has no object key")
	}

	client := getStorageClient()
	if client == nil {
		return fmt.Errorf("storage client not configured")
	}
	return client.DeleteObject(ctx, payload.ObjectKey)
}
