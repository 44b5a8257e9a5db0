package controllers

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/app/repository"
	"github.com/taskpilot/taskpilot/internal/pkg/entitlements"
	"github.com/taskpilot/taskpilot/internal/pkg/jobqueue"
	"github.com/taskpilot/taskpilot/internal/pkg/storage"
	"github.com/taskpilot/taskpilot/internal/pkg/usercontext"
)

// Storage is the process-wide S3 client, injected at startup.
var Storage *storage.Client

// allowedUploadTypes is the MIME allow-list for presigned uploads.
var allowedUploadTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"image/webp":         true,
	"application/pdf":    true,
	"text/plain":         true,
	"text/csv":           true,
	"application/zip":    true,
	"application/json":   true,
	"audio/mpeg":         true,
	"video/mp4":          true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
}

type presignUploadRequest struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

type confirmUploadRequest struct {
	Key      string `json:"key"`
	FileType string `json:"file_type"`
}

func fileResponse(f *models.File) fiber.Map {
	return fiber.Map{
		"id":         f.ID,
		"name":       f.Name,
		"type":       f.Type,
		"key":        f.S3Key,
		"created_at": f.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// HandleCreateUploadURL hands out a short-lived presigned PUT URL. The file
// row is not created until the client confirms the upload.
func HandleCreateUploadURL(c *fiber.Ctx) error {
	if Storage == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "File storage is not configured")
	}

	var req presignUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if strings.TrimSpace(req.FileName) == "" {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", "file_name is required")
	}
	if !allowedUploadTypes[req.FileType] {
		return jsonError(c, fiber.StatusUnprocessableEntity, "unsupported_type", "This file type is not allowed")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	limits := entitlements.LimitsFor(user)
	if req.FileSize > limits.MaxUploadBytes {
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the upload limit for your plan")
	}

	key := storage.ObjectKey(user.ID, req.FileName)
	url, err := Storage.PresignUpload(c.Context(), key, req.FileType)
	if err != nil {
		log.Errorf("presign upload failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create upload URL")
	}

	return c.JSON(fiber.Map{
		"upload_url": url,
		"key":        key,
	})
}

// HandleConfirmUpload verifies the object landed in the bucket and records
// the file. Keys outside the caller's namespace are rejected.
func HandleConfirmUpload(c *fiber.Ctx) error {
	if Storage == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "File storage is not configured")
	}

	var req confirmUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	userID := usercontext.GetUserID(c)
	if storage.OwnerID(req.Key) != userID {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Key does not belong to you")
	}

	repos := repository.GetGlobalRepositories()
	if existing, err := repos.File.GetByS3Key(req.Key); err == nil && existing != nil {
		return c.JSON(fileResponse(existing))
	}

	exists, err := Storage.ObjectExists(c.Context(), req.Key)
	if err != nil {
		log.Errorf("object existence check failed for %s: %v", req.Key, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to verify upload")
	}
	if !exists {
		return jsonError(c, fiber.StatusNotFound, "upload_not_found", "No object found for this key")
	}

	name := filepath.Base(req.Key)
	if i := strings.Index(name, "_"); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
	}
	fileType := req.FileType
	if !allowedUploadTypes[fileType] {
		fileType = "application/octet-stream"
	}
	file := &models.File{
		UserID: userID,
		Name:   name,
		Type:   fileType,
		S3Key:  req.Key,
	}
	if err := repos.File.Create(file); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to record file")
	}

	return c.Status(fiber.StatusCreated).JSON(fileResponse(file))
}

// HandleListFiles returns the user's uploads, newest first.
func HandleListFiles(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	files, err := repository.GetGlobalFactory().GetFileRepository().GetByUserID(userID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load files")
	}

	items := make([]fiber.Map, 0, len(files))
	for i := range files {
		items = append(items, fileResponse(&files[i]))
	}
	return c.JSON(fiber.Map{"files": items})
}

func ownFile(c *fiber.Ctx) (*models.File, error) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return nil, jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid file id")
	}
	file, err := repository.GetGlobalFactory().GetFileRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "not_found", "File not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load file")
	}
	// Foreign files look like missing files.
	if file.UserID != usercontext.GetUserID(c) {
		return nil, jsonError(c, fiber.StatusNotFound, "not_found", "File not found")
	}
	return file, nil
}

// HandleGetDownloadURL returns a short-lived presigned GET URL for an owned file.
func HandleGetDownloadURL(c *fiber.Ctx) error {
	if Storage == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "File storage is not configured")
	}

	file, err := ownFile(c)
	if file == nil {
		return err
	}

	url, err := Storage.PresignDownload(c.Context(), file.S3Key)
	if err != nil {
		log.Errorf("presign download failed for file %d: %v", file.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create download URL")
	}
	return c.JSON(fiber.Map{"download_url": url})
}

// HandleDeleteFile removes the row and enqueues the S3 object deletion.
func HandleDeleteFile(c *fiber.Ctx) error {
	file, err := ownFile(c)
	if file == nil {
		return err
	}

	if err := repository.GetGlobalFactory().GetFileRepository().Delete(file.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete file")
	}

	if _, err := jobqueue.GetManager().EnqueueS3Delete(file.ID, file.S3Key); err != nil {
		log.Errorf("failed to enqueue object deletion for %s: %v", file.S3Key, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
