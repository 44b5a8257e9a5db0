package jobqueue

import (
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/taskpilot/taskpilot/internal/pkg/env"
)

// Manager manages the global job queue
type Manager struct {
	queue   *Queue
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 3
		if v, err := strconv.Atoi(env.GetEnv("JOBQUEUE_WORKERS", "3")); err == nil && v > 0 {
			workerCount = v
		}

		globalManager = &Manager{
			queue: NewQueue(workerCount),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue workers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue")
	m.queue.Start()
}

// Stop stops the job queue workers
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	log.Info("[JobQueue Manager] Stopping job queue")
	m.queue.Stop()
}

// EnqueueSendMail queues an outgoing email for background delivery.
func (m *Manager) EnqueueSendMail(to, subject, body string) (*Job, error) {
	payload := SendMailJobPayload{To: to, Subject: subject, Body: body}
	return m.queue.EnqueueJob(JobTypeSendMail, payload.ToMap())
}

// EnqueueS3Delete queues a bucket object removal for a deleted file.
func (m *Manager) EnqueueS3Delete(fileID uint, objectKey string) (*Job, error) {
	payload := S3DeleteJobPayload{FileID: fileID, ObjectKey: objectKey}
	return m.queue.EnqueueJob(JobTypeS3Delete, payload.ToMap())
}
