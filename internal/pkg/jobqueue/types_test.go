package jobqueue

import "testing"

func TestSendMailPayloadRoundTrip(t *testing.T) {
	in := SendMailJobPayload{To: "user@example.com", Subject: "Hi", Body: "<p>hello</p>"}

	out, err := SendMailJobPayloadFromMap(in.ToMap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestS3DeletePayloadRoundTrip(t *testing.T) {
	in := S3DeleteJobPayload{FileID: 7, ObjectKey: "files/7/abc_report.pdf"}

	out, err := S3DeleteJobPayloadFromMap(in.ToMap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestJobRetryLifecycle(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 2}

	job.MarkAsProcessing()
	if job.Status != JobStatusProcessing || job.ProcessedAt == nil {
		t.Fatalf("unexpected state after MarkAsProcessing: %+v", job)
	}

	job.MarkAsFailed("smtp timeout")
	if !job.IsRetryable() {
		t.Fatal("first failure should be retryable")
	}

	job.MarkAsFailed("smtp timeout")
	if job.IsRetryable() {
		t.Fatalf("job with %d/%d retries should not be retryable", job.RetryCount, job.MaxRetries)
	}

	job.MarkAsCompleted()
	if job.Status != JobStatusCompleted || job.ErrorMsg != "" {
		t.Fatalf("unexpected state after MarkAsCompleted: %+v", job)
	}
}
