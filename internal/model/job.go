package model

import "time"

// JobStatus is the lifecycle state of an exam parsing job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobPaused     JobStatus = "paused"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ExamJob is the durable checkpoint record for one exam document. It is
// mutated at page boundaries and terminal transitions only; CurrentPage is
// the last page whose output was fully committed.
type ExamJob struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SourcePDF      string    `json:"source_pdf"`
	FileHash       string    `json:"file_hash,omitempty"`
	FileSizeBytes  int64     `json:"file_size_bytes,omitempty"`
	Status         JobStatus `json:"status"`
	CurrentPage    int       `json:"current_page"`
	TotalPages     int       `json:"total_pages"`
	TotalQuestions int       `json:"total_questions"`
	LastError      string    `json:"last_error,omitempty"`
	ValidationJSON string    `json:"validation_json,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CanStart reports whether a worker may be spawned for the job's current
// status. Completed jobs are terminal.
func (j *ExamJob) CanStart() bool {
	switch j.Status {
	case JobPending, JobPaused, JobFailed:
		return true
	default:
		return false
	}
}
