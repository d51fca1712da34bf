package endpoints

import (
	"fmt"
	"net/http"
	"time"

	"github.com/examkit/examkit/internal/blocks"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/pdfsrc"
	"github.com/examkit/examkit/internal/svcctx"
	"github.com/examkit/examkit/internal/worker"
)

// Exam is the JSON view of an exam parsing job.
type Exam struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	SourcePDF      string  `json:"source_pdf"`
	FileHash       string  `json:"file_hash,omitempty"`
	FileSizeBytes  int64   `json:"file_size_bytes,omitempty"`
	Status         string  `json:"status"`
	CurrentPage    int     `json:"current_page"`
	TotalPages     int     `json:"total_pages"`
	TotalQuestions int     `json:"total_questions"`
	LastError      string  `json:"last_error,omitempty"`
	CreatedAt      string  `json:"created_at"`
	Progress       float64 `json:"progress"`
}

func toExam(job *model.ExamJob) Exam {
	e := Exam{
		ID:             job.ID,
		Name:           job.Name,
		SourcePDF:      job.SourcePDF,
		FileHash:       job.FileHash,
		FileSizeBytes:  job.FileSizeBytes,
		Status:         string(job.Status),
		CurrentPage:    job.CurrentPage,
		TotalPages:     job.TotalPages,
		TotalQuestions: job.TotalQuestions,
		LastError:      job.LastError,
		CreatedAt:      job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.TotalPages > 0 {
		e.Progress = float64(job.CurrentPage) / float64(job.TotalPages)
	}
	return e
}

// startWorker spawns a worker for the exam. startPage above 1 resumes from
// the checkpoint. The page source is closed when the worker exits.
func startWorker(r *http.Request, job *model.ExamJob, startPage int) error {
	svcs := svcctx.ServicesFrom(r.Context())
	if svcs == nil {
		return fmt.Errorf("services not initialized")
	}

	logger := svcs.Logger.With("exam_id", job.ID)
	src, err := pdfsrc.Open(job.SourcePDF, logger)
	if err != nil {
		return fmt.Errorf("failed to open pdf: %w", err)
	}

	parser := svcs.Config.Get().Parser
	cfg := worker.Config{
		ExamID: job.ID,
		Source: src,
		Store:  svcs.Store,
		Images: svcs.Images,
		Blocks: blocks.Config{
			MinImageSize:        parser.MinImageSize,
			LogoRepeatThreshold: parser.LogoRepeatThreshold,
			LogoAreaThreshold:   parser.LogoAreaThreshold,
			MaxImagesPerPage:    parser.MaxImagesPerPage,
			Logger:              logger,
		},
		StartPage: startPage,
		Logger:    logger,
	}

	// Workers outlive the HTTP request; they stop via pause signals or
	// DB status changes, not request cancellation.
	w, err := svcs.Registry.Spawn(svcs.BaseContext(), cfg)
	if err != nil {
		src.Close()
		return err
	}
	go func() {
		<-w.Done()
		src.Close()
	}()
	return nil
}
