package endpoints

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/internal/engine"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/pdfsrc"
	"github.com/examkit/examkit/internal/svcctx"
)

// CreateExamRequest registers a PDF for parsing.
type CreateExamRequest struct {
	PDFPath string `json:"pdf_path"`
	Name    string `json:"name,omitempty"`
}

// CreateExamEndpoint handles POST /api/exams.
type CreateExamEndpoint struct{}

func (e *CreateExamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/exams", e.handler
}

func (e *CreateExamEndpoint) RequiresInit() bool { return true }

func (e *CreateExamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CreateExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PDFPath == "" {
		writeError(w, http.StatusBadRequest, "pdf_path is required")
		return
	}

	pdfPath, err := filepath.Abs(req.PDFPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := engine.FileHash(pdfPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	size := int64(0)
	if info, err := os.Stat(pdfPath); err == nil {
		size = info.Size()
	}

	svcs := svcctx.ServicesFrom(r.Context())
	src, err := pdfsrc.Open(pdfPath, svcs.Logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to open pdf: "+err.Error())
		return
	}
	totalPages := src.PageCount()
	src.Close()

	name := req.Name
	if name == "" {
		base := filepath.Base(pdfPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	job := &model.ExamJob{
		ID:            uuid.New().String(),
		Name:          name,
		SourcePDF:     pdfPath,
		FileHash:      hash,
		FileSizeBytes: size,
		Status:        model.JobPending,
		TotalPages:    totalPages,
		CreatedAt:     time.Now().UTC(),
	}
	if err := svcs.Store.CreateExam(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	svcs.Logger.Info("registered exam", "exam_id", job.ID, "name", name, "pages", totalPages)
	writeJSON(w, http.StatusCreated, toExam(job))
}

func (e *CreateExamEndpoint) Command(getServerURL func() string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create <pdf>",
		Short: "Register an exam PDF for parsing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp Exam
			if err := client.Post(cmd.Context(), "/api/exams", CreateExamRequest{
				PDFPath: pdfPath,
				Name:    name,
			}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "exam name (defaults to the PDF filename)")
	return cmd
}
