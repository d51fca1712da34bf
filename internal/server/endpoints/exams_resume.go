package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/svcctx"
)

// ResumeExamEndpoint handles POST /api/exams/{id}/resume. Parsing restarts
// from the page after the checkpoint; earlier pages are replayed to rebuild
// parser state without re-emitting their output.
type ResumeExamEndpoint struct{}

func (e *ResumeExamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/exams/{id}/resume", e.handler
}

func (e *ResumeExamEndpoint) RequiresInit() bool { return true }

func (e *ResumeExamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	svcs := svcctx.ServicesFrom(r.Context())

	job, err := svcs.Store.GetExam(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "exam not found")
		return
	}
	if svcs.Registry.Get(id) != nil {
		writeError(w, http.StatusConflict, "exam is already being processed")
		return
	}
	if !job.CanStart() {
		writeError(w, http.StatusConflict, "exam cannot be resumed from status "+string(job.Status))
		return
	}

	if err := startWorker(r, job, job.CurrentPage+1); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job.Status = model.JobProcessing
	writeJSON(w, http.StatusAccepted, toExam(job))
}

func (e *ResumeExamEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a paused or failed parse from its checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp Exam
			if err := client.Post(cmd.Context(), "/api/exams/"+args[0]+"/resume", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
