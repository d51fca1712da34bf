package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/svcctx"
)

// ParseExamEndpoint handles POST /api/exams/{id}/parse. It starts a fresh
// parse from page 1, replacing any previously parsed questions.
type ParseExamEndpoint struct{}

func (e *ParseExamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/exams/{id}/parse", e.handler
}

func (e *ParseExamEndpoint) RequiresInit() bool { return true }

func (e *ParseExamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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
		writeError(w, http.StatusConflict, "exam cannot be parsed from status "+string(job.Status))
		return
	}

	if err := startWorker(r, job, 1); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job.Status = model.JobProcessing
	writeJSON(w, http.StatusAccepted, toExam(job))
}

func (e *ParseExamEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <id>",
		Short: "Start parsing an exam from page 1",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp Exam
			if err := client.Post(cmd.Context(), "/api/exams/"+args[0]+"/parse", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
