package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/svcctx"
)

// PauseResponse reports the outcome of a pause request.
type PauseResponse struct {
	Status string `json:"status"`
}

// PauseExamEndpoint handles POST /api/exams/{id}/pause. The worker stops
// after the page in flight; the checkpoint stays at the last committed page.
type PauseExamEndpoint struct{}

func (e *PauseExamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/exams/{id}/pause", e.handler
}

func (e *PauseExamEndpoint) RequiresInit() bool { return true }

func (e *PauseExamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	svcs := svcctx.ServicesFrom(r.Context())

	if svcs.Registry.RequestPause(id) {
		writeJSON(w, http.StatusAccepted, PauseResponse{Status: "pausing"})
		return
	}

	// No live worker. A stale processing status (crashed process) is
	// corrected here so the job can be resumed.
	job, err := svcs.Store.GetExam(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "exam not found")
		return
	}
	if job.Status != model.JobProcessing {
		writeError(w, http.StatusConflict, "exam is not being processed")
		return
	}
	if err := svcs.Store.UpdateExam(r.Context(), id, map[string]any{
		"status": string(model.JobPaused),
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PauseResponse{Status: "paused"})
}

func (e *PauseExamEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause a running parse at the next page boundary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PauseResponse
			if err := client.Post(cmd.Context(), "/api/exams/"+args[0]+"/pause", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
