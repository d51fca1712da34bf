package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/svcctx"
)

// ExamValidationEndpoint handles GET /api/exams/{id}/validation. The
// validation blob is produced when a parse completes.
type ExamValidationEndpoint struct{}

func (e *ExamValidationEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/exams/{id}/validation", e.handler
}

func (e *ExamValidationEndpoint) RequiresInit() bool { return true }

func (e *ExamValidationEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	store := svcctx.StoreFrom(r.Context())

	job, err := store.GetExam(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "exam not found")
		return
	}
	if job.ValidationJSON == "" {
		writeError(w, http.StatusNotFound, "no validation report, parse has not completed")
		return
	}

	var detail model.ValidationDetail
	if err := json.Unmarshal([]byte(job.ValidationJSON), &detail); err != nil {
		writeError(w, http.StatusInternalServerError, "corrupt validation report")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (e *ExamValidationEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "validation <id>",
		Short: "Get the validation report for a completed parse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp model.ValidationDetail
			if err := client.Get(cmd.Context(), "/api/exams/"+args[0]+"/validation", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
