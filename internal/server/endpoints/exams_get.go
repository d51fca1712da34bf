package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/internal/svcctx"
)

// GetExamEndpoint handles GET /api/exams/{id}.
type GetExamEndpoint struct{}

func (e *GetExamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/exams/{id}", e.handler
}

func (e *GetExamEndpoint) RequiresInit() bool { return true }

func (e *GetExamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "exam id is required")
		return
	}

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
	writeJSON(w, http.StatusOK, toExam(job))
}

func (e *GetExamEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get an exam by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp Exam
			if err := client.Get(cmd.Context(), "/api/exams/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
