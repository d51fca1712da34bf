package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/internal/svcctx"
)

// DeleteExamEndpoint handles DELETE /api/exams/{id}.
type DeleteExamEndpoint struct{}

func (e *DeleteExamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/exams/{id}", e.handler
}

func (e *DeleteExamEndpoint) RequiresInit() bool { return true }

func (e *DeleteExamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "exam id is required")
		return
	}

	svcs := svcctx.ServicesFrom(r.Context())
	if svcs.Registry.Get(id) != nil {
		writeError(w, http.StatusConflict, "exam is being processed, pause it first")
		return
	}

	job, err := svcs.Store.GetExam(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "exam not found")
		return
	}

	if err := svcs.Store.DeleteExam(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	svcs.Logger.Info("deleted exam", "exam_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteExamEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an exam and its parsed questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/exams/"+args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}
