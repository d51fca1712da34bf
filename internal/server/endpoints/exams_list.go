package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/internal/svcctx"
)

// ListExamsResponse is the response for listing exams.
type ListExamsResponse struct {
	Exams []Exam `json:"exams"`
}

// ListExamsEndpoint handles GET /api/exams.
type ListExamsEndpoint struct{}

func (e *ListExamsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/exams", e.handler
}

func (e *ListExamsEndpoint) RequiresInit() bool { return true }

func (e *ListExamsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StoreFrom(r.Context())
	jobs, err := store.ListExams(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ListExamsResponse{Exams: make([]Exam, 0, len(jobs))}
	for _, job := range jobs {
		resp.Exams = append(resp.Exams, toExam(job))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListExamsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all exams",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListExamsResponse
			if err := client.Get(cmd.Context(), "/api/exams", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
