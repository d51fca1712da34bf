package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/examkit/examkit/internal/api"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/svcctx"
)

// QuestionsResponse is the response for listing parsed questions.
type QuestionsResponse struct {
	ExamID    string                 `json:"exam_id"`
	Count     int                    `json:"count"`
	Questions []model.ParsedQuestion `json:"questions"`
}

// ExamQuestionsEndpoint handles GET /api/exams/{id}/questions.
type ExamQuestionsEndpoint struct{}

func (e *ExamQuestionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/exams/{id}/questions", e.handler
}

func (e *ExamQuestionsEndpoint) RequiresInit() bool { return true }

func (e *ExamQuestionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	questions, err := store.GetQuestions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, QuestionsResponse{
		ExamID:    id,
		Count:     len(questions),
		Questions: questions,
	})
}

func (e *ExamQuestionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "questions <id>",
		Short: "List parsed questions for an exam",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp QuestionsResponse
			if err := client.Get(cmd.Context(), "/api/exams/"+args[0]+"/questions", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
