package endpoints

import (
	"github.com/examkit/examkit/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},

		// Exam endpoints
		&CreateExamEndpoint{},
		&ListExamsEndpoint{},
		&GetExamEndpoint{},
		&DeleteExamEndpoint{},

		// Parse lifecycle endpoints
		&ParseExamEndpoint{},
		&PauseExamEndpoint{},
		&ResumeExamEndpoint{},

		// Result endpoints
		&ExamQuestionsEndpoint{},
		&ExamValidationEndpoint{},
	}
}

// ExamCommands returns endpoints grouped under the "exams" CLI subcommand.
func ExamCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateExamEndpoint{},
		&ListExamsEndpoint{},
		&GetExamEndpoint{},
		&DeleteExamEndpoint{},
		&ParseExamEndpoint{},
		&PauseExamEndpoint{},
		&ResumeExamEndpoint{},
		&ExamQuestionsEndpoint{},
		&ExamValidationEndpoint{},
	}
}
