package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

type Deps struct {
	Service *quiz.Service
	Auth    *auth.AuthService
	Blobs   storage.BlobStore
	Events  EventFeed // nil disables GET /events
	Import  ImportSettings

	InstructorUser     string
	InstructorPassHash string

	// Ready reports whether dependencies (e.g. the database) are reachable.
	Ready func() error
}

// NewRouter wires every route onto r.
func NewRouter(r chi.Router, d Deps) {
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/auth/login", auth.StudentLoginHandler(d.Auth, d.Service))
	r.Post("/auth/instructor/login", auth.InstructorLoginHandler(d.Auth, d.InstructorUser, d.InstructorPassHash))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		// Question bank (instructor)
		pr.With(rbac.Require(rbac.PermQuestionImport)).
			Post("/questions/import", ImportQuestionsHandler(d.Service, d.Blobs, d.Import))
		pr.With(rbac.Require(rbac.PermQuestionEdit)).
			Get("/questions", ListQuestionsHandler(d.Service))
		pr.With(rbac.Require(rbac.PermQuestionEdit)).
			Get("/questions/export", ExportQuestionsHandler(d.Service))
		pr.With(rbac.Require(rbac.PermQuestionEdit)).
			Get("/questions/{id}", GetQuestionHandler(d.Service))
		pr.With(rbac.Require(rbac.PermQuestionEdit)).
			Put("/questions/{id}", UpdateQuestionHandler(d.Service))
		pr.Group(func(gr chi.Router) {
			gr.Use(rbac.Require(rbac.PermQuestionImport))
			gr.Route("/uploads", func(ur chi.Router) { MountUploads(ur, d.Blobs) })
		})

		// Quiz catalog
		pr.With(rbac.Require(rbac.PermQuizCreate)).
			Post("/quizzes", CreateQuizHandler(d.Service))
		pr.With(rbac.Require(rbac.PermQuizView)).
			Get("/quizzes", ListQuizzesHandler(d.Service))
		pr.With(rbac.Require(rbac.PermQuizView)).
			Get("/quizzes/{quizID}", GetQuizHandler(d.Service))
		pr.With(rbac.Require(rbac.PermQuizCreate)).
			Get("/quizzes/{quizID}/export", ExportQuizHandler(d.Service))

		// Attempts (student flow)
		pr.With(rbac.Require(rbac.PermAttemptTake)).
			Post("/quizzes/{quizID}/attempts", StartAttemptHandler(d.Service))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/attempts", ListAttemptsHandler(d.Service))
		pr.With(rbac.Require(rbac.PermAttemptTake)).
			Get("/attempts/{attemptID}/questions/{position}", QuestionViewHandler(d.Service))
		pr.With(rbac.Require(rbac.PermAttemptTake)).
			Put("/attempts/{attemptID}/responses/{questionID}", RecordResponseHandler(d.Service))
		pr.With(rbac.Require(rbac.PermAttemptTake)).
			Post("/attempts/{attemptID}/navigate", NavigateHandler(d.Service))
		pr.With(rbac.Require(rbac.PermAttemptTake)).
			Post("/attempts/{attemptID}/submit", SubmitHandler(d.Service))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/attempts/{attemptID}/result", ResultHandler(d.Service))

		if d.Events != nil {
			pr.With(rbac.Require(rbac.PermEventsRead)).
				Get("/events", EventsHandler(d.Events))
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}
