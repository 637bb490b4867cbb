package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

var errForbidden = errors.New("forbidden")

// ownedAttempt loads the attempt named in the URL. Callers without
// attempt:view-all only see their own attempts.
func ownedAttempt(w http.ResponseWriter, r *http.Request, svc *quiz.Service) (quiz.Attempt, bool) {
	a, err := svc.GetAttempt(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		respondErr(w, r, err)
		return quiz.Attempt{}, false
	}
	if a.StudentID != auth.SubjectFromContext(r.Context()) && !rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
		http.Error(w, errForbidden.Error(), http.StatusForbidden)
		return quiz.Attempt{}, false
	}
	return a, true
}

// takeAttempt is ownedAttempt restricted to the attempt's own student.
func takeAttempt(w http.ResponseWriter, r *http.Request, svc *quiz.Service) (quiz.Attempt, bool) {
	a, err := svc.GetAttempt(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		respondErr(w, r, err)
		return quiz.Attempt{}, false
	}
	if a.StudentID != auth.SubjectFromContext(r.Context()) {
		http.Error(w, errForbidden.Error(), http.StatusForbidden)
		return quiz.Attempt{}, false
	}
	return a, true
}

// answer is an optional selection carried by navigate and submit.
type answer struct {
	QuestionID string   `json:"question_id"`
	Selected   []string `json:"selected"`
}

func (a answer) record(r *http.Request, svc *quiz.Service, attemptID string) error {
	if a.QuestionID == "" {
		return nil
	}
	sel, err := quiz.SelectionOf(a.Selected)
	if err != nil {
		return err
	}
	return svc.RecordResponse(r.Context(), attemptID, a.QuestionID, sel)
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// POST /quizzes/{quizID}/attempts
func StartAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := auth.SubjectFromContext(r.Context())
		a, err := svc.StartOrResume(r.Context(), studentID, chi.URLParam(r, "quizID"))
		if err != nil {
			respondErr(w, r, err)
			return
		}
		qz, err := svc.GetQuiz(r.Context(), a.QuizID)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"attempt": a,
			"total":   qz.QuestionCount,
		})
	}
}

// GET /attempts?quiz_id=...&student_id=...&completed=true|false&limit=50&offset=0
// Callers without attempt:view-all are pinned to their own student id.
func ListAttemptsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := quiz.AttemptListOpts{
			QuizID:    strings.TrimSpace(q.Get("quiz_id")),
			StudentID: strings.TrimSpace(q.Get("student_id")),
			Limit:     parseIntDefault(q.Get("limit"), 50),
			Offset:    parseIntDefault(q.Get("offset"), 0),
		}
		if c := q.Get("completed"); c != "" {
			b, err := strconv.ParseBool(c)
			if err != nil {
				http.Error(w, "completed must be true or false", http.StatusBadRequest)
				return
			}
			opts.Completed = &b
		}
		if !rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
			opts.StudentID = auth.SubjectFromContext(r.Context())
		}
		list, err := svc.ListAttempts(r.Context(), opts)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /attempts/{attemptID}/questions/{position}
func QuestionViewHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := takeAttempt(w, r, svc)
		if !ok {
			return
		}
		pos, err := strconv.Atoi(chi.URLParam(r, "position"))
		if err != nil {
			http.Error(w, "position must be a number", http.StatusBadRequest)
			return
		}
		v, err := svc.QuestionView(r.Context(), a.ID, pos)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, v)
	}
}

// PUT /attempts/{attemptID}/responses/{questionID}  {"selected": ["A","C"]}
func RecordResponseHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := takeAttempt(w, r, svc)
		if !ok {
			return
		}
		var req struct {
			Selected []string `json:"selected"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		ans := answer{QuestionID: chi.URLParam(r, "questionID"), Selected: req.Selected}
		if err := ans.record(r, svc, a.ID); err != nil {
			respondErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /attempts/{attemptID}/navigate
// {"position": 1, "direction": "next", "question_id": "...", "selected": ["B"]}
// The optional selection is saved before moving.
func NavigateHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := takeAttempt(w, r, svc)
		if !ok {
			return
		}
		var req struct {
			answer
			Position  int    `json:"position"`
			Direction string `json:"direction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		dir, err := quiz.ParseDirection(req.Direction)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		if err := req.answer.record(r, svc, a.ID); err != nil {
			respondErr(w, r, err)
			return
		}
		pos, err := svc.Navigate(r.Context(), a.QuizID, req.Position, dir)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		v, err := svc.QuestionView(r.Context(), a.ID, pos)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, v)
	}
}

// POST /attempts/{attemptID}/submit  {"question_id": "...", "selected": ["B"]} (body optional)
func SubmitHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := takeAttempt(w, r, svc)
		if !ok {
			return
		}
		var last answer
		if err := decodeOptional(r, &last); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := last.record(r, svc, a.ID); err != nil {
			respondErr(w, r, err)
			return
		}
		done, err := svc.Submit(r.Context(), a.ID)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, done)
	}
}

// GET /attempts/{attemptID}/result
func ResultHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := ownedAttempt(w, r, svc)
		if !ok {
			return
		}
		res, err := svc.GetResult(r.Context(), a.ID)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}
