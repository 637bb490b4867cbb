package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/qti/export"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// POST /quizzes  {"name": "...", "question_ids": ["..."]}
func CreateQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var d quiz.Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		qz, err := svc.CreateFromDraft(r.Context(), d)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, qz)
	}
}

// GET /quizzes
func ListQuizzesHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListQuizzes(r.Context())
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /quizzes/{quizID}
func GetQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		qz, err := svc.GetQuiz(r.Context(), id)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		ids, err := svc.ListQuestionIDs(r.Context(), qz.ID)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"quiz":         qz,
			"question_ids": ids,
		})
	}
}

// GET /quizzes/{quizID}/export  (QTI 2.1 zip)
func ExportQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		qz, err := svc.GetQuiz(r.Context(), id)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		qs, err := svc.QuizQuestions(r.Context(), qz.ID)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		pkg, err := export.BuildPackage(qz, qs)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", "attachment; filename=\""+qz.ID+".zip\"")
		http.ServeContent(w, r, qz.ID+".zip", time.Now(), bytes.NewReader(pkg))
	}
}
