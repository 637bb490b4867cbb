package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondErr maps domain errors onto HTTP statuses.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case quiz.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, quiz.ErrOutOfRange),
		errors.Is(err, quiz.ErrInvalidSelection),
		errors.Is(err, quiz.ErrEmptyQuestionSet),
		errors.Is(err, quiz.ErrInvalidQuizName),
		errors.Is(err, quiz.ErrInvalidQuestion),
		errors.Is(err, quiz.ErrInvalidUsername),
		errors.Is(err, quiz.ErrInvalidImportFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, quiz.ErrAttemptCompleted),
		errors.Is(err, quiz.ErrAttemptInProgress),
		errors.Is(err, quiz.ErrBankInUse):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseIntDefault(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
