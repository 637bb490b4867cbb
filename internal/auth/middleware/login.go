package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// StudentRegistry resolves a username to a student, registering it on first use.
type StudentRegistry interface {
	LoginOrRegister(ctx context.Context, username string) (quiz.Student, error)
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Subject     string `json:"sub"`
	Username    string `json:"username"`
}

// POST /auth/login  { "username": "..." }
func StudentLoginHandler(a *AuthService, reg StudentRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		st, err := reg.LoginOrRegister(r.Context(), req.Username)
		if errors.Is(err, quiz.ErrInvalidUsername) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			log.Printf("student login: %v", err)
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		writeToken(w, a, st.ID, rbac.RoleStudent, st.Username)
	}
}

// POST /auth/instructor/login  { "username": "...", "password": "..." }
func InstructorLoginHandler(a *AuthService, user, passHash string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(req.Username)
		if username != user || bcrypt.CompareHashAndPassword([]byte(passHash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		writeToken(w, a, "instructor:"+username, rbac.RoleInstructor, username)
	}
}

func writeToken(w http.ResponseWriter, a *AuthService, sub, role, username string) {
	tok, err := a.IssueJWT(sub, role, username)
	if err != nil {
		http.Error(w, "issue token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{AccessToken: tok, Role: role, Subject: sub, Username: username})
}
