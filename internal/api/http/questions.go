package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/sheet"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

// ImportSettings are the server-side defaults for spreadsheet imports.
type ImportSettings struct {
	Mode           quiz.ImportMode
	DefaultAnswer  string
	MaxUploadBytes int64
}

// POST /questions/import?mode=append|replace (multipart: file=questions.xlsx|csv)
func ImportQuestionsHandler(svc *quiz.Service, bs storage.BlobStore, cfg ImportSettings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		if !sheet.Supported(hdr.Filename) {
			http.Error(w, "only .xlsx and .csv files are accepted", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, "read upload: "+err.Error(), http.StatusBadRequest)
			return
		}

		mode := cfg.Mode
		if m := r.URL.Query().Get("mode"); m != "" {
			if mode, err = quiz.ParseImportMode(m); err != nil {
				respondErr(w, r, err)
				return
			}
		}

		rows, err := sheet.Parse(hdr.Filename, data)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		n, err := svc.Import(r.Context(), rows, mode, quiz.ImportOptions{DefaultAnswer: cfg.DefaultAnswer})
		if err != nil {
			respondErr(w, r, err)
			return
		}

		// keep the original upload; failure here does not undo the import
		key := fmt.Sprintf("imports/%d-%s-%s", time.Now().Unix(), uuid.NewString(), path.Base(hdr.Filename))
		if key, err = bs.Put(key, bytes.NewReader(data)); err != nil {
			log.Printf("archive import %s: %v", hdr.Filename, err)
			key = ""
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"imported": n,
			"mode":     mode,
			"filename": hdr.Filename,
			"archive":  key,
		})
	}
}

// GET /questions?ids=a,b,c
func ListQuestionsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := svc.Select(r.Context(), splitIDs(r.URL.Query().Get("ids")))
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, qs)
	}
}

// GET /questions/export?format=xlsx|csv&ids=a,b
func ExportQuestionsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := svc.Select(r.Context(), splitIDs(r.URL.Query().Get("ids")))
		if err != nil {
			respondErr(w, r, err)
			return
		}
		switch format := strings.ToLower(r.URL.Query().Get("format")); format {
		case "", "xlsx":
			b, err := sheet.WriteXLSX(qs)
			if err != nil {
				respondErr(w, r, err)
				return
			}
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", `attachment; filename="questions.xlsx"`)
			http.ServeContent(w, r, "questions.xlsx", time.Now(), bytes.NewReader(b))
		case "csv":
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="questions.csv"`)
			if err := sheet.WriteCSV(w, qs); err != nil {
				log.Printf("export csv: %v", err)
			}
		default:
			http.Error(w, "format must be xlsx or csv", http.StatusBadRequest)
		}
	}
}

// GET /questions/{id}
func GetQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := svc.GetQuestion(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

// PUT /questions/{id}  {"question","a","b","c","d","answers","tag"}
func UpdateQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question string `json:"question"`
			A        string `json:"a"`
			B        string `json:"b"`
			C        string `json:"c"`
			D        string `json:"d"`
			Answers  string `json:"answers"`
			Tag      string `json:"tag"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		ans, err := quiz.ParseSelection(req.Answers)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		q, err := svc.UpdateQuestion(r.Context(), quiz.Question{
			ID:      chi.URLParam(r, "id"),
			Text:    req.Question,
			A:       strings.TrimSpace(req.A),
			B:       strings.TrimSpace(req.B),
			C:       strings.TrimSpace(req.C),
			D:       strings.TrimSpace(req.D),
			Answers: ans,
			Tag:     req.Tag,
		})
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

func splitIDs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}
