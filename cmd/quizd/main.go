package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	storage "github.com/mind-engage/mindengage-quiz/internal/storage"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	importMode, err := quiz.ParseImportMode(cfg.ImportMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	events := syncx.NewEventRepo(dbh, cfg.SiteID)
	svc := quiz.NewService(quiz.NewSQLStore(dbh),
		quiz.WithEvents(events),
		quiz.WithGrader(grading.NewDefaultGrader(grading.WithPartialMulti(true))),
	)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	deps := api.Deps{
		Service: svc,
		Auth:    auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL),
		Blobs:   bs,
		Import: api.ImportSettings{
			Mode:           importMode,
			DefaultAnswer:  cfg.ImportDefaultAnswer,
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
		InstructorUser:     cfg.InstructorUser,
		InstructorPassHash: cfg.InstructorPassHash,
		Ready: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return dbh.PingContext(ctx)
		},
	}
	if cfg.EnableEventFeed {
		deps.Events = events
	}
	api.NewRouter(r, deps)

	log.Printf("listening on %s (db=%s, import=%s)", cfg.HTTPAddr, cfg.DBDriver, importMode)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
