package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	BlobBasePath string `yaml:"blob_base_path"` // uploaded import files are archived here

	AuthSecret string        `yaml:"auth_hmac_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`

	InstructorUser     string `yaml:"instructor_user"`
	InstructorPassHash string `yaml:"instructor_pass_hash"` // bcrypt

	CORSOrigins []string `yaml:"cors_origins"`

	ImportMode          string `yaml:"import_mode"`           // append|replace
	ImportDefaultAnswer string `yaml:"import_default_answer"` // "" rejects rows without answers
	MaxUploadBytes      int64  `yaml:"max_upload_bytes"`

	SiteID          string `yaml:"site_id"`
	EnableEventFeed bool   `yaml:"enable_event_feed"` // GET /events for instructors
}

func defaults() Config {
	return Config{
		HTTPAddr:            ":8080",
		DBDriver:            "sqlite",
		BlobBasePath:        "./data",
		AuthSecret:          "supersecret-dev-key",
		TokenTTL:            8 * time.Hour,
		InstructorUser:      "instructor",
		InstructorPassHash:  "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji",
		CORSOrigins:         []string{"http://localhost:3000"},
		ImportMode:          "append",
		ImportDefaultAnswer: "A",
		MaxUploadBytes:      10 << 20,
		SiteID:              "local",
		EnableEventFeed:     true,
	}
}

// FromEnv loads .env (if present), then CONFIG_FILE (if set), then applies
// environment variables on top.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTPAddr = envOr("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DBDriver = envOr("DB_DRIVER", cfg.DBDriver)
	cfg.DBDSN = envOr("DB_DSN", cfg.DBDSN)
	cfg.BlobBasePath = envOr("BLOB_BASE_PATH", cfg.BlobBasePath)
	cfg.AuthSecret = envOr("AUTH_HMAC_SECRET", cfg.AuthSecret)
	cfg.InstructorUser = envOr("INSTRUCTOR_USER", cfg.InstructorUser)
	cfg.InstructorPassHash = envOr("INSTRUCTOR_PASS_HASH", cfg.InstructorPassHash)
	cfg.CORSOrigins = csvOr("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.ImportMode = envOr("IMPORT_MODE", cfg.ImportMode)
	cfg.SiteID = envOr("SITE_ID", cfg.SiteID)
	cfg.EnableEventFeed = envBool("ENABLE_EVENT_FEED", cfg.EnableEventFeed)
	// set-but-empty disables the default answer
	if v, ok := os.LookupEnv("IMPORT_DEFAULT_ANSWER"); ok {
		cfg.ImportDefaultAnswer = strings.TrimSpace(v)
	}

	var err error
	if cfg.TokenTTL, err = envDuration("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.MaxUploadBytes, err = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes); err != nil {
		return Config{}, err
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES: must be positive, got %d", cfg.MaxUploadBytes)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func csvOr(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}
func envInt64(k string, def int64) (int64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}
