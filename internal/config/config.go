package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

// Submission modes.
const (
	ModeLog   = "log"
	ModeQueue = "queue"
)

type Config struct {
	Addr          string           `yaml:"addr"`
	JWTSecret     string           `yaml:"jwt_secret"`
	APITimeout    time.Duration    `yaml:"timeout"`
	DatabasePath  string           `yaml:"database_path"`
	TokenDuration time.Duration    `yaml:"token_duration"`
	Join          JoinConfig       `yaml:"join"`
	Session       SessionConfig    `yaml:"session"`
	Submission    SubmissionConfig `yaml:"submission"`
	Screening     ScreeningConfig  `yaml:"screening"`
	Ollama        OllamaConfig     `yaml:"ollama"`
	Admin         AdminConfig      `yaml:"admin"`
}

type JoinConfig struct {
	// TwitterOptional restores the earlier form where the handle was optional.
	TwitterOptional bool `yaml:"twitter_optional"`
	ShowWaitlist    bool `yaml:"show_waitlist"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	CookieName    string        `yaml:"cookie_name"`
	SecureCookie  bool          `yaml:"secure_cookie"`
	MaxSessions   int           `yaml:"max_sessions"`
}

type SubmissionConfig struct {
	Mode           string        `yaml:"mode"`
	Delay          time.Duration `yaml:"delay"`
	Timeout        time.Duration `yaml:"timeout"`
	SchemaVersion  string        `yaml:"schema_version"`
	WebhookURL     string        `yaml:"webhook_url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	Workers        int           `yaml:"workers"`
}

type ScreeningConfig struct {
	Model           string        `yaml:"model"`
	TemplateVersion string        `yaml:"template_version"`
	SchemaVersion   string        `yaml:"schema_version"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Enabled reports whether delivered applications get an LLM screening note.
func (s ScreeningConfig) Enabled() bool { return s.Model != "" }

type OllamaConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

type AdminConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

// LoadConfig builds the config from defaults, an optional .env file, the
// environment and finally the YAML file at path.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Addr:          getEnv("CCC_ADDR", ":8080"),
		JWTSecret:     getEnv("CCC_JWT_SECRET", insecureJWTSecret),
		APITimeout:    15 * time.Second,
		DatabasePath:  getEnv("CCC_DATABASE_PATH", "crackedclub.db"),
		TokenDuration: 1 * time.Hour,
		Join:          JoinConfig{ShowWaitlist: true},
		Submission: SubmissionConfig{
			Mode:       getEnv("CCC_SUBMISSION_MODE", ModeLog),
			WebhookURL: getEnv("CCC_WEBHOOK_URL", ""),
		},
		Screening: ScreeningConfig{
			Model: getEnv("CCC_SCREENING_MODEL", ""),
		},
		Admin: AdminConfig{
			Email:        getEnv("CCC_ADMIN_EMAIL", ""),
			PasswordHash: getEnv("CCC_ADMIN_PASSWORD_HASH", ""),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// SetDefaults fills every unset value with its default.
func (c *Config) SetDefaults() {
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = time.Hour
	}

	if c.Session.TTL <= 0 {
		c.Session.TTL = 30 * time.Minute
	}
	if c.Session.SweepInterval <= 0 {
		c.Session.SweepInterval = time.Minute
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "ccc_session"
	}
	if c.Session.MaxSessions <= 0 {
		c.Session.MaxSessions = 10000
	}

	if c.Submission.Mode == "" {
		c.Submission.Mode = ModeLog
	}
	if c.Submission.Timeout <= 0 {
		c.Submission.Timeout = 10 * time.Second
	}
	if c.Submission.SchemaVersion == "" {
		c.Submission.SchemaVersion = "application_v1"
	}
	if c.Submission.WebhookTimeout <= 0 {
		c.Submission.WebhookTimeout = 10 * time.Second
	}
	if c.Submission.MaxAttempts <= 0 {
		c.Submission.MaxAttempts = 5
	}
	if c.Submission.Workers <= 0 {
		c.Submission.Workers = 2
	}

	if c.Screening.TemplateVersion == "" {
		c.Screening.TemplateVersion = "v1"
	}
	if c.Screening.SchemaVersion == "" {
		c.Screening.SchemaVersion = "screen_v1"
	}
	if c.Screening.Timeout <= 0 {
		c.Screening.Timeout = 30 * time.Second
	}

	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Ollama.Timeout <= 0 {
		c.Ollama.Timeout = 30 * time.Second
	}
	if c.Ollama.Retries == 0 {
		c.Ollama.Retries = 2
	}
	if c.Ollama.Backoff <= 0 {
		c.Ollama.Backoff = 500 * time.Millisecond
	}
	if c.Ollama.CircuitFailureThreshold <= 0 {
		c.Ollama.CircuitFailureThreshold = 5
	}
	if c.Ollama.CircuitReset <= 0 {
		c.Ollama.CircuitReset = 30 * time.Second
	}
}

// Validate fills defaults and rejects unsafe settings. An insecure JWT
// secret is only accepted when CCC_ENV=development.
func (c *Config) Validate() error {
	c.SetDefaults()

	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if (c.JWTSecret == "" || c.JWTSecret == insecureJWTSecret) && !strings.EqualFold(os.Getenv("CCC_ENV"), "development") {
		return errors.New("jwt_secret must be set to a strong value outside development")
	}
	switch c.Submission.Mode {
	case ModeLog, ModeQueue:
	default:
		return fmt.Errorf("submission.mode must be %q or %q, got %q", ModeLog, ModeQueue, c.Submission.Mode)
	}
	if c.Screening.Enabled() && c.Submission.Mode != ModeQueue {
		return errors.New("screening requires submission.mode queue")
	}
	if (c.Admin.Email == "") != (c.Admin.PasswordHash == "") {
		return errors.New("admin.email and admin.password_hash must be set together")
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
