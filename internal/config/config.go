package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"exam-session"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	ExamAPI  ExamAPI
	Redis    Redis
	Postgres Postgres
	Session  Session
}

// ExamAPI points at the upstream content service that owns exams and grading.
type ExamAPI struct {
	BaseURL string        `env:"EXAM_API_BASE_URL,notEmpty"`
	Timeout time.Duration `env:"EXAM_API_TIMEOUT" envDefault:"10s"`
}

// Redis holds answer-store configuration. Addr empty means the embedded
// SQLite store is used instead.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Postgres captures connection info for the attempt archive. Host empty
// disables archiving.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:""`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Session groups attempt-lifecycle defaults.
type Session struct {
	DefaultDurationSeconds int           `env:"SESSION_DEFAULT_DURATION_SECONDS" envDefault:"3600"`
	SearchPageSize         int           `env:"EXAM_SEARCH_PAGE_SIZE" envDefault:"50"`
	CompletedRetention     time.Duration `env:"SESSION_COMPLETED_RETENTION" envDefault:"30m"`
	SQLitePath             string        `env:"ANSWER_STORE_SQLITE_PATH" envDefault:"data/answers.db"`
}

// ArchiveEnabled reports whether the attempt archive should be wired.
func (p Postgres) ArchiveEnabled() bool {
	return p.Host != ""
}

// DSN builds a pgx-compatible connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
