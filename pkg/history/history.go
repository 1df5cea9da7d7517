package history

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Entry statuses.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// DefaultLimit caps List results when the filter gives no limit.
const DefaultLimit = 50

// ErrNotFound is returned when no entry has the requested ID.
var ErrNotFound = errors.New("history entry not found")

// Entry records the outcome of one document type within a generation request.
type Entry struct {
	ID               string    `json:"id"`
	RequestID        string    `json:"requestId"`
	DocumentType     string    `json:"promptType"`
	Company          string    `json:"company"`
	JobTitle         string    `json:"jobTitle"`
	InterviewerName  string    `json:"interviewerName,omitempty"`
	Temperature      float64   `json:"temperature"`
	Model            string    `json:"model"`
	ExpandedPrompt   string    `json:"expandedPrompt,omitempty"`
	GeneratedContent string    `json:"generatedContent,omitempty"`
	FilePath         string    `json:"filePath,omitempty"`
	ResponseTimeMs   int64     `json:"responseTimeMs"`
	TokenEstimate    int       `json:"tokenEstimate"`
	Status           string    `json:"status"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Filter narrows a List call.
type Filter struct {
	DocumentType string
	Limit        int
}

// Recorder persists entries. The pipeline depends only on this.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) (err error)
}

// Store is a queryable history backend.
type Store interface {
	Recorder
	List(ctx context.Context, filter Filter) (entries []Entry, err error)
	Get(ctx context.Context, id string) (entry Entry, err error)
	Delete(ctx context.Context, id string) (err error)
	Ping(ctx context.Context) (err error)
	Close() (err error)
}

// Open picks a backend from dsn: postgres:// and postgresql:// URLs use Postgres, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (store Store, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dsn == "" {
		err = errors.New("history DSN is empty")
		return store, err
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		var pg *PostgresStore
		pg, err = NewPostgresStore(ctx, dsn)
		if err != nil {
			return store, err
		}
		store = pg
		logger.Info("history store opened", slog.String("backend", "postgres"))
		return store, err
	}

	path := expandHome(dsn)
	var lite *SQLiteStore
	lite, err = NewSQLiteStore(path)
	if err != nil {
		return store, err
	}
	store = lite
	logger.Info("history store opened", slog.String("backend", "sqlite"), slog.String("path", path))

	return store, err
}

// prepare fills in the ID and timestamp of a new entry.
func prepare(entry *Entry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = StatusCompleted
	}
}

func limitOf(filter Filter) (limit int) {
	limit = filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return limit
}

func expandHome(path string) (expanded string) {
	expanded = path
	if !strings.HasPrefix(path, "~/") {
		return expanded
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return expanded
	}
	expanded = filepath.Join(homeDir, path[2:])
	return expanded
}
