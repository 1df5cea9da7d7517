package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS prompt_history (
	id                TEXT PRIMARY KEY,
	request_id        TEXT NOT NULL,
	prompt_type       TEXT NOT NULL,
	company           TEXT NOT NULL,
	job_title         TEXT NOT NULL,
	interviewer_name  TEXT,
	temperature       REAL NOT NULL,
	model             TEXT NOT NULL,
	expanded_prompt   TEXT,
	generated_content TEXT,
	file_path         TEXT,
	response_time_ms  INTEGER NOT NULL DEFAULT 0,
	token_estimate    INTEGER NOT NULL DEFAULT 0,
	status            TEXT NOT NULL,
	error_message     TEXT,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prompt_history_created ON prompt_history (created_at);`

const entryColumns = `id, request_id, prompt_type, company, job_title, interviewer_name, temperature, model,
	expanded_prompt, generated_content, file_path, response_time_ms, token_estimate, status, error_message, created_at`

// sqliteTimeLayout has fixed-width fractions so text order matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps history in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (store *SQLiteStore, err error) {
	if path != ":memory:" {
		err = os.MkdirAll(filepath.Dir(path), 0750)
		if err != nil {
			err = errors.Wrapf(err, "failed to create history directory for %s", path)
			return store, err
		}
	}

	var db *sql.DB
	db, err = sql.Open("sqlite", path)
	if err != nil {
		err = errors.Wrap(err, "failed to open history database")
		return store, err
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(sqliteSchema)
	if err != nil {
		_ = db.Close()
		err = errors.Wrap(err, "failed to initialize history schema")
		return store, err
	}

	store = &SQLiteStore{db: db}
	return store, err
}

// Record inserts entry, assigning an ID and timestamp when missing.
func (s *SQLiteStore) Record(ctx context.Context, entry *Entry) (err error) {
	prepare(entry)

	_, err = s.db.ExecContext(ctx, `INSERT INTO prompt_history (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RequestID, entry.DocumentType, entry.Company, entry.JobTitle, entry.InterviewerName,
		entry.Temperature, entry.Model, entry.ExpandedPrompt, entry.GeneratedContent, entry.FilePath,
		entry.ResponseTimeMs, entry.TokenEstimate, entry.Status, entry.ErrorMessage,
		entry.CreatedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		err = errors.Wrap(err, "failed to record history entry")
		return err
	}

	return err
}

// List returns entries newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) (entries []Entry, err error) {
	query := `SELECT ` + entryColumns + ` FROM prompt_history`
	args := []any{}
	if filter.DocumentType != "" {
		query += ` WHERE prompt_type = ?`
		args = append(args, filter.DocumentType)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limitOf(filter))

	var rows *sql.Rows
	rows, err = s.db.QueryContext(ctx, query, args...)
	if err != nil {
		err = errors.Wrap(err, "failed to query history")
		return entries, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry Entry
		entry, err = scanSQLite(rows)
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		err = errors.Wrap(err, "failed to read history rows")
		return entries, err
	}

	return entries, err
}

// Get returns the entry with id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (entry Entry, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM prompt_history WHERE id = ?`, id)

	entry, err = scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return entry, err
	}

	return entry, err
}

// Delete removes the entry with id, or returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (err error) {
	var result sql.Result
	result, err = s.db.ExecContext(ctx, `DELETE FROM prompt_history WHERE id = ?`, id)
	if err != nil {
		err = errors.Wrap(err, "failed to delete history entry")
		return err
	}

	var affected int64
	affected, err = result.RowsAffected()
	if err != nil {
		err = errors.Wrap(err, "failed to count deleted rows")
		return err
	}

	if affected == 0 {
		err = ErrNotFound
		return err
	}

	return err
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) (err error) {
	err = s.db.PingContext(ctx)
	if err != nil {
		err = errors.Wrap(err, "history database unreachable")
		return err
	}
	return err
}

// Close releases the database.
func (s *SQLiteStore) Close() (err error) {
	err = s.db.Close()
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (entry Entry, err error) {
	var interviewer, prompt, content, filePath, errorMessage sql.NullString
	var createdAt string

	err = row.Scan(&entry.ID, &entry.RequestID, &entry.DocumentType, &entry.Company, &entry.JobTitle, &interviewer,
		&entry.Temperature, &entry.Model, &prompt, &content, &filePath, &entry.ResponseTimeMs, &entry.TokenEstimate,
		&entry.Status, &errorMessage, &createdAt)
	if err != nil {
		err = errors.Wrap(err, "failed to scan history entry")
		return entry, err
	}

	entry.InterviewerName = interviewer.String
	entry.ExpandedPrompt = prompt.String
	entry.GeneratedContent = content.String
	entry.FilePath = filePath.String
	entry.ErrorMessage = errorMessage.String

	entry.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt)
	if err != nil {
		err = errors.Wrapf(err, "invalid created_at %q", createdAt)
		return entry, err
	}

	return entry, err
}
