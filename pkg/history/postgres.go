package history

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS prompt_history (
	id                TEXT PRIMARY KEY,
	request_id        TEXT NOT NULL,
	prompt_type       TEXT NOT NULL,
	company           TEXT NOT NULL,
	job_title         TEXT NOT NULL,
	interviewer_name  TEXT NOT NULL DEFAULT '',
	temperature       DOUBLE PRECISION NOT NULL,
	model             TEXT NOT NULL,
	expanded_prompt   TEXT NOT NULL DEFAULT '',
	generated_content TEXT NOT NULL DEFAULT '',
	file_path         TEXT NOT NULL DEFAULT '',
	response_time_ms  BIGINT NOT NULL DEFAULT 0,
	token_estimate    INTEGER NOT NULL DEFAULT 0,
	status            TEXT NOT NULL,
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL
)`

const postgresIndex = `CREATE INDEX IF NOT EXISTS idx_prompt_history_created ON prompt_history (created_at)`

// PostgresStore keeps history in a shared Postgres database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (store *PostgresStore, err error) {
	var config *pgxpool.Config
	config, err = pgxpool.ParseConfig(databaseURL)
	if err != nil {
		err = errors.Wrap(err, "invalid history database URL")
		return store, err
	}

	var pool *pgxpool.Pool
	pool, err = pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		err = errors.Wrap(err, "failed to create history connection pool")
		return store, err
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		err = errors.Wrap(err, "failed to reach history database")
		return store, err
	}

	for _, statement := range []string{postgresSchema, postgresIndex} {
		_, err = pool.Exec(ctx, statement)
		if err != nil {
			break
		}
	}
	if err != nil {
		pool.Close()
		err = errors.Wrap(err, "failed to initialize history schema")
		return store, err
	}

	store = &PostgresStore{pool: pool}
	return store, err
}

// Record inserts entry, assigning an ID and timestamp when missing.
func (s *PostgresStore) Record(ctx context.Context, entry *Entry) (err error) {
	prepare(entry)

	_, err = s.pool.Exec(ctx, `INSERT INTO prompt_history (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		entry.ID, entry.RequestID, entry.DocumentType, entry.Company, entry.JobTitle, entry.InterviewerName,
		entry.Temperature, entry.Model, entry.ExpandedPrompt, entry.GeneratedContent, entry.FilePath,
		entry.ResponseTimeMs, entry.TokenEstimate, entry.Status, entry.ErrorMessage, entry.CreatedAt)
	if err != nil {
		err = errors.Wrap(err, "failed to record history entry")
		return err
	}

	return err
}

// List returns entries newest first.
func (s *PostgresStore) List(ctx context.Context, filter Filter) (entries []Entry, err error) {
	var rows pgx.Rows
	if filter.DocumentType != "" {
		rows, err = s.pool.Query(ctx, `SELECT `+entryColumns+` FROM prompt_history
			WHERE prompt_type = $1 ORDER BY created_at DESC LIMIT $2`, filter.DocumentType, limitOf(filter))
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+entryColumns+` FROM prompt_history
			ORDER BY created_at DESC LIMIT $1`, limitOf(filter))
	}
	if err != nil {
		err = errors.Wrap(err, "failed to query history")
		return entries, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry Entry
		entry, err = scanPostgres(rows)
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
func (s *PostgresStore) Get(ctx context.Context, id string) (entry Entry, err error) {
	row := s.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM prompt_history WHERE id = $1`, id)

	entry, err = scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrNotFound
		return entry, err
	}

	return entry, err
}

// Delete removes the entry with id, or returns ErrNotFound.
func (s *PostgresStore) Delete(ctx context.Context, id string) (err error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM prompt_history WHERE id = $1`, id)
	if err != nil {
		err = errors.Wrap(err, "failed to delete history entry")
		return err
	}

	if tag.RowsAffected() == 0 {
		err = ErrNotFound
		return err
	}

	return err
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) (err error) {
	err = s.pool.Ping(ctx)
	if err != nil {
		err = errors.Wrap(err, "history database unreachable")
		return err
	}
	return err
}

// Close releases the connection pool.
func (s *PostgresStore) Close() (err error) {
	s.pool.Close()
	return err
}

func scanPostgres(row rowScanner) (entry Entry, err error) {
	err = row.Scan(&entry.ID, &entry.RequestID, &entry.DocumentType, &entry.Company, &entry.JobTitle,
		&entry.InterviewerName, &entry.Temperature, &entry.Model, &entry.ExpandedPrompt, &entry.GeneratedContent,
		&entry.FilePath, &entry.ResponseTimeMs, &entry.TokenEstimate, &entry.Status, &entry.ErrorMessage,
		&entry.CreatedAt)
	if err != nil {
		err = errors.Wrap(err, "failed to scan history entry")
		return entry, err
	}
	return entry, err
}
