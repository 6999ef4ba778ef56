// Package archive keeps a summary of every deleted poll in Postgres.
package archive

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"growset/internal/poll/model"
	"growset/pkg/logger"
)

const schema = `CREATE TABLE IF NOT EXISTS poll_archive (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	choices     TEXT[] NOT NULL DEFAULT '{}',
	entry_count INTEGER NOT NULL,
	reason      TEXT NOT NULL,
	removed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const insertArchive = `INSERT INTO poll_archive (id, title, created_at, choices, entry_count, reason, removed_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (id) DO NOTHING`

type ArchiveRepository struct {
	DB *sql.DB
}

func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{DB: db}
}

func (r *ArchiveRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	if err != nil {
		logger.Sugar.Errorf("Failed to create archive table: %v", err)
	}
	return err
}

// Archive records the poll. Archiving the same poll twice keeps the first row.
func (r *ArchiveRepository) Archive(ctx context.Context, poll model.Poll, entryCount int, reason string) error {
	choices := poll.Choices
	if choices == nil {
		choices = []string{}
	}
	_, err := r.DB.ExecContext(ctx, insertArchive,
		poll.ID, poll.Title, poll.CreatedAt, pq.Array(choices), entryCount, reason)
	if err != nil {
		logger.Sugar.Errorf("Failed to archive poll %s: %v", poll.ID, err)
	}
	return err
}

// Count returns the number of archived polls.
func (r *ArchiveRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM poll_archive").Scan(&n)
	return n, err
}
