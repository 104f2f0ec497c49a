package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

const updateNamespace = "-upd"

// The updates table carries bookkeeping columns the domain type does not,
// so selects always name the record columns explicitly.
const recordColumns = "id, title, content_summary, source, exam_type, url, date, scraped_at, content_hash, priority"

// SaveUpdates upserts a batch keyed by content hash. A hash seen for the
// first time is inserted under a fresh id; a known hash has its row
// rewritten in place, keeping the original id.
func (s Store) SaveUpdates(ctx context.Context, records []examupdates.Record) (examupdates.SaveResult, error) {
	var res examupdates.SaveResult
	if len(records) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("error beginning transaction: %s", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, rec := range records {
		if rec.ContentHash == "" {
			continue
		}

		var existingID string
		err := tx.GetContext(ctx, &existingID, `SELECT id FROM updates WHERE content_hash = ?;`, rec.ContentHash)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return examupdates.SaveResult{}, fmt.Errorf("error checking content hash: %s", err)
		}

		if errors.Is(err, sql.ErrNoRows) {
			rec.ID = fmt.Sprintf("%s%s", uuid.NewString(), updateNamespace)
			const q = `INSERT INTO updates (id, title, content_summary, source, exam_type, url, date, scraped_at, content_hash, priority)
			VALUES (:id, :title, :content_summary, :source, :exam_type, :url, :date, :scraped_at, :content_hash, :priority);`
			if _, err := tx.NamedExecContext(ctx, q, rec); err != nil {
				return examupdates.SaveResult{}, fmt.Errorf("error inserting update: %s", err)
			}
			res.Inserted++
			continue
		}

		rec.ID = existingID
		const q = `UPDATE updates SET
			title = :title,
			content_summary = :content_summary,
			source = :source,
			exam_type = :exam_type,
			url = :url,
			date = :date,
			scraped_at = :scraped_at,
			priority = :priority,
			updated_at = CURRENT_TIMESTAMP
		WHERE content_hash = :content_hash;`
		if _, err := tx.NamedExecContext(ctx, q, rec); err != nil {
			return examupdates.SaveResult{}, fmt.Errorf("error updating existing row: %s", err)
		}
		res.Updated++
	}

	if err := tx.Commit(); err != nil {
		return examupdates.SaveResult{}, fmt.Errorf("error committing updates: %s", err)
	}

	return res, nil
}

// RecentUpdates returns records scraped within the window, newest first.
func (s Store) RecentUpdates(ctx context.Context, window time.Duration, limit int) ([]examupdates.Record, error) {
	cutoff := time.Now().UTC().Add(-window).Format(time.RFC3339)

	q := fmt.Sprintf(`SELECT %s FROM updates WHERE scraped_at >= ? ORDER BY scraped_at DESC LIMIT ?;`, recordColumns)
	records := []examupdates.Record{}
	if err := s.db.SelectContext(ctx, &records, q, cutoff, limit); err != nil {
		return nil, fmt.Errorf("error fetching recent updates: %s", err)
	}

	return records, nil
}

func (s Store) UpdatesBySource(ctx context.Context, source string, limit int) ([]examupdates.Record, error) {
	return s.updatesWhere(ctx, sq.Eq{"source": source}, limit)
}

func (s Store) UpdatesByExamType(ctx context.Context, examType string, limit int) ([]examupdates.Record, error) {
	return s.updatesWhere(ctx, sq.Eq{"exam_type": examType}, limit)
}

func (s Store) updatesWhere(ctx context.Context, pred sq.Eq, limit int) ([]examupdates.Record, error) {
	query, args, err := sq.Select(recordColumns).
		From("updates").
		Where(pred).
		OrderBy("scraped_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	records := []examupdates.Record{}
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("error fetching updates: %s", err)
	}

	return records, nil
}
