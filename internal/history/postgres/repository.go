package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/salesql/salesql/internal/history"
)

const entryColumns = `history_id, question, rule_id, shape, sql_text, recognized, executed, row_count, duration_ms, subject, error_message, asked_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, entry history.Entry) (history.Entry, error) {
	if entry.ID == "" {
		entry.ID = history.NewID()
	}

	query := `
INSERT INTO question_history (history_id, question, rule_id, shape, sql_text, recognized, executed, row_count, duration_ms, subject, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING asked_at`
	var askedAt time.Time
	if err := r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.Question,
		entry.RuleID,
		entry.Shape,
		entry.SQL,
		entry.Recognized,
		entry.Executed,
		entry.RowCount,
		entry.DurationMS,
		entry.Subject,
		entry.Error,
	).Scan(&askedAt); err != nil {
		return history.Entry{}, fmt.Errorf("record question: %w", err)
	}
	entry.AskedAt = askedAt
	return entry, nil
}

func (r *Repository) Get(ctx context.Context, id string) (history.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+entryColumns+`
FROM question_history
WHERE history_id = $1`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return history.Entry{}, history.ErrNotFound
		}
		return history.Entry{}, fmt.Errorf("get history entry: %w", err)
	}
	return entry, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]history.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+entryColumns+`
FROM question_history
ORDER BY asked_at DESC, history_id DESC
LIMIT $1`, history.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]history.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

func (r *Repository) RuleUsage(ctx context.Context) ([]history.RuleUsage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT rule_id, COUNT(*) AS question_count, MAX(asked_at) AS last_asked_at
FROM question_history
GROUP BY rule_id
ORDER BY question_count DESC, rule_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rule usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	usage := make([]history.RuleUsage, 0)
	for rows.Next() {
		var item history.RuleUsage
		if err := rows.Scan(&item.RuleID, &item.Count, &item.LastAskedAt); err != nil {
			return nil, fmt.Errorf("scan rule usage row: %w", err)
		}
		usage = append(usage, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule usage rows: %w", err)
	}
	return usage, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (history.Entry, error) {
	var entry history.Entry
	err := row.Scan(
		&entry.ID,
		&entry.Question,
		&entry.RuleID,
		&entry.Shape,
		&entry.SQL,
		&entry.Recognized,
		&entry.Executed,
		&entry.RowCount,
		&entry.DurationMS,
		&entry.Subject,
		&entry.Error,
		&entry.AskedAt,
	)
	return entry, err
}
