package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/salesql/salesql/internal/history"
)

var entryRowColumns = []string{
	"history_id", "question", "rule_id", "shape", "sql_text", "recognized", "executed",
	"row_count", "duration_ms", "subject", "error_message", "asked_at",
}

func TestRecordReturnsAskedAt(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO question_history (history_id, question, rule_id, shape, sql_text, recognized, executed, row_count, duration_ms, subject, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING asked_at`)).
		WithArgs("entry-1", "Top 5 products by revenue", "top_n", "categorical_aggregate", "SELECT 1", true, true, 5, int64(12), "alice", "").
		WillReturnRows(sqlmock.NewRows([]string{"asked_at"}).AddRow(now))

	entry, err := repo.Record(context.Background(), history.Entry{
		ID:         "entry-1",
		Question:   "Top 5 products by revenue",
		RuleID:     "top_n",
		Shape:      "categorical_aggregate",
		SQL:        "SELECT 1",
		Recognized: true,
		Executed:   true,
		RowCount:   5,
		DurationMS: 12,
		Subject:    "alice",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !entry.AskedAt.Equal(now) {
		t.Fatalf("AskedAt = %v, want %v", entry.AskedAt, now)
	}
	assertSQLMock(t, mock)
}

func TestRecordGeneratesID(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectQuery(`INSERT INTO question_history`).
		WillReturnRows(sqlmock.NewRows([]string{"asked_at"}).AddRow(time.Now()))

	entry, err := repo.Record(context.Background(), history.Entry{Question: "hello", RuleID: "fallback", Shape: "unrecognized"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected generated id")
	}
	assertSQLMock(t, mock)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectQuery(`FROM question_history\s+WHERE history_id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	assertSQLMock(t, mock)
}

func TestListClampsLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`ORDER BY asked_at DESC, history_id DESC\s+LIMIT \$1`).
		WithArgs(history.DefaultListLimit).
		WillReturnRows(sqlmock.NewRows(entryRowColumns).
			AddRow("e2", "What is the average discount?", "average", "scalar", "SELECT AVG(discount) AS avg_discount FROM sales", true, true, 1, int64(3), "", "", now).
			AddRow("e1", "hello", "fallback", "unrecognized", "", false, false, 0, int64(0), "", "", now.Add(-time.Minute)))

	entries, err := repo.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d", len(entries))
	}
	if entries[0].ID != "e2" || entries[0].RuleID != "average" || !entries[0].Recognized {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Recognized {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	assertSQLMock(t, mock)
}

func TestRuleUsage(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`GROUP BY rule_id\s+ORDER BY question_count DESC, rule_id ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"rule_id", "question_count", "last_asked_at"}).
			AddRow("total", int64(4), now).
			AddRow("top_n", int64(2), now))

	usage, err := repo.RuleUsage(context.Background())
	if err != nil {
		t.Fatalf("RuleUsage() error = %v", err)
	}
	if len(usage) != 2 || usage[0].RuleID != "total" || usage[0].Count != 4 {
		t.Fatalf("unexpected usage: %+v", usage)
	}
	assertSQLMock(t, mock)
}

func TestListWrapsQueryError(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	boom := errors.New("boom")

	mock.ExpectQuery(`FROM question_history`).WillReturnError(boom)

	if _, err := repo.List(context.Background(), 10); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
