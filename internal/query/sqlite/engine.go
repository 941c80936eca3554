// Package sqlite executes queries on an in-memory SQLite database loaded
// from the published parquet partitions.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/salesql/salesql/internal/dataset"
	"github.com/salesql/salesql/internal/query"
	"github.com/salesql/salesql/internal/schema"
	"github.com/salesql/salesql/internal/storage"
)

const Name = "sqlite"

type Engine struct {
	Store  storage.ObjectStore
	Schema *schema.Descriptor
}

func NewEngine(store storage.ObjectStore, desc *schema.Descriptor) *Engine {
	return &Engine{Store: store, Schema: desc}
}

func (e *Engine) Name() string {
	return Name
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := query.StripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if len(request.Files) == 0 {
		return query.Result{}, fmt.Errorf("no files available for query")
	}
	if e.Store == nil || e.Schema == nil {
		return query.Result{}, fmt.Errorf("object store and schema are required")
	}

	start := time.Now()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return query.Result{}, fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = db.Close() }()
	// Every connection to :memory: gets its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTableSQL(e.Schema)); err != nil {
		return query.Result{}, fmt.Errorf("create table %q: %w", e.Schema.Table(), err)
	}

	var scannedBytes int64
	for _, file := range request.Files {
		if file.TableName != e.Schema.Table() {
			return query.Result{}, fmt.Errorf("unknown table %q", file.TableName)
		}
		data, err := storage.ReadAll(ctx, e.Store, file.ObjectPath)
		if err != nil {
			return query.Result{}, fmt.Errorf("get object %q: %w", file.ObjectPath, err)
		}
		rows, err := dataset.DecodeParquet(data)
		if err != nil {
			return query.Result{}, fmt.Errorf("decode object %q: %w", file.ObjectPath, err)
		}
		if err := e.load(ctx, db, rows); err != nil {
			return query.Result{}, err
		}
		scannedBytes += file.FileSizeBytes
	}

	if request.RowLimit > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, request.RowLimit)
	}
	columns, rows, err := query.CollectRows(ctx, db, sqlText, normalizeValue)
	if err != nil {
		return query.Result{}, err
	}

	return query.Result{
		Columns:      columns,
		Rows:         rows,
		ScannedFiles: len(request.Files),
		ScannedBytes: scannedBytes,
		Duration:     time.Since(start),
	}, nil
}

func (e *Engine) load(ctx context.Context, db *sql.DB, rows []dataset.Sale) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSQL(e.Schema))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Values()...); err != nil {
			return fmt.Errorf("insert order %s: %w", row.OrderID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

func createTableSQL(desc *schema.Descriptor) string {
	columns := desc.Columns()
	defs := make([]string, 0, len(columns))
	for _, column := range columns {
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(column.Name), columnType(column.Type)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(desc.Table()), strings.Join(defs, ", "))
}

func insertSQL(desc *schema.Descriptor) string {
	names := desc.ColumnNames()
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(desc.Table()), strings.Join(quoted, ", "), placeholders)
}

// columnType maps descriptor types onto SQLite affinities. Dates stay ISO
// text so strftime can read them.
func columnType(declared string) string {
	switch strings.ToUpper(declared) {
	case "INTEGER", "BIGINT", "INT":
		return "INTEGER"
	case "DOUBLE", "FLOAT", "REAL", "DECIMAL":
		return "REAL"
	default:
		return "TEXT"
	}
}

func normalizeValue(value any) any {
	if typed, ok := value.([]byte); ok {
		return string(typed)
	}
	return value
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
