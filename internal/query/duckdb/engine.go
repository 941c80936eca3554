package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/salesql/salesql/internal/query"
	"github.com/salesql/salesql/internal/storage"
)

const Name = "duckdb"

// Engine copies the requested parquet partitions to a scratch directory and
// exposes each table as a view over read_parquet in a private in-memory
// database.
type Engine struct {
	Store   storage.ObjectStore
	TempDir string
}

func NewEngine(store storage.ObjectStore) *Engine {
	return &Engine{Store: store}
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
	if e.Store == nil {
		return query.Result{}, fmt.Errorf("object store is required")
	}

	start := time.Now()
	workDir, err := os.MkdirTemp(e.TempDir, "salesql-query-")
	if err != nil {
		return query.Result{}, fmt.Errorf("create query temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	tables, scannedBytes, err := e.download(ctx, workDir, request.Files)
	if err != nil {
		return query.Result{}, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return query.Result{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	for tableName, localPaths := range tables {
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(tableName), quoteStringArray(localPaths))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return query.Result{}, fmt.Errorf("create view for table %q: %w", tableName, err)
		}
	}
	if err := sandbox(ctx, db, workDir); err != nil {
		return query.Result{}, err
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

func (e *Engine) download(ctx context.Context, workDir string, files []query.TableFile) (map[string][]string, int64, error) {
	grouped := map[string][]string{}
	var scannedBytes int64
	for index, file := range files {
		reader, err := e.Store.Get(ctx, file.ObjectPath)
		if err != nil {
			return nil, 0, fmt.Errorf("get object %q: %w", file.ObjectPath, err)
		}

		localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.parquet", sanitizeFileComponent(file.TableName), index))
		if err := writeFile(localPath, reader); err != nil {
			_ = reader.Close()
			return nil, 0, fmt.Errorf("write local parquet file %q: %w", localPath, err)
		}
		if err := reader.Close(); err != nil {
			return nil, 0, fmt.Errorf("close object %q: %w", file.ObjectPath, err)
		}

		grouped[file.TableName] = append(grouped[file.TableName], localPath)
		scannedBytes += file.FileSizeBytes
	}
	return grouped, scannedBytes, nil
}

// normalizeValue maps driver types onto JSON friendly values. SUM over an
// integer column comes back as HUGEINT.
func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case *big.Int:
		if typed == nil {
			return nil
		}
		if typed.IsInt64() {
			return typed.Int64()
		}
		return typed.String()
	case time.Time:
		if typed.Hour() == 0 && typed.Minute() == 0 && typed.Second() == 0 && typed.Nanosecond() == 0 {
			return typed.Format("2006-01-02")
		}
		return typed.UTC().Format(time.RFC3339Nano)
	default:
		return typed
	}
}

// sandbox confines the connection to workDir and freezes its settings, so
// statements can read the downloaded partitions and nothing else.
func sandbox(ctx context.Context, db *sql.DB, workDir string) error {
	for _, statement := range []string{
		fmt.Sprintf("SET allowed_directories=%s", quoteStringArray([]string{workDir})),
		"SET enable_external_access=false",
		"SET lock_configuration=true",
	} {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("restrict duckdb connection: %w", err)
		}
	}
	return nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}
