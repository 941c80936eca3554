package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotReadOnly = errors.New("only a single SELECT or WITH statement is allowed")

type TableFile struct {
	TableName     string
	ObjectPath    string
	FileSizeBytes int64
}

type Request struct {
	SQL      string
	RowLimit int
	Files    []TableFile
}

type Result struct {
	Columns      []string
	Rows         [][]any
	ScannedFiles int
	ScannedBytes int64
	Duration     time.Duration
}

type Engine interface {
	Name() string
	Execute(ctx context.Context, request Request) (Result, error)
}

// FileSource resolves the parquet files backing the queryable tables.
type FileSource interface {
	Files(ctx context.Context) ([]TableFile, error)
}

type Observer interface {
	ObserveQuery(engine, status string, rows int, duration time.Duration)
}

// Executor runs statements against the files currently published by a
// FileSource.
type Executor struct {
	Engine   Engine
	Source   FileSource
	RowLimit int
	Timeout  time.Duration
	Observer Observer
}

func (e *Executor) Run(ctx context.Context, sqlText string, rowLimit int) (Result, error) {
	if e.Engine == nil || e.Source == nil {
		return Result{}, fmt.Errorf("query executor is not configured")
	}
	files, err := e.Source.Files(ctx)
	if err != nil {
		return Result{}, err
	}
	if rowLimit <= 0 || (e.RowLimit > 0 && rowLimit > e.RowLimit) {
		rowLimit = e.RowLimit
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := e.Engine.Execute(ctx, Request{SQL: sqlText, RowLimit: rowLimit, Files: files})
	if e.Observer != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.Observer.ObserveQuery(e.Engine.Name(), status, len(result.Rows), time.Since(start))
	}
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// ValidateReadOnly accepts a single SELECT or WITH statement. Trailing
// semicolons are tolerated.
func ValidateReadOnly(sqlText string) error {
	trimmed := StripTrailingSemicolons(stripLeadingComments(sqlText))
	if trimmed == "" {
		return fmt.Errorf("sql is required")
	}
	if strings.Contains(trimmed, ";") {
		return ErrNotReadOnly
	}
	fields := strings.Fields(trimmed)
	keyword := strings.ToUpper(strings.TrimLeft(fields[0], "("))
	if keyword != "SELECT" && keyword != "WITH" {
		return ErrNotReadOnly
	}
	return nil
}

func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

func stripLeadingComments(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for {
		switch {
		case strings.HasPrefix(trimmed, "--"):
			end := strings.IndexByte(trimmed, '\n')
			if end < 0 {
				return ""
			}
			trimmed = strings.TrimSpace(trimmed[end+1:])
		case strings.HasPrefix(trimmed, "/*"):
			end := strings.Index(trimmed, "*/")
			if end < 0 {
				return ""
			}
			trimmed = strings.TrimSpace(trimmed[end+2:])
		default:
			return trimmed
		}
	}
}
