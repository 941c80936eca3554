package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/salesql/salesql/internal/dataset"
	"github.com/salesql/salesql/internal/present"
	"github.com/salesql/salesql/internal/query"
	"github.com/salesql/salesql/internal/schema"
)

type queryRequest struct {
	SQL      string `json:"sql"`
	RowLimit int    `json:"row_limit"`
}

type queryResponse struct {
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Stats   map[string]any `json:"stats"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Queries == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}

	var request queryRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}
	if err := query.ValidateReadOnly(request.SQL); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", "only read-only SELECT/WITH queries are allowed", false, nil)
		return
	}
	if request.RowLimit < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ROW_LIMIT", "row_limit must be >= 0", false, nil)
		return
	}

	result, err := deps.Queries.Run(r.Context(), request.SQL, request.RowLimit)
	if err != nil {
		writeQueryError(r.Context(), w, err)
		return
	}
	rows := result.Rows
	if rows == nil {
		rows = [][]any{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Columns: result.Columns,
		Rows:    rows,
		Stats: map[string]any{
			"engine_ms":     result.Duration.Milliseconds(),
			"scanned_files": result.ScannedFiles,
			"scanned_bytes": result.ScannedBytes,
		},
	})
}

type overviewResponse struct {
	Dataset     string           `json:"dataset,omitempty"`
	PublishedAt string           `json:"published_at,omitempty"`
	Partitions  int              `json:"partitions"`
	SizeBytes   int64            `json:"size_bytes"`
	Metrics     []present.Metric `json:"metrics"`
}

// handleOverview reports the headline totals of the published dataset.
func handleOverview(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil || deps.Queries == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}
	response := overviewResponse{Metrics: []present.Metric{}}
	if deps.Dataset != nil {
		manifest, err := deps.Dataset.Manifest(r.Context())
		if err != nil {
			if errors.Is(err, dataset.ErrNoManifest) {
				writeQueryError(r.Context(), w, err)
				return
			}
			writeError(r.Context(), w, http.StatusInternalServerError, "STORAGE_ERROR", "failed to load dataset manifest", true, map[string]any{"details": err.Error()})
			return
		}
		response.Dataset = manifest.Dataset
		response.PublishedAt = manifest.PublishedAt.UTC().Format("2006-01-02T15:04:05Z")
		response.Partitions = len(manifest.Partitions)
		response.SizeBytes = manifest.SizeBytes()
	}

	result, err := deps.Queries.Run(r.Context(), overviewSQL(deps.Translator.Schema()), 1)
	if err != nil {
		writeQueryError(r.Context(), w, err)
		return
	}
	if len(result.Rows) == 1 {
		for i, column := range result.Columns {
			value := result.Rows[0][i]
			response.Metrics = append(response.Metrics, present.Metric{
				Label:     present.Label(column),
				Column:    column,
				Value:     value,
				Formatted: present.FormatValue(column, value),
			})
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// overviewSQL counts the records, sums every amount measure and counts the
// distinct values of each identifier after the first, which keys the row.
// Unit prices are skipped since their sum means nothing.
func overviewSQL(desc *schema.Descriptor) string {
	selects := []string{"COUNT(*) AS total_records"}
	for _, measure := range desc.Measures() {
		if !present.IsCurrency(measure.Name) || strings.Contains(measure.Name, "price") {
			continue
		}
		alias := measure.Name
		if !strings.HasPrefix(alias, "total_") {
			alias = "total_" + alias
		}
		selects = append(selects, fmt.Sprintf("ROUND(SUM(%s), 2) AS %s", measure.Name, alias))
	}
	identifiers := desc.ColumnsByRole(schema.RoleIdentifier)
	for i, identifier := range identifiers {
		if i == 0 {
			continue
		}
		alias := "unique_" + strings.TrimSuffix(identifier.Name, "_id") + "s"
		selects = append(selects, fmt.Sprintf("COUNT(DISTINCT %s) AS %s", identifier.Name, alias))
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), desc.Table())
}
