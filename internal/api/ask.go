package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/salesql/salesql/internal/auth"
	"github.com/salesql/salesql/internal/history"
	"github.com/salesql/salesql/internal/nl2sql"
	"github.com/salesql/salesql/internal/observability"
	"github.com/salesql/salesql/internal/present"
)

type askRequest struct {
	Question string `json:"question"`
	RowLimit int    `json:"row_limit"`
}

type askResponse struct {
	Translation nl2sql.Result  `json:"translation"`
	Executed    bool           `json:"executed"`
	View        *present.View  `json:"view,omitempty"`
	HistoryID   string         `json:"history_id,omitempty"`
	Stats       map[string]any `json:"stats,omitempty"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil || deps.Queries == nil || deps.Presenter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}
	var request askRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	question, ok := validQuestion(w, r, request.Question)
	if !ok {
		return
	}
	if request.RowLimit < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ROW_LIMIT", "row_limit must be >= 0", false, nil)
		return
	}

	result := translate(deps, question)
	entry := history.Entry{
		Question:   question,
		RuleID:     result.RuleID,
		Shape:      string(result.Shape),
		SQL:        result.SQL,
		Recognized: result.Recognized(),
		Subject:    subjectFromRequest(r),
	}
	if !result.Recognized() {
		response := askResponse{Translation: result}
		response.HistoryID = recordHistory(r.Context(), deps, entry)
		writeJSON(w, http.StatusOK, response)
		return
	}

	start := time.Now()
	executed, err := deps.Queries.Run(r.Context(), result.SQL, request.RowLimit)
	entry.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		entry.Error = err.Error()
		recordHistory(r.Context(), deps, entry)
		writeQueryError(r.Context(), w, err)
		return
	}
	entry.Executed = true
	entry.RowCount = len(executed.Rows)

	view := deps.Presenter.Build(result.Shape, executed.Columns, executed.Rows)
	writeJSON(w, http.StatusOK, askResponse{
		Translation: result,
		Executed:    true,
		View:        &view,
		HistoryID:   recordHistory(r.Context(), deps, entry),
		Stats: map[string]any{
			"engine_ms":     executed.Duration.Milliseconds(),
			"scanned_files": executed.ScannedFiles,
			"scanned_bytes": executed.ScannedBytes,
		},
	})
}

// recordHistory stores entry and returns its id. Failures are logged and
// never fail the request.
func recordHistory(ctx context.Context, deps Dependencies, entry history.Entry) string {
	if deps.History == nil {
		return ""
	}
	stored, err := deps.History.Record(ctx, entry)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.WarnContext(ctx, "record question history failed",
				slog.String("trace_id", observability.TraceIDFromContext(ctx)),
				slog.String("rule_id", entry.RuleID),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	return stored.ID
}

func subjectFromRequest(r *http.Request) string {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return ""
	}
	return identity.Subject
}
