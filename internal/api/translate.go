package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/salesql/salesql/internal/nl2sql"
	"github.com/salesql/salesql/internal/observability"
	"github.com/salesql/salesql/internal/schema"
)

const maxQuestionLength = 1000

type translateRequest struct {
	Question string `json:"question"`
}

type schemaResponse struct {
	Table   string          `json:"table"`
	Columns []schema.Column `json:"columns"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATOR_NOT_CONFIGURED", "translator is not configured", false, nil)
		return
	}
	desc := deps.Translator.Schema()
	writeJSON(w, http.StatusOK, schemaResponse{Table: desc.Table(), Columns: desc.Columns()})
}

func handleExamples(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATOR_NOT_CONFIGURED", "translator is not configured", false, nil)
		return
	}
	examples := deps.Translator.Bank().Examples()
	if examples == nil {
		examples = []nl2sql.Example{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"examples": examples})
}

// handleTranslate answers with 200 even for unrecognized questions; the
// result then carries shape "unrecognized" and suggestions instead of SQL.
func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATOR_NOT_CONFIGURED", "translator is not configured", false, nil)
		return
	}
	var request translateRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid translate request body", false, map[string]any{"details": err.Error()})
		return
	}
	question, ok := validQuestion(w, r, request.Question)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, translate(deps, question))
}

func translate(deps Dependencies, question string) nl2sql.Result {
	start := time.Now()
	result := deps.Translator.Translate(question)
	observability.ObserveTranslation(result.RuleID, string(result.Shape), time.Since(start))
	return result
}

func validQuestion(w http.ResponseWriter, r *http.Request, raw string) (string, bool) {
	question := strings.TrimSpace(raw)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return "", false
	}
	if len(question) > maxQuestionLength {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_TOO_LONG", "question is too long", false, map[string]any{"max_length": maxQuestionLength})
		return "", false
	}
	return question, true
}
