package salesqlctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/salesql/salesql/internal/nl2sql"
	"github.com/salesql/salesql/internal/present"
	"github.com/salesql/salesql/internal/schema"
)

type askResponse struct {
	Translation nl2sql.Result `json:"translation"`
	Executed    bool          `json:"executed"`
	View        *present.View `json:"view"`
	HistoryID   string        `json:"history_id"`
}

type queryResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type overviewResponse struct {
	Dataset     string           `json:"dataset"`
	PublishedAt string           `json:"published_at"`
	Partitions  int              `json:"partitions"`
	SizeBytes   int64            `json:"size_bytes"`
	Metrics     []present.Metric `json:"metrics"`
}

type historyEntry struct {
	ID         string `json:"id"`
	Question   string `json:"question"`
	RuleID     string `json:"rule_id"`
	Executed   bool   `json:"executed"`
	RowCount   int    `json:"row_count"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error"`
	AskedAt    string `json:"asked_at"`
}

type ruleUsage struct {
	RuleID      string `json:"rule_id"`
	Count       int64  `json:"count"`
	LastAskedAt string `json:"last_asked_at"`
}

// print writes raw as indented JSON in json mode and defers to table
// otherwise.
func (s *session) print(raw []byte, table func() error) error {
	if s.output == outputJSON {
		var buf bytes.Buffer
		if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
			_, err = fmt.Fprintln(s.stdout, string(raw))
			return err
		}
		_, err := fmt.Fprintln(s.stdout, buf.String())
		return err
	}
	return table()
}

func printValue[T any](s *session, value T, table func(T) error) error {
	if s.output == outputJSON {
		encoded, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.stdout, string(encoded))
		return err
	}
	return table(value)
}

func printKeyValues(w io.Writer, body map[string]any) error {
	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, key := range keys {
		_, _ = fmt.Fprintf(tw, "%s:\t%v\n", key, normalizeValue(body[key]))
	}
	return tw.Flush()
}

func printSchema(w io.Writer, table string, columns []schema.Column) error {
	_, _ = fmt.Fprintf(w, "table: %s\n\n", table)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "COLUMN\tROLE\tTYPE\tDESCRIPTION")
	for _, column := range columns {
		name := column.Name
		if column.Default {
			name += " *"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, column.Role, column.Type, column.Description)
	}
	return tw.Flush()
}

func printExamples(w io.Writer, examples []nl2sql.Example) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RULE\tSHAPE\tQUESTION")
	for _, example := range examples {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", example.RuleID, example.Shape, example.Question)
	}
	return tw.Flush()
}

func printTranslation(w io.Writer, result nl2sql.Result) error {
	if !result.Recognized() {
		_, _ = fmt.Fprintln(w, result.Explanation)
		if len(result.Suggestions) == 0 {
			return nil
		}
		_, _ = fmt.Fprintln(w, "\nTry one of:")
		for _, suggestion := range result.Suggestions {
			if _, err := fmt.Fprintf(w, "  - %s\n", suggestion.Question); err != nil {
				return err
			}
		}
		return nil
	}
	_, _ = fmt.Fprintf(w, "rule:  %s (%s)\n", result.RuleID, result.Shape)
	_, _ = fmt.Fprintf(w, "about: %s\n", result.Explanation)
	_, err := fmt.Fprintf(w, "sql:   %s\n", result.SQL)
	return err
}

func printAsk(w io.Writer, response askResponse) error {
	if err := printTranslation(w, response.Translation); err != nil {
		return err
	}
	if !response.Executed || response.View == nil {
		return nil
	}
	_, _ = fmt.Fprintln(w)
	view := *response.View
	view.Rows = normalizeRows(view.Rows)
	return present.Render(w, view)
}

func printRows(w io.Writer, columns []string, rows [][]any) error {
	view := present.View{Kind: present.KindTable, Columns: columns, Rows: normalizeRows(rows)}
	if len(rows) == 0 {
		view.Kind = present.KindEmpty
	}
	return present.Render(w, view)
}

func printOverview(w io.Writer, response overviewResponse) error {
	if response.Dataset != "" {
		_, _ = fmt.Fprintf(w, "dataset %s: %d partitions, %d bytes, published %s\n\n",
			response.Dataset, response.Partitions, response.SizeBytes, response.PublishedAt)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, metric := range response.Metrics {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", metric.Label, metric.Formatted)
	}
	return tw.Flush()
}

func printHistory(w io.Writer, entries []historyEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tASKED_AT\tRULE\tROWS\tSTATUS\tQUESTION")
	for _, entry := range entries {
		status := "ok"
		switch {
		case entry.Error != "":
			status = "error"
		case !entry.Executed:
			status = "skipped"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", entry.ID, entry.AskedAt, entry.RuleID, entry.RowCount, status, entry.Question)
	}
	return tw.Flush()
}

func printRuleUsage(w io.Writer, usage []ruleUsage) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RULE\tCOUNT\tLAST_ASKED_AT")
	for _, u := range usage {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", u.RuleID, u.Count, u.LastAskedAt)
	}
	return tw.Flush()
}

func normalizeRows(rows [][]any) [][]any {
	for _, row := range rows {
		for i, value := range row {
			row[i] = normalizeValue(value)
		}
	}
	return rows
}

// normalizeValue turns json.Number into int64 or float64 so values format
// the same way they do on the server.
func normalizeValue(value any) any {
	number, ok := value.(json.Number)
	if !ok {
		return value
	}
	if !strings.ContainsAny(number.String(), ".eE") {
		if parsed, err := number.Int64(); err == nil {
			return parsed
		}
	}
	if parsed, err := number.Float64(); err == nil {
		return parsed
	}
	return number.String()
}
