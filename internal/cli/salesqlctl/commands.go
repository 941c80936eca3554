package salesqlctl

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salesql/salesql/internal/nl2sql"
	"github.com/salesql/salesql/internal/schema"
)

func newStatusCmd(s *session, name, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := s.client.do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			return s.print(raw, func() error {
				var body map[string]any
				if err := decodeResponse(raw, &body); err != nil {
					return err
				}
				return printKeyValues(s.stdout, body)
			})
		},
	}
}

func newSchemaCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the queryable table and its columns",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := s.client.do(cmd.Context(), http.MethodGet, "/v1/schema", nil)
			if err != nil {
				return err
			}
			return s.print(raw, func() error {
				var body struct {
					Table   string          `json:"table"`
					Columns []schema.Column `json:"columns"`
				}
				if err := decodeResponse(raw, &body); err != nil {
					return err
				}
				return printSchema(s.stdout, body.Table, body.Columns)
			})
		},
	}
}

func newExamplesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "List the example questions the API understands",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := s.client.do(cmd.Context(), http.MethodGet, "/v1/examples", nil)
			if err != nil {
				return err
			}
			return s.print(raw, func() error {
				var body struct {
					Examples []nl2sql.Example `json:"examples"`
				}
				if err := decodeResponse(raw, &body); err != nil {
					return err
				}
				return printExamples(s.stdout, body.Examples)
			})
		},
	}
}

func newTranslateCmd(s *session) *cobra.Command {
	var (
		local   bool
		dialect string
	)
	cmd := &cobra.Command{
		Use:   "translate <question>",
		Short: "Translate a question into SQL without running it",
		Args:  minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if local {
				selected, err := nl2sql.DialectByName(dialect)
				if err != nil {
					return usageError{err}
				}
				translator, err := nl2sql.New(schema.Sales(), nl2sql.DefaultBank(), nl2sql.WithDialect(selected))
				if err != nil {
					return err
				}
				return printValue(s, translator.Translate(question), func(result nl2sql.Result) error {
					return printTranslation(s.stdout, result)
				})
			}

			raw, err := s.client.do(cmd.Context(), http.MethodPost, "/v1/translate", map[string]any{"question": question})
			if err != nil {
				return err
			}
			return s.print(raw, func() error {
				var result nl2sql.Result
				if err := decodeResponse(raw, &result); err != nil {
					return err
				}
				return printTranslation(s.stdout, result)
			})
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Translate in-process against the built-in sales schema")
	cmd.Flags().StringVar(&dialect, "dialect", "duckdb", "SQL dialect for --local (duckdb, sqlite)")
	return cmd
}

func newAskCmd(s *session) *cobra.Command {
	var rowLimit int
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Translate a question, run it and show the result",
		Args:  minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"question": strings.Join(args, " ")}
			if rowLimit > 0 {
				payload["row_limit"] = rowLimit
			}
			raw, err := s.client.do(cmd.Context(), http.MethodPost, "/v1/ask", payload)
			if err != nil {
				return err
			}
			return s.print(raw, func() error {
				var body askResponse
				if err := decodeResponse(raw, &body); err != nil {
					return err
				}
				return printAsk(s.stdout, body)
			})
		},
	}
	cmd.Flags().IntVar(&rowLimit, "row-limit", 0, "Maximum rows to return (server default when 0)")
	return cmd
}

func newQueryCmd(s *session) *cobra.Command {
	var rowLimit int
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only SELECT statement",
		Args:  minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"sql": strings.Join(args, " ")}
			if rowLimit > 0 {
				payload["row_limit"] = rowLimit
			}
			raw, err := s.client.do(cmd.Context(), http.MethodPost, "/v1/query", payload)
			if err != nil {
				return err
			}
			return s.print(raw, func() error {
				var body queryResponse
				if err := decodeResponse(raw, &body); err != nil {
					return err
				}
				return printRows(s.stdout, body.Columns, body.Rows)
			})
		},
	}
	cmd.Flags().IntVar(&rowLimit, "row-limit", 0, "Maximum rows to return (server default when 0)")
	return cmd
}

func newOverviewCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show headline totals of the published dataset",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := s.client.do(cmd.Context(), http.MethodGet, "/v1/overview", nil)
			if err != nil {
				return err
			}
			return s.print(raw, func() error {
				var body overviewResponse
				if err := decodeResponse(raw, &body); err != nil {
					return err
				}
				return printOverview(s.stdout, body)
			})
		},
	}
}

func newHistoryCmd(s *session) *cobra.Command {
	var (
		limit int
		rules bool
	)
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Show recently asked questions, one entry, or per-rule usage",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageError{fmt.Errorf("expected at most 1 argument, got %d", len(args))}
			}
			if len(args) == 1 && rules {
				return usageError{fmt.Errorf("--rules does not take an id")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case rules:
				raw, err := s.client.do(cmd.Context(), http.MethodGet, "/v1/history/rules", nil)
				if err != nil {
					return err
				}
				return s.print(raw, func() error {
					var body struct {
						Rules []ruleUsage `json:"rules"`
					}
					if err := decodeResponse(raw, &body); err != nil {
						return err
					}
					return printRuleUsage(s.stdout, body.Rules)
				})
			case len(args) == 1:
				raw, err := s.client.do(cmd.Context(), http.MethodGet, "/v1/history/"+url.PathEscape(args[0]), nil)
				if err != nil {
					return err
				}
				return s.print(raw, func() error {
					var body map[string]any
					if err := decodeResponse(raw, &body); err != nil {
						return err
					}
					return printKeyValues(s.stdout, body)
				})
			default:
				path := "/v1/history"
				if limit > 0 {
					path += "?limit=" + strconv.Itoa(limit)
				}
				raw, err := s.client.do(cmd.Context(), http.MethodGet, path, nil)
				if err != nil {
					return err
				}
				return s.print(raw, func() error {
					var body struct {
						Entries []historyEntry `json:"entries"`
					}
					if err := decodeResponse(raw, &body); err != nil {
						return err
					}
					return printHistory(s.stdout, body.Entries)
				})
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of entries to list (server default when 0)")
	cmd.Flags().BoolVar(&rules, "rules", false, "Show how often each rule answered a question")
	return cmd
}
