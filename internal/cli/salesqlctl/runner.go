package salesqlctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	Output     string
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// usageError marks failures caused by how the command was invoked.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// Run executes one salesqlctl invocation and returns the process exit code:
// 0 on success, 1 when the request failed and 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	root := newRootCmd(defaults, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		var usage usageError
		if errors.As(err, &usage) {
			_, _ = fmt.Fprintln(stderr)
			_, _ = fmt.Fprint(stderr, root.UsageString())
			return 2
		}
		return 1
	}
	return 0
}

type session struct {
	client *client
	output string
	stdout io.Writer
}

func newRootCmd(defaults Options, stdout, stderr io.Writer) *cobra.Command {
	var (
		baseURL string
		apiKey  string
		timeout time.Duration
		output  string
	)
	s := &session{stdout: stdout}

	root := &cobra.Command{
		Use:           "salesqlctl",
		Short:         "Ask sales questions against a salesql API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unknown command %q", args[0])}
			}
			return nil
		},
		RunE: func(*cobra.Command, []string) error {
			return usageError{errors.New("a command is required")}
		},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if output != outputTable && output != outputJSON {
				return usageError{fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)}
			}
			httpClient := defaults.HTTPClient
			if httpClient == nil {
				httpClient = &http.Client{Timeout: timeout}
			}
			s.client = &client{baseURL: strings.TrimRight(baseURL, "/"), apiKey: strings.TrimSpace(apiKey), http: httpClient}
			s.output = output
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "salesql API base URL")
	flags.StringVar(&apiKey, "api-key", defaults.APIKey, "API key for authenticated requests")
	flags.DurationVar(&timeout, "timeout", durationOr(defaults.Timeout, 10*time.Second), "HTTP timeout (e.g. 10s)")
	flags.StringVarP(&output, "output", "o", firstNonEmpty(defaults.Output, outputTable), "Output format (table, json)")

	root.AddCommand(
		newStatusCmd(s, "health", "Check API liveness", "/v1/health"),
		newStatusCmd(s, "ready", "Check API readiness", "/v1/ready"),
		newSchemaCmd(s),
		newExamplesCmd(s),
		newTranslateCmd(s),
		newAskCmd(s),
		newQueryCmd(s),
		newOverviewCmd(s),
		newHistoryCmd(s),
	)
	return root
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError{fmt.Errorf("expected %d argument(s), got %d", n, len(args))}
		}
		return nil
	}
}

func minimumArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return usageError{fmt.Errorf("expected at least %d argument(s), got %d", n, len(args))}
		}
		return nil
	}
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
