package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/salesql/salesql/internal/auth"
	"github.com/salesql/salesql/internal/config"
	"github.com/salesql/salesql/internal/dataset"
	"github.com/salesql/salesql/internal/history"
	"github.com/salesql/salesql/internal/nl2sql"
	"github.com/salesql/salesql/internal/observability"
	"github.com/salesql/salesql/internal/present"
	"github.com/salesql/salesql/internal/query"
	"github.com/salesql/salesql/internal/schema"
)

const maxRequestBodyBytes = 1 << 20

type ReadinessCheck func(ctx context.Context) error

type Translator interface {
	Translate(question string) nl2sql.Result
	Schema() *schema.Descriptor
	Bank() nl2sql.Bank
}

type QueryRunner interface {
	Run(ctx context.Context, sqlText string, rowLimit int) (query.Result, error)
}

type Presenter interface {
	Build(shape nl2sql.Shape, columns []string, rows [][]any) present.View
}

type ManifestSource interface {
	Manifest(ctx context.Context) (dataset.Manifest, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Translator        Translator
	Queries           QueryRunner
	Presenter         Presenter
	History           history.Store
	Dataset           ManifestSource
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	authenticate := auth.AnonymousMiddleware
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			authenticate = func(http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
				})
			}
		} else {
			authenticate = deps.AuthMiddleware
		}
	}

	protectedMiddlewares := []func(http.Handler) http.Handler{authenticate}
	if cfg.RateLimit.Enabled {
		limiter := newRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, deps.Logger)
		protectedMiddlewares = append(protectedMiddlewares, limiter.Middleware)
	}
	protect := func(pattern, role string, handler func(Dependencies, http.ResponseWriter, *http.Request)) {
		mux.Handle(pattern, chain(auth.RequireRole(role, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(deps, w, r)
		})), protectedMiddlewares...))
	}

	protect("GET /v1/schema", auth.RoleQueryReader, handleSchema)
	protect("GET /v1/examples", auth.RoleQueryReader, handleExamples)
	protect("POST /v1/translate", auth.RoleQueryReader, handleTranslate)
	protect("POST /v1/ask", auth.RoleQueryReader, handleAsk)
	protect("POST /v1/query", auth.RoleQueryReader, handleQuery)
	protect("GET /v1/overview", auth.RoleQueryReader, handleOverview)
	protect("GET /v1/history", auth.RoleHistoryReader, handleListHistory)
	protect("GET /v1/history/rules", auth.RoleHistoryReader, handleRuleUsage)
	protect("GET /v1/history/{id}", auth.RoleHistoryReader, handleGetHistory)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckDataset reports not ready until a dataset manifest has been published.
func CheckDataset(source ManifestSource) ReadinessCheck {
	return func(ctx context.Context) error {
		if source == nil {
			return errors.New("dataset source is not configured")
		}
		if _, err := source.Manifest(ctx); err != nil {
			return err
		}
		return nil
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Driver != config.DriverS3 {
			return nil
		}
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}

// writeQueryError maps executor failures onto the error envelope.
func writeQueryError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dataset.ErrNoManifest):
		writeError(ctx, w, http.StatusServiceUnavailable, "DATASET_UNAVAILABLE", "no dataset has been published", true, map[string]any{"details": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		writeError(ctx, w, http.StatusGatewayTimeout, "QUERY_TIMEOUT", "query exceeded the configured timeout", true, nil)
	default:
		writeError(ctx, w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", "query execution failed", false, map[string]any{"details": err.Error()})
	}
}
