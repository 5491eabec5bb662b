// Package api exposes the reconciliation service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/bankrecon/internal/auth"
	"github.com/punchamoorthee/bankrecon/internal/models"
	"github.com/punchamoorthee/bankrecon/internal/service"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankrecon_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bankrecon_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "endpoint"})
)

const (
	HeaderRequestID = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

type Handler struct {
	svc     *service.Service
	authz   auth.Authorizer
	log      *slog.Logger
	timeout  time.Duration
	currency string
}

// NewHandler builds the API over svc. currency is the ISO code summaries are formatted
// in; empty means USD.
func NewHandler(svc *service.Service, authz auth.Authorizer, log *slog.Logger, timeout time.Duration, currency string) *Handler {
	if authz == nil {
		authz = auth.HeaderAuthorizer{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if currency == "" {
		currency = "USD"
	}
	return &Handler{svc: svc, authz: authz, log: log, timeout: timeout, currency: currency}
}

// Router wires every endpoint. Callers may add more routes (such as /metrics) to the
// returned router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.requestID, h.recoverer, h.instrument)
	r.NotFoundHandler = h.requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusNotFound, models.Response{Error: "no such endpoint", Kind: "not_found"})
	}))
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(h.withActor)
	v1.HandleFunc("/reconciliations", h.ListReconciliationsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/reconciliations", h.CreateReconciliationHandler).Methods(http.MethodPost)
	v1.HandleFunc("/reconciliations/{id:[0-9]+}", h.GetReconciliationHandler).Methods(http.MethodGet)
	v1.HandleFunc("/reconciliations/{id:[0-9]+}/summary", h.SummaryHandler).Methods(http.MethodGet)
	v1.HandleFunc("/reconciliations/{id:[0-9]+}/candidates", h.CandidatesHandler).Methods(http.MethodGet)
	v1.HandleFunc("/reconciliations/{id:[0-9]+}/smart-match", h.SmartMatchHandler).Methods(http.MethodPost)
	v1.HandleFunc("/reconciliations/{id:[0-9]+}/matches", h.MatchHandler).Methods(http.MethodPost)
	v1.HandleFunc("/reconciliations/{id:[0-9]+}/adjustments", h.AdjustmentHandler).Methods(http.MethodPost)
	v1.HandleFunc("/reconciliations/{id:[0-9]+}/recalc", h.RecalcHandler).Methods(http.MethodPost)
	v1.HandleFunc("/reconciliations/{id:[0-9]+}/finalize", h.FinalizeHandler).Methods(http.MethodPost)
	v1.HandleFunc("/statement-lines/{id:[0-9]+}/cleared", h.ClearedHandler).Methods(http.MethodPost)
	return r
}

type ctxKey int

const (
	actorKey ctxKey = iota
	loggerKey
)

func actorFrom(ctx context.Context) auth.Actor {
	a, _ := ctx.Value(actorKey).(auth.Actor)
	return a
}

func (h *Handler) logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return h.log
}

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), loggerKey, h.log.With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				h.logger(r.Context()).ErrorContext(r.Context(), "panic serving request",
					"method", r.Method, "path", r.URL.Path, "panic", v, "stack", string(debug.Stack()))
				h.respondError(w, r, fmt.Errorf("panic: %v", v))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(r.Method, endpoint))
		defer timer.ObserveDuration()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
	})
}

// withActor resolves the caller once and bounds the request by the configured timeout.
func (h *Handler) withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := h.authz.Resolve(r)
		if err != nil {
			respondWithJSON(w, http.StatusUnauthorized, models.Response{Error: err.Error(), Kind: "authorization"})
			return
		}
		if !actor.CanReconcile() {
			respondWithJSON(w, http.StatusForbidden, models.Response{Error: "finance or admin role required", Kind: "authorization"})
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		ctx = context.WithValue(ctx, loggerKey, h.logger(ctx).With("actor_id", actor.ID, "organization_id", actor.OrganizationID))
		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Helpers

func invalid(format string, args ...any) error {
	return &service.Error{Kind: service.ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return invalid("request body is required")
		}
		return invalid("malformed JSON body: %v", err)
	}
	return nil
}

var kindStatus = map[string]int{
	"authorization":  http.StatusForbidden,
	"not_found":      http.StatusNotFound,
	"state_conflict": http.StatusConflict,
	"validation":     http.StatusBadRequest,
	"business_rule":  http.StatusUnprocessableEntity,
	"configuration":  http.StatusInternalServerError,
	"internal":       http.StatusInternalServerError,
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.KindOf(err)
	code, ok := kindStatus[kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		code = http.StatusGatewayTimeout
	}
	if code >= http.StatusInternalServerError {
		h.logger(r.Context()).ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "kind", kind, "error", err)
	}
	respondWithJSON(w, code, models.Response{Error: service.Message(err), Kind: kind})
}

func respondData(w http.ResponseWriter, code int, data any) {
	respondWithJSON(w, code, models.Response{Success: true, Data: data})
}

func respondWithJSON(w http.ResponseWriter, code int, payload models.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
