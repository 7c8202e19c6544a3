// Package server is the reference profile backend: it serves the pet,
// settings and subscription endpoints the client transport talks to, backed
// by a record store and a blob store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"petcore/internal/blob"
	"petcore/internal/observability"
	"petcore/internal/transport"
	"petcore/pkg/domain"
)

// Stored but never returned to clients.
const (
	ownerField      = "owner_ID"
	blobKeyPrefix   = "blob_key_"
	subscriptionKey = "subscription_name"
)

const defaultMaxUpload = 20 << 20

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l observability.Logger) Option {
	return func(s *Server) { s.logger = observability.OrNop(l) }
}

// WithMetrics records one observation per request and serves /metrics.
func WithMetrics(m *observability.PrometheusRecorder) Option {
	return func(s *Server) { s.prom = m }
}

// WithMaxUploadBytes bounds multipart request bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithFiles serves stored objects under /files/ (filesystem driver).
func WithFiles(h http.Handler) Option {
	return func(s *Server) { s.files = h }
}

// Server implements the profile endpoints.
type Server struct {
	records   domain.RecordStore
	blobs     blob.Store
	logger    observability.Logger
	prom      *observability.PrometheusRecorder
	files     http.Handler
	maxUpload int64
	rules     *domain.RulesEngine
	mux       *http.ServeMux
}

// New wires the handlers.
func New(records domain.RecordStore, blobs blob.Store, opts ...Option) *Server {
	s := &Server{
		records:   records,
		blobs:     blobs,
		logger:    observability.NopLogger(),
		maxUpload: defaultMaxUpload,
		rules:     petRules(),
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handle(transport.EndpointPetPull, s.pullPet)
	s.handle(transport.EndpointPetPush, s.pushPet)
	for _, doc := range transport.SettingsDocs {
		s.handle(doc.Pull, s.pullSettings(doc))
		s.handle(doc.Push, s.pushSettings(doc))
	}
	s.handle(transport.EndpointSubscriptionPull, s.pullSubscription)
	s.handle(EndpointSubscriptionPush, s.pushSubscription)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.prom != nil {
		s.mux.Handle("/metrics", s.prom.Handler())
	}
	if s.files != nil {
		s.mux.Handle("/files/", http.StripPrefix("/files/", s.files))
	}
	return s
}

// EndpointSubscriptionPush sets a user's tier. It exists for development
// and tests; the production service manages subscriptions elsewhere.
const EndpointSubscriptionPush = "push/settings-subscription"

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// apiError is a failure rendered as a JSON envelope.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func fail(status int, msg string) error { return &apiError{status: status, message: msg} }

type handlerFunc func(w http.ResponseWriter, r *http.Request) (any, error)

func (s *Server) handle(endpoint string, h handlerFunc) {
	s.mux.HandleFunc("/api/"+endpoint, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := http.StatusOK
		defer func() {
			if s.prom != nil {
				s.prom.Observe(r.Context(), "server."+endpoint, status < 400, time.Since(start))
			}
		}()
		if r.Method != http.MethodPost {
			status = http.StatusMethodNotAllowed
			writeJSON(w, status, envelope(false, "Method not allowed."))
			return
		}
		body, err := h(w, r)
		if err != nil {
			status, body = s.renderError(endpoint, err)
		}
		writeJSON(w, status, body)
	})
}

func (s *Server) renderError(endpoint string, err error) (int, any) {
	var (
		ae *apiError
		rv domain.RuleViolationError
	)
	switch {
	case errors.As(err, &ae):
		return ae.status, envelope(false, ae.message)
	case errors.As(err, &rv):
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrCapacityReached) {
			status = http.StatusForbidden
		}
		msg := domain.UserMessage(err)
		if blocking := rv.Result.Blocking(); len(blocking) > 0 {
			msg = blocking[0].Message
		}
		return status, envelope(false, msg)
	case domain.IsLocal(err):
		return http.StatusBadRequest, envelope(false, domain.UserMessage(err))
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, envelope(false, "Not found.")
	default:
		s.logger.Error("request failed", "endpoint", endpoint, "error", err)
		return http.StatusInternalServerError, envelope(false, "Internal error.")
	}
}

func envelope(ok bool, msg string) map[string]any {
	out := map[string]any{"success": ok}
	if msg != "" {
		out["message"] = msg
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// formFields parses either encoding and returns the non-identity fields.
func (s *Server) formFields(r *http.Request) (userID string, petID string, fields map[string]string, err error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.Body = http.MaxBytesReader(nil, r.Body, s.maxUpload)
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			return "", "", nil, fail(http.StatusBadRequest, "Malformed upload.")
		}
	} else if err := r.ParseForm(); err != nil {
		return "", "", nil, fail(http.StatusBadRequest, "Malformed request.")
	}
	fields = make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		switch k {
		case transport.FieldUserID:
			userID = strings.TrimSpace(r.PostForm.Get(k))
		case transport.FieldPetID:
			petID = strings.TrimSpace(r.PostForm.Get(k))
		default:
			if isHidden(k) {
				continue
			}
			fields[k] = r.PostForm.Get(k)
		}
	}
	if userID == "" {
		return "", "", nil, fail(http.StatusUnauthorized, "Missing user.")
	}
	return userID, petID, fields, nil
}

func isHidden(key string) bool {
	return key == ownerField || strings.HasPrefix(key, blobKeyPrefix)
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, logger observability.Logger) error {
	return runServer(ctx, &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}, observability.OrNop(logger))
}

// FileHandler serves objects stored by the filesystem blob driver. Metadata
// sidecars and directory listings are not exposed.
func FileHandler(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".meta") || strings.HasSuffix(r.URL.Path, "/") || r.URL.Path == "" {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
