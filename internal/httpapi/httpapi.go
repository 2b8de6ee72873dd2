package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/service"
	"ledgerdesk/backend/internal/store"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
	maxBodyBytes     = 1 << 20
)

var (
	anyRole  = []string{domain.RoleSuperadmin, domain.RoleAdmin, domain.RoleController}
	managers = []string{domain.RoleSuperadmin, domain.RoleAdmin}
	owners   = []string{domain.RoleSuperadmin}
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	logger        *zap.Logger
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		logger:        logger,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(a.requestID)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{a.allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: a.allowedOrigin != "*",
		MaxAge:           300,
	}))
	r.Use(limitBody)

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/check-setup", a.handleCheckSetup)
		r.Post("/setup", a.handleSetup)
		r.Post("/login", a.handleLogin)
		r.Post("/logout", a.handleLogout)
		r.Get("/me", a.requireAuth(a.handleMe, anyRole...))
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", a.requireAuth(a.handleListUsers, owners...))
		r.Post("/", a.requireAuth(a.handleCreateUser, owners...))
		r.Patch("/{id}/status", a.requireAuth(a.handleUserStatus, owners...))
		r.Delete("/{id}", a.requireAuth(a.handleDeleteUser, owners...))
	})

	r.Route("/api/sales", func(r chi.Router) {
		r.Post("/", a.requireAuth(a.handleProcessSale, anyRole...))
		r.Get("/", a.requireAuth(a.handleListSales, anyRole...))
		r.Get("/products", a.requireAuth(a.handleSoldProducts, anyRole...))
	})

	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/contractor", a.requireAuth(a.handlePayContractor, managers...))
		r.Get("/contractor", a.requireAuth(a.handleContractorPayments, managers...))
		r.Post("/employee", a.requireAuth(a.handleCreateEmployeePayment, managers...))
		r.Get("/employee", a.requireAuth(a.handleEmployeePayments, managers...))
	})

	r.Route("/api/contractors", func(r chi.Router) {
		r.Get("/", a.requireAuth(a.handleListContractors, anyRole...))
		r.Post("/", a.requireAuth(a.handleCreateContractor, managers...))
		r.Get("/{id}", a.requireAuth(a.handleGetContractor, anyRole...))
		r.Put("/{id}", a.requireAuth(a.handleUpdateContractor, managers...))
		r.Patch("/{id}/status", a.requireAuth(a.handleContractorStatus, managers...))
		r.Delete("/{id}", a.requireAuth(a.handleDeleteContractor, managers...))
		r.Get("/{id}/unpaid-sales", a.requireAuth(a.handleUnpaidSales, managers...))
		r.Get("/{id}/earnings", a.requireAuth(a.handleContractorEarnings, anyRole...))
		r.Get("/{id}/services", a.requireAuth(a.handleContractorServices, anyRole...))
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", a.requireAuth(a.handleListProducts, anyRole...))
		r.Post("/", a.requireAuth(a.handleCreateProduct, managers...))
		r.Get("/{id}", a.requireAuth(a.handleGetProduct, anyRole...))
		r.Put("/{id}", a.requireAuth(a.handleUpdateProduct, managers...))
	})
	r.Post("/api/inventory/receive", a.requireAuth(a.handleReceiveStock, managers...))
	r.Get("/api/inventory/receive", a.requireAuth(a.handleListReceiving, anyRole...))
	r.Post("/api/returns", a.requireAuth(a.handleProcessReturn, managers...))
	r.Get("/api/returns", a.requireAuth(a.handleListReturns, anyRole...))

	r.Route("/api/services", func(r chi.Router) {
		r.Get("/", a.requireAuth(a.handleListServices, anyRole...))
		r.Post("/", a.requireAuth(a.handleCreateService, managers...))
		r.Get("/{id}", a.requireAuth(a.handleGetService, anyRole...))
		r.Delete("/{id}", a.requireAuth(a.handleDeleteService, managers...))
		r.Get("/{id}/history", a.requireAuth(a.handleServiceHistory, anyRole...))
	})

	r.Route("/api/employees", func(r chi.Router) {
		r.Get("/", a.requireAuth(a.handleListEmployees, managers...))
		r.Post("/", a.requireAuth(a.handleCreateEmployee, managers...))
		r.Get("/{id}", a.requireAuth(a.handleGetEmployee, managers...))
		r.Put("/{id}", a.requireAuth(a.handleUpdateEmployee, managers...))
		r.Delete("/{id}", a.requireAuth(a.handleDeleteEmployee, managers...))
	})

	r.Route("/api/appointments", func(r chi.Router) {
		r.Get("/", a.requireAuth(a.handleListAppointments, anyRole...))
		r.Post("/", a.requireAuth(a.handleCreateAppointment, anyRole...))
		r.Get("/{id}", a.requireAuth(a.handleGetAppointment, anyRole...))
		r.Put("/{id}", a.requireAuth(a.handleUpdateAppointment, anyRole...))
		r.Delete("/{id}", a.requireAuth(a.handleDeleteAppointment, anyRole...))
	})

	r.Get("/api/settings", a.requireAuth(a.handleGetSettings, anyRole...))
	r.Put("/api/settings", a.requireAuth(a.handleSaveSettings, managers...))
	r.Get("/api/metrics", a.requireAuth(a.handleMetrics, anyRole...))
	r.Get("/api/reports/sales", a.requireAuth(a.handleSalesReport, managers...))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, r, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})
	return r
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			a.writeError(w, r, http.StatusUnauthorized, errors.New("missing credentials"))
			return
		}

		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, r, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, r, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

type requestIDKey struct{}

func (a *API) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		startedAt := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(startedAt)),
			zap.String("request_id", requestIDFrom(r.Context())),
		)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

type pageResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func newPage[T any](items []T, total int, page domain.Page) pageResponse[T] {
	if items == nil {
		items = []T{}
	}
	return pageResponse[T]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}
}

func parsePage(r *http.Request) domain.Page {
	q := r.URL.Query()
	offset, err := strconv.Atoi(strings.TrimSpace(q.Get("offset")))
	if err != nil || offset < 0 {
		offset = 0
	}
	return domain.Page{
		Limit:  parsePositiveLimit(q.Get("limit"), defaultPageLimit, maxPageLimit),
		Offset: offset,
	}
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// parseTimeParam accepts RFC 3339 or a plain date. A plain date used as an
// upper bound covers the whole day.
func parseTimeParam(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, errors.New("invalid date " + strconv.Quote(raw))
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

func parseRange(r *http.Request) (from *time.Time, to *time.Time, err error) {
	if from, err = parseTimeParam(r.URL.Query().Get("from"), false); err != nil {
		return nil, nil, err
	}
	if to, err = parseTimeParam(r.URL.Query().Get("to"), true); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseOptionalID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New("invalid id " + strconv.Quote(raw))
	}
	return &id, nil
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// writeServiceError maps service and store errors onto HTTP responses.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *service.ValidationError
		rule *service.RuleError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "validation failed",
			"details": verr.Details,
		})
	case errors.As(err, &rule):
		writeJSON(w, rule.Status(), map[string]any{
			"error":  rule.Message,
			"reason": rule.Code,
		})
	case errors.Is(err, store.ErrNotFound):
		a.writeError(w, r, http.StatusNotFound, err)
	case errors.Is(err, store.ErrConflict):
		a.writeError(w, r, http.StatusConflict, err)
	case errors.Is(err, service.ErrInvalidCredentials):
		a.writeError(w, r, http.StatusUnauthorized, err)
	case errors.Is(err, service.ErrAccountInactive):
		a.writeError(w, r, http.StatusForbidden, err)
	default:
		a.writeError(w, r, http.StatusInternalServerError, err)
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	// 5xx details stay in the server log.
	msg := err.Error()
	if status >= 500 {
		a.logger.Error("internal error",
			zap.Int("status", status),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
