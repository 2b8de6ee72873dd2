package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"ledgerdesk/backend/internal/cache"
	"ledgerdesk/backend/internal/commission"
	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
	"ledgerdesk/backend/internal/validation"
)

// Reason codes carried by RuleError.
const (
	ReasonEmptySale            = "empty_sale"
	ReasonInsufficientStock    = "insufficient_stock"
	ReasonExceedsOriginalPrice = "exceeds_original_price"
	ReasonContractorInactive   = "contractor_inactive"
	ReasonAlreadyPaid          = "already_paid"
	ReasonHasHistory           = "has_history"
	ReasonUnpaidBalance        = "unpaid_balance"
	ReasonPendingPayments      = "pending_payments"
	ReasonUpcomingAppointments = "upcoming_appointments"
	ReasonTimeSlotBooked       = "time_slot_booked"
	ReasonSetupCompleted       = "setup_completed"
	ReasonConflict             = "conflict"
	ReasonProtectedAccount     = "protected_account"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
)

// RuleError is a business rule violation the client can act on.
type RuleError struct {
	Code    string
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

// Status is the HTTP status the rule maps to.
func (e *RuleError) Status() int {
	switch e.Code {
	case ReasonAlreadyPaid, ReasonConflict, ReasonSetupCompleted, ReasonTimeSlotBooked:
		return http.StatusConflict
	case ReasonProtectedAccount:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func ruleError(code string, format string, args ...any) *RuleError {
	return &RuleError{Code: code, Message: fmt.Sprintf(format, args...)}
}

type ValidationError struct {
	Details []validation.FieldError
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		fields = append(fields, d.Field)
	}
	return "invalid request: " + strings.Join(fields, ", ")
}

func validate(req any) error {
	if details := validation.Struct(req); len(details) > 0 {
		return &ValidationError{Details: details}
	}
	return nil
}

func invalidField(field, tag string) error {
	return &ValidationError{Details: []validation.FieldError{{Field: field, Tag: tag}}}
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo      store.Repository
	calc      commission.Calculator
	summaries cache.SummaryCache
	cacheTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// New wires the service. A nil cache disables read-model caching and a nil
// logger discards log output.
func New(repo store.Repository, calc commission.Calculator, summaries cache.SummaryCache, cacheTTL time.Duration, logger *zap.Logger) *Service {
	if calc == nil {
		calc = commission.Float{}
	}
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		calc:      calc,
		summaries: summaries,
		cacheTTL:  cacheTTL,
		logger:    logger,
		now:       store.Now,
	}
}

// cachedRead serves key from the summary cache and fills it from the store
// on a miss. Cache failures are logged and never fail the read.
func cachedRead[T any](ctx context.Context, s *Service, key string, load func(tx store.Tx) (T, error)) (T, error) {
	var value T
	ok, err := s.summaries.Get(ctx, key, &value)
	if err != nil {
		s.logger.Warn("summary cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		return value, nil
	}

	err = s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		value, err = load(tx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if err := s.summaries.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("summary cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.summaries.Delete(ctx, keys...); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *Service) invalidateContractors(ctx context.Context, contractorIDs ...int64) {
	keys := []string{cache.MetricsKey}
	for _, id := range contractorIDs {
		keys = append(keys, cache.ContractorEarningsKey(id))
	}
	s.invalidate(ctx, keys...)
}

func notFound(entity string, id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", entity, id, store.ErrNotFound)
	}
	return err
}

func conflict(entity string, err error) error {
	if errors.Is(err, store.ErrConflict) {
		return ruleError(ReasonConflict, "%s already exists", entity)
	}
	return err
}

// ledgerTime normalizes client supplied instants to the ledger clock.
func ledgerTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
