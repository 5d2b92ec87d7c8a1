// Package service runs the lookup pipeline: parse, meter, serve from cache
// or fan out to adapters, merge, filter and charge.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	ledgermodels "lookout/internal/ledger/models"
	"lookout/internal/lookup/adapters"
	"lookout/internal/lookup/cache"
	"lookout/internal/lookup/filter"
	"lookout/internal/lookup/identifier"
	"lookout/internal/lookup/metrics"
	"lookout/internal/lookup/models"
	"lookout/internal/lookup/normalizer"
	audit "lookout/pkg/platform/audit"
	"lookout/pkg/platform/audit/publisher"
	"lookout/pkg/requestcontext"
)

const (
	defaultQueryCost      = 1
	defaultCacheTTL       = 24 * time.Hour
	defaultRequestTimeout = 150 * time.Second
)

// Router picks the adapters for a query.
type Router interface {
	Resolve(q models.Query) models.Query
	Route(q models.Query) []adapters.Kind
}

// Dispatcher invokes adapters and returns one result per kind.
type Dispatcher interface {
	Dispatch(ctx context.Context, q models.Query, kinds []adapters.Kind) []models.SourceResult
}

// Cache stores merged profiles.
type Cache interface {
	Get(ctx context.Context, kind models.IdentifierKind, identifier string) (*models.MergedProfile, bool, error)
	Put(ctx context.Context, kind models.IdentifierKind, identifier string, profile *models.MergedProfile, ttl time.Duration) error
}

// Ledger meters lookups.
type Ledger interface {
	CanAfford(ctx context.Context, userID string, cost int64) (bool, int64, error)
	Charge(ctx context.Context, userID string, cost int64, reason string) (ledgermodels.DebitResult, error)
}

// Request is one lookup. An empty UserID is an unmetered request.
type Request struct {
	UserID     string
	Identifier string
}

// Result is the outcome of a lookup.
type Result struct {
	Profile *models.MergedProfile
	Cached  bool
	// Balance is the caller's balance after the charge; zero when unmetered.
	Balance int64
}

type Service struct {
	router     Router
	dispatcher Dispatcher
	cache      Cache
	ledger     Ledger
	auditor    audit.Emitter
	logger     *slog.Logger
	metrics    *metrics.Metrics

	cost    int64
	ttl     time.Duration
	timeout time.Duration

	inflight singleflight.Group
}

type Option func(*Service)

// WithLedger enables metering.
func WithLedger(l Ledger) Option {
	return func(s *Service) {
		s.ledger = l
	}
}

func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithQueryCost sets the units charged per lookup.
func WithQueryCost(cost int64) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// WithCacheTTL sets how long merged profiles are cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithRequestTimeout bounds one aggregation across all adapters.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(router Router, dispatcher Dispatcher, c Cache, opts ...Option) (*Service, error) {
	if router == nil {
		return nil, fmt.Errorf("router is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if c == nil {
		return nil, fmt.Errorf("cache is required")
	}
	svc := &Service{
		router:     router,
		dispatcher: dispatcher,
		cache:      c,
		logger:     slog.Default(),
		cost:       defaultQueryCost,
		ttl:        defaultCacheTTL,
		timeout:    defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Lookup resolves one identifier. Cache hits are charged like fresh
// lookups. Balance is checked before any adapter is invoked.
func (s *Service) Lookup(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	q, err := identifier.Parse(req.Identifier)
	if err != nil {
		return nil, err
	}
	q = s.router.Resolve(q)

	metered := req.UserID != "" && s.ledger != nil
	if metered {
		ok, balance, err := s.ledger.CanAfford(ctx, req.UserID, s.cost)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.record(ctx, audit.EventLookupRejected, req.UserID, q, false, 0, balance)
			return nil, ledgermodels.InsufficientBalance(s.cost, balance)
		}
	}

	profile, cached, err := s.cache.Get(ctx, q.Kind, q.Normalized)
	if err != nil {
		return nil, err
	}
	if !cached {
		profile, err = s.aggregateOnce(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	res := &Result{Profile: profile, Cached: cached}
	var charged int64
	if metered {
		debit, err := s.ledger.Charge(ctx, req.UserID, s.cost, fmt.Sprintf("%s lookup", q.Kind))
		if err != nil {
			return nil, err
		}
		res.Balance, charged = debit.BalanceAfter, debit.Charged
	}

	s.metrics.IncrementLookup(string(q.Kind), cached)
	s.metrics.ObserveLookupLatency(time.Since(start))
	s.record(ctx, audit.EventLookupCompleted, req.UserID, q, cached, charged, res.Balance)
	s.logger.InfoContext(ctx, "lookup completed",
		"kind", q.Kind,
		"region", q.Region,
		"cached", cached,
		"sources", len(profile.Sources),
		"succeeded", profile.Summary.Succeeded,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// aggregateOnce collapses concurrent misses for one identifier into a single
// fan-out. The shared work is detached from any one caller's cancellation.
func (s *Service) aggregateOnce(ctx context.Context, q models.Query) (*models.MergedProfile, error) {
	key := cache.Key(q.Kind, q.Normalized)
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		profile := s.aggregate(workCtx, q)
		if err := s.cache.Put(workCtx, q.Kind, q.Normalized, profile, s.ttl); err != nil {
			return nil, err
		}
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	profile, ok := v.(*models.MergedProfile)
	if !ok {
		return nil, errors.New("unexpected aggregate result")
	}
	cp := *profile
	return &cp, nil
}

// aggregate fans out, merges and filters. Adapter failures are carried in
// the profile, never returned.
func (s *Service) aggregate(ctx context.Context, q models.Query) *models.MergedProfile {
	results := s.dispatcher.Dispatch(ctx, q, s.router.Route(q))

	var contacts *models.Contacts
	for i := range results {
		if results[i].Source != adapters.KindPeopleIndex.String() || !results[i].OK() {
			continue
		}
		contacts = s.filterBulkStore(ctx, q, &results[i])
	}

	fields := normalizer.NormalizeAll(results)
	return &models.MergedProfile{
		Identifier:  q.Normalized,
		Kind:        q.Kind,
		Region:      q.Region,
		Sources:     results,
		Fields:      fields,
		Summary:     normalizer.Summarize(results, fields),
		Contacts:    contacts,
		GeneratedAt: requestcontext.Now(ctx),
	}
}

// filterBulkStore scores the bulk store's records and replaces its payload
// with a copy holding only contact details that belong to the target.
func (s *Service) filterBulkStore(ctx context.Context, q models.Query, res *models.SourceResult) *models.Contacts {
	candidates := filter.ExtractCandidates(res.Payload)
	if candidates.Empty() {
		return nil
	}
	scored := filter.Score(q.Normalized, candidates.Direct, candidates.ByName)
	contacts := filter.Apply(scored, candidates.RawEmails, candidates.RawPhones)
	res.Payload = filter.Redact(res.Payload, scored, contacts.Emails)

	for pool, c := range scored.Counts() {
		s.metrics.AddCandidates(pool, c[0], c[1])
	}
	s.logger.DebugContext(ctx, "bulk store records filtered",
		"direct", len(candidates.Direct),
		"by_name", len(candidates.ByName),
		"emails_kept", len(contacts.Emails),
		"emails_seen", len(candidates.RawEmails),
	)
	return &contacts
}

func (s *Service) record(ctx context.Context, action audit.AuditEvent, userID string, q models.Query, cached bool, amount, balance int64) {
	if s.auditor == nil {
		return
	}
	publisher.Log(ctx, s.logger, s.auditor, audit.Event{
		Action:        string(action),
		UserID:        userID,
		RequestID:     requestcontext.RequestID(ctx),
		SubjectIDHash: audit.HashSubject(q.Normalized),
		Reason:        string(q.Kind),
		Amount:        amount,
		BalanceAfter:  balance,
		Cached:        cached,
	})
}
