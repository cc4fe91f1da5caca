package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/dataservice/internal/compiler"
	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/querysql"
	"github.com/roach88/dataservice/internal/store"
)

// DefaultMaxPlans bounds the plan cache. When full, the cache is dropped
// and refilled from scratch.
const DefaultMaxPlans = 256

// Engine is the data service: a registry of services over a store, a plan
// cache, and query execution.
//
// Thread-safety model:
//   - Register, RegisterQuery, Execute, Plan: safe from any goroutine
//   - The registry and plan cache are guarded by one RWMutex; parsing and
//     compiling happen outside the lock
//   - The store serializes access to SQLite itself
type Engine struct {
	store    *store.Store
	clock    *Clock
	ids      QueryIDGenerator
	compiler *querysql.SQLCompiler
	logger   *slog.Logger
	maxPlans int

	mu       sync.RWMutex
	services map[string]ir.ServiceSpec
	queries  map[string]ir.QuerySpec
	plans    map[string]*Plan
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIDGenerator sets the query ID source. Default: UUIDv7Generator.
func WithIDGenerator(ids QueryIDGenerator) Option {
	return func(e *Engine) {
		e.ids = ids
	}
}

// WithClock sets the logical clock, e.g. one resumed with NewClockAt.
func WithClock(clock *Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithMaxPlans sets the plan cache bound. Values below 1 disable caching.
func WithMaxPlans(n int) Option {
	return func(e *Engine) {
		e.maxPlans = n
	}
}

// New creates an Engine over an open store. The registry starts empty; call
// Restore to pick up services an earlier process registered.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		compiler: querysql.NewSQLCompiler(),
		logger:   slog.Default(),
		maxPlans: DefaultMaxPlans,
		services: make(map[string]ir.ServiceSpec),
		queries:  make(map[string]ir.QuerySpec),
		plans:    make(map[string]*Plan),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Restore loads the service registry from the store and moves the clock
// past the last logged query.
func (e *Engine) Restore(ctx context.Context) error {
	specs, err := e.store.Services(ctx)
	if err != nil {
		return fmt.Errorf("restore services: %w", err)
	}
	last, err := e.store.LastSeq(ctx)
	if err != nil {
		return fmt.Errorf("restore clock: %w", err)
	}

	e.mu.Lock()
	for _, spec := range specs {
		e.services[spec.Name] = spec
	}
	e.mu.Unlock()

	e.clock.AdvanceTo(last)
	e.logger.Debug("engine restored", "services", len(specs), "seq", last)
	return nil
}

// Register validates a service definition, creates its table and adds it
// to the registry. Registering the same definition twice is a no-op.
func (e *Engine) Register(ctx context.Context, spec ir.ServiceSpec) error {
	if verrs := compiler.Validate(spec); len(verrs) > 0 {
		return invalidSpecError(spec.Name, verrs)
	}
	if err := e.store.RegisterService(ctx, spec); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.services[spec.Name] = spec
	e.logger.Info("service registered", "service", spec.Name, "columns", len(spec.Columns))
	return nil
}

// RegisterQuery validates a named query against its service and adds it to
// the registry.
func (e *Engine) RegisterQuery(q ir.QuerySpec) error {
	spec, ok := e.Service(q.Service)
	if !ok {
		return newUnknownServiceError(q.Service)
	}
	if verrs := compiler.ValidateAll([]ir.ServiceSpec{spec}, []ir.QuerySpec{q}); len(verrs) > 0 {
		return invalidSpecError(q.Service, verrs)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries[q.Name] = q
	return nil
}

// Service looks up a registered service by name.
func (e *Engine) Service(name string) (ir.ServiceSpec, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	spec, ok := e.services[name]
	return spec, ok
}

// ServiceNames returns the registered service names in sorted order.
func (e *Engine) ServiceNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Sorted(maps.Keys(e.services))
}

// Load appends rows to a registered service.
func (e *Engine) Load(ctx context.Context, service string, rows []ir.IRObject) (int, error) {
	spec, ok := e.Service(service)
	if !ok {
		return 0, newUnknownServiceError(service)
	}
	n, err := e.store.InsertRows(ctx, spec, rows)
	if err != nil {
		return 0, err
	}
	e.logger.Info("rows loaded", "service", service, "rows", n)
	return n, nil
}

// History returns the logged queries against a service in seq order.
func (e *Engine) History(ctx context.Context, service string) ([]store.QueryRecord, error) {
	return e.store.ReadQueries(ctx, service)
}

func invalidSpecError(name string, verrs []compiler.ValidationError) *RuntimeError {
	errs := make([]error, len(verrs))
	for i, v := range verrs {
		errs[i] = v
	}
	return &RuntimeError{
		Code:    ErrCodeInvalidSpec,
		Message: fmt.Sprintf("%d validation error(s)", len(verrs)),
		Service: name,
		Err:     errors.Join(errs...),
	}
}
