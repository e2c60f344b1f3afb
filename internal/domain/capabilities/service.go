package capabilities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourify/internal/platform/logger"
	"tourify/internal/platform/metrics"
	"tourify/internal/ports/permissions"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidCatalog  = errors.New("invalid capability catalog")
	ErrNilOracle       = errors.New("permission oracle required")
)

// errOraclePanic se usa cuando el oráculo hace panic: cuenta como falla.
var errOraclePanic = errors.New("permission oracle panicked")

const DefaultOracleTimeout = 3 * time.Second

// Resolver traduce "qué puede hacer este usuario acá" en un Record completo.
// No tiene estado mutable compartido: se puede usar desde muchos requests a la vez.
type Resolver struct {
	oracle      permissions.Oracle
	catalog     []Capability
	timeout     time.Duration
	concurrency int

	log     logger.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

type Option func(*Resolver)

// WithCatalog reemplaza el catálogo por defecto.
func WithCatalog(catalog []Capability) Option {
	return func(r *Resolver) {
		r.catalog = append([]Capability(nil), catalog...)
	}
}

// WithOracleTimeout acota cada llamada al oráculo. Un timeout cuenta como false.
func WithOracleTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxConcurrency limita las llamadas simultáneas por resolución (0 = sin límite).
func WithMaxConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func NewResolver(oracle permissions.Oracle, opts ...Option) (*Resolver, error) {
	if oracle == nil {
		return nil, ErrNilOracle
	}

	r := &Resolver{
		oracle:  oracle,
		catalog: DefaultCatalog(),
		timeout: DefaultOracleTimeout,
		log:     logger.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := validateCatalog(r.catalog); err != nil {
		return nil, err
	}
	if r.concurrency <= 0 || r.concurrency > len(r.catalog) {
		r.concurrency = len(r.catalog)
	}
	return r, nil
}

// Catalog devuelve una copia del catálogo en orden.
func (s *Resolver) Catalog() []Capability {
	return append([]Capability(nil), s.catalog...)
}

// Resolve devuelve el Record para (userID, entityType, entityID).
// Solo falla con ErrInvalidArgument; las fallas del oráculo quedan en false.
func (s *Resolver) Resolve(ctx context.Context, userID string, entityType EntityType, entityID string) (Record, error) {
	res, err := s.ResolveDetailed(ctx, userID, entityType, entityID)
	if err != nil {
		return nil, err
	}
	return res.Record, nil
}

// ResolveDetailed es Resolve más la lista de permisos cuya consulta falló.
func (s *Resolver) ResolveDetailed(ctx context.Context, userID string, entityType EntityType, entityID string) (Result, error) {
	userID = strings.TrimSpace(userID)
	entityID = strings.TrimSpace(entityID)

	if err := validateTarget(userID, entityType, entityID); err != nil {
		s.metrics.ObserveInvalid()
		return Result{}, err
	}

	start := s.now()

	// Cada goroutine escribe solo su índice; se leen después de Wait.
	granted := make([]bool, len(s.catalog))
	failed := make([]bool, len(s.catalog))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, c := range s.catalog {
		g.Go(func() error {
			ok, err := s.ask(ctx, userID, entityType, entityID, c.Permission)
			granted[i] = ok && err == nil
			failed[i] = err != nil
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Record: make(Record, len(s.catalog))}
	for i, c := range s.catalog {
		res.Record[c.Key] = granted[i]
		if failed[i] {
			res.Failed = append(res.Failed, c.Permission)
		}
	}

	s.metrics.ObserveResolve(s.now().Sub(start), len(res.Failed))
	if res.Degraded() {
		s.log.Warn("capabilities partial result", map[string]any{
			"user_id":     userID,
			"entity_type": string(entityType),
			"entity_id":   entityID,
			"failed":      permissionNames(res.Failed),
		})
	}
	return res, nil
}

// Check consulta un único permiso. Falla del oráculo => false, nil.
func (s *Resolver) Check(ctx context.Context, userID string, entityType EntityType, entityID string, permission Permission) (bool, error) {
	userID = strings.TrimSpace(userID)
	entityID = strings.TrimSpace(entityID)

	if err := validateTarget(userID, entityType, entityID); err != nil {
		return false, err
	}
	if !permission.Valid() {
		return false, fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, permission)
	}

	ok, err := s.ask(ctx, userID, entityType, entityID, permission)
	if err != nil {
		s.log.Warn("permission check failed, denying", map[string]any{
			"user_id":     userID,
			"entity_type": string(entityType),
			"entity_id":   entityID,
			"permission":  string(permission),
			"error":       err.Error(),
		})
		return false, nil
	}
	return ok, nil
}

type askResult struct {
	ok  bool
	err error
}

// ask hace una llamada acotada por s.timeout. Si el oráculo ignora el contexto,
// igual cortamos al vencer el timeout; la goroutine termina sola (canal con buffer).
func (s *Resolver) ask(ctx context.Context, userID string, entityType EntityType, entityID string, p Permission) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan askResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- askResult{err: fmt.Errorf("%w: %v", errOraclePanic, rec)}
			}
		}()
		ok, err := s.oracle.HasPermission(callCtx, permissions.Check{
			UserID:     userID,
			EntityType: string(entityType),
			EntityID:   entityID,
			Permission: string(p),
		})
		done <- askResult{ok: ok, err: err}
	}()

	var res askResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = askResult{err: callCtx.Err()}
	}

	switch {
	case res.err != nil && errors.Is(res.err, context.DeadlineExceeded):
		s.metrics.ObserveOracleCall(string(p), metrics.OutcomeTimeout)
	case res.err != nil:
		s.metrics.ObserveOracleCall(string(p), metrics.OutcomeError)
	case res.ok:
		s.metrics.ObserveOracleCall(string(p), metrics.OutcomeGranted)
	default:
		s.metrics.ObserveOracleCall(string(p), metrics.OutcomeDenied)
	}
	return res.ok, res.err
}

func validateTarget(userID string, entityType EntityType, entityID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id required", ErrInvalidArgument)
	}
	if !entityType.Valid() {
		return fmt.Errorf("%w: unknown entity_type %q", ErrInvalidArgument, entityType)
	}
	if entityID == "" {
		return fmt.Errorf("%w: entity_id required", ErrInvalidArgument)
	}
	return nil
}

func validateCatalog(catalog []Capability) error {
	if len(catalog) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidCatalog)
	}
	seen := make(map[string]struct{}, len(catalog))
	for _, c := range catalog {
		key := strings.TrimSpace(c.Key)
		if key == "" || key != c.Key {
			return fmt.Errorf("%w: key %q must be non-empty and trimmed", ErrInvalidCatalog, c.Key)
		}
		if strings.TrimSpace(string(c.Permission)) == "" {
			return fmt.Errorf("%w: key %q has no permission", ErrInvalidCatalog, c.Key)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidCatalog, c.Key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func permissionNames(ps []Permission) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, string(p))
	}
	return out
}
