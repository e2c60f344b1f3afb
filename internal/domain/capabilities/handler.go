package capabilities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"tourify/internal/middleware"
	"tourify/internal/platform/cache"
	"tourify/internal/platform/logger"
	"tourify/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DegradedHeader marca respuestas donde alguna consulta falló y quedó en false.
const DegradedHeader = "X-Capabilities-Degraded"

// HandlerOptions: todo opcional. Cache nil o CacheTTL 0 => sin cache.
type HandlerOptions struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Log      logger.Logger
	Metrics  *metrics.Collector
}

func RegisterRoutes(r chi.Router, svc *Resolver, opts HandlerOptions) {
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	rc := &recordCache{c: opts.Cache, ttl: opts.CacheTTL, metrics: opts.Metrics}

	r.Get("/capabilities/catalog", catalogHandler(svc))
	r.Post("/capabilities/resolve", resolveBodyHandler(svc, rc, log))

	r.Route("/entities/{entityType}/{entityID}", func(er chi.Router) {
		er.Get("/capabilities", resolveHandler(svc, rc, log))
		er.Get("/permissions/{permission}", checkPermissionHandler(svc, log))
	})
}

type resolveRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
}

type catalogEntryResponse struct {
	Key        string `json:"key"`
	Permission string `json:"permission"`
}

type permissionCheckResponse struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// entityRef ya validado en el borde.
type entityRef struct {
	Type EntityType
	ID   string
}

// resolveHandler godoc
// @Summary     Resolve capabilities for an entity
// @Tags        capabilities
// @Produce     json
// @Param       entityType path string true "Entity type (e.g. Event, performance_agency)"
// @Param       entityID   path string true "Entity UUID"
// @Success     200 {object} map[string]bool
// @Failure     400 {string} string
// @Failure     401 {string} string
// @Router      /entities/{entityType}/{entityID}/capabilities [get]
func resolveHandler(svc *Resolver, rc *recordCache, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ref, err := parseEntityRef(chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		serveRecord(w, r, svc, rc, log, claims.UserID, ref)
	}
}

// resolveBodyHandler godoc
// @Summary     Resolve capabilities (JSON body)
// @Tags        capabilities
// @Accept      json
// @Produce     json
// @Param       request body resolveRequest true "Entity reference"
// @Success     200 {object} map[string]bool
// @Failure     400 {string} string
// @Failure     401 {string} string
// @Router      /capabilities/resolve [post]
func resolveBodyHandler(svc *Resolver, rc *recordCache, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req resolveRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		ref, err := parseEntityRef(req.EntityType, req.EntityID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		serveRecord(w, r, svc, rc, log, claims.UserID, ref)
	}
}

// checkPermissionHandler godoc
// @Summary     Check a single permission on an entity
// @Tags        capabilities
// @Produce     json
// @Param       entityType path string true "Entity type"
// @Param       entityID   path string true "Entity UUID"
// @Param       permission path string true "Permission (e.g. MANAGE_MEMBERS)"
// @Success     200 {object} permissionCheckResponse
// @Failure     400 {string} string
// @Failure     401 {string} string
// @Router      /entities/{entityType}/{entityID}/permissions/{permission} [get]
func checkPermissionHandler(svc *Resolver, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ref, err := parseEntityRef(chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		perm, err := ParsePermission(chi.URLParam(r, "permission"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		allowed, err := svc.Check(r.Context(), claims.UserID, ref.Type, ref.ID, perm)
		if err != nil {
			if errors.Is(err, ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Error("permission check", map[string]any{"error": err.Error()})
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, permissionCheckResponse{
			EntityType: string(ref.Type),
			EntityID:   ref.ID,
			Permission: string(perm),
			Allowed:    allowed,
		})
	}
}

// catalogHandler godoc
// @Summary     List the capability catalog
// @Tags        capabilities
// @Produce     json
// @Success     200 {array} catalogEntryResponse
// @Router      /capabilities/catalog [get]
func catalogHandler(svc *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		catalog := svc.Catalog()
		out := make([]catalogEntryResponse, 0, len(catalog))
		for _, c := range catalog {
			out = append(out, catalogEntryResponse{Key: c.Key, Permission: string(c.Permission)})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func serveRecord(w http.ResponseWriter, r *http.Request, svc *Resolver, rc *recordCache, log logger.Logger, userID string, ref entityRef) {
	res, err := rc.resolve(r.Context(), svc, userID, ref)
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error("resolve capabilities", map[string]any{"error": err.Error()})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if res.Degraded() {
		w.Header().Set(DegradedHeader, "true")
	}
	writeJSON(w, http.StatusOK, res.Record)
}

// parseEntityRef valida tipo (enum cerrado) e id (UUID, como en la base).
func parseEntityRef(rawType, rawID string) (entityRef, error) {
	et, err := ParseEntityType(rawType)
	if err != nil {
		return entityRef{}, err
	}

	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return entityRef{}, errors.New("entity_id required")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return entityRef{}, errors.New("entity_id must be a UUID")
	}

	return entityRef{Type: et, ID: id.String()}, nil
}

// recordCache es cache a nivel caller: el Resolver nunca cachea.
// Resultados degradados no se guardan.
type recordCache struct {
	c       cache.Cache
	ttl     time.Duration
	metrics *metrics.Collector
}

func (rc *recordCache) enabled() bool {
	return rc != nil && rc.c != nil && rc.ttl > 0
}

func (rc *recordCache) resolve(ctx context.Context, svc *Resolver, userID string, ref entityRef) (Result, error) {
	if !rc.enabled() {
		return svc.ResolveDetailed(ctx, userID, ref.Type, ref.ID)
	}

	key := cacheKey(userID, ref)
	if v, ok := rc.c.Get(ctx, key); ok {
		if rec, ok := v.(Record); ok {
			rc.metrics.ObserveCacheLookup(true)
			return Result{Record: rec.clone()}, nil
		}
	}
	rc.metrics.ObserveCacheLookup(false)

	res, err := svc.ResolveDetailed(ctx, userID, ref.Type, ref.ID)
	if err != nil || res.Degraded() {
		return res, err
	}
	_ = rc.c.Set(ctx, key, res.Record.clone(), rc.ttl)
	return res, nil
}

func cacheKey(userID string, ref entityRef) string {
	return strings.Join([]string{"caps", userID, string(ref.Type), ref.ID}, "|")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
