package memory

import (
	"context"
	"strings"
	"sync"

	"tourify/internal/ports/permissions"
)

// Oracle guarda grants en memoria. Es para modo dev y tests:
// en producción los roles viven en la base (ver adapters/oracle/postgres).
type Oracle struct {
	mu     sync.RWMutex
	grants map[string]map[string]struct{}
}

func NewOracle() *Oracle {
	return &Oracle{grants: make(map[string]map[string]struct{})}
}

// Grant agrega permisos de userID sobre la entidad.
func (o *Oracle) Grant(userID, entityType, entityID string, perms ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	k := key(userID, entityType, entityID)
	set, ok := o.grants[k]
	if !ok {
		set = make(map[string]struct{}, len(perms))
		o.grants[k] = set
	}
	for _, p := range perms {
		set[strings.TrimSpace(p)] = struct{}{}
	}
}

// Revoke quita permisos; sin perms quita todo sobre la entidad.
func (o *Oracle) Revoke(userID, entityType, entityID string, perms ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	k := key(userID, entityType, entityID)
	if len(perms) == 0 {
		delete(o.grants, k)
		return
	}
	set, ok := o.grants[k]
	if !ok {
		return
	}
	for _, p := range perms {
		delete(set, strings.TrimSpace(p))
	}
	if len(set) == 0 {
		delete(o.grants, k)
	}
}

// HasPermission: permisos desconocidos son simplemente false.
func (o *Oracle) HasPermission(ctx context.Context, in permissions.Check) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	set, ok := o.grants[key(in.UserID, in.EntityType, in.EntityID)]
	if !ok {
		return false, nil
	}
	_, granted := set[strings.TrimSpace(in.Permission)]
	return granted, nil
}

func key(userID, entityType, entityID string) string {
	return strings.TrimSpace(userID) + "|" + strings.TrimSpace(entityType) + "|" + strings.ToLower(strings.TrimSpace(entityID))
}
