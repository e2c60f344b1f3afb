package permissions

import "context"

// Check es una consulta puntual: ¿userID tiene permission sobre (entityType, entityID)?
type Check struct {
	UserID     string
	EntityType string
	EntityID   string
	Permission string
}

// Oracle es la fuente autoritativa de permisos (función del backend).
// Las implementaciones deben ser seguras para uso concurrente.
// Un permiso desconocido puede devolver false o error; el caller decide.
type Oracle interface {
	HasPermission(ctx context.Context, in Check) (bool, error)
}
