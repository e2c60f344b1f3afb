package cache

import (
	"context"
	"time"
)

// Cache es un key/value con TTL por entrada.
type Cache interface {
	// Get devuelve el valor y true si existe y no expiró.
	Get(ctx context.Context, key string) (any, bool)

	// Set guarda value por ttl. ttl <= 0 usa el default de la implementación.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Len incluye entradas expiradas que todavía no se limpiaron.
	Len() int
}

// Stats son contadores acumulados desde la creación.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
