package auth

import "context"

// AuthVerifier valida un bearer token y devuelve los claims del usuario.
// Devuelve error si el token es inválido, expiró o no se pudo verificar.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
