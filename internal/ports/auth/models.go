package auth

// Claims es lo que sabemos del usuario autenticado.
// Role viene del token del proveedor (p.ej. "authenticated").
type Claims struct {
	UserID string
	Email  string
	Role   string
}
