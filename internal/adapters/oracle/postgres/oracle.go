package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tourify/internal/ports/permissions"
)

var ErrNilDB = errors.New("postgres oracle: nil db")

// FunctionName es la función SQL autoritativa (ver migrations/).
const FunctionName = "has_entity_permission"

const hasPermissionQuery = `SELECT ` + FunctionName + `($1, $2, $3, $4)`

// Oracle consulta la función del backend. Reusa el pool, así que es seguro en concurrencia.
type Oracle struct {
	db *sql.DB
}

func NewOracle(db *sql.DB) (*Oracle, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &Oracle{db: db}, nil
}

func (o *Oracle) HasPermission(ctx context.Context, in permissions.Check) (bool, error) {
	var allowed sql.NullBool
	err := o.db.QueryRowContext(ctx, hasPermissionQuery,
		in.UserID,
		in.EntityType,
		in.EntityID,
		in.Permission,
	).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("%s(%s): %w", FunctionName, in.Permission, err)
	}
	// NULL = sin respuesta => no concedido
	return allowed.Valid && allowed.Bool, nil
}
