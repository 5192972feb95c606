// Package postgres implementa la primitiva de query del endpoint de control.
//
// No hay pool: cada query abre su propia conexión, ejecuta, materializa todas
// las filas y la cierra en todos los caminos de salida. Los health checks son
// esporádicos y una conexión efímera mantiene al endpoint sin estado
// compartido con el workload principal del nodo.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrUnavailable indica que la conexión a la base se perdió o nunca se pudo
// establecer. Es el único error que el caller puede reintentar; cualquier
// otro error significa que la base rechazó el query y se propaga sin tocar.
var ErrUnavailable = errors.New("postgres: conexión no disponible")

// Executor abre una conexión por query contra el DSN configurado.
type Executor struct {
	dsn string
}

func NewExecutor(dsn string) *Executor {
	return &Executor{dsn: dsn}
}

// Query ejecuta sql con args y devuelve todas las filas materializadas.
//
// Reclasificación de errores: si la conexión no se pudo abrir, o quedó
// cerrada después del fallo, devuelve ErrUnavailable (reintentable). Si la
// conexión sigue viva, el error original se propaga sin envolver.
func (e *Executor) Query(ctx context.Context, sql string, args ...any) ([][]any, error) {
	conn, err := pgx.Connect(ctx, e.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, Classify(err, conn.IsClosed())
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, Classify(err, conn.IsClosed())
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err, conn.IsClosed())
	}
	return out, nil
}

// Classify decide si un error de la base es reintentable según el estado de
// la conexión al momento del fallo.
func Classify(err error, connClosed bool) error {
	if err == nil {
		return nil
	}
	if connClosed {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// IsUnavailable informa si err (o su cadena) es ErrUnavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
