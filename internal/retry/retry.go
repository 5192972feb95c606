// Package retry implementa reintentos acotados con pausa fija.
//
// Solo reintenta errores que el caller clasifica como transitorios; cualquier
// otro error se propaga sin tocar para que el caller pueda distinguir
// "no pude llegar al upstream" de "el upstream rechazó la operación".
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted indica que el error transitorio persistió más allá del límite
// de intentos. Envuelve el último error observado.
var ErrExhausted = errors.New("retry: intentos agotados")

// DefaultAttempts es el total de ejecuciones (la original + reintentos).
const DefaultAttempts = 3

// Policy define cuándo y cuánto reintentar.
type Policy struct {
	// Delay es la pausa entre intentos. Es un sleep real (timer), nunca
	// spin-wait, y no se sostiene ningún lock mientras se espera.
	Delay time.Duration

	// Attempts es el total de ejecuciones permitidas. Si es <= 0 se usa
	// DefaultAttempts.
	Attempts int

	// Retryable clasifica un error como transitorio. Si es nil, nada se
	// reintenta.
	Retryable func(error) bool
}

// Do ejecuta fn hasta que tenga éxito, devuelva un error no transitorio, o se
// agote el límite de intentos. En el último caso devuelve ErrExhausted
// envolviendo el último error.
func Do(ctx context.Context, p Policy, fn func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var last error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := sleep(ctx, p.Delay); err != nil {
				return err
			}
		}

		last = fn()
		if last == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(last) {
			// No transitorio: propagar sin envolver.
			return last
		}
	}
	return fmt.Errorf("%w: %w", ErrExhausted, last)
}

// DoValue es Do para funciones que devuelven un valor.
func DoValue[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// sleep espera d respetando la cancelación del contexto.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
