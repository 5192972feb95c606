package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field {
	return zap.Int64("duration_ms", v)
}

// Bytes crea un campo para los bytes de respuesta.
func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - CLUSTER
// =================================================================================

// Node crea un campo para el nombre del nodo local.
func Node(v string) zap.Field {
	return zap.String("node", v)
}

// Role crea un campo para el rol del nodo (master/replica).
func Role(v string) zap.Field {
	return zap.String("role", v)
}

// Action crea un campo para una acción agendada (restart/reinitialize).
func Action(v string) zap.Field {
	return zap.String("action", v)
}

// Attempt crea un campo para el número de intento de un retry.
func Attempt(v int) zap.Field {
	return zap.Int("attempt", v)
}

// Delay crea un campo para la pausa entre reintentos.
func Delay(v time.Duration) zap.Field {
	return zap.Duration("delay", v)
}

// Err crea un campo de error (alias corto de zap.Error).
func Err(err error) zap.Field {
	return zap.Error(err)
}
