package api

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/pgward/internal/observability/logger"
	"github.com/dropDatabas3/pgward/internal/postgres"
	"github.com/dropDatabas3/pgward/internal/retry"
)

// =================================================================================
// STATUS AGGREGATOR
// =================================================================================

// XlogPrimary es la posición de escritura cuando el nodo NO está en recovery.
type XlogPrimary struct {
	Location string `json:"location"`
}

// XlogReplica son las posiciones de replicación cuando el nodo sigue un stream.
type XlogReplica struct {
	ReceivedLocation string `json:"received_location"`
	ReplayedLocation string `json:"replayed_location"`
	Paused           bool   `json:"paused"`
}

// StatusRecord es la respuesta de los endpoints de status. Se construye
// fresco por request y no se comparte. State está siempre; el resto solo
// cuando el query de diagnóstico tuvo éxito. Xlog lleva exactamente una de
// las dos formas (XlogPrimary o XlogReplica), nunca ambas.
type StatusRecord struct {
	State               string `json:"state"`
	PostmasterStartTime string `json:"postmaster_start_time,omitempty"`
	Role                string `json:"role,omitempty"`
	Xlog                any    `json:"xlog,omitempty"`
}

// diagnosticSQL junta en un solo round trip todo lo que el status necesita:
// hora de arranque del postmaster, si está en recovery, LSN actual de
// escritura (solo primario), LSNs recibido/aplicado (solo réplica) y si el
// replay está pausado. Los CASE garantizan no llamar funciones de recovery
// fuera de recovery.
const diagnosticSQL = `SELECT to_char(pg_postmaster_start_time(), 'YYYY-MM-DD HH24:MI:SS.MS TZ'),
       pg_is_in_recovery(),
       CASE WHEN pg_is_in_recovery() THEN NULL ELSE pg_current_wal_lsn()::text END,
       pg_last_wal_receive_lsn()::text,
       pg_last_wal_replay_lsn()::text,
       CASE WHEN pg_is_in_recovery() THEN pg_is_wal_replay_paused() ELSE false END`

// statusRetryDelay es la pausa fija entre reintentos del query de
// diagnóstico. Corta: los health checks tienen timeouts propios.
// Var y no const para poder acortarla en tests.
var statusRetryDelay = 2 * time.Second

// status arma el StatusRecord del nodo. El estado local sale del proceso
// (s.node), nunca de la base. Si el query falla o se agotan los reintentos,
// degrada a {state} solo y loguea: un probe siempre recibe respuesta.
func (s *Server) status(ctx context.Context, withRetry bool) StatusRecord {
	rec := StatusRecord{State: s.node.State()}

	row, err := s.diagnosticRow(ctx, withRetry)
	if err != nil {
		logger.From(ctx).Warn("query de diagnóstico falló, respondiendo status parcial",
			logger.Err(err))
		return rec
	}

	rec.PostmasterStartTime = asString(row[0])
	if asBool(row[1]) {
		rec.Role = "replica"
		rec.Xlog = XlogReplica{
			ReceivedLocation: asString(row[3]),
			ReplayedLocation: asString(row[4]),
			Paused:           asBool(row[5]),
		}
	} else {
		rec.Role = "master"
		rec.Xlog = XlogPrimary{Location: asString(row[2])}
	}
	return rec
}

// diagnosticRow ejecuta el query de diagnóstico, con o sin retry. El retry
// aplica SOLO a pérdidas de conexión (postgres.ErrUnavailable); un query
// rechazado por la base se propaga de una.
func (s *Server) diagnosticRow(ctx context.Context, withRetry bool) ([]any, error) {
	run := func() ([][]any, error) {
		return s.db.Query(ctx, diagnosticSQL)
	}

	var rows [][]any
	var err error
	if withRetry {
		rows, err = retry.DoValue(ctx, retry.Policy{
			Delay:     statusRetryDelay,
			Retryable: postgres.IsUnavailable,
		}, run)
	} else {
		rows, err = run()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("query de diagnóstico no devolvió filas")
	}
	return rows[0], nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
