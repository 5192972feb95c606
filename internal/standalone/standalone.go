// Package standalone implementa un Node/Orchestrator mínimo para correr el
// endpoint de control sin un cluster manager que lo embeba: los probes de
// status funcionan completos y las acciones de control degradan a 503 de
// forma determinística.
package standalone

import (
	"context"
	"os"

	"github.com/dropDatabas3/pgward/internal/api"
	"github.com/dropDatabas3/pgward/internal/cluster"
)

// Agent satisface cluster.Node y cluster.Orchestrator consultando
// directamente la instancia local.
type Agent struct {
	name string
	db   api.Querier
}

func New(db api.Querier) *Agent {
	name, _ := os.Hostname()
	if name == "" {
		name = "pgward"
	}
	return &Agent{name: name, db: db}
}

// =================================================================================
// cluster.Node
// =================================================================================

func (a *Agent) Name() string { return a.name }

// State sondea la instancia: alcanzable = running.
func (a *Agent) State() string {
	if _, err := a.db.Query(context.Background(), "SELECT 1"); err != nil {
		return "unknown"
	}
	return "running"
}

// Role deriva el rol del flag de recovery. Sin cluster manager no hay otra
// fuente de verdad.
func (a *Agent) Role() string {
	rows, err := a.db.Query(context.Background(), "SELECT pg_is_in_recovery()")
	if err != nil || len(rows) == 0 {
		return "unknown"
	}
	if b, _ := rows[0][0].(bool); b {
		return "replica"
	}
	return "master"
}

// =================================================================================
// cluster.Orchestrator
// =================================================================================

// ScheduleRestart nunca tiene acciones pendientes en modo standalone.
func (a *Agent) ScheduleRestart() string { return "" }

// Restart no está soportado sin cluster manager: el handler lo convierte en
// 503 "restart failed".
func (a *Agent) Restart(ctx context.Context) (bool, error) {
	return false, errNoManager
}

func (a *Agent) RestartScheduled() bool { return false }

func (a *Agent) ScheduleReinitialize() string { return "" }

// ClusterView reporta un cluster sin leader: reinitialize responde 503 sin
// tocar nada.
func (a *Agent) ClusterView(ctx context.Context) (cluster.View, error) {
	return cluster.View{Unlocked: true}, nil
}

type noManagerError struct{}

func (noManagerError) Error() string {
	return "standalone: no hay cluster manager para ejecutar la acción"
}

var errNoManager = noManagerError{}
