// Package cluster define los contratos entre el endpoint de control y el
// orquestador de HA que lo embebe. El orquestador (dueño del estado de
// leader, locks y acciones agendadas) vive fuera de este repo; acá solo se
// declara lo que el endpoint necesita consultarle.
package cluster

import "context"

// View es un snapshot del estado del cluster apto para decisiones de
// request: no se comparte ni se muta después de construido.
type View struct {
	// Unlocked indica que el cluster no tiene leader tomado.
	Unlocked bool

	// LeaderName es el nombre del nodo leader. Vacío si Unlocked.
	LeaderName string
}

// Node expone el estado propio del proceso Postgres local.
// State y Role salen del proceso, no de un query a la base.
type Node interface {
	// Name es el nombre del nodo dentro del cluster.
	Name() string

	// State es el estado de ciclo de vida local (running, starting, ...).
	State() string

	// Role es el rol actual según el orquestador ("master" o "replica").
	Role() string
}

// Orchestrator expone las operaciones de control que el endpoint dispara.
// Los métodos Schedule* devuelven el nombre de la acción ya pendiente, o ""
// si la nueva acción quedó agendada. Ambos resultados son mutuamente
// excluyentes y exhaustivos.
type Orchestrator interface {
	// ScheduleRestart agenda un restart. "" = agendado.
	ScheduleRestart() string

	// Restart ejecuta el restart ya agendado. Puede fallar; el caller debe
	// contener el error.
	Restart(ctx context.Context) (bool, error)

	// RestartScheduled informa si hay un restart en curso agendado vía API.
	RestartScheduled() bool

	// ScheduleReinitialize agenda una reinicialización. "" = agendado.
	ScheduleReinitialize() string

	// ClusterView devuelve el snapshot actual del cluster.
	ClusterView(ctx context.Context) (View, error)
}
