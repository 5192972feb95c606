package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dropDatabas3/pgward/internal/observability/logger"
)

// =================================================================================
// HANDLERS
// =================================================================================

// handleStatus atiende GET /, /master, /replica y cualquier GET sin ruta
// registrada. "/" es alias de "/master".
//
// El código de respuesta sale de comparar el rol computado contra el path
// (contención de substring, igual que siempre se comportó este endpoint):
// 200 si el rol aparece en el path, 503 si no. Caso especial: un primario
// con restart agendado vía API sigue respondiendo 200 en /master para que
// los health checks no reboten durante un restart controlado.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "/master"
	}

	rec := s.status(r.Context(), false)

	code := http.StatusServiceUnavailable
	switch {
	case rec.Role != "" && strings.Contains(path, rec.Role):
		code = http.StatusOK
	case s.orch.RestartScheduled() && s.node.Role() == "master" && strings.Contains(path, "master"):
		code = http.StatusOK
	}

	writeJSON(w, code, rec)
}

// handleDeepStatus atiende GET /patroni: status completo con retry ante
// pérdida de conexión, siempre 200. Es el endpoint que consume el resto del
// cluster, no un health check de balanceador.
func (s *Server) handleDeepStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status(r.Context(), true))
}

// handleLiveness atiende GET /liveness: 200 sin tocar la base. Sirve para
// saber que el endpoint de control está vivo aunque Postgres no lo esté.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "pgward is running")
}

// handleRestart atiende POST /restart (protegido por auth).
// Si ya hay una acción pendiente, 503 nombrándola. Si no, intenta el restart
// inmediato: 200 si anduvo, 503 "restart failed" si no. Una excepción del
// orquestador se loguea y se convierte en 503, nunca tumba el goroutine.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if action := s.orch.ScheduleRestart(); action != "" {
		writeText(w, http.StatusServiceUnavailable, action+" already in progress")
		return
	}

	code, body := http.StatusServiceUnavailable, "restart failed"
	ok, err := s.orch.Restart(r.Context())
	if err != nil {
		logger.From(r.Context()).Error("excepción durante restart", logger.Err(err))
	} else if ok {
		code, body = http.StatusOK, "restarted successfully"
	}
	writeText(w, code, body)
}

// handleReinitialize atiende POST /reinitialize (protegido por auth).
// Un nodo solo puede reinicializarse copiando del leader: sin leader no hay
// de dónde, y el leader no puede reinicializarse a sí mismo.
func (s *Server) handleReinitialize(w http.ResponseWriter, r *http.Request) {
	view, err := s.orch.ClusterView(r.Context())
	if err != nil {
		logger.From(r.Context()).Error("no se pudo leer el estado del cluster", logger.Err(err))
		writeText(w, http.StatusServiceUnavailable, "could not read cluster state")
		return
	}

	switch {
	case view.Unlocked:
		writeText(w, http.StatusServiceUnavailable, "Cluster has no leader, can not reinitialize")
	case view.LeaderName == s.node.Name():
		writeText(w, http.StatusServiceUnavailable, "I am the leader, can not reinitialize")
	default:
		if action := s.orch.ScheduleReinitialize(); action != "" {
			writeText(w, http.StatusServiceUnavailable, action+" already in progress")
		} else {
			writeText(w, http.StatusOK, "reinitialize scheduled")
		}
	}
}

// =================================================================================
// RESPONSE HELPERS
// =================================================================================

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
