package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dropDatabas3/pgward/internal/cluster"
	"github.com/dropDatabas3/pgward/internal/postgres"
)

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type inesperado: %q", ct)
	}
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("body no es JSON: %v", err)
	}
	return m
}

// =================================================================================
// GET / /master /replica
// =================================================================================

func TestGetStatus_RoleMatchesPath(t *testing.T) {
	cases := []struct {
		path string
		rows [][]any
		want int
	}{
		{"/", primaryRow(), http.StatusOK},        // "/" es alias de /master
		{"/master", primaryRow(), http.StatusOK},
		{"/master", replicaRow(), http.StatusServiceUnavailable},
		{"/replica", replicaRow(), http.StatusOK},
		{"/replica", primaryRow(), http.StatusServiceUnavailable},
		{"/", replicaRow(), http.StatusServiceUnavailable},
	}
	for _, c := range cases {
		s := newTestServer(t, Config{}, &fakeNode{state: "running"}, &fakeOrch{}, &fakeDB{rows: c.rows})
		rec := doRequest(t, s, http.MethodGet, c.path)
		if rec.Code != c.want {
			t.Fatalf("GET %s con filas %v: expected %d, got %d", c.path, c.rows, c.want, rec.Code)
		}
	}
}

func TestGetStatus_QueryDownIs503WithPartialBody(t *testing.T) {
	db := &fakeDB{errs: []error{postgres.ErrUnavailable}}
	s := newTestServer(t, Config{}, &fakeNode{state: "running"}, &fakeOrch{}, db)

	rec := doRequest(t, s, http.MethodGet, "/master")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
	body := decodeStatus(t, rec)
	if body["state"] != "running" {
		t.Fatalf("Expected state=running, got %v", body)
	}
	if _, ok := body["role"]; ok {
		t.Fatalf("No debería haber role en un status degradado: %v", body)
	}
}

func TestGetStatus_ScheduledRestartOverrideOnMaster(t *testing.T) {
	// el query falla (no hay rol computado) pero hay un restart agendado en
	// un primario: /master sigue 200 para no rebotar health checks
	db := &fakeDB{errs: []error{postgres.ErrUnavailable}}
	orch := &fakeOrch{restartScheduled: true}
	node := &fakeNode{state: "restarting", role: "master"}
	s := newTestServer(t, Config{}, node, orch, db)

	if rec := doRequest(t, s, http.MethodGet, "/master"); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 durante restart controlado, got %d", rec.Code)
	}
	// la réplica no tiene override
	if rec := doRequest(t, s, http.MethodGet, "/replica"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 en /replica, got %d", rec.Code)
	}
}

func TestGetStatus_UnmatchedPathFallsBackToRoleCheck(t *testing.T) {
	// un GET cualquiera cae al default y se decide por substring del rol
	s := newTestServer(t, Config{}, &fakeNode{state: "running"}, &fakeOrch{}, &fakeDB{rows: primaryRow()})
	if rec := doRequest(t, s, http.MethodGet, "/loquesea"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
}

// =================================================================================
// GET /patroni
// =================================================================================

func TestGetDeepStatus_Always200(t *testing.T) {
	s := newTestServer(t, Config{}, &fakeNode{state: "running"}, &fakeOrch{}, &fakeDB{rows: replicaRow()})
	rec := doRequest(t, s, http.MethodGet, "/patroni")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := decodeStatus(t, rec)
	if body["role"] != "replica" {
		t.Fatalf("Expected role=replica, got %v", body)
	}
	xlog, _ := body["xlog"].(map[string]any)
	if xlog == nil || xlog["received_location"] != "0/4000060" || xlog["paused"] != true {
		t.Fatalf("xlog de réplica inesperado: %v", body["xlog"])
	}

	// incluso con la base caída responde 200 con status parcial
	down := newTestServer(t, Config{}, &fakeNode{state: "running"}, &fakeOrch{},
		&fakeDB{errs: []error{errors.New("rechazado")}})
	rec = doRequest(t, down, http.MethodGet, "/patroni")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 degradado, got %d", rec.Code)
	}
}

// =================================================================================
// POST /restart
// =================================================================================

func TestPostRestart_PendingActionNamed(t *testing.T) {
	orch := &fakeOrch{scheduleRestartRet: "restart"}
	s := newTestServer(t, Config{}, &fakeNode{}, orch, &fakeDB{})

	rec := doRequest(t, s, http.MethodPost, "/restart")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "restart already in progress") {
		t.Fatalf("Body inesperado: %q", rec.Body.String())
	}
	if orch.restartCalls != 0 {
		t.Fatalf("No debería intentar restart con acción pendiente")
	}
}

func TestPostRestart_Success(t *testing.T) {
	orch := &fakeOrch{restartOK: true}
	s := newTestServer(t, Config{}, &fakeNode{}, orch, &fakeDB{})

	rec := doRequest(t, s, http.MethodPost, "/restart")
	if rec.Code != http.StatusOK || rec.Body.String() != "restarted successfully" {
		t.Fatalf("Expected 200 restarted successfully, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestPostRestart_FailureAndPanicfreeError(t *testing.T) {
	// restart devolvió false
	s := newTestServer(t, Config{}, &fakeNode{}, &fakeOrch{restartOK: false}, &fakeDB{})
	rec := doRequest(t, s, http.MethodPost, "/restart")
	if rec.Code != http.StatusServiceUnavailable || rec.Body.String() != "restart failed" {
		t.Fatalf("Expected 503 restart failed, got %d %q", rec.Code, rec.Body.String())
	}

	// restart tiró error: se contiene, se loguea y el cliente ve 503
	s = newTestServer(t, Config{}, &fakeNode{}, &fakeOrch{restartErr: errors.New("se rompió pg_ctl")}, &fakeDB{})
	rec = doRequest(t, s, http.MethodPost, "/restart")
	if rec.Code != http.StatusServiceUnavailable || rec.Body.String() != "restart failed" {
		t.Fatalf("Expected 503 restart failed, got %d %q", rec.Code, rec.Body.String())
	}
}

// =================================================================================
// POST /reinitialize
// =================================================================================

func TestPostReinitialize_NoLeader(t *testing.T) {
	orch := &fakeOrch{view: cluster.View{Unlocked: true}}
	s := newTestServer(t, Config{}, &fakeNode{name: "nodo1"}, orch, &fakeDB{})

	rec := doRequest(t, s, http.MethodPost, "/reinitialize")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no leader") {
		t.Fatalf("Body inesperado: %q", rec.Body.String())
	}
	if orch.scheduleReinitCalls != 0 {
		t.Fatalf("Nunca debe agendar reinitialize sin leader")
	}
}

func TestPostReinitialize_SelfIsLeader(t *testing.T) {
	orch := &fakeOrch{view: cluster.View{LeaderName: "nodo1"}}
	s := newTestServer(t, Config{}, &fakeNode{name: "nodo1"}, orch, &fakeDB{})

	rec := doRequest(t, s, http.MethodPost, "/reinitialize")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "I am the leader") {
		t.Fatalf("Expected 503 leader, got %d %q", rec.Code, rec.Body.String())
	}
	if orch.scheduleReinitCalls != 0 {
		t.Fatalf("El leader no puede agendar su propio reinitialize")
	}
}

func TestPostReinitialize_ScheduledVsPending(t *testing.T) {
	// agendado ok → 200
	orch := &fakeOrch{view: cluster.View{LeaderName: "nodo2"}}
	s := newTestServer(t, Config{}, &fakeNode{name: "nodo1"}, orch, &fakeDB{})
	rec := doRequest(t, s, http.MethodPost, "/reinitialize")
	if rec.Code != http.StatusOK || rec.Body.String() != "reinitialize scheduled" {
		t.Fatalf("Expected 200 scheduled, got %d %q", rec.Code, rec.Body.String())
	}

	// acción pendiente → 503 nombrándola
	orch = &fakeOrch{view: cluster.View{LeaderName: "nodo2"}, scheduleReinitRet: "restart"}
	s = newTestServer(t, Config{}, &fakeNode{name: "nodo1"}, orch, &fakeDB{})
	rec = doRequest(t, s, http.MethodPost, "/reinitialize")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "restart already in progress") {
		t.Fatalf("Expected 503 pendiente, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestPostReinitialize_ClusterViewError(t *testing.T) {
	orch := &fakeOrch{viewErr: errors.New("dcs timeout")}
	s := newTestServer(t, Config{}, &fakeNode{name: "nodo1"}, orch, &fakeDB{})

	rec := doRequest(t, s, http.MethodPost, "/reinitialize")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
	if orch.scheduleReinitCalls != 0 {
		t.Fatalf("No debe agendar si no pudo leer el cluster")
	}
}

// =================================================================================
// EXTRAS
// =================================================================================

func TestLiveness(t *testing.T) {
	s := newTestServer(t, Config{}, &fakeNode{}, &fakeOrch{}, &fakeDB{errs: []error{postgres.ErrUnavailable}})
	rec := doRequest(t, s, http.MethodGet, "/liveness")
	if rec.Code != http.StatusOK || rec.Body.String() != "pgward is running" {
		t.Fatalf("Expected 200 pgward is running, got %d %q", rec.Code, rec.Body.String())
	}
	// liveness nunca toca la base
	if db := s.db.(*fakeDB); db.calls != 0 {
		t.Fatalf("liveness no debe tocar la base, hizo %d queries", db.calls)
	}
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t, Config{}, &fakeNode{state: "running"}, &fakeOrch{}, &fakeDB{rows: primaryRow()})
	// generar al menos un request contado
	doRequest(t, s, http.MethodGet, "/master")

	rec := doRequest(t, s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pgward_http_requests_total") {
		t.Fatalf("Faltan métricas propias en /metrics")
	}
}

func TestConnectionString(t *testing.T) {
	s := newTestServer(t, Config{Listen: "127.0.0.1:8008"}, &fakeNode{}, &fakeOrch{}, &fakeDB{})
	if got := s.ConnectionString(); got != "http://127.0.0.1:8008/patroni" {
		t.Fatalf("connection string inesperado: %q", got)
	}

	s = newTestServer(t, Config{Listen: "0.0.0.0:8008", ConnectAddress: "10.0.0.5:8008", CertFile: "server.crt"},
		&fakeNode{}, &fakeOrch{}, &fakeDB{})
	if got := s.ConnectionString(); got != "https://10.0.0.5:8008/patroni" {
		t.Fatalf("connection string inesperado: %q", got)
	}
}
