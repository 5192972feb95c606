package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/dropDatabas3/pgward/internal/cluster"
)

// =================================================================================
// FAKES
// =================================================================================

type fakeNode struct {
	name  string
	state string
	role  string
}

func (n *fakeNode) Name() string  { return n.name }
func (n *fakeNode) State() string { return n.state }
func (n *fakeNode) Role() string  { return n.role }

type fakeOrch struct {
	scheduleRestartRet   string
	scheduleRestartCalls int

	restartOK    bool
	restartErr   error
	restartCalls int

	restartScheduled bool

	scheduleReinitRet   string
	scheduleReinitCalls int

	view    cluster.View
	viewErr error
}

func (o *fakeOrch) ScheduleRestart() string {
	o.scheduleRestartCalls++
	return o.scheduleRestartRet
}

func (o *fakeOrch) Restart(ctx context.Context) (bool, error) {
	o.restartCalls++
	return o.restartOK, o.restartErr
}

func (o *fakeOrch) RestartScheduled() bool { return o.restartScheduled }

func (o *fakeOrch) ScheduleReinitialize() string {
	o.scheduleReinitCalls++
	return o.scheduleReinitRet
}

func (o *fakeOrch) ClusterView(ctx context.Context) (cluster.View, error) {
	return o.view, o.viewErr
}

// fakeDB devuelve resultados en secuencia: primero consume errs, después
// responde rows para siempre.
type fakeDB struct {
	rows  [][]any
	errs  []error
	calls int
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) ([][]any, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.rows, nil
}

// filas de diagnóstico representativas
func primaryRow() [][]any {
	return [][]any{{"2026-08-28 10:00:00.000 -03", false, "0/4000060", nil, nil, false}}
}

func replicaRow() [][]any {
	return [][]any{{"2026-08-28 10:00:00.000 -03", true, nil, "0/4000060", "0/4000000", true}}
}

func newTestServer(t *testing.T, cfg Config, node *fakeNode, orch *fakeOrch, db *fakeDB) *Server {
	t.Helper()
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:0"
	}
	s, err := New(cfg, node, orch, db)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

var _ http.Handler = (*Router)(nil)
