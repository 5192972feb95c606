// Package api implementa el endpoint de control HTTP que corre embebido al
// lado del nodo Postgres: status para balanceadores y health checks, y
// acciones de control autenticadas (restart, reinitialize) para tooling de
// orquestación.
package api

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/dropDatabas3/pgward/internal/cluster"
	"github.com/dropDatabas3/pgward/internal/observability/logger"
)

// Querier es la primitiva de query que usa el aggregator de status.
// La implementa internal/postgres; los tests inyectan fakes.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) ([][]any, error)
}

// Config es la configuración del server, inmutable después de New.
type Config struct {
	// Listen es host:port para el bind.
	Listen string

	// Auth es el secreto Basic en texto plano ("usuario:password").
	// Vacío = endpoints sin autenticación.
	Auth string

	// CertFile habilita TLS. KeyFile opcional (default: CertFile).
	CertFile string
	KeyFile  string

	// ConnectAddress compone el connection string publicado. No afecta el
	// bind; si falta se usa Listen.
	ConnectAddress string
}

// Server es el endpoint de control: listener (con TLS opcional), tabla de
// rutas, secreto compartido y handles al nodo y al orquestador que sirve.
//
// No guarda estado mutable por request: el único recurso compartido es la
// conexión a la base, que cada query abre y cierra por su cuenta.
type Server struct {
	cfg     Config
	authKey string // base64 del secreto, "" = abierto

	connectionString string

	node cluster.Node
	orch cluster.Orchestrator
	db   Querier

	router  *Router
	metrics *metrics
	httpSrv *http.Server
	ln      net.Listener

	log *zap.Logger
}

// New construye el server con su tabla de rutas. No abre el listener;
// eso pasa en Start.
func New(cfg Config, node cluster.Node, orch cluster.Orchestrator, db Querier) (*Server, error) {
	if cfg.Listen == "" {
		return nil, fmt.Errorf("api: listen es requerido")
	}
	if node == nil || orch == nil || db == nil {
		return nil, fmt.Errorf("api: node, orchestrator y querier son requeridos")
	}

	s := &Server{
		cfg:     cfg,
		node:    node,
		orch:    orch,
		db:      db,
		metrics: newMetrics(),
		log:     logger.Named("api"),
	}

	if cfg.Auth != "" {
		s.authKey = base64.StdEncoding.EncodeToString([]byte(cfg.Auth))
	}

	scheme := "http"
	if cfg.CertFile != "" {
		scheme = "https"
	}
	addr := cfg.ConnectAddress
	if addr == "" {
		addr = cfg.Listen
	}
	s.connectionString = scheme + "://" + addr + "/patroni"

	s.router = s.buildRouter()
	s.httpSrv = &http.Server{
		Handler: Chain(s.router,
			WithRequestID(),
			WithLogging(),
			s.metrics.instrument(),
		),
	}
	return s, nil
}

// buildRouter arma la tabla de despacho una sola vez. El default de GET es
// el status handler: cualquier GET sin ruta propia se responde como chequeo
// de rol ("/" alias de "/master").
func (s *Server) buildRouter() *Router {
	rt := NewRouter()

	rt.DefaultFunc(http.MethodGet, s.handleStatus)
	rt.HandleFunc(http.MethodGet, "master", s.handleStatus)
	rt.HandleFunc(http.MethodGet, "replica", s.handleStatus)
	rt.HandleFunc(http.MethodGet, "patroni", s.handleDeepStatus)
	rt.HandleFunc(http.MethodGet, "liveness", s.handleLiveness)
	rt.Handle(http.MethodGet, "metrics", s.metrics.handler())

	rt.HandleFunc(http.MethodPost, "restart", s.requireAuth(s.handleRestart))
	rt.HandleFunc(http.MethodPost, "reinitialize", s.requireAuth(s.handleReinitialize))

	return rt
}

// ConnectionString es la URL del endpoint que se publica al resto del
// cluster (http(s)://<connect_address|listen>/patroni).
func (s *Server) ConnectionString() string {
	return s.connectionString
}

// Handler expone el stack completo de middlewares + router.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start abre el listener (marcado close-on-exec), lo envuelve con TLS si hay
// certificado, y atiende en un goroutine de fondo. net/http ya corre cada
// conexión aceptada en su propio goroutine, así que un cliente lento no
// bloquea al resto. No bloquea al caller.
func (s *Server) Start() error {
	lc := net.ListenConfig{Control: markCloexec}
	ln, err := lc.Listen(context.Background(), "tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("api: bind %s: %w", s.cfg.Listen, err)
	}

	if s.cfg.CertFile != "" {
		keyFile := s.cfg.KeyFile
		if keyFile == "" {
			keyFile = s.cfg.CertFile
		}
		cert, err := tls.LoadX509KeyPair(s.cfg.CertFile, keyFile)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("api: cargando certificado TLS: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
	}
	s.ln = ln

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server de control terminó con error", logger.Err(err))
		}
	}()

	s.log.Info("endpoint de control escuchando",
		zap.String("addr", ln.Addr().String()),
		zap.String("connection_string", s.connectionString),
	)
	return nil
}

// Addr devuelve la dirección real del listener (útil con puerto 0).
// nil si Start no corrió todavía.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown frena el server ordenadamente.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// markCloexec marca el fd del listener como close-on-exec: los procesos
// hijos que el orquestador spawnea (pg_ctl, basebackup) no deben heredar el
// socket de control.
func markCloexec(network, address string, c syscall.RawConn) error {
	return c.Control(func(fd uintptr) {
		unix.CloseOnExec(int(fd))
	})
}
