package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/pgward/internal/api"
	"github.com/dropDatabas3/pgward/internal/config"
	"github.com/dropDatabas3/pgward/internal/observability/logger"
	"github.com/dropDatabas3/pgward/internal/postgres"
	"github.com/dropDatabas3/pgward/internal/standalone"
)

var version = "dev"

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:   "pgward",
		Short: "Endpoint de control HTTP para un nodo Postgres clusterizado",
		Long: `pgward expone status de salud (/, /master, /replica, /patroni) y acciones
de control autenticadas (POST /restart, /reinitialize) para balanceadores y
tooling de orquestación. Corre al lado del nodo sin bloquear su workload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgPath)
		},
	}
	root.Flags().StringVarP(&cfgPath, "config", "c", "pgward.yaml", "ruta al YAML de configuración")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("pgward", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	// .env opcional: las PGWARD_* pisan el YAML
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("cargando configuración: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.Log.Env,
		Level:       cfg.Log.Level,
		ServiceName: "pgward",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()

	log := logger.Named("main")

	db := postgres.NewExecutor(cfg.Postgres.DSN)

	// Sin un cluster manager embebiendo el server, el agente standalone
	// responde status completo y degrada las acciones de control.
	agent := standalone.New(db)
	log.Warn("corriendo en modo standalone: restart/reinitialize responden 503")

	srv, err := api.New(api.Config{
		Listen:         cfg.API.Listen,
		Auth:           cfg.API.Auth,
		CertFile:       cfg.API.CertFile,
		KeyFile:        cfg.API.KeyFile,
		ConnectAddress: cfg.API.ConnectAddress,
	}, agent, agent, db)
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("pgward arriba")
	return g.Wait()
}
