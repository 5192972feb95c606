package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del agente pgward.
// Se carga desde YAML y se puede pisar con variables de entorno PGWARD_*.
type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	// API es el endpoint de control HTTP.
	API struct {
		// Listen es host:port donde escucha el server. Requerido.
		Listen string `yaml:"listen"`

		// Auth es el secreto en texto plano para HTTP Basic ("usuario:password").
		// Si está vacío, los endpoints mutantes quedan SIN autenticación.
		Auth string `yaml:"auth"`

		// CertFile habilita TLS cuando está presente.
		// KeyFile es opcional; si falta se usa CertFile para ambos.
		CertFile string `yaml:"certfile"`
		KeyFile  string `yaml:"keyfile"`

		// ConnectAddress se usa solo para componer el connection string
		// publicado hacia el resto del cluster. No afecta el bind.
		ConnectAddress string `yaml:"connect_address"`
	} `yaml:"api"`

	Postgres struct {
		// DSN de la instancia local (ej: "host=/var/run/postgresql dbname=postgres").
		DSN string `yaml:"dsn"`
	} `yaml:"postgresql"`

	Log struct {
		// dev (consola con colores) | prod (JSON)
		Env string `yaml:"env"`
		// debug | info | warn | error
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.API.Listen == "" {
		c.API.Listen = "127.0.0.1:8008"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// =================================================================================
// ENV OVERRIDES
// =================================================================================

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("PGWARD_LISTEN"); ok {
		c.API.Listen = v
	}
	if v, ok := getEnvStr("PGWARD_AUTH"); ok {
		c.API.Auth = v
	}
	if v, ok := getEnvStr("PGWARD_CERTFILE"); ok {
		c.API.CertFile = v
	}
	if v, ok := getEnvStr("PGWARD_KEYFILE"); ok {
		c.API.KeyFile = v
	}
	if v, ok := getEnvStr("PGWARD_CONNECT_ADDRESS"); ok {
		c.API.ConnectAddress = v
	}
	if v, ok := getEnvStr("PGWARD_PG_DSN"); ok {
		c.Postgres.DSN = v
	}
	if v, ok := getEnvStr("PGWARD_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("PGWARD_LOG_ENV"); ok {
		c.Log.Env = v
	}
}

// Validate chequea lo mínimo para poder arrancar.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.API.Listen); err != nil {
		return fmt.Errorf("config: api.listen inválido %q: %w", c.API.Listen, err)
	}
	if c.API.KeyFile != "" && c.API.CertFile == "" {
		return fmt.Errorf("config: api.keyfile sin api.certfile no tiene sentido")
	}
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		return fmt.Errorf("config: postgresql.dsn es requerido")
	}
	return nil
}
