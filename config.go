package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"

	"kronologic/schedule"
)

type serverConfig struct {
	// PGCONN is a postgres:// URL, or sqlite:<path> for a local database.
	PGConn       string   `env:"PGCONN,required"`
	ClientID     string   `env:"CLIENT_ID,required"`
	ClientSecret string   `env:"CLIENT_SECRET,required"`
	Admins       []string `env:"ADMINS,required" envSeparator:","`
	Addr         string   `env:"ADDR" envDefault:":8080"`
	MaxRestarts  int      `env:"MAX_RESTARTS" envDefault:"1000"`
	Budget       int      `env:"BUDGET" envDefault:"5000"`
	TopologyFile string   `env:"TOPOLOGY_FILE"`
}

func loadConfig() (serverConfig, error) {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (cfg serverConfig) isAdmin(email string) bool {
	return slices.ContainsFunc(cfg.Admins, func(a string) bool {
		return strings.TrimSpace(a) == email
	})
}

func (cfg serverConfig) topology() (schedule.Topology, error) {
	if cfg.TopologyFile == "" {
		return schedule.DefaultTopology(), nil
	}
	f, err := os.Open(cfg.TopologyFile)
	if err != nil {
		return schedule.Topology{}, err
	}
	defer f.Close()
	return schedule.LoadTopology(f)
}
