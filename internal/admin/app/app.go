package app

import (
	"fmt"
	"os"

	"github.com/notepid/twilight_door/internal/config"
	"github.com/notepid/twilight_door/internal/db"
	"github.com/notepid/twilight_door/internal/node"
)

type App struct {
	ConfigPath string
	Config     *config.Config
	DBPath     string
	DB         *db.DB

	Nodes *node.Registry
}

func New(configPath string) (*App, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.Paths.Data, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	database, err := db.Open(cfg.Paths.Database)
	if err != nil {
		return nil, nil, err
	}

	a := &App{
		ConfigPath: configPath,
		Config:     cfg,
		DBPath:     cfg.Paths.Database,
		DB:         database,
		Nodes:      node.NewRegistry(database.DB),
	}

	cleanup := func() {
		_ = database.Close()
	}

	return a, cleanup, nil
}
