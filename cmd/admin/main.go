package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/coursepass-api/internal/repository"
	"github.com/noah-isme/coursepass-api/internal/service"
	"github.com/noah-isme/coursepass-api/pkg/config"
	"github.com/noah-isme/coursepass-api/pkg/database"
	"github.com/noah-isme/coursepass-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	cli := newCommandLine(db, logr)
	if err := cli.run(os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommandLine(db *sqlx.DB, logr *zap.Logger) *commandLine {
	admins := service.NewAdminService(repository.NewAdminRepository(db), nil, nil, nil, nil, nil, logr)
	return &commandLine{
		migrate: func(command string, args ...string) error {
			return database.Migrate(db, command, args...)
		},
		admins: admins,
		out:    os.Stdout,
	}
}
