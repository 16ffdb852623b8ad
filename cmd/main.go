package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"bookstore-service/internal/config"
	"bookstore-service/internal/entity"
	"bookstore-service/internal/repository"
	"bookstore-service/migrations"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

func main() {
	app := &cli.App{
		Name:   "bookstore",
		Usage:  "online bookstore API",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply or roll back the database schema",
				Subcommands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "apply all pending migrations",
						Action: migrateUp,
					},
					{
						Name:   "down",
						Usage:  "roll back all migrations",
						Action: migrateDown,
					},
				},
			},
			{
				Name:  "promote",
				Usage: "give an existing user the manager role",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
				},
				Action: promote,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("bookstore exited")
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.SetupLogging()
	return cfg, nil
}

func migrateUp(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := migrations.Up(cfg.DB.DSN()); err != nil {
		return err
	}
	version, dirty, err := migrations.Version(cfg.DB.DSN())
	if err != nil {
		return err
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Migrations applied")
	return nil
}

func migrateDown(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := migrations.Down(cfg.DB.DSN()); err != nil {
		return err
	}
	logger.Info().Msg("Migrations rolled back")
	return nil
}

func promote(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	db, err := config.ConnectDB(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	username := c.String("username")
	n, err := repository.NewUserRepository(db).UpdateRole(ctx, username, entity.RoleManager)
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL also reports 0 when the user already is a manager.
		return fmt.Errorf("user %q not found or already a manager", username)
	}
	logger.Info().Str("username", username).Msg("User promoted to manager")
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
