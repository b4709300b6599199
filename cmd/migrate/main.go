package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/db"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/migrate"
)

const serviceName = "migrate"

type options struct {
	cmd      string
	dir      string
	fromDisk bool
	name     string
	version  string
}

// dbCommand runs against an open connection. source is empty for the
// embedded migrations.
type dbCommand func(ctx context.Context, conn *sql.DB, driver, source string, opts options) error

var dbCommands = map[string]dbCommand{
	"up":      gooseCommand("up"),
	"down":    gooseCommand("down"),
	"status":  gooseCommand("status"),
	"version": migrateToVersion,
}

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory for create, validate and -from-disk")
	flag.BoolVar(&opts.fromDisk, "from-disk", false, "read migrations from -dir instead of the embedded set")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if err := run(logg, opts); err != nil {
		logg.Error(context.Background(), "migrate.failed", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(logg *logger.Logger, opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// create and validate only touch files, so they work without a database.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		var err error
		if opts.fromDisk {
			err = migrate.ValidateDir(opts.dir)
		} else {
			err = migrate.ValidateFS(migrate.Embedded())
		}
		if err != nil {
			return fmt.Errorf("migration validation: %w", err)
		}
		fmt.Println("migration validation passed")
		return nil
	}

	command, ok := dbCommands[opts.cmd]
	if !ok {
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	conn, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	source := ""
	if opts.fromDisk {
		source = opts.dir
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"cmd":       opts.cmd,
		"driver":    dbClient.Driver(),
		"from_disk": opts.fromDisk,
	})
	logg.Info(ctx, "migrate.start")
	if err := command(ctx, conn, dbClient.Driver(), source, opts); err != nil {
		return err
	}
	logg.Info(ctx, "migrate.done")
	return nil
}

func gooseCommand(name string) dbCommand {
	return func(ctx context.Context, conn *sql.DB, driver, source string, _ options) error {
		return migrate.Run(ctx, conn, driver, source, name)
	}
}

func migrateToVersion(ctx context.Context, conn *sql.DB, driver, source string, opts options) error {
	if opts.version == "" {
		return errors.New("missing -version for version command")
	}
	return migrate.MigrateToVersion(ctx, conn, driver, source, opts.version)
}
