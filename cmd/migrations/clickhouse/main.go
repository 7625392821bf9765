package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/clickhouse"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

type options struct {
	ArchiveDSN    string `long:"archive-dsn" env:"ICWALLET_ARCHIVE_DSN" default:"clickhouse://localhost:9000/default?x-multi-statement=true" description:"ClickHouse DSN of the transfer archive"`
	MigrationsDir string `long:"migrations-dir" env:"ICWALLET_MIGRATIONS_DIR" default:"migrations/clickhouse" description:"path to ClickHouse migration files"`
	Down          int    `long:"down" env:"ICWALLET_MIGRATIONS_DOWN" description:"roll back this many migrations instead of applying pending ones"`
}

func main() {
	opts := options{}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.Parse(&opts); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := migrateArchive(ctx, opts, logger); err != nil {
		logger.Fatal("archive migration failed", zap.Error(err))
	}
}

func migrateArchive(ctx context.Context, opts options, logger *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := filepath.Abs(opts.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("stat migrations dir %s: %w", dir, err)
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(dir), opts.ArchiveDSN)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("migration source close error", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("migration database close error", zap.Error(dbErr))
		}
	}()

	// Stop as soon as the current migration finishes.
	go func() {
		<-ctx.Done()
		select {
		case m.GracefulStop <- true:
		default:
		}
	}()

	if opts.Down > 0 {
		err = m.Steps(-opts.Down)
	} else {
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("archive schema already up to date")
		return nil
	}
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("archive schema migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
