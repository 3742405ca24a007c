// Package cli implements the shrtnr-admin command line.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sifan077/shrtnr/config"
	"github.com/sifan077/shrtnr/internal/app/repository"
	"github.com/sifan077/shrtnr/internal/app/service"
	"github.com/sifan077/shrtnr/internal/infra/logger"
	infraPostgres "github.com/sifan077/shrtnr/internal/infra/postgres"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Opener connects to the store selected by the global flags.
type Opener func(ctx context.Context, sqlitePath string) (*gorm.DB, time.Duration, error)

// registry is the wired service set shared by subcommands.
type registry struct {
	db          *gorm.DB
	links       service.LinkService
	credentials service.CredentialService
	analytics   service.AnalyticsService
}

type app struct {
	open       Opener
	sqlitePath string
	reg        *registry
}

func (a *app) ctx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// NewRootCommand builds the admin command tree. A nil opener uses DefaultOpener.
func NewRootCommand(open Opener) *cobra.Command {
	if open == nil {
		open = DefaultOpener
	}
	a := &app{open: open}

	root := &cobra.Command{
		Use:           "shrtnr-admin",
		Short:         "Administer a shrtnr short-link registry.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return a.connect(a.ctx(cmd))
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&a.sqlitePath, "sqlite", "", "use a local sqlite file instead of the configured Postgres")

	root.AddCommand(
		a.migrateCommand(),
		a.keysCommand(),
		a.linksCommand(),
		a.statsCommand(),
		a.trendingCommand(),
	)
	return root
}

// Execute runs the admin CLI against the configured store.
func Execute(ctx context.Context) error {
	return NewRootCommand(nil).ExecuteContext(ctx)
}

// DefaultOpener opens sqlitePath when given, otherwise Postgres from config.Load.
func DefaultOpener(ctx context.Context, sqlitePath string) (*gorm.DB, time.Duration, error) {
	if sqlitePath != "" {
		db, err := gorm.Open(sqlite.Open(sqlitePath+"?_pragma=foreign_keys(1)"), &gorm.Config{
			Logger:         logger.NewGorm(logger.L()),
			TranslateError: true,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("open sqlite %s: %w", sqlitePath, err)
		}
		return db, 0, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, 0, err
	}
	db, err := infraPostgres.NewGorm(cfg.Postgres, logger.L())
	if err != nil {
		return nil, 0, err
	}
	return db, cfg.Store.Timeout, nil
}

func (a *app) connect(ctx context.Context) error {
	db, timeout, err := a.open(ctx, a.sqlitePath)
	if err != nil {
		return err
	}
	linkRepo := repository.NewLinkRepository(db, timeout)
	clickRepo := repository.NewClickRepository(db, timeout)
	links := service.NewLinkService(linkRepo, clickRepo, service.NewArbiter(linkRepo, nil, logger.L(), nil), service.LinkServiceOptions{
		Logger: logger.L(),
	})
	a.reg = &registry{
		db:          db,
		links:       links,
		credentials: service.NewCredentialService(repository.NewCredentialRepository(db, timeout)),
		analytics:   service.NewAnalyticsService(links, linkRepo, clickRepo),
	}
	return nil
}

func (a *app) close() error {
	if a.reg == nil {
		return nil
	}
	sqlDB, err := a.reg.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
