package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogdomain "github.com/smallbiznis/healx/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/healx/internal/catalog/repository"
	"github.com/smallbiznis/healx/internal/config"
	"github.com/smallbiznis/healx/internal/migration"
	"github.com/smallbiznis/healx/internal/observability"
	"github.com/smallbiznis/healx/internal/seed"
	"github.com/smallbiznis/healx/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		file    string
		migrate bool
		dryRun  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:          "catalogseed",
		Short:        "Load the metric catalog into the database",
		Long:         "catalogseed upserts metric definitions from a YAML file by code. Existing ids are never changed.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := seed.LoadCatalogFile(file)
			if err != nil {
				return err
			}
			if dryRun {
				cmd.Printf("%s: %d metric definitions ok\n", file, len(defs))
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			app := fx.New(
				fx.NopLogger,
				config.Module,
				observability.Module,
				db.Module,
				fx.Provide(catalogrepo.Provide),
				fx.Invoke(func(conn *gorm.DB, repo catalogdomain.Repository, log *zap.Logger) error {
					if migrate {
						if err := migration.Migrate(conn); err != nil {
							return err
						}
					}
					return seed.SeedCatalog(ctx, conn, repo, defs, log.Named("catalog.seed"))
				}),
			)
			if err := app.Start(ctx); err != nil {
				return err
			}
			return app.Stop(context.WithoutCancel(ctx))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yml", "catalog YAML file")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply schema migrations before seeding")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without touching the database")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall deadline")

	return cmd
}
