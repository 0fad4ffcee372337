package cli

import (
	"context"
	"fmt"
	"io"

	"escape-trail/internal/catalog"
	"escape-trail/internal/config"
	pgstore "escape-trail/internal/infra/postgres"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewCatalogCmd groups catalog maintenance commands.
func NewCatalogCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate and publish puzzle catalogs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [file...]",
		Short: "Validate catalog files (the built-in catalog when none are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkCatalogs(cmd.OutOrStdout(), args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "seed [file...]",
		Short: "Store catalogs in Postgres (the built-in catalog when none are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			setLogLevel(cfg.Log.Level)
			return seedCatalogs(ctx, cfg, args)
		},
	})
	return cmd
}

func loadCatalogs(files []string) ([]*catalog.Catalog, error) {
	if len(files) == 0 {
		cat, err := catalog.Builtin()
		if err != nil {
			return nil, err
		}
		return []*catalog.Catalog{cat}, nil
	}
	cats := make([]*catalog.Catalog, 0, len(files))
	for _, f := range files {
		cat, err := catalog.LoadFile(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

func checkCatalogs(w io.Writer, files []string) error {
	cats, err := loadCatalogs(files)
	if err != nil {
		return err
	}
	for _, cat := range cats {
		fmt.Fprintf(w, "%s: %d puzzles ok\n", cat.ID(), cat.Len())
	}
	return nil
}

func seedCatalogs(ctx context.Context, cfg config.Config, files []string) error {
	cats, err := loadCatalogs(files)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	db, err := openBun(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store := pgstore.NewCatalogStore(db)
	for _, cat := range cats {
		if err := store.Save(ctx, cat); err != nil {
			return fmt.Errorf("seed %s: %w", cat.ID(), err)
		}
		log.Info().Str("catalog", cat.ID()).Int("puzzles", cat.Len()).Msg("catalog stored")
	}
	ids, err := store.IDs(ctx)
	if err != nil {
		return err
	}
	log.Info().Strs("catalogs", ids).Msg("catalogs available")
	return nil
}
