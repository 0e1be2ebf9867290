package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/givecare/resource-matcher/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the resource catalog store",
}

var catalogMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the catalog schema in the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("catalog"); err != nil {
			return err
		}
		st, err := catalog.OpenStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(cmd.Context()); err != nil {
			return eris.Wrap(err, "catalog migrate")
		}
		zap.L().Info("catalog schema ready", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report duplicate ids and dangling references in a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := snapshotPath(cmd)
		snap, err := catalog.LoadSnapshot(path)
		if err != nil {
			return err
		}

		problems := snap.Check()
		out := cmd.OutOrStdout()
		for _, p := range problems {
			if _, err := fmt.Fprintln(out, p.String()); err != nil {
				return eris.Wrap(err, "catalog check: write")
			}
		}
		if _, err := fmt.Fprintf(out, "%s: %d providers, %d programs, %d service areas, %d facilities, %d resources, %d problems\n",
			path, len(snap.Providers), len(snap.Programs), len(snap.ServiceAreas),
			len(snap.Facilities), len(snap.Resources), len(problems)); err != nil {
			return eris.Wrap(err, "catalog check: write")
		}

		if len(problems) > 0 {
			return eris.Errorf("catalog check: %d problems in %s", len(problems), path)
		}
		return nil
	},
}

var catalogLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace the database catalog with a snapshot file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("catalog"); err != nil {
			return err
		}
		if cfg.Store.Driver == catalog.DriverMemory {
			return eris.New("catalog load: the memory driver reads the snapshot directly")
		}

		path := snapshotPath(cmd)
		snap, err := catalog.LoadSnapshot(path)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		if problems := snap.Check(); len(problems) > 0 && !force {
			return eris.Errorf("catalog load: %d problems in %s (run catalog check, or pass --force)", len(problems), path)
		}

		st, err := catalog.OpenStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(cmd.Context()); err != nil {
			return eris.Wrap(err, "catalog load: migrate")
		}
		if err := st.Load(cmd.Context(), snap); err != nil {
			return eris.Wrap(err, "catalog load")
		}

		zap.L().Info("catalog loaded",
			zap.String("driver", cfg.Store.Driver),
			zap.String("snapshot", path),
			zap.Int("service_areas", len(snap.ServiceAreas)),
			zap.Int("resources", len(snap.Resources)),
		)
		return nil
	},
}

func init() {
	catalogCheckCmd.Flags().String("file", "", "snapshot file (default from store.snapshot_path)")
	catalogLoadCmd.Flags().String("file", "", "snapshot file (default from store.snapshot_path)")
	catalogLoadCmd.Flags().Bool("force", false, "load even when the snapshot has problems")

	catalogCmd.AddCommand(catalogMigrateCmd, catalogCheckCmd, catalogLoadCmd)
	rootCmd.AddCommand(catalogCmd)
}

func snapshotPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("file"); p != "" {
		return p
	}
	return cfg.Store.SnapshotPath
}
