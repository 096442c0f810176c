package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"ballot-backend/service"
	"ballot-backend/storage"
)

func (a *app) auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check the journal chain and the tallies against the vote records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.query(cmd, func(_ context.Context, vs *service.VotingService) (interface{}, error) {
				return vs.Audit(), nil
			})
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var printSnapshot bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of the full query state",
		Long: `export saves the current state as a timestamped JSON file under
<data-dir>/snapshots, keeping the newest snapshot_keep files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshots, err := storage.NewSnapshotStorage(a.snapshotDir(), a.cfg.SnapshotKeep)
			if err != nil {
				return err
			}
			snapshots.SetLogging(a.log)

			return a.query(cmd, func(_ context.Context, vs *service.VotingService) (interface{}, error) {
				snap := vs.Snapshot()

				path, err := snapshots.Save(snap)
				if err != nil {
					return nil, err
				}

				if printSnapshot {
					return snap, nil
				}
				return map[string]interface{}{"path": path, "sequence": snap.Sequence}, nil
			})
		},
	}

	cmd.Flags().BoolVar(&printSnapshot, "print", false, "print the snapshot instead of its path")

	return cmd
}

func (a *app) snapshotDir() string {
	return filepath.Join(a.cfg.DataDir, "snapshots")
}
