package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/backend"
)

var (
	reconcileDryRun  bool
	reconcileWorkers int
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair drift between owner and public listing copies",
	Long: `Scans every listing and brings its two copies back in sync:
  - mismatched copies take owner fields from the private copy and status from the public one
  - a missing public copy is restored from the private copy
  - a public copy without an owner copy is deleted

The pass is recorded as a reconcile run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *listing.Service, _ *backend.Stores) error {
			run, err := svc.RunReconcile(cmd.Context(), operator, listing.ReconcileOptions{
				DryRun:  reconcileDryRun,
				Workers: reconcileWorkers,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			mode := "LIVE"
			if run.DryRun {
				mode = "DRY-RUN"
			}
			fmt.Fprintf(out, "run %s [%s]: %s\n", run.RunID, mode, run.Status)
			fmt.Fprintf(out, "  scanned:  %d\n", run.Stats.Scanned)
			fmt.Fprintf(out, "  in sync:  %d\n", run.Stats.InSync)
			fmt.Fprintf(out, "  repaired: %d\n", run.Stats.Repaired)
			fmt.Fprintf(out, "  restored: %d\n", run.Stats.Restored)
			fmt.Fprintf(out, "  removed:  %d\n", run.Stats.Removed)
			fmt.Fprintf(out, "  failed:   %d\n", run.Stats.Failed)
			for _, s := range run.ErrorSample {
				fmt.Fprintf(out, "  ! %s: %s\n", s.ListingID, s.Reason)
			}
			if run.Status == listing.RunFailed {
				return fmt.Errorf("reconcile run %s failed", run.RunID)
			}
			return nil
		})
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "count drift without writing")
	reconcileCmd.Flags().IntVar(&reconcileWorkers, "workers", 5, "concurrent repairs")
}
