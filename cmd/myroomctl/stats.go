package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/backend"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

var statsSave bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *listing.Service, _ *backend.Stores) error {
			var (
				stats model.ListingStats
				err   error
			)
			if statsSave {
				stats, err = svc.RefreshStats(cmd.Context(), operator)
			} else {
				stats, err = svc.Stats(cmd.Context(), operator)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total:    %d\n", stats.TotalListings)
			fmt.Fprintf(out, "pending:  %d\n", stats.Pending)
			fmt.Fprintf(out, "approved: %d\n", stats.Approved)
			fmt.Fprintf(out, "rejected: %d\n", stats.Rejected)
			fmt.Fprintf(out, "booked:   %d\n", stats.Booked)
			fmt.Fprintf(out, "visible:  %d\n", stats.Visible)
			fmt.Fprintf(out, "avg rent: %.2f\n", stats.AvgRent)

			owners := make([]string, 0, len(stats.ByOwner))
			for o := range stats.ByOwner {
				owners = append(owners, o)
			}
			sort.Strings(owners)
			for _, o := range owners {
				fmt.Fprintf(out, "  %s: %d\n", o, stats.ByOwner[o])
			}
			return nil
		})
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsSave, "save", false, "recompute and persist the counters")
}
