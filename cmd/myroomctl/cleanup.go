package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/backend"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/util"
)

var cleanupDryRun bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Strip markup and stray whitespace from stored listings",
	Long: `Finds owner listings whose text fields carry HTML or untrimmed whitespace
and rewrites them through the normal owner update path, so both copies change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *listing.Service, stores *backend.Stores) error {
			ctx := cmd.Context()
			private, err := stores.Listings.List(ctx, listing.Query{Collection: listing.Private})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var dirty, fixed, failed int
			for _, l := range private {
				if !util.NeedsCleanup(l) {
					continue
				}
				dirty++
				if cleanupDryRun {
					fmt.Fprintf(out, "would clean %s (%q)\n", l.ID, l.Title)
					continue
				}
				_, err := svc.Update(ctx, listing.Actor{UserID: l.OwnerID}, l.ID, draftOf(l))
				if err != nil {
					failed++
					logger.Warn("cleanup failed", zap.String("listingId", l.ID), zap.Error(err))
					continue
				}
				fixed++
			}
			fmt.Fprintf(out, "scanned %d, dirty %d, cleaned %d, failed %d\n", len(private), dirty, fixed, failed)
			if failed > 0 {
				return fmt.Errorf("%d listings could not be cleaned", failed)
			}
			return nil
		})
	},
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "list affected listings without writing")
}

func draftOf(l model.Listing) model.ListingDraft {
	return model.ListingDraft{
		Title:       l.Title,
		Rent:        l.Rent,
		Amenities:   l.Amenities,
		ContactInfo: l.ContactInfo,
		Location:    l.Location,
		PhotoURL:    l.PhotoURL,
		Description: l.Description,
	}
}
