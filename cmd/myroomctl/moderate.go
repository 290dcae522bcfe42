package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/backend"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

var moderateCmd = &cobra.Command{
	Use:       "moderate <listingId> <approved|rejected>",
	Short:     "Set a listing's moderation status",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(model.StatusApproved), string(model.StatusRejected)},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *listing.Service, _ *backend.Stores) error {
			l, err := svc.SetStatus(cmd.Context(), operator, args[0], model.Status(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", l.ID, l.Title, l.Status)
			return nil
		})
	},
}
