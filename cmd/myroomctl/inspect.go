package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/backend"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
	"github.com/weiwei-tsao/myroom/apps/api/pkg/util"
)

type inspectReport struct {
	ID           string         `yaml:"id"`
	Drift        string         `yaml:"drift"`
	NeedsCleanup bool           `yaml:"needsCleanup"`
	Private      *model.Listing `yaml:"private,omitempty"`
	Public       *model.Listing `yaml:"public,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <listingId>",
	Short: "Print both copies of a listing as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(_ *listing.Service, stores *backend.Stores) error {
			pairs, err := listing.Pairs(cmd.Context(), stores.Listings)
			if err != nil {
				return err
			}
			for _, p := range pairs {
				if p.ID != args[0] {
					continue
				}
				report := inspectReport{ID: p.ID, Drift: p.Drift().String(), Private: p.Private, Public: p.Public}
				if p.Private != nil {
					report.NeedsCleanup = util.NeedsCleanup(*p.Private)
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(report)
			}
			return fmt.Errorf("listing %s: %w", args[0], listing.ErrNotFound)
		})
	},
}
