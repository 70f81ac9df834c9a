package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/policy"
)

type regionView struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	WebSearch      bool     `json:"webSearch"`
	LiveConnectors []string `json:"liveConnectors"`
}

// newRegionsCmd creates the regions subcommand.
func newRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List supported regions and their live data sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := NewUI(outputJSON, noColor)

			views := make([]regionView, 0, len(domain.AllRegions()))
			rows := make([][]string, 0, len(domain.AllRegions()))
			for _, r := range domain.AllRegions() {
				p := policy.For(r)
				v := regionView{Code: string(r), Name: r.DisplayName(), WebSearch: p.Tools.WebSearch, LiveConnectors: []string{}}
				for _, c := range p.Connectors {
					v.LiveConnectors = append(v.LiveConnectors, string(c))
				}
				views = append(views, v)

				live := strings.Join(v.LiveConnectors, ", ")
				if live == "" {
					live = "-"
				}
				search := "no"
				if v.WebSearch {
					search = "yes"
				}
				rows = append(rows, []string{v.Code, v.Name, live, search})
			}

			if outputJSON {
				return ui.JSON(views)
			}
			ui.Table([]string{"CODE", "REGION", "LIVE DATABASE", "WEB SEARCH"}, rows)
			return nil
		},
	}
}
