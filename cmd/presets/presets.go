package presets

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/gainguard/internal/conf"
	"github.com/tphakala/gainguard/internal/params"
	"github.com/tphakala/gainguard/internal/presets"
)

// Command creates the presets command.
func Command(settings *conf.Settings) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the battle presets",
		Long:  "List every battle preset with its scalar targets and the band levels it resolves to.",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := params.DefaultLayout(settings.Controller.BandRangeMillibels)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(presets.All())
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			header := []string{"MODE", "BASS", "LOUDNESS mB", "VIRTUALIZER"}
			for _, b := range layout {
				header = append(header, fmt.Sprintf("%s mB", strings.ToUpper(b.Name())))
			}
			fmt.Fprintln(tw, strings.Join(header, "\t"))

			for _, p := range presets.All() {
				row := []string{p.Mode.String(), fmt.Sprint(p.Bass), fmt.Sprint(p.LoudnessMillibels), fmt.Sprint(p.Virtualizer)}
				for _, level := range p.Levels(layout) {
					row = append(row, fmt.Sprint(level))
				}
				fmt.Fprintln(tw, strings.Join(row, "\t"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")

	return cmd
}
