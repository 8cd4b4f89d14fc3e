package simulate

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/gainguard/internal/conf"
	"github.com/tphakala/gainguard/internal/controller"
	"github.com/tphakala/gainguard/internal/effects"
	"github.com/tphakala/gainguard/internal/simulate"
)

// Command creates the simulate command.
func Command(settings *conf.Settings) *cobra.Command {
	var showCalls bool

	cmd := &cobra.Command{
		Use:   "simulate [script.yaml]",
		Short: "Replay a scripted session and print the gain ledger",
		Long: "Replay a YAML script of controller operations against recording effect providers " +
			"and print the gain ledger after every step.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			script, err := simulate.Load(f)
			if err != nil {
				return err
			}

			cfg := settings.Controller
			if script.Controller != nil {
				cfg = *script.Controller
			}

			rec := effects.NewRecorder()
			ctrl := controller.New(cfg, rec.Providers())
			results, runErr := simulate.Run(ctrl, script)

			out := cmd.OutOrStdout()
			if err := simulate.Report(out, results); err != nil {
				return err
			}
			if showCalls {
				fmt.Fprintln(out)
				for _, c := range rec.Calls() {
					fmt.Fprintf(out, "%s.%s %v\n", c.Provider, c.Method, c.Args)
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&showCalls, "calls", false, "Also print every forwarded provider call")

	return cmd
}
