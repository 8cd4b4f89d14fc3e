package version

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/spf13/cobra"

	"github.com/tphakala/gainguard/internal/buildinfo"
)

// Command creates the version command.
func Command() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := buildinfo.Current()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gainguard %s (built %s, %s)\n",
				info.GetVersion(), info.GetBuildDate(), info.GoVersion)
			if !verbose {
				return
			}
			fmt.Fprintf(out, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "cpu: %s (%d logical cores)\n", cpuBrand(), cpuid.CPU.LogicalCores)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also print platform and CPU details")

	return cmd
}

func cpuBrand() string {
	if cpuid.CPU.BrandName == "" {
		return buildinfo.UnknownValue
	}
	return cpuid.CPU.BrandName
}
