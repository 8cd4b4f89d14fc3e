package main

import (
	"os"

	"github.com/tphakala/gainguard/cmd"
	"github.com/tphakala/gainguard/internal/conf"
)

func main() {
	settings := &conf.Settings{}
	if err := cmd.RootCommand(settings).Execute(); err != nil {
		os.Exit(1)
	}
}
