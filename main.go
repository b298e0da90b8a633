// Package main is the entry point for adplay.
package main

import (
	"github.com/anisan-cli/adplay/cmd"
	"github.com/anisan-cli/adplay/config"
	"github.com/anisan-cli/adplay/history"
	"github.com/anisan-cli/adplay/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	go func() {
		if removed, err := history.Prune(); err != nil {
			log.Warnf("prune history: %v", err)
		} else if removed > 0 {
			log.Infof("pruned %d stale history entries", removed)
		}
	}()

	cmd.Execute()
}
