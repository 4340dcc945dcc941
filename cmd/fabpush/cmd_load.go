package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fablab-network/fabpush/pkg/configdb"
	"github.com/fablab-network/fabpush/pkg/device"
	"github.com/fablab-network/fabpush/pkg/util"
)

var loadCmd = &cobra.Command{
	Use:   "load <config.json>",
	Short: "Load a config_db.json snapshot onto one target in a single transaction",
	Long: `Load writes every entry of a config_db.json-format snapshot to the
target's configuration store in one Redis transaction, so the device's
config daemons never observe a half-written table. Unlike apply, load
has no per-operation ordering or partial-failure reporting: either the
whole snapshot lands, or nothing does.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		changes, err := configdb.ParseConfigJSON(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		util.Debugf("parsed %d entries from %s", len(changes), args[0])

		targets, err := selectedTargets()
		if err != nil {
			return err
		}
		if len(targets) != 1 {
			return fmt.Errorf("load needs exactly one target (-t)")
		}

		dev, err := device.Connect(cmd.Context(), targets[0])
		if err != nil {
			return err
		}
		defer dev.Close()

		if err := dev.LoadConfig(changes); err != nil {
			return err
		}
		util.Infof("loaded %d entries onto %s", len(changes), dev.Name)
		fmt.Printf("%s: loaded %d entries\n", dev.Name, len(changes))
		return nil
	},
}
