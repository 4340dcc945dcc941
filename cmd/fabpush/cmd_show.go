package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fablab-network/fabpush/pkg/cli"
	"github.com/fablab-network/fabpush/pkg/device"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Read configuration and state from a target",
}

var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Dump a target's structured configuration as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := connectSingle(cmd, "show config")
		if err != nil {
			return err
		}
		defer dev.Close()

		db, err := dev.Snapshot()
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(db, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var showEntryCmd = &cobra.Command{
	Use:   "entry <table> <key>",
	Short: "Read one configuration entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := connectSingle(cmd, "show entry")
		if err != nil {
			return err
		}
		defer dev.Close()

		entry, err := dev.GetConfigEntry(args[0], args[1])
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("%s|%s not found", args[0], args[1])
		}
		out, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var showKeysState bool

var showKeysCmd = &cobra.Command{
	Use:   "keys <table>",
	Short: "List entry keys of a configuration (or, with --state, state) table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := connectSingle(cmd, "show keys")
		if err != nil {
			return err
		}
		defer dev.Close()

		var keys []string
		if showKeysState {
			keys, err = dev.StateKeys(args[0])
		} else {
			keys, err = dev.ConfigKeys(args[0])
		}
		if err != nil {
			return err
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	},
}

var showSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize a target's EVPN/VXLAN configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := connectSingle(cmd, "show summary")
		if err != nil {
			return err
		}
		defer dev.Close()

		db, err := dev.Snapshot()
		if err != nil {
			return err
		}

		tbl := cli.NewTable(os.Stdout, "COMPONENT", "STATUS")
		tbl.Row("bgp", yesNo(db.BGPConfigured()))
		tbl.Row("vtep", yesNo(db.HasVTEP()))
		tbl.Row("vlans", fmt.Sprintf("%d", len(db.VLAN)))
		tbl.Row("vni-maps", fmt.Sprintf("%d", len(db.VXLANTunnelMap)))
		tbl.Flush()

		// A tunnel map pointing at a VLAN that is not in the VLAN table is
		// the most common hand-edit mistake; flag it.
		for key, m := range db.VXLANTunnelMap {
			if m.VLAN != "" && !db.HasVLAN(m.VLAN) {
				fmt.Println(cli.Yellow(fmt.Sprintf("warning: %s maps missing VLAN %s", key, m.VLAN)))
			}
		}
		return nil
	},
}

var showTargetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List targets from the targets file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl := cli.NewTable(os.Stdout, "NAME", "ADDRESS", "KIND")
		for _, name := range targetsConf.Names() {
			t, _ := targetsConf.Get(name)
			kind := "sonic"
			if t.NoConfigDB {
				kind = "frr"
			}
			tbl.Row(name, fmt.Sprintf("%s@%s", t.User, t.Addr()), kind)
		}
		tbl.Flush()
		return nil
	},
}

// connectSingle resolves -t down to one target and connects to it.
func connectSingle(cmd *cobra.Command, what string) (*device.Device, error) {
	targets, err := selectedTargets()
	if err != nil {
		return nil, err
	}
	if len(targets) != 1 {
		return nil, fmt.Errorf("%s needs exactly one target (-t)", what)
	}
	return device.Connect(cmd.Context(), targets[0])
}

func yesNo(b bool) string {
	if b {
		return cli.Green("yes")
	}
	return "no"
}

func init() {
	showKeysCmd.Flags().BoolVar(&showKeysState, "state", false, "list keys from the state store instead")
	showCmd.AddCommand(showConfigCmd, showEntryCmd, showKeysCmd, showSummaryCmd, showTargetsCmd)
}
