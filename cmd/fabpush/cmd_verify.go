package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fablab-network/fabpush/pkg/cli"
	"github.com/fablab-network/fabpush/pkg/fleet"
	"github.com/fablab-network/fabpush/pkg/state"
	"github.com/fablab-network/fabpush/pkg/util"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <probes.yaml>",
	Short: "Run verification probes against the selected targets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := state.LoadProbeSet(args[0])
		if err != nil {
			return err
		}
		util.Debugf("loaded probe set %s: %d probes", args[0], len(ps.Probes))

		targets, err := selectedTargets()
		if err != nil {
			return err
		}

		results, err := fleet.Verify(cmd.Context(), targets, ps)
		for _, r := range results {
			if r.Err != nil {
				util.Errorf("%s: connect failed: %v", r.Target, r.Err)
				fmt.Printf("%s: connect failed: %v\n", r.Target, r.Err)
				continue
			}
			if !r.OK {
				util.Warnf("%s: probe set did not converge", r.Target)
			}
			for _, pr := range r.Results {
				fmt.Printf("%s: [%s] %s\n", r.Target, cli.Status(string(pr.Outcome)), pr)
			}
		}
		if err != nil {
			os.Exit(1)
		}
		return nil
	},
}
