package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fablab-network/fabpush/pkg/applier"
	"github.com/fablab-network/fabpush/pkg/bundle"
	"github.com/fablab-network/fabpush/pkg/cli"
	"github.com/fablab-network/fabpush/pkg/fleet"
	"github.com/fablab-network/fabpush/pkg/util"
)

var applyDetail bool

var applyCmd = &cobra.Command{
	Use:   "apply <bundle.yaml>",
	Short: "Apply a config bundle to the selected targets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bundle.Load(args[0])
		if err != nil {
			return err
		}
		util.Debugf("loaded bundle %s: %d operations", b.Name, len(b.Operations))

		targets, err := selectedTargets()
		if err != nil {
			return err
		}

		results, err := fleet.Apply(cmd.Context(), targets, b, applier.Options{})
		for _, r := range results {
			if r.Err != nil {
				util.Errorf("%s: connect failed: %v", r.Target, r.Err)
				fmt.Printf("%s: connect failed: %v\n", r.Target, r.Err)
				continue
			}
			fmt.Println(r.Report.Summary())
			if applyDetail {
				printOps(r.Report)
			}
		}
		if err != nil {
			// Per-target outcomes were already printed; the exit code is the
			// aggregate signal for scripting.
			os.Exit(1)
		}
		return nil
	},
}

func printOps(rep *applier.Report) {
	tbl := cli.NewTable(os.Stdout, "#", "STATE", "OPERATION", "ERROR")
	for _, res := range rep.Results {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		tbl.Row(fmt.Sprintf("%d", res.Index), cli.Status(string(res.State)), res.Op, errText)
	}
	tbl.Flush()
}

func init() {
	applyCmd.Flags().BoolVar(&applyDetail, "detail", false, "print per-operation results")
}
