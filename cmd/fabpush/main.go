// Fabpush - remote device configuration driver
//
// Pushes config bundles to lab network devices over SSH, verifies the
// resulting state with polling probes, and reports exactly how far each
// apply got:
//
//	fabpush -f targets.yaml -t leaf1 apply bundles/leaf1-baseline.yaml
//	fabpush -f targets.yaml -t leaf1 verify probes/leaf1-verify.yaml
//	fabpush -f targets.yaml -t leaf1 show config
package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fablab-network/fabpush/pkg/target"
	"github.com/fablab-network/fabpush/pkg/util"
)

var (
	targetsFile string // -f, --targets-file
	targetNames string // -t, --targets
	verbose     bool
	jsonLogs    bool

	targetsConf *target.File
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "fabpush",
	Short:         "Remote device configuration driver",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Fabpush pushes config bundles to remote network devices over SSH and
verifies the resulting state with polling probes.

Bundles are ordered operation lists (structured table writes, CLI-paste
lines, file copies) with a post-apply action; the report says exactly
which operations were applied, which failed, and which were skipped.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		if jsonLogs {
			util.SetJSONFormat()
		}

		var err error
		targetsConf, err = target.Load(targetsFile)
		if err != nil {
			return err
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&targetsFile, "targets-file", "f", "targets.yaml", "targets descriptor file")
	pf.StringVarP(&targetNames, "targets", "t", "", "comma-separated target names (default: all)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")

	rootCmd.AddCommand(applyCmd, verifyCmd, loadCmd, showCmd, versionCmd)
}

// selectedTargets resolves the -t flag against the loaded targets file and
// prompts for a password for any target that has no credential configured.
func selectedTargets() ([]*target.Target, error) {
	var selected []*target.Target
	if targetNames == "" {
		for _, name := range targetsConf.Names() {
			t, _ := targetsConf.Get(name)
			selected = append(selected, t)
		}
	} else {
		for _, name := range strings.Split(targetNames, ",") {
			t, err := targetsConf.Get(strings.TrimSpace(name))
			if err != nil {
				return nil, err
			}
			selected = append(selected, t)
		}
	}

	for _, t := range selected {
		if t.Password == "" && t.KeyFile == "" {
			pw, err := promptPassword(t)
			if err != nil {
				return nil, err
			}
			t.Password = pw
		}
	}
	return selected, nil
}

func promptPassword(t *target.Target) (string, error) {
	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", t.User, t.Host)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password for %s: %w", t.Name, err)
	}
	return string(pw), nil
}
