// vxlanevpnd reconciles the live kernel network datapath toward a
// declarative VXLAN/BGP-EVPN desired state.
//
// Examples:
//
//	vxlanevpnd apply                      # read VXLANBGP_MAIN_CONF, reconcile
//	vxlanevpnd apply --config-file a.yaml  # reconcile from a local file
//	vxlanevpnd show                       # print the last applied state
//	vxlanevpnd show --query '.config.Mode'
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vxlanevpn/reconciler/pkg/util"
	"github.com/vxlanevpn/reconciler/pkg/version"
)

// App holds CLI state shared across subcommands.
type App struct {
	configFile string
	stateDir   string
	auditLog   string
	verbose    bool
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "vxlanevpnd",
	Short:         "Reconcile the kernel VXLAN/BGP-EVPN datapath toward a desired state",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if app.verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("info")
		}
		util.Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   !term.IsTerminal(int(os.Stdout.Fd())),
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.configFile, "config-file", "f", "", "local YAML desired-state file (default: read VXLANBGP_MAIN_CONF)")
	rootCmd.PersistentFlags().StringVar(&app.stateDir, "state-dir", ".", "directory holding the persisted reconciliation state")
	rootCmd.PersistentFlags().StringVar(&app.auditLog, "audit-log", "vxlanevpnd-audit.log", "path to the reconciliation-attempt audit log")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "debug-level logging")

	rootCmd.AddCommand(applyCmd, showCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("vxlanevpnd dev build")
		} else {
			fmt.Printf("vxlanevpnd %s (%s)\n", version.Version, version.GitCommit)
		}
	},
}
