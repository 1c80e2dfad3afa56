package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/latticegrid/gridclient/cmd/gridcli"
)

const Version = "0.1.0"

var (
	// RootCmd represents the base command when called without any subcommands.
	RootCmd = &cobra.Command{
		Use:   "gridclient",
		Short: "routing and partition-awareness core for a distributed key-value cluster",
		Long: fmt.Sprintf(`gridclient (v%s)

A thin TCP client core for a distributed, partitioned in-memory
key-value cluster: connection pooling, partition-awareness and
affinity-based routing, and failover.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gridclient",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gridclient v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(gridcli.ConnectCmd)
	RootCmd.AddCommand(gridcli.SendCmd)
	RootCmd.AddCommand(gridcli.StatusCmd)
	RootCmd.AddCommand(versionCmd)

	RootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warning, error)")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
