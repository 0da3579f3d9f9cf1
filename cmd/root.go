package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tablekv/cmd/table"
	"tablekv/cmd/util"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "tablekv",
		Short: "embedded table store for stream processing",
		Long: fmt.Sprintf(`tablekv (v%s)

A durable, embedded key-value store backing the tables of a stateful
stream-processing application, with changelog replay and per-partition
recovery offsets.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tablekv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tablekv v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(table.TableCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("log level (debug, info, warn, error)"))
	key = "log-format"
	RootCmd.PersistentFlags().String(key, "text", util.WrapString("log output format (text, json)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
