package table

import (
	"github.com/spf13/cobra"

	"tablekv/cmd/util"
	"tablekv/lib/checkpoints"
	"tablekv/lib/store"
	"tablekv/lib/tables"
)

var (
	manager     *tables.Manager
	offsetStore *checkpoints.Bolt
	tableStore  store.Store
	tableName   string

	// TableCommands represents the table command group
	TableCommands = &cobra.Command{
		Use:                "table",
		Short:              "Perform operations on a table store",
		PersistentPreRunE:  setupTableStore,
		PersistentPostRunE: teardownTableStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add store location and engine tuning flags to the table command
	util.SetupStoreFlags(TableCommands)

	// Add subcommands
	TableCommands.AddCommand(setCmd)
	TableCommands.AddCommand(getCmd)
	TableCommands.AddCommand(delCmd)
	TableCommands.AddCommand(hasCmd)
	TableCommands.AddCommand(lenCmd)
	TableCommands.AddCommand(scanCmd)
	TableCommands.AddCommand(offsetCmd)
	TableCommands.AddCommand(resetCmd)
	TableCommands.AddCommand(shellCmd)
	TableCommands.AddCommand(benchCmd)
	TableCommands.AddCommand(statsCmd)
}

// setupTableStore resolves the configuration and opens the table store the
// subcommands operate on.
func setupTableStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	util.InitLogging()

	// Create the manager and the store for the configured table
	m, cp, err := util.GetManager()
	if err != nil {
		return err
	}
	manager = m
	offsetStore = cp
	tableName = util.GetTableName()

	tableStore, err = manager.Get(tableName)
	return err
}

// teardownTableStore flushes and closes everything the setup opened.
func teardownTableStore(_ *cobra.Command, _ []string) error {
	if manager == nil {
		return nil
	}
	if err := manager.Close(); err != nil {
		return err
	}
	if offsetStore != nil {
		return offsetStore.Close()
	}
	return nil
}
