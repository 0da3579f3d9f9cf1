package table

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tablekv/cmd/util"
	"tablekv/lib/changelog"
	"tablekv/lib/store"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if err := tableStore.Set([]byte(key), []byte(value)); err != nil {
				return err
			} else {
				fmt.Println("set successfully")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if value, found, err := tableStore.Get([]byte(key)); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v, value=%s\n", key, found, value)
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := tableStore.Delete([]byte(key)); err != nil {
				return err
			} else {
				fmt.Println("delete successfully")
			}
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if found, err := tableStore.Has([]byte(key)); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%t\n", key, found)
			}
			return nil
		},
	}
	lenCmd = &cobra.Command{
		Use:   "len",
		Short: "Counts all entries in the table (full scan)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n, err := tableStore.Len(); err != nil {
				return err
			} else {
				fmt.Printf("table=%s, entries=%d\n", tableName, n)
			}
			return nil
		},
	}
	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Iterates the table in ascending key order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := util.BindCommandFlags(cmd); err != nil {
				return err
			}
			return runScan(viper.GetBool("keys-only"), viper.GetBool("values-only"), viper.GetInt("limit"))
		},
	}
	offsetCmd = &cobra.Command{
		Use:   "offset [topic] [partition]",
		Short: "Prints the persisted recovery offset for a changelog partition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			partition, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("partition must be a number: %w", err)
			}
			tp := changelog.TP(args[0], int32(partition))
			offset, found, err := tableStore.PersistedOffset(tp)
			if err != nil {
				return err
			}
			fmt.Printf("partition=%s, found=%v, offset=%d\n", tp, found, offset)
			return nil
		},
	}
	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Destroys the table's entire on-disk state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := util.BindCommandFlags(cmd); err != nil {
				return err
			}
			if !viper.GetBool("yes") {
				return fmt.Errorf("reset deletes all data of table %q; re-run with --yes to confirm", tableName)
			}
			if err := manager.Reset(tableName); err != nil {
				return err
			}
			fmt.Println("reset successfully")
			return nil
		},
	}
)

func init() {
	// Add Flags for scan command
	scanCmd.Flags().Bool("keys-only", false, util.WrapString("Print only keys"))
	scanCmd.Flags().Bool("values-only", false, util.WrapString("Print only values"))
	scanCmd.Flags().Int("limit", 0, util.WrapString("Stop after this many entries (0 = no limit)"))

	// Add Flags for reset command
	resetCmd.Flags().Bool("yes", false, util.WrapString("Confirm the destructive reset"))
}

func runScan(keysOnly, valuesOnly bool, limit int) error {
	if keysOnly && valuesOnly {
		return fmt.Errorf("--keys-only and --values-only are mutually exclusive")
	}

	var (
		it  store.Iterator
		err error
	)
	switch {
	case keysOnly:
		it, err = tableStore.Keys()
	case valuesOnly:
		it, err = tableStore.Values()
	default:
		it, err = tableStore.Items()
	}
	if err != nil {
		return err
	}
	defer it.Close()

	n := 0
	for it.Next() {
		switch {
		case keysOnly:
			fmt.Printf("%s\n", it.Key())
		case valuesOnly:
			fmt.Printf("%s\n", it.Value())
		default:
			fmt.Printf("%s=%s\n", it.Key(), it.Value())
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return it.Err()
}
