package table

import (
	"os"

	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
)

// statsCmd dumps the process metrics in Prometheus text format. Running it
// after other operations in one shell invocation only shows that
// invocation's counters; long-lived embedding applications expose the same
// metrics through their own endpoint.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints store metrics in Prometheus text format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// touch the store so its counters exist even in a fresh process
		if _, err := tableStore.Len(); err != nil {
			return err
		}
		metrics.WritePrometheus(os.Stdout, true)
		return nil
	},
}
