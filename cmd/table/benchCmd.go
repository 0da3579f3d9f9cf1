package table

import (
	"fmt"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tablekv/cmd/util"
)

var (
	benchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Performance testing tool for a table store",
		RunE:    runBench,
		PreRunE: processBenchConfig,
	}
	benchKeyPrefix  = "__bench"
	benchNumThreads = 10
	benchKeySpread  = 100
	benchSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	benchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	benchCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	benchCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	benchKeySpread = viper.GetInt("keys")
	benchNumThreads = viper.GetInt("threads")
	benchSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runBench(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for tablekv table stores")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Table: %s\n", tableName)
	fmt.Printf("Path: %s\n", manager.Path(tableName))
	fmt.Printf("Threads: %d\n", benchNumThreads)
	fmt.Printf("Keys: %d\n", benchKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	setResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("set")

		// cleanup
		b.Cleanup(func() {
			iter(func(k []byte) {
				err := tableStore.Delete(k)
				if err != nil {
					log.Printf("(set) - error deleting key: %v\n", err)
				}
			})
		})

		b.SetParallelism(benchNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				err := tableStore.Set(getKey(counter), []byte("test"))
				if err != nil {
					log.Printf("(set) - error setting key: %v\n", err)
				}
				counter++
			}
		})
	})

	printResult("set", setResult)

	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("get")

		// set keys
		iter(func(k []byte) {
			err := tableStore.Set(k, []byte("test"))
			if err != nil {
				log.Printf("(get) - error setting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k []byte) {
				err := tableStore.Delete(k)
				if err != nil {
					log.Printf("(get) - error deleting key: %v\n", err)
				}
			})
		})

		b.SetParallelism(benchNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				_, _, err := tableStore.Get(getKey(counter))
				if err != nil {
					log.Printf("(get) - error getting key: %v\n", err)
				}
				counter++
			}
		})
	})

	printResult("get", getResult)

	hasResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("has") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("has")

		// set keys
		iter(func(k []byte) {
			err := tableStore.Set(k, []byte("test"))
			if err != nil {
				log.Printf("(has) - error setting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k []byte) {
				err := tableStore.Delete(k)
				if err != nil {
					log.Printf("(has) - error deleting key: %v\n", err)
				}
			})
		})

		b.SetParallelism(benchNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				_, err := tableStore.Has(getKey(counter))
				if err != nil {
					log.Printf("(has) - error checking key: %v\n", err)
				}
				counter++
			}
		})
	})

	printResult("has", hasResult)

	hasNotResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("has-not") {
			return
		}

		b.SetParallelism(benchNumThreads)

		b.ResetTimer()

		// absent keys exercise the membership probe's fast path
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := fmt.Sprintf("%s/has-not-%d", benchKeyPrefix, counter%benchKeySpread)
				_, err := tableStore.Has([]byte(key))
				if err != nil {
					log.Printf("(has-not) - error checking key: %v\n", err)
				}
				counter++
			}
		})
	})

	printResult("has-not", hasNotResult)

	scanResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("scan") {
			return
		}

		// prepare keys
		_, iter := getKeys("scan")

		// set keys
		iter(func(k []byte) {
			err := tableStore.Set(k, []byte("test"))
			if err != nil {
				log.Printf("(scan) - error setting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k []byte) {
				err := tableStore.Delete(k)
				if err != nil {
					log.Printf("(scan) - error deleting key: %v\n", err)
				}
			})
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			it, err := tableStore.Items()
			if err != nil {
				log.Printf("(scan) - error creating iterator: %v\n", err)
				continue
			}
			for it.Next() {
			}
			if err := it.Err(); err != nil {
				log.Printf("(scan) - error iterating: %v\n", err)
			}
			if err := it.Close(); err != nil {
				log.Printf("(scan) - error closing iterator: %v\n", err)
			}
		}
	})

	printResult("scan", scanResult)

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range benchSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) []byte, func(func([]byte))) {
	keys := make([][]byte, benchKeySpread)
	for i := 0; i < benchKeySpread; i++ {
		keys[i] = []byte(fmt.Sprintf("%s-%s-%d", benchKeyPrefix, prefix, i))
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) []byte {
		return keys[i%benchKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func([]byte)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}
