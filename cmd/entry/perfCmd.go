package entry

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hackingbutlegal/lockbox/cmd/util"
	libchunk "github.com/hackingbutlegal/lockbox/lib/chunk"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/lockbox"
	"github.com/hackingbutlegal/lockbox/lib/storage"
	"github.com/hackingbutlegal/lockbox/lib/tier"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the storage engine",
		Long:    util.WrapString("Benchmarks entry operations against a throwaway in-memory vault. The configured snapshot file is not touched."),
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfOps         = 10_000
	perfPayloadSize = 64
	perfSkip        = make([]string, 0)

	// live entries kept in the chunk while benchmarking reads/updates
	perfResidency = 50
)

func init() {
	// add flags
	key := "ops"
	perfTestCmd.Flags().Int(key, 10_000, util.WrapString("Number of operations per benchmark"))
	key = "payload-size"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("Payload size in bytes"))
	key = "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. add,get)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfOps = viper.GetInt("ops")
	perfPayloadSize = viper.GetInt("payload-size")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfPayloadSize < 1 {
		return fmt.Errorf("payload-size must be positive")
	}

	// residency must fit both the arena and the entry directory
	perfResidency = 50
	if max := int(libchunk.MaxCapacity) / (2 * perfPayloadSize); perfResidency > max {
		perfResidency = max
	}
	if perfResidency < 1 {
		return fmt.Errorf("payload-size %d does not fit a chunk", perfPayloadSize)
	}

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for the lockbox storage engine")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Operations:   %d\n", perfOps)
	fmt.Printf("Payload size: %d bytes\n", perfPayloadSize)
	fmt.Printf("Residency:    %d entries\n", perfResidency)
	fmt.Println()

	// throwaway vault so capacity and billing never interfere
	perfOwner := core.Identity("__perf")
	bench, err := lockbox.New(lockbox.Options{Store: storage.NewMemStore()})
	if err != nil {
		return err
	}
	if _, err := bench.CreateVault(perfOwner); err != nil {
		return err
	}
	if err := bench.UpgradeTier(perfOwner, tier.Enterprise); err != nil {
		return err
	}
	if _, err := bench.InitializeChunk(perfOwner, libchunk.MaxCapacity, libchunk.StoragePasswords); err != nil {
		return err
	}

	payload := make([]byte, perfPayloadSize)
	registry := metrics.NewRegistry()

	add := func() (uint64, error) {
		return bench.AddEntry(perfOwner, 0, libchunk.EntryLogin, 0, [32]byte{}, payload)
	}

	// resident entries shared by the read and update benchmarks
	ids := make([]uint64, perfResidency)
	for i := range ids {
		if ids[i], err = add(); err != nil {
			return fmt.Errorf("prefill failed: %v", err)
		}
	}

	fmt.Println("starting tests...")

	// add is measured against constant occupancy: every timed insert is
	// followed by an untimed delete
	addTimer := metrics.GetOrRegisterTimer("add", registry)
	if !shouldSkip("add") {
		for i := 0; i < perfOps; i++ {
			var id uint64
			addTimer.Time(func() {
				id, err = add()
			})
			if err != nil {
				fmt.Printf("(add) - error adding entry: %v\n", err)
				break
			}
			if err := bench.DeleteEntry(perfOwner, 0, id); err != nil {
				fmt.Printf("(add) - error cleaning up entry: %v\n", err)
				break
			}
		}
	}
	printResult("add", addTimer)

	getTimer := metrics.GetOrRegisterTimer("get", registry)
	if !shouldSkip("get") {
		for i := 0; i < perfOps; i++ {
			id := ids[i%len(ids)]
			getTimer.Time(func() {
				if _, _, err := bench.GetEntry(perfOwner, 0, id); err != nil {
					fmt.Printf("(get) - error reading entry: %v\n", err)
				}
			})
		}
	}
	printResult("get", getTimer)

	updateTimer := metrics.GetOrRegisterTimer("update", registry)
	if !shouldSkip("update") {
		for i := 0; i < perfOps; i++ {
			id := ids[i%len(ids)]
			updateTimer.Time(func() {
				if err := bench.UpdateEntry(perfOwner, 0, id, payload); err != nil {
					fmt.Printf("(update) - error updating entry: %v\n", err)
				}
			})
		}
	}
	printResult("update", updateTimer)

	// delete mirrors add: untimed insert, timed delete
	deleteTimer := metrics.GetOrRegisterTimer("delete", registry)
	if !shouldSkip("delete") {
		for i := 0; i < perfOps; i++ {
			id, err := add()
			if err != nil {
				fmt.Printf("(delete) - error adding entry: %v\n", err)
				break
			}
			deleteTimer.Time(func() {
				if err := bench.DeleteEntry(perfOwner, 0, id); err != nil {
					fmt.Printf("(delete) - error deleting entry: %v\n", err)
				}
			})
		}
	}
	printResult("delete", deleteTimer)

	mixedTimer := metrics.GetOrRegisterTimer("mixed", registry)
	if !shouldSkip("mixed") {
		var id uint64
		for i := 0; i < perfOps; i++ {
			mixedTimer.Time(func() {
				var err error
				switch i % 4 {
				case 0: // add
					id, err = add()
				case 1: // get
					_, _, err = bench.GetEntry(perfOwner, 0, id)
				case 2: // update
					err = bench.UpdateEntry(perfOwner, 0, id, payload)
				case 3: // delete
					err = bench.DeleteEntry(perfOwner, 0, id)
				}
				if err != nil {
					fmt.Printf("(mixed) - error performing operation (%d): %v\n", i%4, err)
				}
			})
		}
	}
	printResult("mixed", mixedTimer)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, registry); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, timer metrics.Timer) {
	if timer.Count() == 0 {
		fmt.Printf("%-10sskipped\n", test)
		return
	}

	mean := timer.Mean()
	opsPerSec := 1.0 / (mean / 1e9)

	fmt.Printf("%-10s%.0fns/op (%s/op)\tp99=%s\t%.0f ops/sec\n",
		test, mean, time.Duration(mean), time.Duration(timer.Percentile(0.99)), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, registry metrics.Registry) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Count", "MeanNsPerOp", "P95", "P99", "OpsPerSec",
		"Ops", "PayloadSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	var writeErr error
	registry.Each(func(name string, i interface{}) {
		timer, ok := i.(metrics.Timer)
		if !ok || writeErr != nil {
			return
		}

		mean := timer.Mean()
		opsPerSec := 0.0
		if mean > 0 {
			opsPerSec = 1.0 / (mean / 1e9)
		}

		row := []string{
			name,
			strconv.FormatInt(timer.Count(), 10),
			fmt.Sprintf("%.0f", mean),
			time.Duration(timer.Percentile(0.95)).String(),
			time.Duration(timer.Percentile(0.99)).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			strconv.Itoa(perfOps),
			strconv.Itoa(perfPayloadSize),
		}

		if err := writer.Write(row); err != nil {
			writeErr = fmt.Errorf("failed to write row for test %s: %v", name, err)
		}
	})

	return writeErr
}
