package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hybrid-depletion/hybrid-depletion/dep"
	"github.com/hybrid-depletion/hybrid-depletion/dep/trace"
)

var (
	// CLI flags for the coupled run
	configPath string        // YAML run configuration (schedule, depletion, integrator)
	chainPath  string        // YAML transmutation chain
	ratesPath  string        // YAML tabulated transport-solver data
	logLevel   string        // Log verbosity level
	outPath    string        // Optional CSV destination for per-step results
	runTimeout time.Duration // Run-level timeout, checked between coarse steps (0 = none)
)

// runCmd executes a coupled depletion run from file inputs
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the coupled transport-depletion schedule",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := dep.LoadRunConfig(configPath)
		if err != nil {
			logrus.Fatalf("unable to read run config: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("invalid run config: %v", err)
		}
		chain, err := dep.LoadChainFile(chainPath)
		if err != nil {
			logrus.Fatalf("unable to load chain: %v", err)
		}
		geom, err := loadGeometryFile(ratesPath, chain)
		if err != nil {
			logrus.Fatalf("unable to load geometry: %v", err)
		}
		hf, err := dep.LoadTabulatedSolver(ratesPath, chain.RateIndex(), len(geom.Regions))
		if err != nil {
			logrus.Fatalf("unable to load solver table: %v", err)
		}

		store := dep.NewTraceStore()
		integrator, err := dep.NewIntegratorFromConfig(cfg, chain, geom, hf, nil, store)
		if err != nil {
			logrus.Fatalf("unable to assemble integrator: %v", err)
		}

		logrus.Infof("Starting run: %d nuclides, %d regions, %d coarse steps, policy=%s, solver=%s",
			chain.Len(), len(geom.Regions), integrator.Schedule().Len(), cfg.Integrator.Policy, cfg.Depletion.Solver)

		ctx := context.Background()
		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runTimeout)
			defer cancel()
		}

		startTime := time.Now()
		if err := integrator.Run(ctx); err != nil {
			logrus.Fatalf("run failed: %v", err)
		}

		summary := trace.Summarize(store.Trace)
		fmt.Printf("steps committed:  %d\n", summary.Steps)
		fmt.Printf("exposure:         %.4f days\n", summary.TotalDays)
		fmt.Printf("keff:             %.5f -> %.5f (delta %+.5f)\n", summary.InitialKeff, summary.FinalKeff, summary.DeltaKeff)
		fmt.Printf("transport time:   %s\n", summary.TotalRunTime)
		fmt.Printf("wall time:        %s\n", time.Since(startTime).Round(time.Millisecond))

		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				logrus.Fatalf("unable to create %s: %v", outPath, err)
			}
			defer f.Close()
			if err := store.Trace.WriteCSV(f); err != nil {
				logrus.Fatalf("unable to write results: %v", err)
			}
			logrus.Infof("Wrote %d step records to %s", summary.Steps, outPath)
		}
	},
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "run.yaml", "Run configuration file")
	runCmd.Flags().StringVar(&chainPath, "chain", "chain.yaml", "Transmutation chain file")
	runCmd.Flags().StringVar(&ratesPath, "rates", "rates.yaml", "Tabulated solver data file")
	runCmd.Flags().StringVar(&logLevel, "log", "warning", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&outPath, "out", "", "CSV file for per-step results")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Run-level timeout, checked between coarse steps")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
