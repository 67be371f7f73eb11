package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wonny/stocksim/internal/forecast"
	"github.com/wonny/stocksim/internal/scenario"
	"github.com/wonny/stocksim/pkg/logger"
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run loss forecasts",
	Long: `Runs the day-by-day stock simulation and reports loss probabilities.

Subcommands:
  run       - forecast one product and store the summary
  all       - forecast every active product
  scenario  - forecast the inputs of a YAML file, no database needed

Example:
  go run ./cmd/stocksim simulate run --product 3f1c2d4e-5a6b-4c7d-8e9f-0a1b2c3d4e5f --date 2024-01-01
  go run ./cmd/stocksim simulate all --runs 10
  go run ./cmd/stocksim simulate scenario --file config/scenarios/example.yaml --json`,
}

var (
	simulateRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Forecast one product",
		RunE:  runSimulate,
	}

	simulateAllCmd = &cobra.Command{
		Use:   "all",
		Short: "Forecast every active product",
		RunE:  runSimulateAll,
	}

	simulateScenarioCmd = &cobra.Command{
		Use:   "scenario",
		Short: "Forecast a scenario file offline",
		RunE:  runSimulateScenario,
	}
)

var (
	simProduct string
	simDate    string
	simRuns    int
	simJSON    bool
	simFile    string
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.AddCommand(simulateRunCmd)
	simulateCmd.AddCommand(simulateAllCmd)
	simulateCmd.AddCommand(simulateScenarioCmd)

	// Flags shared by every subcommand
	simulateCmd.PersistentFlags().IntVar(&simRuns, "runs", 0, "number of runs (default SIM_RUNS, or the file's runs)")
	simulateCmd.PersistentFlags().BoolVar(&simJSON, "json", false, "print the result as JSON")

	simulateRunCmd.Flags().StringVar(&simProduct, "product", "", "product UUID")
	simulateRunCmd.Flags().StringVar(&simDate, "date", "", "first simulated date YYYY-MM-DD (default today)")
	simulateRunCmd.MarkFlagRequired("product")

	simulateAllCmd.Flags().StringVar(&simDate, "date", "", "first simulated date YYYY-MM-DD (default today)")

	simulateScenarioCmd.Flags().StringVar(&simFile, "file", "", "scenario YAML file")
	simulateScenarioCmd.MarkFlagRequired("file")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	productID, err := uuid.Parse(simProduct)
	if err != nil {
		return fmt.Errorf("invalid --product: %w", err)
	}
	reference, err := referenceDate(simDate)
	if err != nil {
		return err
	}

	d, err := initDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runs := runsOrDefault(simRuns, d.cfg.Simulation.Runs)
	result, err := d.service.Run(ctx, productID, reference, runs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if simJSON {
		return printJSON(out, result)
	}
	printSummary(out, result.Summary, result.Runs)
	return nil
}

func runSimulateAll(cmd *cobra.Command, args []string) error {
	reference, err := referenceDate(simDate)
	if err != nil {
		return err
	}

	d, err := initDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	runs := runsOrDefault(simRuns, d.cfg.Simulation.Runs)
	report, runErr := d.service.RunActive(ctx, reference, runs)
	if report == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if simJSON {
		failed := make(map[string]string, len(report.Failed))
		for id, err := range report.Failed {
			failed[id.String()] = err.Error()
		}
		if err := printJSON(out, map[string]interface{}{
			"succeeded": report.Succeeded,
			"failed":    failed,
		}); err != nil {
			return err
		}
		return runErr
	}

	PrintHeader(out, "Forecast of active products",
		fmt.Sprintf("Date      : %s", formatDate(reference)),
		fmt.Sprintf("Runs      : %d", runs))
	for _, id := range report.Succeeded {
		PrintSuccess(out, id.String())
	}
	for id, err := range report.Failed {
		PrintError(out, fmt.Sprintf("%s: %v", id, err))
	}
	fmt.Fprintf(out, "\n%d succeeded, %d failed in %.2fs\n",
		len(report.Succeeded), len(report.Failed), time.Since(start).Seconds())

	return runErr
}

func runSimulateScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(cfg, os.Stderr)

	file, _, err := scenario.Load(simFile)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	hash, err := scenario.Hash(file)
	if err != nil {
		return fmt.Errorf("hash scenario: %w", err)
	}
	in, err := file.ToInputs()
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"file": simFile,
		"name": file.Name,
		"hash": hash,
	}).Info("Scenario loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// no repositories: nothing is read from or written to storage
	service := forecast.NewService(forecast.Dependencies{Defaults: cfg.Simulation}, log.Zerolog())
	result, err := service.RunFromInputs(ctx, in, runsOrDefault(simRuns, file.Runs))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if simJSON {
		return printJSON(out, result)
	}
	printSummary(out, result.Summary, result.Runs)
	return nil
}

// referenceDate parses a --date flag, defaulting to today
func referenceDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	d, err := forecast.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date: %w", err)
	}
	return d, nil
}

func runsOrDefault(flag, fallback int) int {
	if flag > 0 {
		return flag
	}
	return fallback
}
