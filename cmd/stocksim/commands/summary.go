package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wonny/stocksim/internal/contracts"
)

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Read stored forecast summaries",
	Long: `Reads simulation summaries stored by earlier forecasts.

Subcommands:
  list    - list summaries, newest first
  show    - print the daily breakdown of one summary
  latest  - print the newest summary of a product

Example:
  go run ./cmd/stocksim summary list --product 3f1c2d4e-5a6b-4c7d-8e9f-0a1b2c3d4e5f
  go run ./cmd/stocksim summary show 12`,
}

var (
	summaryListCmd = &cobra.Command{
		Use:   "list",
		Short: "List summaries",
		RunE:  listSummaries,
	}

	summaryShowCmd = &cobra.Command{
		Use:   "show [summary_id]",
		Short: "Print the days of a summary",
		Args:  cobra.ExactArgs(1),
		RunE:  showSummary,
	}

	summaryLatestCmd = &cobra.Command{
		Use:   "latest",
		Short: "Print the newest summary of a product",
		RunE:  latestSummary,
	}
)

var (
	summaryProduct string
	summaryJSON    bool
)

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.AddCommand(summaryListCmd)
	summaryCmd.AddCommand(summaryShowCmd)
	summaryCmd.AddCommand(summaryLatestCmd)

	summaryCmd.PersistentFlags().BoolVar(&summaryJSON, "json", false, "print as JSON")
	summaryListCmd.Flags().StringVar(&summaryProduct, "product", "", "only this product UUID")
	summaryLatestCmd.Flags().StringVar(&summaryProduct, "product", "", "product UUID")
	summaryLatestCmd.MarkFlagRequired("product")
}

func listSummaries(cmd *cobra.Command, args []string) error {
	d, err := initDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var summaries []contracts.SimulationSummary
	if summaryProduct != "" {
		productID, err := uuid.Parse(summaryProduct)
		if err != nil {
			return fmt.Errorf("invalid --product: %w", err)
		}
		summaries, err = d.summaries.FindAllByProduct(ctx, productID)
		if err != nil {
			return err
		}
	} else {
		if summaries, err = d.summaries.FindAll(ctx); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if summaryJSON {
		return printJSON(out, summaries)
	}
	printSummaryList(out, summaries)
	return nil
}

func showSummary(cmd *cobra.Command, args []string) error {
	summaryID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || summaryID <= 0 {
		return fmt.Errorf("summary id must be a positive integer, got %q", args[0])
	}

	d, err := initDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	days, err := d.summaries.FindDays(ctx, summaryID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if summaryJSON {
		return printJSON(out, days)
	}
	if len(days) == 0 {
		PrintWarning(out, fmt.Sprintf("Summary #%d has no days", summaryID))
		return nil
	}
	PrintHeader(out, fmt.Sprintf("Summary #%d", summaryID))
	printDays(out, days)
	return nil
}

func latestSummary(cmd *cobra.Command, args []string) error {
	productID, err := uuid.Parse(summaryProduct)
	if err != nil {
		return fmt.Errorf("invalid --product: %w", err)
	}

	d, err := initDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := d.service.LatestSummary(ctx, productID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if summaryJSON {
		return printJSON(out, summary)
	}
	printSummary(out, *summary, 0)
	return nil
}
