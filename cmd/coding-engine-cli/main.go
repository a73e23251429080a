// Package main provides the Coding Engine CLI entrypoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/medbill-ai/coding-engine/internal/catalog"
	"github.com/medbill-ai/coding-engine/internal/config"
	"github.com/medbill-ai/coding-engine/internal/observability"
	"github.com/medbill-ai/coding-engine/internal/suggest"
	"github.com/medbill-ai/coding-engine/pkg/engine"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "coding-engine-cli",
	Short: "Coding Engine CLI for billing-code suggestions and catalog lookups",
	Long: `Coding Engine CLI provides commands for working with the billing-code engine.

Use this tool to:
- Suggest billing codes for a clinical description
- Search the fee catalog by keyword
- Look up individual codes with their role and time-of-day variants

All commands support --json for automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		if outputJSON {
			logFormat = "json"
		}
		logLevel := cfg.Observability.LogLevel
		if !verbose {
			logLevel = "warn"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       logLevel,
			Format:      logFormat,
			ServiceName: "coding-engine-cli",
		})

		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newSuggestCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newLookupCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newEngine builds the engine for a single CLI invocation.
func newEngine(ctx context.Context) (*engine.Engine, error) {
	eng, err := engine.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	return eng, nil
}

// newSuggestCmd creates the suggest subcommand.
func newSuggestCmd() *cobra.Command {
	var (
		text      string
		timeOfDay string
		encounter string
		existing  []string
		maxCount  int
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest billing codes for a clinical description",
		Long: `Suggest runs the full pipeline: retrieval over the fee catalog, role
classification, time-of-day variant resolution, premium eligibility, and
revenue/risk aggregation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			var slot catalog.TimeSlot
			if timeOfDay != "" {
				slot = catalog.ParseSlot(timeOfDay)
				if slot == "" {
					return fmt.Errorf("invalid --time-of-day %q (valid: Day, Evening, Night, Weekend)", timeOfDay)
				}
			}

			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			resp, err := eng.Process(ctx, suggest.Request{
				ClinicalText:   text,
				EncounterType:  encounter,
				TimeOfDay:      slot,
				ExistingCodes:  existing,
				MaxSuggestions: maxCount,
			})
			if err != nil {
				return fmt.Errorf("suggestion failed: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			fmt.Printf("Time slot: %s (latency: %dms", resp.TimeSlot, resp.LatencyMs)
			if resp.Cached {
				fmt.Printf(", cached")
			}
			fmt.Printf(")\n\n")

			if len(resp.Suggestions) == 0 {
				fmt.Println("No billing codes matched.")
				return nil
			}

			fmt.Printf("Suggestions:\n")
			for i, s := range resp.Suggestions {
				fmt.Printf("  %d. %s [%s] %s\n", i+1, s.Record.Code, s.Role, s.Record.Description)
				fmt.Printf("     amount: %s | confidence: %.2f | risk: %s\n",
					s.RevenueImpact.StringFixed(2), s.Confidence, s.RiskLevel)
			}
			fmt.Printf("\nTotal revenue: %s | Overall risk: %s | Compliance: %d/100\n",
				resp.TotalRevenue.StringFixed(2), resp.OverallRisk, resp.ComplianceScore)

			if len(resp.Documentation) > 0 {
				fmt.Printf("\nDocumentation required:\n")
				for _, doc := range resp.Documentation {
					fmt.Printf("  - %s\n", doc)
				}
			}

			if resp.Explanation != "" {
				fmt.Printf("\n%s\n", resp.Explanation)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "clinical description (required)")
	cmd.Flags().StringVar(&timeOfDay, "time-of-day", "", "override time slot (Day, Evening, Night, Weekend)")
	cmd.Flags().StringVar(&encounter, "encounter", "", "encounter type hint")
	cmd.Flags().StringSliceVar(&existing, "existing", nil, "codes already on the encounter")
	cmd.Flags().IntVar(&maxCount, "max", 0, "maximum suggestions (default 10)")

	_ = cmd.MarkFlagRequired("text")

	return cmd
}

// newSearchCmd creates the search subcommand.
func newSearchCmd() *cobra.Command {
	var (
		query    string
		category string
		slotName string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the fee catalog by keyword",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			records := eng.SearchCodes(query, suggest.SearchFilters{
				Category: catalog.Category(category),
				Slot:     catalog.ParseSlot(slotName),
			})

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			if len(records) == 0 {
				fmt.Println("No matching codes.")
				return nil
			}

			for _, rec := range records {
				line := fmt.Sprintf("%s  %-12s  %8s  %s",
					rec.Code, rec.Category, rec.Amount.StringFixed(2), rec.Description)
				if rec.TimeOfDay != "" {
					line += fmt.Sprintf("  (%s)", rec.TimeOfDay)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search text (required)")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&slotName, "slot", "", "filter by time slot")

	_ = cmd.MarkFlagRequired("query")

	return cmd
}

// newLookupCmd creates the lookup subcommand.
func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup CODE",
		Short: "Look up a single catalog code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			rec, ok := eng.GetCode(args[0])
			if !ok {
				return fmt.Errorf("code %q not found", strings.ToUpper(args[0]))
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}

			fmt.Printf("%s  %s\n", rec.Code, rec.Description)
			fmt.Printf("  Category: %s | Role: %s | Amount: %s\n",
				rec.Category, rec.Role, rec.Amount.StringFixed(2))
			if rec.TimeOfDay != "" {
				fmt.Printf("  Time of day: %s\n", rec.TimeOfDay)
			}
			if rec.UsageNotes != "" {
				fmt.Printf("  Notes: %s\n", rec.UsageNotes)
			}
			for _, rule := range rec.BundlingRules {
				fmt.Printf("  Bundling: %s\n", rule)
			}
			for _, excl := range rec.Exclusions {
				fmt.Printf("  Exclusion: %s\n", excl)
			}
			return nil
		},
	}

	return cmd
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.Encode(map[string]string{
					"version": "0.1.0",
					"go":      "1.25",
				})
				return
			}
			fmt.Println("coding-engine-cli v0.1.0")
		},
	}
}
