package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/ibcompare/pkg/config"
	"github.com/yurifrl/ibcompare/pkg/csv"
	"github.com/yurifrl/ibcompare/pkg/executors"
	"github.com/yurifrl/ibcompare/pkg/ledger"
	"github.com/yurifrl/ibcompare/pkg/models"
	"github.com/yurifrl/ibcompare/pkg/plan"
	"github.com/yurifrl/ibcompare/pkg/register"
	"github.com/yurifrl/ibcompare/pkg/server"
	"github.com/yurifrl/ibcompare/pkg/service"
)

var (
	cliFilters  filters
	cfgFile     string
	format      string
	concurrency int
)

var rootCmd = &cobra.Command{
	Use:           "ibcompare",
	Short:         "Compare IB cash transactions with a ledger journal",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare [flags]",
	Short: "List broker transactions that are missing from the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		report, err := newProcessor(logger, cfg).Compare(cmd.Context(), paramsFrom(cfg))
		if err != nil {
			return err
		}

		switch format {
		case "text":
			return report.Print(cmd.OutOrStdout())
		case "csv":
			filter, err := cliFilters.toFilterFunc()
			if err != nil {
				return err
			}
			out, err := csv.Create(report.Missing(), filter)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		default:
			return fmt.Errorf("unknown format %q", format)
		}
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <plan_file>",
	Short: "Run the comparisons listed in a YAML plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		if p.Defaults.Pattern == "" {
			p.Defaults.Pattern = cfg.Flex.Pattern
		}
		if p.Defaults.Symbols == "" {
			p.Defaults.Symbols = cfg.Symbols.Path
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Plan %s\n", args[0])
		p.Print(out)
		fmt.Fprintln(out)

		exec := executors.New(logger, newProcessor(logger, cfg), concurrency)
		results, runErr := exec.Plan(cmd.Context(), p)
		if err := executors.Print(out, results); err != nil {
			return err
		}
		return runErr
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump <report.xml>",
	Short: "Print the normalized broker transactions of a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", models.ErrSourceNotFound, args[0])
			}
			return err
		}
		defer f.Close()

		txs, err := newProcessor(logger, cfg).BrokerTransactions(f, cfg.Symbols.Path)
		if err != nil {
			return err
		}

		rows := make([]dumpRow, 0, len(txs))
		for _, tx := range txs {
			rows = append(rows, newDumpRow(tx))
		}
		printer := pp.New()
		printer.SetOutput(cmd.OutOrStdout())
		printer.SetColoringEnabled(false)
		_, err = printer.Println(rows)
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve comparisons over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if cfg.Ledger.Journal == "" {
			return fmt.Errorf("ledger journal is required")
		}

		srv := server.New(logger, newProcessor(logger, cfg), paramsFrom(cfg))
		logger.Info("starting server", "addr", cfg.Server.Addr)
		return srv.Start(cmd.Context(), cfg.Server.Addr)
	},
}

type dumpRow struct {
	ReportDate  string
	Date        string
	Symbol      string
	Type        string
	Amount      string
	Currency    string
	Description string
}

func newDumpRow(tx *models.Transaction) dumpRow {
	return dumpRow{
		ReportDate:  tx.ReportDateString(),
		Date:        tx.DateString(),
		Symbol:      tx.Symbol(),
		Type:        string(tx.Type()),
		Amount:      tx.Amount().String(),
		Currency:    tx.Currency(),
		Description: tx.Description(),
	}
}

// setup loads the configuration and builds the logger for a command.
func setup(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ibcompare",
		Level:           level,
	})
	return cfg, logger, nil
}

func newProcessor(logger *log.Logger, cfg *config.Config) *service.Processor {
	runner := ledger.NewExecRunner(logger, cfg.Ledger.Binary, cfg.Ledger.Timeout)
	client := ledger.NewClient(logger, runner, register.New(logger, cfg.Ledger.Currency))
	return service.NewProcessor(logger, client)
}

func paramsFrom(cfg *config.Config) service.Params {
	return service.Params{
		ReportPath:  cfg.Flex.ReportPath,
		ReportsDir:  cfg.Flex.ReportsDir,
		Pattern:     cfg.Flex.Pattern,
		SymbolsPath: cfg.Symbols.Path,
		Journal:     cfg.Ledger.Journal,
		Effective:   cfg.EffectiveDates,
	}
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("ledger-file", "", "Ledger journal file")
	cmd.Flags().String("symbols", "", "Symbol mapping table (.csv or .xls)")
	cmd.Flags().Bool("effective", false, "Compare using effective dates")
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	compareCmd.Flags().String("report", "", "Flex cash transaction report")
	compareCmd.Flags().String("reports-dir", "", "Directory holding flex reports; the newest one is used")
	compareCmd.MarkFlagsMutuallyExclusive("report", "reports-dir")
	addSourceFlags(compareCmd)
	compareCmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, csv)")

	// Filter flags, csv output only
	compareCmd.Flags().StringVar(&cliFilters.symbol, "symbol", "", "Only symbols containing this text (case insensitive)")
	compareCmd.Flags().StringVar(&cliFilters.kind, "type", "", "Only this transaction type")
	compareCmd.Flags().StringVar(&cliFilters.since, "since", "", "Only transactions on or after this date (YYYY-MM-DD)")

	planCmd.Flags().IntVar(&concurrency, "concurrency", executors.DefaultConcurrency, "Comparisons run at once")

	addSourceFlags(dumpCmd)

	addSourceFlags(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default 0.0.0.0:3000)")

	rootCmd.AddCommand(compareCmd, planCmd, dumpCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
