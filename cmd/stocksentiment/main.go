// stocksentiment: news sentiment and price dashboard for listed companies.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	plog "github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/seenimoa/stocksentiment/api"
	"github.com/seenimoa/stocksentiment/internal/analysis/sentiment"
	"github.com/seenimoa/stocksentiment/internal/config"
	"github.com/seenimoa/stocksentiment/internal/dashboard"
	"github.com/seenimoa/stocksentiment/internal/datasource"
	"github.com/seenimoa/stocksentiment/internal/logging"
	stockmcp "github.com/seenimoa/stocksentiment/internal/mcp"
	"github.com/seenimoa/stocksentiment/internal/registry"
	"github.com/seenimoa/stocksentiment/internal/report"
	"github.com/seenimoa/stocksentiment/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set up before every command.
var (
	cfg    *config.Config
	logger *plog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stocksentiment",
	Short: "Stock news sentiment dashboard",
	Long: `stocksentiment scores recent news headlines about a listed company,
sets them against its daily prices and derives a buy, sell or hold
advisory. It runs as a web dashboard, a one-shot CLI or an MCP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		// stdout belongs to command output and the MCP stdio transport.
		logger = logging.New(cfg.Logging, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(companiesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(statusCmd)
}

// newController wires the configured sources into a dashboard controller.
func newController() (*dashboard.Controller, error) {
	news, err := datasource.NewNewsSource(cfg, sentiment.Default, logger)
	if err != nil {
		return nil, err
	}
	prices, err := datasource.NewPriceSource(cfg)
	if err != nil {
		return nil, err
	}
	return dashboard.New(dashboard.Config{
		Registry:     registry.Default(),
		News:         news,
		Prices:       prices,
		Logger:       logger,
		LookbackDays: cfg.Analysis.LookbackDays,
	}), nil
}

// resolveNewsKey runs the credential step before any fetch. A missing key
// is not fatal: the news source then reports credential_missing.
func resolveNewsKey(prompt func() (string, error)) {
	if !config.NewsKeyRequired(cfg) {
		return
	}
	_, src, err := config.ResolveNewsKey(cfg, prompt)
	if err != nil {
		logger.Warn().Err(err).Msg("news headlines unavailable until a NewsAPI key is supplied")
		return
	}
	logger.Debug().Str("source", string(src)).Msg("news key resolved")
}

// terminalPrompt asks for the news key on stdin when it is a terminal.
func terminalPrompt() func() (string, error) {
	if !plog.IsTerminal(os.Stdin.Fd()) {
		return nil
	}
	return func() (string, error) {
		fmt.Fprint(os.Stderr, "Enter your NewsAPI key (leave blank to skip): ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stocksentiment %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "Analyze news sentiment and price action for a company",
	Long: `Fetch recent headlines and daily prices for a company from the catalog,
score the headlines and print the advisory, metrics and headline table.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		newsKey, _ := cmd.Flags().GetString("news-key")
		format, _ := cmd.Flags().GetString("format")
		chartPath, _ := cmd.Flags().GetString("chart")
		htmlPath, _ := cmd.Flags().GetString("html")

		if days < 0 || days > api.MaxLookbackDays {
			return fmt.Errorf("--days must be between 1 and %d", api.MaxLookbackDays)
		}
		if newsKey != "" {
			cfg.News.APIKey = newsKey
		}
		resolveNewsKey(terminalPrompt())

		ctrl, err := newController()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		a, err := ctrl.Analyze(ctx, dashboard.Request{Ticker: args[0], LookbackDays: days})
		if err != nil {
			return err
		}

		if chartPath != "" {
			if a.Chart == nil {
				logger.Warn().Str("path", chartPath).Msg(report.NoticeNoChart)
			} else if err := os.WriteFile(chartPath, []byte(report.RenderSVG(a.Chart, report.DefaultChartConfig())), 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
		}
		if htmlPath != "" {
			page, err := report.GenerateHTML(a, time.Now())
			if err != nil {
				return err
			}
			if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		switch format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		case "text":
			_, err = fmt.Fprint(out, report.GenerateText(a))
			return err
		case "", "pretty":
			_, err = fmt.Fprint(out, renderAnalysis(a))
			return err
		default:
			return fmt.Errorf("unknown format %q (want pretty, text or json)", format)
		}
	},
}

func init() {
	analyzeCmd.Flags().Int("days", 0, "lookback window in days (default from config)")
	analyzeCmd.Flags().String("news-key", "", "NewsAPI key for this run")
	analyzeCmd.Flags().String("format", "pretty", "output format: pretty, text or json")
	analyzeCmd.Flags().String("chart", "", "write the price/sentiment chart as SVG to this file")
	analyzeCmd.Flags().String("html", "", "write a standalone HTML report to this file")
}

// --- Companies Command ---

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List the companies available for analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		sector, _ := cmd.Flags().GetString("sector")
		companies := registry.Default().ListBySector(sector)
		if len(companies) == 0 {
			return fmt.Errorf("no companies in sector %q (sectors: %s)", sector, strings.Join(registry.Default().Sectors(), ", "))
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), renderCompanies(companies))
		return err
	},
}

func init() {
	companiesCmd.Flags().String("sector", registry.AllSectors, "filter by sector")
}

// --- Serve Command (HTTP Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web dashboard and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		noUI, _ := cmd.Flags().GetBool("no-ui")

		// The dashboard prompts for a missing key itself.
		resolveNewsKey(nil)

		ctrl, err := newController()
		if err != nil {
			return err
		}
		srv := api.NewServer(cfg, ctrl, logger, version)
		if noUI {
			srv.SetServeUI(false)
		}
		return srv.ListenAndServe(cmd.Context(), cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Bool("no-ui", false, "serve the JSON API only")
}

// --- MCP Command ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis tools over MCP on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolveNewsKey(nil)

		ctrl, err := newController()
		if err != nil {
			return err
		}
		logger.Info().Str("version", version).Msg("mcp stdio server starting")
		return stockmcp.ServeStdio(stockmcp.NewServer(ctrl, version))
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		rows := [][2]string{
			{"Version", fmt.Sprintf("%s (%s)", version, commit)},
			{"Market Status", utils.MarketStatus(now)},
			{"Time (ET)", report.ReportTimestamp(now)},
			{"News Provider", cfg.News.Provider},
			{"Market Provider", cfg.Market.Provider},
			{"Lookback", fmt.Sprintf("%d days", cfg.Analysis.LookbackDays)},
			{"API Server", cfg.API.Addr()},
			{"Companies", fmt.Sprintf("%d in %d sectors", registry.Default().Len(), len(registry.Default().Sectors()))},
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), renderStatus(rows, config.CheckAPIKeys(cfg)))
		return err
	},
}
