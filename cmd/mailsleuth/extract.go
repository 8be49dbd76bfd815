package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/technurture/mailsleuth/internal/ai"
	"github.com/technurture/mailsleuth/internal/config"
	"github.com/technurture/mailsleuth/internal/fetch"
	"github.com/technurture/mailsleuth/internal/observability"
	"github.com/technurture/mailsleuth/internal/pipeline"
)

var extractCommand = &cobra.Command{
	Use:   "extract [url...]",
	Short: "Extract contact emails from one or more websites",
	Long: `Crawls each site's contact-relevant pages in priority order, decodes plain
and obfuscated addresses, validates domains, probes mailboxes over SMTP, and
prints confidence-ranked results.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

var (
	extractConfigPath  string
	extractConcurrency int
	extractPageBudget  int
	extractEmailTarget int
	extractUseBrowser  bool
	extractSkipVerify  bool
	extractJSON        bool
	extractAPIKey      string
)

func init() {
	extractCommand.Flags().StringVar(&extractConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	extractCommand.Flags().IntVar(&extractConcurrency, "concurrency", 0, "Parallel URLs when extracting a batch (1-10)")
	extractCommand.Flags().IntVar(&extractPageBudget, "page-budget", 0, "Maximum pages crawled per site")
	extractCommand.Flags().IntVar(&extractEmailTarget, "email-target", 0, "Unique emails that stop a crawl early")
	extractCommand.Flags().BoolVar(&extractUseBrowser, "use-browser", false, "Escalate to a headless browser for JavaScript sites (requires Chrome)")
	extractCommand.Flags().BoolVar(&extractSkipVerify, "skip-verify", false, "Skip SMTP mailbox probing")
	extractCommand.Flags().BoolVar(&extractJSON, "json", false, "Print results as JSON")
	extractCommand.Flags().StringVar(&extractAPIKey, "api-key", "", "Gemini API key for the AI fallback (optional, defaults to GEMINI_API_KEY env var)")

	rootCmd.AddCommand(extractCommand)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfigFile(extractConfigPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = extractConcurrency
	}
	if cmd.Flags().Changed("page-budget") {
		cfg.PageBudget = extractPageBudget
	}
	if cmd.Flags().Changed("email-target") {
		cfg.EmailTarget = extractEmailTarget
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = extractUseBrowser
	}
	if cmd.Flags().Changed("skip-verify") {
		cfg.SkipVerify = extractSkipVerify
	}
	if cmd.Flags().Changed("api-key") {
		cfg.GeminiAPIKey = extractAPIKey
	}
	cfg.Verbose = cfg.Verbose || rootVerbose
	if err := cfg.Validate(); err != nil {
		return err
	}

	p := pipeline.New(*cfg, pipelineOptions(ctx, cfg)...)
	defer p.Shutdown()

	results := p.ExtractBatch(ctx, args)

	if extractJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	printer := observability.NewPrinter(os.Stdout)
	failures := 0
	for _, res := range results {
		printer.PrintScanResult(res)
		if res.Error != "" {
			failures++
			fmt.Fprintf(os.Stderr, "Error scanning %s: %s\n", res.URL, res.Error)
		}
	}
	if failures == len(results) {
		return fmt.Errorf("all %d scans failed", failures)
	}
	return nil
}

func loadConfigFile(path string) (*config.Config, error) {
	if path == "" {
		cfg := (&config.Config{}).ApplyDefaults()
		return &cfg, nil
	}
	loaded, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	cfg := loaded.ApplyDefaults()
	return &cfg, nil
}

func pipelineOptions(ctx context.Context, cfg *config.Config) []pipeline.Option {
	var opts []pipeline.Option
	if cfg.UseBrowser {
		opts = append(opts, pipeline.WithBrowser(fetch.NewManager()))
	}
	if cfg.GeminiAPIKey != "" {
		if analyzer, err := ai.NewGemini(ctx, cfg.GeminiAPIKey); err == nil {
			opts = append(opts, pipeline.WithAnalyzer(analyzer))
		} else {
			fmt.Fprintf(os.Stderr, "Warning: AI fallback disabled: %v\n", err)
		}
	}
	if cfg.Verbose {
		opts = append(opts, pipeline.WithPrinter(observability.NewPrinter(os.Stdout)))
	}
	return opts
}
