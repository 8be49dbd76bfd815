package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/technurture/mailsleuth/internal/config"
	"github.com/technurture/mailsleuth/internal/observability"
	"github.com/technurture/mailsleuth/internal/verify"
)

var verifyCommand = &cobra.Command{
	Use:   "verify [address...]",
	Short: "Verify email addresses over SMTP without sending mail",
	Long: `Probes each address against its domain's mail exchangers: the handshake
runs up to RCPT TO and the reply code is classified. Catch-all domains are
detected once per domain and shared across sibling addresses.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

var (
	verifyConfigPath  string
	verifyHelloDomain string
	verifySender      string
	verifyJSON        bool
)

func init() {
	verifyCommand.Flags().StringVar(&verifyConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	verifyCommand.Flags().StringVar(&verifyHelloDomain, "hello-domain", "", "Domain announced in the SMTP HELO (default "+config.DefaultHelloDomain+")")
	verifyCommand.Flags().StringVar(&verifySender, "sender", "", "MAIL FROM address used in probes (default "+config.DefaultProbeSender+")")
	verifyCommand.Flags().BoolVar(&verifyJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(verifyCommand)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfigFile(verifyConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("hello-domain") {
		cfg.HelloDomain = verifyHelloDomain
	}
	if cmd.Flags().Changed("sender") {
		cfg.ProbeSender = verifySender
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	verifier := verify.New(
		verify.WithSender(cfg.ProbeSender),
		verify.WithHelloDomain(cfg.HelloDomain),
		verify.WithHostTimeout(cfg.SMTPTimeout()),
		verify.WithBatchBudget(cfg.VerifyBudget()),
	)
	results := verifier.BatchVerify(ctx, args)

	if verifyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	observability.NewPrinter(os.Stdout).PrintVerification(results)

	invalid := 0
	for _, r := range results {
		if !r.IsValid {
			invalid++
		}
	}
	if invalid > 0 {
		fmt.Fprintf(os.Stdout, "%d of %d addresses did not verify\n", invalid, len(results))
	}
	return nil
}
