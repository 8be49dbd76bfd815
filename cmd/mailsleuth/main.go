// Package main provides the mailsleuth CLI: contact email discovery and
// SMTP verification for websites.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootVerbose bool

var rootCmd = &cobra.Command{
	Use:   "mailsleuth",
	Short: "Discover and verify contact email addresses on websites",
	Long: "mailsleuth crawls a website's contact-relevant pages, decodes plain and\n" +
		"obfuscated email addresses, validates their domains over DNS, probes\n" +
		"mailboxes over SMTP, and returns confidence-ranked results.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if rootVerbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
	},
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Print detailed progress information")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
