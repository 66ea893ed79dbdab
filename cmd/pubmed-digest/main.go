// Command pubmed-digest collects recently published PubMed articles matching
// a topical filter into a CSV file.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/henrybloomingdale/pubmed-digest/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	flagConfig string

	// v holds defaults, environment and flag bindings for every command.
	v = config.NewViper()
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var rootCmd = &cobra.Command{
	Use:   "pubmed-digest",
	Short: "Build a CSV digest of recent PubMed articles",
	Long: `pubmed-digest searches PubMed for articles published in a recent window
that match a topical filter, fetches each record's metadata, and writes the
retained articles (reviews, errata and retractions are dropped) to a CSV file.

Configuration is read from ./pubmed-digest.yaml or
~/.config/pubmed-digest/pubmed-digest.yaml, then PUBMED_DIGEST_* environment
variables, then flags.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./pubmed-digest.yaml)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(v, flagConfig)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exit *exitError
		if !errors.As(err, &exit) {
			rootCmd.PrintErrln(warnStyle.Render("Error: " + err.Error()))
		}
		os.Exit(1)
	}
}

// exitError requests a non-zero exit without printing an error line; the
// command has already reported the outcome.
type exitError struct{ err error }

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
