package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/henrybloomingdale/pubmed-digest/internal/config"
)

var (
	flagInitPath     string
	flagInitDefaults bool
)

func init() {
	configInitCmd.Flags().StringVar(&flagInitPath, "path", "pubmed-digest.yaml", "file to write")
	configInitCmd.Flags().BoolVar(&flagInitDefaults, "defaults", false, "write the defaults without prompting")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create digest configuration",
	Long: `View the effective configuration or write a new config file.

Commands:
  pubmed-digest config show    - Show the merged configuration as YAML
  pubmed-digest config init    - Interactive config file editor`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}

		if used := v.ConfigFileUsed(); used != "" {
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("# "+used))
		}
		if cfg.NCBI.APIKey != "" {
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("# NCBI API key: set"))
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file interactively",
	Long: `Prompts for the digest settings, starting from the current effective
configuration, and writes them as YAML. The NCBI API key is never written;
set NCBI_API_KEY in the environment instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if !flagInitDefaults {
			answers := newInitAnswers(cfg)
			if err := answers.form().Run(); err != nil {
				return err
			}
			if err := answers.apply(cfg); err != nil {
				return err
			}
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(flagInitPath, cfg); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Configuration saved!"))
		fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("  "+flagInitPath))
		return nil
	},
}

// initAnswers holds the form inputs as the strings huh edits.
type initAnswers struct {
	filter      string
	groupFilter bool
	lookback    string
	maxResults  string
	output      string
	email       string
	pacing      string
}

func newInitAnswers(cfg *config.Config) *initAnswers {
	return &initAnswers{
		filter:      cfg.Search.Filter,
		groupFilter: cfg.Search.GroupFilter,
		lookback:    cfg.Search.Lookback.String(),
		maxResults:  strconv.Itoa(cfg.Search.MaxResults),
		output:      cfg.Output.Path,
		email:       cfg.NCBI.Email,
		pacing:      cfg.Pacing.Mode,
	}
}

func (a *initAnswers) form() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Topical filter").
				Description(`PubMed syntax, e.g. "asthma"[Abstract] OR "COPD"[Abstract]`).
				Value(&a.filter).
				Validate(validateRequired("filter")),
			huh.NewConfirm().
				Title("Apply the date window to the whole filter?").
				Description("No keeps the historical query, which binds dates to the last OR term only").
				Value(&a.groupFilter),
			huh.NewInput().
				Title("Lookback window").
				Description("Go duration, e.g. 168h").
				Value(&a.lookback).
				Validate(validateDuration),
			huh.NewInput().
				Title("Maximum PMIDs per run").
				Value(&a.maxResults).
				Validate(validatePositiveInt),
		).Title("Search"),

		huh.NewGroup(
			huh.NewInput().
				Title("CSV output path").
				Value(&a.output).
				Validate(validateRequired("output path")),
			huh.NewInput().
				Title("Contact email sent to NCBI").
				Value(&a.email),
			huh.NewSelect[string]().
				Title("Request pacing").
				Options(huh.NewOptions(config.PacingSleep, config.PacingRate, config.PacingNone)...).
				Value(&a.pacing),
		).Title("Output and NCBI"),
	).WithTheme(huh.ThemeCatppuccin())
}

func (a *initAnswers) apply(cfg *config.Config) error {
	lookback, err := time.ParseDuration(strings.TrimSpace(a.lookback))
	if err != nil {
		return fmt.Errorf("parse lookback: %w", err)
	}
	maxResults, err := strconv.Atoi(strings.TrimSpace(a.maxResults))
	if err != nil {
		return fmt.Errorf("parse max results: %w", err)
	}

	cfg.Search.Filter = strings.TrimSpace(a.filter)
	cfg.Search.GroupFilter = a.groupFilter
	cfg.Search.Lookback = lookback
	cfg.Search.MaxResults = maxResults
	cfg.Output.Path = strings.TrimSpace(a.output)
	cfg.NCBI.Email = strings.TrimSpace(a.email)
	cfg.Pacing.Mode = a.pacing
	return nil
}

func validateRequired(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a duration like 168h")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
