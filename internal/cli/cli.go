// Package cli implements quotectl, the command line front end of the quoting engine.
//
//	quotectl estimate -f job.yaml [--settings shop.yaml] [--rules rules.yaml] [--margin 40] [--json] [--save]
//	quotectl migrate
//	quotectl seed
//
// Without --settings, estimate reads shop settings and the machine catalog from the
// database configured by DB_PATH (or --db).
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/costeo3d/internal/config"
	"github.com/Simplici0/costeo3d/internal/costing"
	"github.com/Simplici0/costeo3d/internal/db"
	"github.com/Simplici0/costeo3d/internal/metrics"
	"github.com/Simplici0/costeo3d/internal/migrations"
	"github.com/Simplici0/costeo3d/internal/quotes"
	"github.com/Simplici0/costeo3d/internal/quoting"
	"github.com/Simplici0/costeo3d/internal/rules"
	"github.com/Simplici0/costeo3d/internal/seed"
	"github.com/Simplici0/costeo3d/internal/settings"
)

// JobFile is the YAML document read by estimate.
type JobFile struct {
	Title           string `yaml:"title"`
	Notes           string `yaml:"notes"`
	quoting.Request `yaml:",inline"`
}

// SettingsFile is a YAML shop configuration used instead of the database.
type SettingsFile struct {
	costing.Settings `yaml:",inline"`
	Consumables      []struct {
		ID       int64   `yaml:"id"`
		Name     string  `yaml:"name"`
		FlatCost float64 `yaml:"flatCost"`
	} `yaml:"consumables"`
}

// Load implements quoting.SettingsSource.
func (f *SettingsFile) Load(context.Context) (costing.Settings, error) {
	return f.Settings, nil
}

// ConsumablesCost implements quoting.SettingsSource.
func (f *SettingsFile) ConsumablesCost(_ context.Context, ids []int64) (float64, error) {
	var total float64
	for _, id := range ids {
		found := false
		for _, c := range f.Consumables {
			if c.ID == id {
				total += c.FlatCost
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("consumable %d: %w", id, settings.ErrNotFound)
		}
	}
	return total, nil
}

type rootOptions struct {
	envFile string
	dbPath  string
}

func (o *rootOptions) config() config.Config {
	cfg := config.LoadFrom(o.envFile)
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	return cfg
}

func (o *rootOptions) logger(cfg config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// BuildCLI returns the quotectl root command.
func BuildCLI() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "quotectl",
		Short:         "Cost and price 3D printing jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with configuration")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides DB_PATH)")

	rootCmd.AddCommand(buildEstimateCommand(opts))
	rootCmd.AddCommand(buildMigrateCommand(opts))
	rootCmd.AddCommand(buildSeedCommand(opts))

	return rootCmd
}

type estimateOptions struct {
	jobFile      string
	settingsFile string
	rulesFile    string
	margin       float64
	asJSON       bool
	save         bool
}

func buildEstimateCommand(root *rootOptions) *cobra.Command {
	var o estimateOptions

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate cost and recommended price of a job file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd, root, o)
		},
	}

	cmd.Flags().StringVarP(&o.jobFile, "file", "f", "", "YAML job file")
	cmd.Flags().StringVar(&o.settingsFile, "settings", "", "YAML shop settings file (default: database)")
	cmd.Flags().StringVar(&o.rulesFile, "rules", "", "YAML price rules file (default: PRICE_RULES_PATH)")
	cmd.Flags().Float64Var(&o.margin, "margin", 0, "desired margin percent, overrides the job file")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "print the estimate as JSON")
	cmd.Flags().BoolVar(&o.save, "save", false, "store the estimate as a quote in the database")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runEstimate(cmd *cobra.Command, root *rootOptions, o estimateOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := root.config()
	logger := root.logger(cfg, cmd.ErrOrStderr())

	job, err := readJobFile(o.jobFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("margin") {
		job.MarginPercent = o.margin
	}

	rulesPath := o.rulesFile
	if rulesPath == "" {
		rulesPath = cfg.PriceRulesPath
	}
	priceRules, err := rules.Load(rulesPath)
	if err != nil {
		return err
	}

	deps := quoting.Deps{Rules: priceRules, Logger: logger, Currency: settings.DefaultCurrency}

	if o.settingsFile != "" && o.save {
		return fmt.Errorf("--save reads settings from the database and cannot be combined with --settings")
	}

	if o.settingsFile != "" {
		src, err := readSettingsFile(o.settingsFile)
		if err != nil {
			return err
		}
		deps.Settings = src
	} else {
		database, err := openMigrated(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		deps.Settings = settings.NewStore(database)
		deps.Quotes = quotes.NewStore(database)
	}

	estimator := quoting.NewEstimator(deps)
	out := cmd.OutOrStdout()

	if o.save {
		q, err := estimator.Save(ctx, metrics.SourceCLI, job.Title, job.Notes, job.Request)
		if err != nil {
			return err
		}
		if o.asJSON {
			return writeJSON(out, q)
		}
		_, err = io.WriteString(out, quotes.Text(q))
		return err
	}

	est, err := estimator.Estimate(ctx, metrics.SourceCLI, job.Request)
	if err != nil {
		return err
	}
	if o.asJSON {
		return writeJSON(out, est)
	}
	_, err = io.WriteString(out, quotes.Text(quoting.QuoteFromEstimate(job.Title, job.Notes, est)))
	return err
}

func buildMigrateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg := root.config()

			database, err := openMigrated(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			version, err := migrations.Version(database)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database %s at version %d\n", cfg.DBPath, version)
			return nil
		},
	}
}

func buildSeedCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the admin user and default catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg := root.config()

			database, err := openMigrated(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			stats, err := seed.Run(ctx, database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seed inserted %d rows\n", stats.Inserts)
			return nil
		},
	}
}

func openMigrated(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func readJobFile(path string) (JobFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return JobFile{}, fmt.Errorf("read job file: %w", err)
	}
	var job JobFile
	if err := yaml.Unmarshal(raw, &job); err != nil {
		return JobFile{}, fmt.Errorf("parse job file: %w", err)
	}
	return job, nil
}

func readSettingsFile(path string) (*SettingsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	var s SettingsFile
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("validate settings file: %w", err)
	}
	return &s, nil
}

// validate applies the same checks the admin API runs before storing settings.
func (f *SettingsFile) validate() error {
	if err := settings.ValidateShop(settings.Shop{
		ElectricityPricePerKwh:  f.ElectricityPricePerKwh,
		FilamentCostPerKg:       f.FilamentCostPerKg,
		ResinCostPerKg:          f.ResinCostPerKg,
		HumanHourlyRate:         f.HumanHourlyRate,
		HumanHourlyRatePainting: f.HumanHourlyRatePainting,
		HumanHourlyRateModeling: f.HumanHourlyRateModeling,
		StartupFee:              f.StartupFee,
	}); err != nil {
		return err
	}
	for i, m := range f.Machines {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		err := settings.ValidateMachine(settings.Machine{ID: m.ID, Name: name, Type: m.Type, HourlyRate: m.HourlyRate})
		if err != nil {
			return fmt.Errorf("machines[%d]: %w", i, err)
		}
	}
	for i, c := range f.Consumables {
		name := c.Name
		if name == "" {
			name = strconv.FormatInt(c.ID, 10)
		}
		if err := settings.ValidateConsumable(settings.Consumable{ID: c.ID, Name: name, FlatCost: c.FlatCost}); err != nil {
			return fmt.Errorf("consumables[%d]: %w", i, err)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
