package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jonmartinstorm/commitsnusern/internal/bqwriter"
	"github.com/jonmartinstorm/commitsnusern/internal/config"
	"github.com/jonmartinstorm/commitsnusern/internal/credentials"
	"github.com/jonmartinstorm/commitsnusern/internal/csvwriter"
	"github.com/jonmartinstorm/commitsnusern/internal/dbwriter"
	"github.com/jonmartinstorm/commitsnusern/internal/fetcher"
	"github.com/jonmartinstorm/commitsnusern/internal/logger"
	"github.com/jonmartinstorm/commitsnusern/internal/runner"
	"github.com/jonmartinstorm/commitsnusern/internal/search"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 2
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "commitsnusern",
		Short: "Henter commits som nevner ChatGPT fra GitHubs søke-API og skriver dem til CSV",
		Long: `commitsnusern søker i GitHubs commit-søk etter "` + search.Query + `",
roterer mellom tokens fra en fil, tåler rate limits og nettverksbrudd,
og skriver unike (repo, sha, parent_sha, author)-rader til CSV.
Resultatet kan i tillegg skrives til PostgreSQL eller BigQuery.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadAndValidateConfig(v.GetString)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.Int(config.KeyMaxPages, config.DefaultMaxPages, "maks antall sider som hentes")
	flags.String(config.KeyTokens, config.DefaultTokens, "fil med ett GitHub-token per linje")
	flags.String(config.KeyAPIURL, config.DefaultAPIURL, "base-URL for GitHub-APIet")
	flags.Duration(config.KeyCooldown, config.DefaultCooldown, "pause etter rate limit (403)")
	flags.Int(config.KeyMaxRateLimitRetries, 0, "maks antall nedkjølinger per side, 0 er ubegrenset")
	flags.Duration(config.KeyPageDelay, config.DefaultPageDelay, "pause etter hver side før neste hentes")
	flags.Int(config.KeyRequestsPerMinute, 0, "proaktiv grense for forespørsler per minutt, 0 er av")

	persistent := cmd.PersistentFlags()
	persistent.String(config.KeyOut, config.DefaultOut, "sti til CSV-filen")
	persistent.Bool(config.KeyDebug, false, "slå på debug-logging")
	persistent.String(config.KeyStorage, "", "ekstra lagring: postgres eller bigquery")
	persistent.String(config.KeyPostgresDSN, "", "DSN for PostgreSQL")
	persistent.String(config.KeyBQProjectID, "", "GCP-prosjekt for BigQuery")
	persistent.String(config.KeyBQDataset, "", "BigQuery-datasett")
	persistent.String(config.KeyBQTable, "", "BigQuery-tabell")
	persistent.String(config.KeyBQCredentials, "", "fil med GCP-credentials")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &config.ConfigurationError{Field: "flags", Msg: "ugyldig flagg", Err: err}
	})

	bindFlags(v, flags)
	bindFlags(v, persistent)

	cmd.AddCommand(newMigrateCmd(v), newImportCmd(v))
	return cmd
}

// bindFlags lar hvert flagg settes fra miljøet med samme navn i store bokstaver og
// understrek, mens et eksplisitt flagg vinner.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

func run(ctx context.Context, cfg config.Config) error {
	logger.SetDebug(cfg.Debug)

	pool, err := credentials.LoadFile(cfg.TokensFile)
	if err != nil {
		return err
	}

	sinks, closeSinks, err := openSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	f := fetcher.NewFetcher(pool,
		fetcher.WithRateLimitCooldown(cfg.RateLimitCooldown),
		fetcher.WithMaxRateLimitRetries(cfg.MaxRateLimitRetries),
		fetcher.WithRequestsPerMinute(cfg.RequestsPerMinute),
	)
	collector := search.NewCollector(f, cfg.APIURL, cfg.MaxPages, cfg.PageDelay)

	app := runner.NewApp(cfg, collector, csvwriter.NewCSVWriter(cfg.OutPath), sinks...)
	return runner.RunAppSafe(ctx, app)
}

func openSinks(ctx context.Context, cfg config.Config) ([]runner.Sink, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		w, err := dbwriter.NewPostgresWriter(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := w.Ping(ctx); err != nil {
			_ = w.Close()
			return nil, nil, fmt.Errorf("klarte ikke å nå databasen: %w", err)
		}
		if err := w.EnsureSchema(ctx); err != nil {
			_ = w.Close()
			return nil, nil, err
		}
		return []runner.Sink{w}, closer(w.Name(), w.Close), nil

	case config.StorageBigQuery:
		w, err := bqwriter.NewBigQueryWriter(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return []runner.Sink{w}, closer(w.Name(), w.Close), nil
	}
	return nil, func() {}, nil
}

func closer(name string, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			slog.Warn("Klarte ikke å lukke", "sink", name, "error", err)
		}
	}
}

// runCommand kjører cmd og gir exit-koden. Avbrudd via signal logges.
func runCommand(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if ctx.Err() != nil {
		slog.Info("Signal mottatt – innhentingen ble avbrutt")
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrConfiguration):
		slog.Error("Ugyldig konfigurasjon", "error", err)
		return exitConfigError
	default:
		slog.Error("Applikasjonen feilet", "error", err)
		return exitFailure
	}
}
