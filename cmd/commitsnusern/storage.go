package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonmartinstorm/commitsnusern/internal/config"
	"github.com/jonmartinstorm/commitsnusern/internal/csvwriter"
	"github.com/jonmartinstorm/commitsnusern/internal/logger"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Oppretter tabellen i valgt lagring uten å hente noe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadStorageConfig(v)
			if err != nil {
				return err
			}
			logger.SetDebug(cfg.Debug)

			_, closeSinks, err := openSinks(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			closeSinks()
			slog.Info("Lagring klar", "storage", cfg.Storage)
			return nil
		},
	}
}

func newImportCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Leser en tidligere skrevet CSV og skriver radene til valgt lagring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadStorageConfig(v)
			if err != nil {
				return err
			}
			logger.SetDebug(cfg.Debug)

			records, err := csvwriter.ReadFile(cfg.OutPath)
			if err != nil {
				return err
			}

			sinks, closeSinks, err := openSinks(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeSinks()

			snapshot := time.Now().UTC()
			for _, s := range sinks {
				if err := s.WriteRecords(cmd.Context(), records, snapshot); err != nil {
					return err
				}
			}
			slog.Info("Ferdig importert!", "fil", cfg.OutPath, "antall", len(records), "storage", cfg.Storage)
			return nil
		},
	}
}

func loadStorageConfig(v *viper.Viper) (config.Config, error) {
	cfg, err := config.LoadAndValidateConfig(v.GetString)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Storage == config.StorageNone {
		return config.Config{}, &config.ConfigurationError{Field: config.KeyStorage, Msg: "må være satt til postgres eller bigquery"}
	}
	return cfg, nil
}
