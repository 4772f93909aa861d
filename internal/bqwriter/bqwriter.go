package bqwriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jonmartinstorm/commitsnusern/internal/config"
	"github.com/jonmartinstorm/commitsnusern/internal/models"
)

// batchSize holder hver streaming-insert godt under BigQuerys grense på 10 MB.
const batchSize = 500

type BigQueryWriter struct {
	Client  *bigquery.Client
	Dataset string
	Table   string
}

func NewBigQueryWriter(ctx context.Context, cfg config.Config) (*BigQueryWriter, error) {
	var opts []option.ClientOption
	if cfg.BQCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.BQCredentials))
	}

	client, err := bigquery.NewClient(ctx, cfg.BQProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("kan ikke opprette BigQuery-klient: %w", err)
	}

	if err := ensureTableExists(ctx, client, cfg.BQDataset, cfg.BQTable, BGCommitRecord{}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("kunne ikke sikre tabell %s: %w", cfg.BQTable, err)
	}

	return &BigQueryWriter{
		Client:  client,
		Dataset: cfg.BQDataset,
		Table:   cfg.BQTable,
	}, nil
}

func (w *BigQueryWriter) Name() string {
	return "bigquery"
}

func (w *BigQueryWriter) WriteRecords(ctx context.Context, records []models.CommitRecord, snapshot time.Time) error {
	rows := ConvertRecords(records, snapshot)
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if err := insert(ctx, w.Client, w.Dataset, w.Table, rows[start:end]); err != nil {
			return fmt.Errorf("%s insert failed: %w", w.Table, err)
		}
	}
	slog.Info("Skrevet til BigQuery", "tabell", w.Dataset+"."+w.Table, "antall", len(rows))
	return nil
}

func (w *BigQueryWriter) Close() error {
	return w.Client.Close()
}

func insert[T any](ctx context.Context, client *bigquery.Client, dataset, table string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	inserter := client.Dataset(dataset).Table(table).Inserter()
	return inserter.Put(ctx, rows)
}

// ==== Data-strukturer ====

type BGCommitRecord struct {
	Repo        string    `bigquery:"repo"`
	SHA         string    `bigquery:"sha"`
	ParentSHA   string    `bigquery:"parent_sha"`
	Author      string    `bigquery:"author"`
	CollectedAt time.Time `bigquery:"collected_at"`
}

// ==== Mapping-funksjoner ====

func ConvertRecords(records []models.CommitRecord, snapshot time.Time) []BGCommitRecord {
	result := make([]BGCommitRecord, 0, len(records))
	for _, r := range records {
		result = append(result, BGCommitRecord{
			Repo:        r.Repo,
			SHA:         r.SHA,
			ParentSHA:   r.ParentSHA,
			Author:      r.Author,
			CollectedAt: snapshot,
		})
	}
	return result
}

func ensureTableExists(ctx context.Context, client *bigquery.Client, dataset, table string, exampleStruct any) error {
	tbl := client.Dataset(dataset).Table(table)
	_, err := tbl.Metadata(ctx)
	if err == nil {
		return nil // tabellen finnes
	}

	if !IsNotFound(err) {
		return fmt.Errorf("feil ved henting av tabell-metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(exampleStruct)
	if err != nil {
		return fmt.Errorf("klarte ikke å generere schema for %s: %w", table, err)
	}

	if err := tbl.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return fmt.Errorf("klarte ikke å opprette tabell %s: %w", table, err)
	}

	slog.Info("Opprettet BigQuery-tabell", "tabell", dataset+"."+table)
	return nil
}

func IsNotFound(err error) bool {
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusNotFound
}
