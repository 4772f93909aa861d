package dbwriter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/jonmartinstorm/commitsnusern/internal/models"
)

// Schema holdes lik db/schema.sql.
const Schema = `
CREATE TABLE IF NOT EXISTS commit_records (
    repo         TEXT        NOT NULL,
    sha          TEXT        NOT NULL,
    parent_sha   TEXT        NOT NULL DEFAULT '',
    author       TEXT        NOT NULL,
    collected_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (repo, sha)
);`

const insertRecord = `
INSERT INTO commit_records (repo, sha, parent_sha, author, collected_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (repo, sha) DO NOTHING`

type PostgresWriter struct {
	DB *sql.DB
}

func NewPostgresWriter(postgresdsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", postgresdsn)
	if err != nil {
		slog.Error("Kunne ikke åpne PostgreSQL-database", "error", err)
		return nil, fmt.Errorf("kunne ikke åpne PostgreSQL-database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &PostgresWriter{
		DB: db,
	}, nil
}

func (p *PostgresWriter) Name() string {
	return "postgres"
}

func (p *PostgresWriter) Ping(ctx context.Context) error {
	if err := p.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("DB ping-feil: %w", err)
	}
	slog.Info("DB-tilkobling OK")
	return nil
}

func (p *PostgresWriter) EnsureSchema(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("kunne ikke opprette tabell: %w", describe(err))
	}
	return nil
}

// WriteRecords lagrer alle rader i én transaksjon. Eksisterende (repo, sha) beholdes.
func (p *PostgresWriter) WriteRecords(ctx context.Context, records []models.CommitRecord, snapshot time.Time) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start tx: %w", err)
	}

	inserted := int64(0)
	for _, r := range records {
		res, err := tx.ExecContext(ctx, insertRecord, r.Repo, r.SHA, r.ParentSHA, r.Author, snapshot)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("insert feilet: %v (rollback feilet: %w)", describe(err), rbErr)
			}
			return fmt.Errorf("insert feilet for %s@%s: %w", r.Repo, r.SHA, describe(err))
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("Commit-feil – ruller tilbake", "error", err)
		return fmt.Errorf("commit failed: %w", err)
	}

	slog.Info("Skrevet til PostgreSQL", "nye", inserted, "totalt", len(records))
	return nil
}

func (p *PostgresWriter) Close() error {
	return p.DB.Close()
}

// describe legger Postgres-feilkoden inn i feilmeldingen når den finnes.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (kode %s)", err, pqErr.Code)
	}
	return err
}
