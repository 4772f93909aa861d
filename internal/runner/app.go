package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonmartinstorm/commitsnusern/internal/config"
	"github.com/jonmartinstorm/commitsnusern/internal/logger"
	"github.com/jonmartinstorm/commitsnusern/internal/models"
	"github.com/jonmartinstorm/commitsnusern/internal/normalizer"
	"github.com/jonmartinstorm/commitsnusern/internal/search"
)

type Collector interface {
	Collect(ctx context.Context) (*search.Result, error)
}

type Sink interface {
	Name() string
	WriteRecords(ctx context.Context, records []models.CommitRecord, snapshot time.Time) error
}

type App struct {
	Cfg       config.Config
	Collector Collector
	CSV       Sink
	Sinks     []Sink
	Now       func() time.Time
}

func NewApp(cfg config.Config, collector Collector, csv Sink, sinks ...Sink) *App {
	return &App{
		Cfg:       cfg,
		Collector: collector,
		CSV:       csv,
		Sinks:     sinks,
		Now:       time.Now,
	}
}

// Run samler inn, normaliserer og skriver til CSV før de øvrige lagene får de samme radene.
// Feil fra søke-APIet stopper bare innsamlingen; feil ved skriving avbryter kjøringen.
func (a *App) Run(ctx context.Context) error {
	snapshot := a.Now().UTC()

	res, err := a.Collector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("innsamling feilet: %w", err)
	}

	records, stats := normalizer.Normalize(res.Items)
	slog.Info("Normalisert",
		"rå", stats.Input,
		"unike", stats.Emitted,
		"duplikater", stats.Duplicates,
		"ugyldige", stats.Malformed,
		"stopp", res.Stop,
		logger.Category(logger.CategoryProgress))

	if err := a.CSV.WriteRecords(ctx, records, snapshot); err != nil {
		return fmt.Errorf("%s: %w", a.CSV.Name(), err)
	}

	if len(a.Sinks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range a.Sinks {
		g.Go(func() error {
			if err := s.WriteRecords(gctx, records, snapshot); err != nil {
				slog.Error("Skriving feilet", "sink", s.Name(), "error", err)
				return fmt.Errorf("%s: %w", s.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func RunAppSafe(ctx context.Context, app *App) error {
	start := time.Now()

	err := app.Run(ctx)
	if err != nil {
		slog.Debug("Runner feilet", "error", err)
		return err
	}

	LogMemoryStats()
	slog.Info("Ferdig!", "varighet", time.Since(start).String())
	return nil
}

func LogMemoryStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	slog.Debug("Minnebruk",
		"alloc", ByteSize(m.Alloc),
		"totalAlloc", ByteSize(m.TotalAlloc),
		"sys", ByteSize(m.Sys),
		"numGC", m.NumGC)
}

func ByteSize(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := unit, 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
