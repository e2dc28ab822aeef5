// Package report runs the full transformation once: reshape both sources,
// join, derive the summary tables, and hand everything to the configured
// renderers.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goerrors "errors"

	"epitrack/internal/errors"
	"epitrack/internal/pipeline"
	"epitrack/internal/reshape"
	"epitrack/pkg/contracts/domain"
)

// Renderer consumes the pipeline's outputs and produces report artifacts.
// Implementations never mutate what they are handed.
type Renderer interface {
	RenderJoined(ctx context.Context, records []domain.JoinedRecord) error
	RenderAggregates(ctx context.Context, aggregates []domain.CountryAggregate) error
	RenderTopConfirmed(ctx context.Context, ranking []domain.CountryCount) error
	RenderTopMortality(ctx context.Context, ranking []domain.CountryRate) error
	RenderDailyTotals(ctx context.Context, totals []domain.DailyTotal) error
}

// SummaryRenderer renders all summary tables into a single artifact.
type SummaryRenderer interface {
	RenderSummary(ctx context.Context,
		aggregates []domain.CountryAggregate,
		topConfirmed []domain.CountryCount,
		topMortality []domain.CountryRate,
		dailyTotals []domain.DailyTotal) error
}

// Config holds the report parameters.
type Config struct {
	TopN         int       // ranking length for both rankings
	MinConfirmed int64     // minimum total confirmed for the mortality ranking
	SnapshotDate time.Time // zero value means "latest date in the data"
}

// Service builds one report from two wide source tables.
type Service struct {
	logger    *slog.Logger
	config    Config
	renderers []Renderer
	summary   SummaryRenderer
}

// NewService creates a report service. Both renderer arguments may be nil
// or empty, in which case Run only computes the Result.
func NewService(logger *slog.Logger, config Config, renderers []Renderer, summary SummaryRenderer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TopN <= 0 {
		config.TopN = 10
	}
	return &Service{
		logger:    logger,
		config:    config,
		renderers: renderers,
		summary:   summary,
	}
}

// Result collects every table the report derives.
type Result struct {
	Joined       []domain.JoinedRecord
	Aggregates   []domain.CountryAggregate
	Snapshot     []domain.JoinedRecord
	SnapshotDate time.Time
	TopConfirmed []domain.CountryCount
	TopMortality []domain.CountryRate
	DailyTotals  []domain.DailyTotal
}

// Run executes the whole pipeline over the two wide tables. Reshape failures
// abort before the join; an empty snapshot is reported and carried as an
// empty table, matching the recoverable-empty-result policy.
func (s *Service) Run(ctx context.Context, confirmedWide, deathsWide *reshape.WideTable) (*Result, error) {
	confirmed, err := reshape.Reshape(confirmedWide, "confirmed")
	if err != nil {
		return nil, fmt.Errorf("reshape confirmed table: %w", err)
	}
	deaths, err := reshape.Reshape(deathsWide, "deaths")
	if err != nil {
		return nil, fmt.Errorf("reshape deaths table: %w", err)
	}

	s.logger.InfoContext(ctx, "reshaped source tables",
		slog.Int("confirmed_observations", len(confirmed)),
		slog.Int("deaths_observations", len(deaths)))

	joined := pipeline.Join(confirmed, deaths)
	s.logger.InfoContext(ctx, "joined observation sets",
		slog.Int("joined_records", len(joined)))

	result := &Result{
		Joined:       joined,
		Aggregates:   pipeline.AggregateByCountry(joined),
		TopConfirmed: pipeline.TopByConfirmed(joined, s.config.TopN),
		TopMortality: pipeline.TopByMortalityRate(joined, s.config.TopN, s.config.MinConfirmed),
		DailyTotals:  pipeline.DailyTotals(joined),
	}

	result.SnapshotDate = s.config.SnapshotDate
	if result.SnapshotDate.IsZero() {
		if latest, ok := pipeline.LatestDate(joined); ok {
			result.SnapshotDate = latest
		}
	}
	if !result.SnapshotDate.IsZero() {
		snapshot, err := pipeline.Snapshot(joined, result.SnapshotDate)
		if err != nil {
			if !goerrors.Is(err, errors.ErrEmptyResult) {
				return nil, fmt.Errorf("snapshot: %w", err)
			}
			s.logger.WarnContext(ctx, "snapshot matched no records",
				slog.String("date", result.SnapshotDate.Format("2006-01-02")))
		}
		result.Snapshot = snapshot
	}

	if err := s.render(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

// render hands the result to every configured renderer.
func (s *Service) render(ctx context.Context, result *Result) error {
	for _, r := range s.renderers {
		if err := r.RenderJoined(ctx, result.Joined); err != nil {
			return fmt.Errorf("render joined records: %w", err)
		}
		if err := r.RenderAggregates(ctx, result.Aggregates); err != nil {
			return fmt.Errorf("render aggregates: %w", err)
		}
		if err := r.RenderTopConfirmed(ctx, result.TopConfirmed); err != nil {
			return fmt.Errorf("render confirmed ranking: %w", err)
		}
		if err := r.RenderTopMortality(ctx, result.TopMortality); err != nil {
			return fmt.Errorf("render mortality ranking: %w", err)
		}
		if err := r.RenderDailyTotals(ctx, result.DailyTotals); err != nil {
			return fmt.Errorf("render daily totals: %w", err)
		}
	}

	if s.summary != nil {
		if err := s.summary.RenderSummary(ctx, result.Aggregates, result.TopConfirmed, result.TopMortality, result.DailyTotals); err != nil {
			return fmt.Errorf("render summary workbook: %w", err)
		}
	}

	return nil
}
