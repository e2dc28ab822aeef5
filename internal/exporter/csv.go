// Package exporter renders pipeline outputs to files. It only ever reads
// the records and aggregates handed to it; nothing is mutated.
package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"epitrack/internal/errors"
	"epitrack/pkg/contracts/domain"
)

const dateFormat = "2006-01-02"

// CSVRenderer writes pipeline outputs as CSV files under a single directory.
type CSVRenderer struct {
	dir    string
	logger *slog.Logger
}

// NewCSVRenderer creates a CSV renderer writing into dir.
func NewCSVRenderer(dir string, logger *slog.Logger) *CSVRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVRenderer{dir: dir, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// writeCSV writes data to a CSV file with the given options
func (r *CSVRenderer) writeCSV(name string, options WriteOptions) error {
	fullPath := filepath.Join(r.dir, name)

	r.logger.Info("writing CSV file",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return errors.NewStorageError("failed to create output directory", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return errors.NewStorageError("failed to create CSV file", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return errors.NewStorageError("failed to write BOM", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return errors.NewStorageError("failed to write CSV header row", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return errors.NewStorageError(fmt.Sprintf("failed to write CSV record %d", i), err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// RenderJoined streams the full joined record set to joined.csv. The joined
// table is the largest artifact, so rows go out one at a time instead of
// being materialized as strings first.
func (r *CSVRenderer) RenderJoined(ctx context.Context, records []domain.JoinedRecord) error {
	sw, err := r.createStreamWriter("joined.csv",
		[]string{"Province", "Country", "Date", "Confirmed", "Deaths", "MortalityRate"})
	if err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			rec.Province,
			rec.Country,
			rec.Date.Format(dateFormat),
			formatInt(rec.Confirmed),
			formatInt(rec.Deaths),
			formatRate(rec.MortalityRate),
		}
		if err := sw.WriteRecord(row); err != nil {
			sw.Close()
			return errors.NewStorageError("failed to write joined record", err)
		}
	}

	if err := sw.Close(); err != nil {
		return errors.NewStorageError("failed to finalize joined.csv", err)
	}

	r.logger.InfoContext(ctx, "wrote joined records",
		slog.String("file", "joined.csv"),
		slog.Int("record_count", len(records)))
	return nil
}

// RenderAggregates writes one row per country to country_aggregates.csv.
func (r *CSVRenderer) RenderAggregates(ctx context.Context, aggregates []domain.CountryAggregate) error {
	rows := make([][]string, 0, len(aggregates))
	for _, a := range aggregates {
		rows = append(rows, []string{
			a.Country,
			formatInt(a.TotalConfirmed),
			formatInt(a.TotalDeaths),
			formatRate(a.MortalityRate),
		})
	}

	return r.writeCSV("country_aggregates.csv", WriteOptions{
		Headers:   []string{"Country", "TotalConfirmed", "TotalDeaths", "MortalityRate"},
		Records:   rows,
		BOMPrefix: true,
	})
}

// RenderTopConfirmed writes the confirmed-cases ranking.
func (r *CSVRenderer) RenderTopConfirmed(ctx context.Context, ranking []domain.CountryCount) error {
	rows := make([][]string, 0, len(ranking))
	for i, entry := range ranking {
		rows = append(rows, []string{
			formatInt(int64(i + 1)),
			entry.Country,
			formatInt(entry.TotalConfirmed),
		})
	}

	return r.writeCSV("top_confirmed.csv", WriteOptions{
		Headers:   []string{"Rank", "Country", "TotalConfirmed"},
		Records:   rows,
		BOMPrefix: true,
	})
}

// RenderTopMortality writes the mortality-rate ranking.
func (r *CSVRenderer) RenderTopMortality(ctx context.Context, ranking []domain.CountryRate) error {
	rows := make([][]string, 0, len(ranking))
	for i, entry := range ranking {
		rows = append(rows, []string{
			formatInt(int64(i + 1)),
			entry.Country,
			formatRate(entry.MortalityRate),
		})
	}

	return r.writeCSV("top_mortality.csv", WriteOptions{
		Headers:   []string{"Rank", "Country", "MortalityRate"},
		Records:   rows,
		BOMPrefix: true,
	})
}

// RenderDailyTotals writes the world-wide cumulative series.
func (r *CSVRenderer) RenderDailyTotals(ctx context.Context, totals []domain.DailyTotal) error {
	rows := make([][]string, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, []string{
			t.Date.Format(dateFormat),
			formatInt(t.Confirmed),
			formatInt(t.Deaths),
			formatRate(t.MortalityRate),
		})
	}

	return r.writeCSV("daily_totals.csv", WriteOptions{
		Headers:   []string{"Date", "Confirmed", "Deaths", "MortalityRate"},
		Records:   rows,
		BOMPrefix: true,
	})
}

// StreamWriter provides streaming CSV writing for large outputs
type StreamWriter struct {
	file   *os.File
	writer *csv.Writer
}

// createStreamWriter creates a new streaming CSV writer under the output dir
func (r *CSVRenderer) createStreamWriter(name string, headers []string) (*StreamWriter, error) {
	fullPath := filepath.Join(r.dir, name)

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, errors.NewStorageError("failed to create output directory", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, errors.NewStorageError("failed to create CSV file", err)
	}

	// BOM helps Excel recognize UTF-8
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		file.Close()
		return nil, errors.NewStorageError("failed to write BOM", err)
	}

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, errors.NewStorageError("failed to write headers", err)
		}
	}

	return &StreamWriter{file: file, writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
