package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"epitrack/internal/errors"
	"epitrack/pkg/contracts/domain"
)

// SummaryWorkbookName is the file name of the Excel summary report.
const SummaryWorkbookName = "summary.xlsx"

// ExcelRenderer writes a single summary workbook with one sheet per table.
type ExcelRenderer struct {
	dir    string
	logger *slog.Logger
}

// NewExcelRenderer creates an Excel renderer writing into dir.
func NewExcelRenderer(dir string, logger *slog.Logger) *ExcelRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelRenderer{dir: dir, logger: logger}
}

// RenderSummary writes the country aggregates, both rankings and the daily
// totals series into one workbook.
func (r *ExcelRenderer) RenderSummary(
	ctx context.Context,
	aggregates []domain.CountryAggregate,
	topConfirmed []domain.CountryCount,
	topMortality []domain.CountryRate,
	dailyTotals []domain.DailyTotal,
) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return errors.NewStorageError("failed to create output directory", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := r.writeAggregatesSheet(f, aggregates); err != nil {
		return err
	}
	if err := r.writeTopConfirmedSheet(f, topConfirmed); err != nil {
		return err
	}
	if err := r.writeTopMortalitySheet(f, topMortality); err != nil {
		return err
	}
	if err := r.writeDailyTotalsSheet(f, dailyTotals); err != nil {
		return err
	}

	// Drop the default sheet created by excelize
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.NewStorageError("failed to remove default sheet", err)
	}

	fullPath := filepath.Join(r.dir, SummaryWorkbookName)
	if err := f.SaveAs(fullPath); err != nil {
		return errors.NewStorageError("failed to save summary workbook", err)
	}

	r.logger.InfoContext(ctx, "wrote summary workbook",
		slog.String("path", fullPath),
		slog.Int("countries", len(aggregates)),
		slog.Int("daily_totals", len(dailyTotals)))
	return nil
}

func (r *ExcelRenderer) writeAggregatesSheet(f *excelize.File, aggregates []domain.CountryAggregate) error {
	const sheet = "Countries"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewStorageError("failed to create sheet", err)
	}

	if err := setRow(f, sheet, 1, []interface{}{"Country", "TotalConfirmed", "TotalDeaths", "MortalityRate"}); err != nil {
		return err
	}
	for i, a := range aggregates {
		row := []interface{}{a.Country, a.TotalConfirmed, a.TotalDeaths, a.MortalityRate}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExcelRenderer) writeTopConfirmedSheet(f *excelize.File, ranking []domain.CountryCount) error {
	const sheet = "Top Confirmed"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewStorageError("failed to create sheet", err)
	}

	if err := setRow(f, sheet, 1, []interface{}{"Rank", "Country", "TotalConfirmed"}); err != nil {
		return err
	}
	for i, entry := range ranking {
		row := []interface{}{i + 1, entry.Country, entry.TotalConfirmed}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExcelRenderer) writeTopMortalitySheet(f *excelize.File, ranking []domain.CountryRate) error {
	const sheet = "Top Mortality"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewStorageError("failed to create sheet", err)
	}

	if err := setRow(f, sheet, 1, []interface{}{"Rank", "Country", "MortalityRate"}); err != nil {
		return err
	}
	for i, entry := range ranking {
		row := []interface{}{i + 1, entry.Country, entry.MortalityRate}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExcelRenderer) writeDailyTotalsSheet(f *excelize.File, totals []domain.DailyTotal) error {
	const sheet = "Daily Totals"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewStorageError("failed to create sheet", err)
	}

	if err := setRow(f, sheet, 1, []interface{}{"Date", "Confirmed", "Deaths", "MortalityRate"}); err != nil {
		return err
	}
	for i, t := range totals {
		row := []interface{}{t.Date.Format(dateFormat), t.Confirmed, t.Deaths, t.MortalityRate}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

// setRow writes one row starting at column A of the given 1-based row index.
func setRow(f *excelize.File, sheet string, rowIndex int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowIndex)
	if err != nil {
		return errors.NewStorageError("failed to compute cell coordinates", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to write row %d of %s", rowIndex, sheet), err)
	}
	return nil
}
