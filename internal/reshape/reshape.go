// Package reshape converts wide time-series tables (one column per date)
// into long observation records (one row per location and date).
package reshape

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"epitrack/internal/errors"
	"epitrack/pkg/contracts/domain"
)

// DateLabelLayout is the fixed month/day/two-digit-year format used by the
// source's date column headers, e.g. "1/22/20".
const DateLabelLayout = "1/2/06"

// WideTable is a raw wide-form table: a header row naming each column and
// one row of cells per location. Cells hold unparsed strings straight from
// the source file.
type WideTable struct {
	Columns []string
	Rows    [][]string
}

// identity column headers recognized by name, lowercased
const (
	provinceHeader = "province/state"
	countryHeader  = "country/region"
	latHeader      = "lat"
	longHeader     = "long"
)

// ParseWideCSV reads a wide CSV table from r. Rows may be ragged; missing
// trailing cells are treated as empty by Reshape.
func ParseWideCSV(r io.Reader) (*WideTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParsingError("failed to read wide CSV table", err)
	}
	if len(records) == 0 {
		return nil, errors.NewParsingError("wide CSV table has no header row", nil)
	}

	header := records[0]
	if len(header) > 0 {
		// Strip a UTF-8 BOM if the file carries one
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	return &WideTable{Columns: header, Rows: records[1:]}, nil
}

// columnRoles maps each wide-table column index to its meaning.
type columnRoles struct {
	province int // -1 if absent
	country  int
	dates    []dateColumn
}

type dateColumn struct {
	index int
	date  time.Time
}

// Reshape converts one wide table into long observation records, one per
// (location row, date column) cell. valueColumn names the metric the cells
// hold (e.g. "confirmed") and is only used to label errors.
//
// Latitude/longitude columns are recognized by name and dropped. Every
// remaining non-identity column header must parse as a date in
// DateLabelLayout; the first one that does not aborts the whole call.
// Missing or empty cells become zero. The order of the returned slice is
// unspecified; callers must not rely on it.
func Reshape(wide *WideTable, valueColumn string) ([]domain.Observation, error) {
	roles, err := classifyColumns(wide.Columns, valueColumn)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Observation, 0, len(wide.Rows)*len(roles.dates))
	for _, row := range wide.Rows {
		province := cellAt(row, roles.province)
		country := cellAt(row, roles.country)
		for _, dc := range roles.dates {
			out = append(out, domain.Observation{
				Province: province,
				Country:  country,
				Date:     dc.date,
				Value:    parseCount(cellAt(row, dc.index)),
			})
		}
	}

	return out, nil
}

// classifyColumns assigns every header either an identity role or a parsed
// date. A non-identity header that does not parse as a date is a malformed
// date label.
func classifyColumns(columns []string, valueColumn string) (columnRoles, error) {
	roles := columnRoles{province: -1, country: -1}

	for i, col := range columns {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case provinceHeader:
			roles.province = i
		case countryHeader:
			roles.country = i
		case latHeader, longHeader:
			// coordinates are not carried into the long form
		default:
			date, err := time.Parse(DateLabelLayout, strings.TrimSpace(col))
			if err != nil {
				return columnRoles{}, errors.NewMalformedDateLabelError(col, err).
					WithContext("value_column", valueColumn)
			}
			roles.dates = append(roles.dates, dateColumn{index: i, date: date})
		}
	}

	if roles.country == -1 {
		return columnRoles{}, errors.NewParsingError("wide table is missing the country/region identity column", nil).
			WithContext("value_column", valueColumn)
	}

	return roles, nil
}

// cellAt returns the trimmed cell at index i, or "" when the row is too
// short or the column is absent.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseCount parses a cumulative count cell. Empty and unparseable cells
// count as zero reported; the source does not distinguish the two.
func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	v, _ := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	return v
}
