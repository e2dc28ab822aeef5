package exporter

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epitrack/pkg/contracts/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// readCSVFile reads a rendered CSV back, checking and stripping the BOM.
func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "\xEF\xBB\xBF"), "expected UTF-8 BOM prefix")

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), "\xEF\xBB\xBF")))
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVRenderer_RenderJoined(t *testing.T) {
	dir := t.TempDir()
	renderer := NewCSVRenderer(dir, slog.Default())

	records := []domain.JoinedRecord{
		{Province: "Hubei", Country: "China", Date: date(2020, time.January, 22), Confirmed: 444, Deaths: 17, MortalityRate: 17.0 / 444.0},
		{Country: "Italy", Date: date(2020, time.March, 1), Confirmed: 10, Deaths: 1, MortalityRate: 0.1},
	}

	require.NoError(t, renderer.RenderJoined(context.Background(), records))

	rows := readCSVFile(t, filepath.Join(dir, "joined.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Province", "Country", "Date", "Confirmed", "Deaths", "MortalityRate"}, rows[0])
	assert.Equal(t, []string{"Hubei", "China", "2020-01-22", "444", "17", "0.0383"}, rows[1])
	assert.Equal(t, []string{"", "Italy", "2020-03-01", "10", "1", "0.1000"}, rows[2])
}

func TestCSVRenderer_RenderAggregates(t *testing.T) {
	dir := t.TempDir()
	renderer := NewCSVRenderer(dir, slog.Default())

	aggregates := []domain.CountryAggregate{
		{Country: "France", TotalConfirmed: 100, TotalDeaths: 5, MortalityRate: 0.05},
		{Country: "Italy", TotalConfirmed: 30, TotalDeaths: 3, MortalityRate: 0.1},
	}

	require.NoError(t, renderer.RenderAggregates(context.Background(), aggregates))

	rows := readCSVFile(t, filepath.Join(dir, "country_aggregates.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"France", "100", "5", "0.0500"}, rows[1])
	assert.Equal(t, []string{"Italy", "30", "3", "0.1000"}, rows[2])
}

func TestCSVRenderer_RenderRankings(t *testing.T) {
	dir := t.TempDir()
	renderer := NewCSVRenderer(dir, slog.Default())
	ctx := context.Background()

	require.NoError(t, renderer.RenderTopConfirmed(ctx, []domain.CountryCount{
		{Country: "France", TotalConfirmed: 100},
		{Country: "Italy", TotalConfirmed: 30},
	}))
	require.NoError(t, renderer.RenderTopMortality(ctx, []domain.CountryRate{
		{Country: "Italy", MortalityRate: 0.1},
	}))

	confirmed := readCSVFile(t, filepath.Join(dir, "top_confirmed.csv"))
	require.Len(t, confirmed, 3)
	assert.Equal(t, []string{"1", "France", "100"}, confirmed[1])
	assert.Equal(t, []string{"2", "Italy", "30"}, confirmed[2])

	mortality := readCSVFile(t, filepath.Join(dir, "top_mortality.csv"))
	require.Len(t, mortality, 2)
	assert.Equal(t, []string{"1", "Italy", "0.1000"}, mortality[1])
}

func TestCSVRenderer_RenderDailyTotals(t *testing.T) {
	dir := t.TempDir()
	renderer := NewCSVRenderer(dir, slog.Default())

	totals := []domain.DailyTotal{
		{Date: date(2020, time.March, 1), Confirmed: 110, Deaths: 6, MortalityRate: 6.0 / 110.0},
	}

	require.NoError(t, renderer.RenderDailyTotals(context.Background(), totals))

	rows := readCSVFile(t, filepath.Join(dir, "daily_totals.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2020-03-01", "110", "6", "0.0545"}, rows[1])
}

func TestCSVRenderer_EmptyInputStillWritesHeader(t *testing.T) {
	dir := t.TempDir()
	renderer := NewCSVRenderer(dir, slog.Default())

	require.NoError(t, renderer.RenderAggregates(context.Background(), nil))

	rows := readCSVFile(t, filepath.Join(dir, "country_aggregates.csv"))
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Country", "TotalConfirmed", "TotalDeaths", "MortalityRate"}, rows[0])
}

func TestCSVRenderer_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	renderer := NewCSVRenderer(dir, slog.Default())

	require.NoError(t, renderer.RenderDailyTotals(context.Background(), nil))

	_, err := os.Stat(filepath.Join(dir, "daily_totals.csv"))
	assert.NoError(t, err)
}
