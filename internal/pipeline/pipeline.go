// Package pipeline joins reshaped observation sets, derives per-record and
// grouped metrics, and answers ranking queries. Every operation is a
// stateless transformation: inputs are never mutated and each call returns a
// fresh slice, so independent calls are safe to run concurrently.
package pipeline

import (
	"sort"
	"time"

	"epitrack/internal/errors"
	"epitrack/pkg/contracts/domain"
)

// Join performs a full outer join of the confirmed and deaths observation
// sets on (province, country, date). A key present on only one side gets
// zero for the other metric: an absent counterpart observation is read as
// "nothing reported", not "unknown".
//
// Rows with confirmed <= 0 are dropped after the join, which removes
// pre-outbreak and data-gap rows from everything downstream and guarantees
// MortalityRate never divides by zero. Output order is the order keys are
// first encountered, confirmed side before deaths side.
func Join(confirmed, deaths []domain.Observation) []domain.JoinedRecord {
	confirmedByKey := make(map[domain.LocationDateKey]int64, len(confirmed))
	deathsByKey := make(map[domain.LocationDateKey]int64, len(deaths))

	// First-encounter key order keeps the output deterministic for a fixed
	// input sequence, which the ranking tie-break below relies on.
	keys := make([]domain.LocationDateKey, 0, len(confirmed))
	seen := make(map[domain.LocationDateKey]bool, len(confirmed))

	for _, obs := range confirmed {
		key := obs.Key()
		confirmedByKey[key] = obs.Value
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	for _, obs := range deaths {
		key := obs.Key()
		deathsByKey[key] = obs.Value
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	out := make([]domain.JoinedRecord, 0, len(keys))
	for _, key := range keys {
		c := confirmedByKey[key]
		if c <= 0 {
			continue
		}
		d := deathsByKey[key]
		out = append(out, domain.JoinedRecord{
			Province:      key.Province,
			Country:       key.Country,
			Date:          key.Date,
			Confirmed:     c,
			Deaths:        d,
			MortalityRate: float64(d) / float64(c),
		})
	}

	return out
}

// Snapshot filters records to an exact date. When nothing matches it returns
// an empty (non-nil) slice together with errors.ErrEmptyResult: callers that
// treat "no rows" as an ordinary empty table can ignore the error, callers
// that want to report it can errors.Is it. The condition never aborts the
// pipeline.
func Snapshot(records []domain.JoinedRecord, date time.Time) ([]domain.JoinedRecord, error) {
	out := make([]domain.JoinedRecord, 0)
	for _, r := range records {
		if r.Date.Equal(date) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return out, errors.ErrEmptyResult.WithContext("date", date.Format("2006-01-02"))
	}
	return out, nil
}

// RangeFilter keeps records whose date falls in [start, end], inclusive on
// both ends. A start after end is a caller error.
func RangeFilter(records []domain.JoinedRecord, start, end time.Time) ([]domain.JoinedRecord, error) {
	if start.After(end) {
		return nil, errors.ErrInvalidRange.
			WithContext("start", start.Format("2006-01-02")).
			WithContext("end", end.Format("2006-01-02"))
	}

	out := make([]domain.JoinedRecord, 0, len(records))
	for _, r := range records {
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// countryAccumulator folds per-record counts into per-country totals.
type countryAccumulator struct {
	confirmed int64
	deaths    int64
}

// foldByCountry builds the per-country accumulator map plus the order in
// which countries were first encountered. That order is the documented
// tie-break for both rankings: stable sort, ties resolved by input order.
func foldByCountry(records []domain.JoinedRecord) (map[string]*countryAccumulator, []string) {
	totals := make(map[string]*countryAccumulator)
	var order []string

	for _, r := range records {
		acc, ok := totals[r.Country]
		if !ok {
			acc = &countryAccumulator{}
			totals[r.Country] = acc
			order = append(order, r.Country)
		}
		acc.confirmed += r.Confirmed
		acc.deaths += r.Deaths
	}

	return totals, order
}

// TopByConfirmed groups the supplied records by country, sums confirmed
// counts and returns the n highest totals in descending order. Fewer than n
// distinct countries returns all of them.
func TopByConfirmed(records []domain.JoinedRecord, n int) []domain.CountryCount {
	totals, order := foldByCountry(records)

	out := make([]domain.CountryCount, 0, len(order))
	for _, country := range order {
		out = append(out, domain.CountryCount{
			Country:        country,
			TotalConfirmed: totals[country].confirmed,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalConfirmed > out[j].TotalConfirmed
	})

	if n < len(out) {
		out = out[:n]
	}
	return out
}

// TopByMortalityRate groups the supplied records by country over the whole
// record set, sums confirmed and deaths independently, and ranks countries
// by totalDeaths/totalConfirmed in descending order. Countries whose total
// confirmed count is below minTotalConfirmed are excluded before ranking,
// which keeps small-sample countries from dominating the result.
//
// Join already strips confirmed <= 0 rows, so a surviving country total is
// always positive and the division is defined; the zero-total case can only
// arise if that upstream filter is bypassed, and is not re-checked here.
func TopByMortalityRate(records []domain.JoinedRecord, n int, minTotalConfirmed int64) []domain.CountryRate {
	totals, order := foldByCountry(records)

	out := make([]domain.CountryRate, 0, len(order))
	for _, country := range order {
		acc := totals[country]
		if acc.confirmed < minTotalConfirmed {
			continue
		}
		out = append(out, domain.CountryRate{
			Country:       country,
			MortalityRate: float64(acc.deaths) / float64(acc.confirmed),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MortalityRate > out[j].MortalityRate
	})

	if n < len(out) {
		out = out[:n]
	}
	return out
}

// AggregateByCountry projects the records onto one aggregate per country,
// collapsing province granularity. Sorted by country name for stable output.
func AggregateByCountry(records []domain.JoinedRecord) []domain.CountryAggregate {
	totals, order := foldByCountry(records)

	out := make([]domain.CountryAggregate, 0, len(order))
	for _, country := range order {
		acc := totals[country]
		out = append(out, domain.CountryAggregate{
			Country:        country,
			TotalConfirmed: acc.confirmed,
			TotalDeaths:    acc.deaths,
			MortalityRate:  float64(acc.deaths) / float64(acc.confirmed),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Country < out[j].Country
	})

	return out
}

// DailyTotals sums confirmed and deaths across all locations per date,
// returning the world-wide cumulative series in ascending date order.
func DailyTotals(records []domain.JoinedRecord) []domain.DailyTotal {
	type acc struct {
		confirmed int64
		deaths    int64
	}
	byDate := make(map[time.Time]*acc)

	for _, r := range records {
		a, ok := byDate[r.Date]
		if !ok {
			a = &acc{}
			byDate[r.Date] = a
		}
		a.confirmed += r.Confirmed
		a.deaths += r.Deaths
	}

	out := make([]domain.DailyTotal, 0, len(byDate))
	for date, a := range byDate {
		total := domain.DailyTotal{
			Date:      date,
			Confirmed: a.confirmed,
			Deaths:    a.deaths,
		}
		if a.confirmed > 0 {
			total.MortalityRate = float64(a.deaths) / float64(a.confirmed)
		}
		out = append(out, total)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	return out
}

// LatestDate returns the most recent date present in the record set. The
// second return value is false for an empty set.
func LatestDate(records []domain.JoinedRecord) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, r := range records {
		if !found || r.Date.After(latest) {
			latest = r.Date
			found = true
		}
	}
	return latest, found
}
