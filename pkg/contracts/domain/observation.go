package domain

import (
	"time"
)

// Observation is a single long-form data point: one cumulative count for one
// location on one date. Produced by reshaping a wide source table; the
// (Province, Country, Date) tuple is unique within one reshaped table.
type Observation struct {
	Province string    `json:"province,omitempty"`
	Country  string    `json:"country" validate:"required"`
	Date     time.Time `json:"date"`
	Value    int64     `json:"value" validate:"min=0"`
}

// Key returns the join key for this observation.
func (o Observation) Key() LocationDateKey {
	return LocationDateKey{Province: o.Province, Country: o.Country, Date: o.Date}
}

// LocationDateKey identifies one (location, date) cell across metric tables.
type LocationDateKey struct {
	Province string
	Country  string
	Date     time.Time
}

// JoinedRecord combines the confirmed and deaths counts for one location/date.
// MortalityRate is only meaningful when Confirmed > 0; the join drops rows
// where that does not hold before any rate is computed.
type JoinedRecord struct {
	Province      string    `json:"province,omitempty"`
	Country       string    `json:"country"`
	Date          time.Time `json:"date"`
	Confirmed     int64     `json:"confirmed"`
	Deaths        int64     `json:"deaths"`
	MortalityRate float64   `json:"mortality_rate"`
}

// Key returns the join key for this record.
func (r JoinedRecord) Key() LocationDateKey {
	return LocationDateKey{Province: r.Province, Country: r.Country, Date: r.Date}
}

// CountryAggregate collapses province granularity: totals for one country
// over whatever record set it was projected from (full range or a single
// date). Always computed on demand, never persisted.
type CountryAggregate struct {
	Country        string  `json:"country"`
	TotalConfirmed int64   `json:"total_confirmed"`
	TotalDeaths    int64   `json:"total_deaths"`
	MortalityRate  float64 `json:"mortality_rate"`
}

// CountryCount is one entry of a confirmed-cases ranking.
type CountryCount struct {
	Country        string `json:"country"`
	TotalConfirmed int64  `json:"total_confirmed"`
}

// CountryRate is one entry of a mortality-rate ranking.
type CountryRate struct {
	Country       string  `json:"country"`
	MortalityRate float64 `json:"mortality_rate"`
}

// DailyTotal is the world-wide cumulative position on one date.
type DailyTotal struct {
	Date          time.Time `json:"date"`
	Confirmed     int64     `json:"confirmed"`
	Deaths        int64     `json:"deaths"`
	MortalityRate float64   `json:"mortality_rate"`
}
