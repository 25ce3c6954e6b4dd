package models

import "time"

// Display values used when enrichment cannot produce a reading.
const (
	SentinelUnavailable = "unavailable"
	SentinelNoData      = "no data"
)

type EnrichmentStatus string

const (
	EnrichmentOK          EnrichmentStatus = "ok"
	EnrichmentNoData      EnrichmentStatus = "no_data"
	EnrichmentUnavailable EnrichmentStatus = "unavailable"
)

// ForecastEntry is one point of the roughly daily forecast.
type ForecastEntry struct {
	Date        time.Time `json:"date"`
	Temp        float64   `json:"temp"`
	Description string    `json:"description"`
}

type WeatherReport struct {
	Current  string           `json:"current"`
	Forecast []ForecastEntry  `json:"forecast"`
	Status   EnrichmentStatus `json:"status"`
}

type WaterReport struct {
	Level  string           `json:"level"`
	Status EnrichmentStatus `json:"status"`
}

// EnrichmentRecord is the decorative weather/water annotation of a spot. Never persisted.
type EnrichmentRecord struct {
	Weather WeatherReport `json:"weather"`
	Water   WaterReport   `json:"water"`
}

// DamReading is one reservoir row of the water-level API.
type DamReading struct {
	Name           string `json:"name"`
	StoragePercent string `json:"storage_percent"`
}
