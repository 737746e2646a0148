package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SynodicMonth is the mean number of days between two new moons.
const SynodicMonth = 29.53

// Condition is a single weather-condition entry as reported by the API.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Current holds the "current" block of a OneCall response.
type Current struct {
	Dt        int64       `json:"dt"`
	Sunrise   int64       `json:"sunrise"`
	Sunset    int64       `json:"sunset"`
	Temp      float64     `json:"temp"`
	Humidity  int         `json:"humidity"`
	Pressure  int         `json:"pressure"`
	WindSpeed float64     `json:"wind_speed"`
	UVI       float64     `json:"uvi"`
	Weather   []Condition `json:"weather"`
}

// DailyTemp holds the temperature range of a daily forecast entry.
type DailyTemp struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DailyForecast is one entry of the "daily" sequence.
type DailyForecast struct {
	Dt        int64       `json:"dt"`
	Temp      DailyTemp   `json:"temp"`
	Weather   []Condition `json:"weather"`
	MoonPhase float64     `json:"moon_phase"`
}

// WeatherSnapshot is the parsed upstream response consumed by the renderer.
// It is created once per fetch cycle and never mutated afterwards.
type WeatherSnapshot struct {
	Lat            float64         `json:"lat"`
	Lon            float64         `json:"lon"`
	Timezone       string          `json:"timezone"`
	TimezoneOffset int             `json:"timezone_offset"`
	Current        Current         `json:"current"`
	Daily          []DailyForecast `json:"daily"`
}

// ParseSnapshot decodes a OneCall JSON body.
func ParseSnapshot(data []byte) (*WeatherSnapshot, error) {
	var snap WeatherSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse weather response: %w", err)
	}
	if len(snap.Daily) > 8 {
		snap.Daily = snap.Daily[:8]
	}
	return &snap, nil
}

// Location returns a fixed zone carrying the snapshot's UTC offset.
func (s *WeatherSnapshot) Location() *time.Location {
	return time.FixedZone("snapshot", s.TimezoneOffset)
}

// LocalTime converts a unix timestamp into the observed location's wall clock.
func (s *WeatherSnapshot) LocalTime(ts int64) time.Time {
	return time.Unix(ts, 0).In(s.Location())
}

// PrimaryCondition returns the first condition entry, or a clear-sky default.
func (c Current) PrimaryCondition() Condition {
	if len(c.Weather) == 0 {
		return Condition{Icon: "01d", Description: "N/A"}
	}
	return c.Weather[0]
}

// Icon returns the icon code of the first condition entry, if any.
func (d DailyForecast) Icon() string {
	if len(d.Weather) == 0 {
		return ""
	}
	return d.Weather[0].Icon
}

// MoonAge converts the API moon-phase fraction into days since new moon.
func (d DailyForecast) MoonAge() float64 {
	return d.MoonPhase * SynodicMonth
}
