package render

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/koios/paperweather/internal/i18n"
	"github.com/koios/paperweather/pkg/models"
)

// ForecastDays is the number of columns in the forecast strip.
const ForecastDays = 5

const noTime = "--:--"

// Content is the text and artwork of one screen, independent of how it is
// drawn. Both backends lay out the same Content.
type Content struct {
	Date string
	Time string

	Icon        string
	Temperature string
	Description string

	SunriseLabel string
	Sunrise      string
	SunsetLabel  string
	Sunset       string

	MoonAge   float64
	MoonLabel string

	Stats    []string
	Forecast []ForecastColumn
}

// ForecastColumn is one day of the forecast strip.
type ForecastColumn struct {
	Day  string
	Icon string
	Max  string
	Min  string
}

type unitLabels struct {
	temp  string
	speed string
}

func labelsFor(units string) unitLabels {
	switch units {
	case "imperial":
		return unitLabels{temp: "°F", speed: "mph"}
	case "standard":
		return unitLabels{temp: "K", speed: "m/s"}
	default:
		return unitLabels{temp: "°C", speed: "m/s"}
	}
}

// BuildContent formats snap for display. All wall-clock values are taken
// from the snapshot's timestamps shifted by its UTC offset.
func BuildContent(snap *models.WeatherSnapshot, tr *i18n.Translator, units string) Content {
	labels := labelsFor(units)
	cur := snap.Current
	cond := cur.PrimaryCondition()

	c := Content{
		Icon:         cond.Icon,
		Temperature:  fmt.Sprintf("%.1f%s", cur.Temp, labels.temp),
		Description:  cond.Description,
		SunriseLabel: tr.T("Sunrise"),
		SunsetLabel:  tr.T("Sunset"),
		Stats: []string{
			fmt.Sprintf("%s: %d%%", tr.T("Humidity"), cur.Humidity),
			fmt.Sprintf("%s: %dhPa", tr.T("Pressure"), cur.Pressure),
			fmt.Sprintf("%s: %s%s", tr.T("Wind"), formatNumber(cur.WindSpeed), labels.speed),
			fmt.Sprintf("%s: %s", tr.T("UV Index"), formatNumber(cur.UVI)),
		},
	}

	if now, ok := observedAt(snap); ok {
		c.Date = fmt.Sprintf("%s (%s)", now.Format("2006/01/02"), tr.T(now.Format("Mon")))
		c.Time = now.Format("15:04")
	} else {
		c.Date, c.Time = "----/--/--", noTime
	}

	c.Sunrise, c.Sunset = sunTimes(snap)

	if len(snap.Daily) > 0 {
		c.MoonAge = snap.Daily[0].MoonAge()
	}
	c.MoonLabel = fmt.Sprintf("%s: %.1f", tr.T("Age"), c.MoonAge)

	for i, day := range snap.Daily {
		if i == ForecastDays {
			break
		}
		c.Forecast = append(c.Forecast, ForecastColumn{
			Day:  tr.T(snap.LocalTime(day.Dt).Format("Mon")),
			Icon: day.Icon(),
			Max:  fmt.Sprintf("%.0f°", day.Temp.Max),
			Min:  fmt.Sprintf("%.0f°", day.Temp.Min),
		})
	}
	return c
}

// observedAt is the observation time; a snapshot without one falls back to
// the first forecast day rather than the host clock.
func observedAt(snap *models.WeatherSnapshot) (time.Time, bool) {
	if snap.Current.Dt != 0 {
		return snap.LocalTime(snap.Current.Dt), true
	}
	if len(snap.Daily) > 0 && snap.Daily[0].Dt != 0 {
		return snap.LocalTime(snap.Daily[0].Dt), true
	}
	return time.Time{}, false
}

// sunTimes formats sunrise and sunset. Missing values are computed from the
// snapshot coordinates when both are known, otherwise shown as "--:--".
func sunTimes(snap *models.WeatherSnapshot) (string, string) {
	rise, set := noTime, noTime
	if snap.Current.Sunrise != 0 {
		rise = snap.LocalTime(snap.Current.Sunrise).Format("15:04")
	}
	if snap.Current.Sunset != 0 {
		set = snap.LocalTime(snap.Current.Sunset).Format("15:04")
	}
	if rise != noTime && set != noTime {
		return rise, set
	}

	day, ok := observedAt(snap)
	if !ok || (snap.Lat == 0 && snap.Lon == 0) {
		return rise, set
	}
	r, s := sunrise.SunriseSunset(snap.Lat, snap.Lon, day.Year(), day.Month(), day.Day())
	loc := snap.Location()
	if rise == noTime && !r.IsZero() {
		rise = r.In(loc).Format("15:04")
	}
	if set == noTime && !s.IsZero() {
		set = s.In(loc).Format("15:04")
	}
	return rise, set
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
