package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// marketMICs maps market identifiers used in candle keys to exchange MIC
// codes understood by scmhub/calendar (ISO 10383).
var marketMICs = map[string]string{
	"US":     "xnys",
	"NYSE":   "xnys",
	"NASDAQ": "xnas",
	"HK":     "xhkg",
	"CN":     "xshg",
	"SZ":     "xshe",
	"JP":     "xtks",
	"UK":     "xlon",
	"EU":     "xpar",
	"DE":     "xfra",
	"KR":     "xkrx",
	"TW":     "xtai",
	"AU":     "xasx",
	"CA":     "xtse",
}

// TradingCalendar answers whether a market trades at a given time.
type TradingCalendar struct {
	Calendar   *calendar.Calendar
	AlwaysOpen bool
	Fallback   bool
	Timezone   *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar resolves a market identifier. Crypto and perp markets never
// close; unknown markets use the NYSE calendar.
func GetCalendar(market string) *TradingCalendar {
	m := strings.ToUpper(strings.TrimSpace(market))
	if m == "" || m == "CRYPTO" || strings.HasSuffix(m, "_PERP") {
		return &TradingCalendar{AlwaysOpen: true, Timezone: time.UTC}
	}

	mic, ok := marketMICs[m]
	if !ok {
		mic = "xnys"
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s' and fallback 'xnys'. Using simple fallback (Mon-Fri 09:30-16:00 New York).", mic)
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.AlwaysOpen {
		return true
	}
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.AlwaysOpen {
		return true
	}
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}

		hour := t.Hour()
		minute := t.Minute()

		// 9:30 - 16:00 local
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return tc.Calendar.IsOpen(t)
}
