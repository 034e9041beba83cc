package utils

import (
	"testing"
	"time"

	"market-stream/src/logger"

	"github.com/stretchr/testify/assert"
)

var saturdayNoonUTC = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestCryptoNeverCloses(t *testing.T) {
	for _, m := range []string{"CRYPTO", "crypto", "HYPERLIQUID_PERP", ""} {
		cal := GetCalendar(m)
		assert.True(t, cal.AlwaysOpen, m)
		assert.True(t, cal.IsOpenOnMinute(saturdayNoonUTC), m)
	}
}

func TestFallbackCalendarHours(t *testing.T) {
	cal := &TradingCalendar{Fallback: true, Timezone: time.UTC}

	monday := time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)
	assert.False(t, cal.IsOpenOnMinute(monday.Add(9*time.Hour+29*time.Minute)))
	assert.True(t, cal.IsOpenOnMinute(monday.Add(9*time.Hour+30*time.Minute)))
	assert.True(t, cal.IsOpenOnMinute(monday.Add(15*time.Hour+59*time.Minute)))
	assert.False(t, cal.IsOpenOnMinute(monday.Add(16*time.Hour)))
	assert.False(t, cal.IsOpenOnMinute(saturdayNoonUTC))
}

func TestEquityMarketClosedOnWeekend(t *testing.T) {
	cal := GetCalendar("US")
	assert.False(t, cal.AlwaysOpen)
	assert.False(t, cal.IsOpenOnMinute(saturdayNoonUTC))
}

func TestMarketSchedulerGate(t *testing.T) {
	ms := NewMarketScheduler([]string{"US"}, logger.NewLogger(nil, "test")).
		WithClock(func() time.Time { return saturdayNoonUTC })

	assert.False(t, ms.IsOpen("US"))
	assert.True(t, ms.IsOpen("CRYPTO"))
	assert.Contains(t, ms.Calendars, "CRYPTO", "crypto is tracked after first use")
}
