package utils

import (
	"testing"
	"time"

	"cheese-stick/src/logger"

	"github.com/stretchr/testify/assert"
)

func TestMICForSymbol(t *testing.T) {
	assert.Equal(t, "xnys", MICForSymbol("AAPL"))
	assert.Equal(t, "xlon", MICForSymbol("VOD.L"))
	assert.Equal(t, "xtse", MICForSymbol("SHOP.TO"))
	assert.Equal(t, "xnys", MICForSymbol("BRK.B"))
}

func TestWeekendIsNotTradingDay(t *testing.T) {
	cal := GetCalendar("AAPL")
	saturday := time.Date(2024, 6, 8, 15, 0, 0, 0, time.UTC)
	assert.False(t, cal.IsTradingDay(saturday))
	assert.False(t, cal.IsOpenOnMinute(saturday))
}

func TestIsFinalForPastRange(t *testing.T) {
	ms := NewMarketScheduler([]string{"AAPL", "MSFT"}, logger.NewNopLogger())
	ms.Now = func() time.Time { return time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC) }

	assert.True(t, ms.IsFinal("2024-06-11"))
}

func TestIsFinalTodayOnWeekend(t *testing.T) {
	ms := NewMarketScheduler([]string{"AAPL"}, logger.NewNopLogger())
	ms.Now = func() time.Time { return time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC) }

	assert.True(t, ms.IsFinal("2024-06-09"))
}

func TestSymbolsShareCalendar(t *testing.T) {
	ms := NewMarketScheduler([]string{"AAPL", "MSFT", "VOD.L"}, logger.NewNopLogger())
	assert.Same(t, ms.Calendars["AAPL"], ms.Calendars["MSFT"])
	assert.Len(t, ms.uniqueCalendars(), 2)
}
