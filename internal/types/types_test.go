package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateTruncatesTime(t *testing.T) {
	d := NewDate(time.Date(2026, 10, 16, 23, 59, 1, 0, time.FixedZone("EST", -5*3600)))
	assert.Equal(t, "2026-10-16", d.String())
	assert.Equal(t, 0, d.Hour())
}

func TestParseDateAcceptsTimestampPrefix(t *testing.T) {
	d, err := ParseDate("2025-03-31 00:00:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-31", d.String())

	_, err = ParseDate("31/03/2025")
	assert.Error(t, err)
}

func TestDateJSONRoundTrip(t *testing.T) {
	var row AnalystEstimate
	require.NoError(t, json.Unmarshal([]byte(`{"symbol":"AAPL","date":"2026-12-31","estimatedEpsAvg":1.5,"estimatedEpsHigh":null}`), &row))

	assert.Equal(t, "AAPL", row.Symbol)
	assert.Equal(t, MustParseDate("2026-12-31"), row.Date)
	require.NotNil(t, row.EpsAvg)
	assert.Equal(t, 1.5, *row.EpsAvg)
	assert.Nil(t, row.EpsHigh)
	assert.Nil(t, row.EpsLow)
}

func TestDateCSVEmpty(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalCSV(""))
	assert.True(t, d.IsZero())

	s, err := d.MarshalCSV()
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestPeriodString(t *testing.T) {
	assert.Equal(t, "quarterly", PeriodQuarterly.String())
	assert.Equal(t, "annual", PeriodAnnual.String())
}
