package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReport_ExactlyOneBranch(t *testing.T) {
	ts := time.Date(2026, time.October, 15, 7, 0, 0, 0, time.UTC)
	gauge := &GaugeReading{StationName: "อินทร์บุรี", WaterLevelMeters: 11.5, BankLevelMeters: 13}
	discharge := &DischargeReading{CubicMetersPerSecond: 1900}

	tests := []struct {
		name      string
		gauge     *GaugeReading
		discharge *DischargeReading
		success   bool
		gaugeOK   SourceStatus
		dischOK   SourceStatus
	}{
		{name: "both present", gauge: gauge, discharge: discharge, success: true},
		{name: "gauge missing", discharge: discharge, gaugeOK: StatusFailed, dischOK: StatusOK},
		{name: "discharge missing", gauge: gauge, gaugeOK: StatusOK, dischOK: StatusFailed},
		{name: "both missing", gaugeOK: StatusFailed, dischOK: StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReport(ts, tt.gauge, tt.discharge, TierWatch, nil)
			assert.NotEqual(t, r.Success == nil, r.Degraded == nil)
			if tt.success {
				require.NotNil(t, r.Success)
				assert.Equal(t, TierWatch, r.Success.Tier)
				assert.Equal(t, ts, r.Success.Timestamp)
				return
			}
			require.NotNil(t, r.Degraded)
			assert.Equal(t, tt.gaugeOK, r.Degraded.GaugeStatus)
			assert.Equal(t, tt.dischOK, r.Degraded.DischargeStatus)
		})
	}
}

func TestGaugeReading_DistanceToBank(t *testing.T) {
	assert.InDelta(t, 1.5, GaugeReading{WaterLevelMeters: 11.5, BankLevelMeters: 13}.DistanceToBank(), 1e-9)
	assert.InDelta(t, -0.4, GaugeReading{WaterLevelMeters: 13.4, BankLevelMeters: 13}.DistanceToBank(), 1e-9)
}

func TestHistoricalRecord_Date(t *testing.T) {
	d := HistoricalRecord{BuddhistYear: 2567, Month: 10, Day: 15}.Date()
	assert.Equal(t, time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC), d)
}

func TestSeverityTier_Copy(t *testing.T) {
	for _, tier := range []SeverityTier{TierNormal, TierWatch, TierCritical} {
		assert.NotEmpty(t, tier.Icon())
		assert.NotEmpty(t, tier.Title())
		assert.NotEmpty(t, tier.Recommendation())
	}
	assert.Equal(t, "CRITICAL", TierCritical.String())
	assert.Equal(t, "UNKNOWN", SeverityTier(7).String())
}
