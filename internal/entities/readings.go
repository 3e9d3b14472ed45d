// Package entities contains the core domain objects for the flood-alert application
package entities

import (
	"time"
)

// GaugeReading is the current water level at the monitored gauge station
type GaugeReading struct {
	StationName      string  // Row header text the reading was taken from
	WaterLevelMeters float64 // Water surface elevation, m MSL
	BankLevelMeters  float64 // Reference bank elevation, m MSL (configured, not measured)
}

// DistanceToBank returns how far the water is below the bank; negative once it overtops
func (g GaugeReading) DistanceToBank() float64 {
	return g.BankLevelMeters - g.WaterLevelMeters
}

// DischargeReading is the current release rate of the upstream dam
type DischargeReading struct {
	CubicMetersPerSecond float64
}

// HistoricalRecord is one row of the past discharge dataset, keyed by a Buddhist-calendar date
type HistoricalRecord struct {
	BuddhistYear  int
	Month         int // 1..12
	Day           int // 1..31
	DischargeRate float64
}

// Date composes the Gregorian calendar date of the record at midnight UTC
func (r HistoricalRecord) Date() time.Time {
	return time.Date(BuddhistToGregorian(r.BuddhistYear), time.Month(r.Month), r.Day, 0, 0, 0, 0, time.UTC)
}

// HistoricalComparison pairs a requested Buddhist year with the record found for it
type HistoricalComparison struct {
	BuddhistYear int
	Record       HistoricalRecord
}
