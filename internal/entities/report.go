package entities

import "time"

// SourceStatus tells whether a live source produced a reading during the run
type SourceStatus int

const (
	StatusOK SourceStatus = iota
	StatusFailed
)

func (s SourceStatus) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "failed"
}

// StatusOf maps reading presence to a status
func StatusOf(present bool) SourceStatus {
	if present {
		return StatusOK
	}
	return StatusFailed
}

// SuccessReport is built only when both live readings are present
type SuccessReport struct {
	Timestamp   time.Time
	Gauge       GaugeReading
	Discharge   DischargeReading
	Tier        SeverityTier
	Comparisons []HistoricalComparison
}

// DegradedReport names which of the two live sources failed
type DegradedReport struct {
	Timestamp       time.Time
	StationName     string // configured gauge station, shown in the status line
	GaugeStatus     SourceStatus
	DischargeStatus SourceStatus
}

// Report is the single artifact of a run. Exactly one of Success and Degraded is set.
type Report struct {
	Success  *SuccessReport
	Degraded *DegradedReport
}

// NewReport picks the success or degraded branch from reading presence
func NewReport(ts time.Time, gauge *GaugeReading, discharge *DischargeReading, tier SeverityTier, comparisons []HistoricalComparison) Report {
	if gauge != nil && discharge != nil {
		return Report{Success: &SuccessReport{
			Timestamp:   ts,
			Gauge:       *gauge,
			Discharge:   *discharge,
			Tier:        tier,
			Comparisons: comparisons,
		}}
	}
	return Report{Degraded: &DegradedReport{
		Timestamp:       ts,
		GaugeStatus:     StatusOf(gauge != nil),
		DischargeStatus: StatusOf(discharge != nil),
	}}
}

// Notification is what gets handed to a notifier: the composed text plus raw values
// for transports that can carry structured fields. Gauge and Discharge are nil when absent.
type Notification struct {
	Text      string
	Degraded  bool
	Tier      SeverityTier
	Gauge     *GaugeReading
	Discharge *DischargeReading
}
