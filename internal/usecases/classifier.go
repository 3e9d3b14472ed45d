package usecases

import "github.com/abelzeko/flood-alert/internal/entities"

// Alert thresholds. Discharge and bank proximity are independent signals: either one
// alone is enough to raise the tier.
const (
	CriticalDischarge = 2400.0 // m³/s
	WatchDischarge    = 1800.0 // m³/s
	CriticalBankGap   = 1.0    // m below bank
	WatchBankGap      = 2.0    // m below bank
)

// Classify maps the live readings to a severity tier; the first matching rule wins
func Classify(gaugeLevel, bankLevel, discharge float64) entities.SeverityTier {
	distanceToBank := bankLevel - gaugeLevel

	switch {
	case discharge > CriticalDischarge || distanceToBank < CriticalBankGap:
		return entities.TierCritical
	case discharge > WatchDischarge || distanceToBank < WatchBankGap:
		return entities.TierWatch
	default:
		return entities.TierNormal
	}
}
