package policy

import "github.com/zerotrust/platform/internal/domain"

// Score weights. Each clause contributes independently; the sum is clamped once.
const (
	WeightHighRiskCountry = 30
	WeightPerFailure      = 10
	MaxFailureWeight      = 30
	WeightUnapproved      = 15
	WeightOSOutdated      = 8
	WeightNoAntivirus     = 10
	WeightNoDiskEncrypt   = 7
	WeightNoScreenLock    = 5
	WeightOffHours        = 10

	MaxScore = 100

	// Logins before OffHoursStart or after OffHoursEnd (local hour) are off-hours.
	OffHoursStart = 6
	OffHoursEnd   = 22
)

// DefaultHighRiskCountries is used when no rules file overrides it.
var DefaultHighRiskCountries = []string{"Russia", "China", "North Korea"}

// Evaluator scores signal bundles and turns scores into decisions.
type Evaluator struct {
	highRisk map[string]struct{}
}

// NewEvaluator creates an evaluator for the given high-risk country set.
// A nil slice selects DefaultHighRiskCountries.
func NewEvaluator(highRiskCountries []string) *Evaluator {
	if highRiskCountries == nil {
		highRiskCountries = DefaultHighRiskCountries
	}
	set := make(map[string]struct{}, len(highRiskCountries))
	for _, c := range highRiskCountries {
		set[c] = struct{}{}
	}
	return &Evaluator{highRisk: set}
}

// IsHighRiskCountry reports whether country is in the high-risk set.
func (e *Evaluator) IsHighRiskCountry(country string) bool {
	_, ok := e.highRisk[country]
	return ok
}

// Score computes a risk score in [0, 100] from session signals.
func (e *Evaluator) Score(s domain.SignalBundle) int {
	var score int

	if e.IsHighRiskCountry(s.Origin.Country) {
		score += WeightHighRiskCountry
	}

	if s.FailedAttempts > 0 {
		score += min(s.FailedAttempts*WeightPerFailure, MaxFailureWeight)
	}

	if !s.DeviceApproved {
		score += WeightUnapproved
	}

	if !s.Posture.OSUpToDate {
		score += WeightOSOutdated
	}
	if !s.Posture.AntivirusPresent {
		score += WeightNoAntivirus
	}
	if !s.Posture.DiskEncrypted {
		score += WeightNoDiskEncrypt
	}
	if !s.Posture.ScreenLockEnabled {
		score += WeightNoScreenLock
	}

	if isOffHours(s) {
		score += WeightOffHours
	}

	return max(0, min(score, MaxScore))
}

func isOffHours(s domain.SignalBundle) bool {
	if s.LoginTime.IsZero() {
		return false
	}
	hour := s.LoginTime.Hour()
	return hour < OffHoursStart || hour > OffHoursEnd
}
