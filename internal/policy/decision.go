package policy

import "github.com/zerotrust/platform/internal/domain"

// Decision thresholds; both bounds are inclusive for the lower tier.
const (
	AllowMaxScore  = 30
	StepUpMaxScore = 60
)

// Reason strings attached to policy results.
const (
	ReasonRiskThreshold  = "Risk score exceeds threshold"
	ReasonDeviceNotOK    = "Device not approved"
	ReasonFailedAttempts = "Multiple failed login attempts"
	ReasonNoAntivirus    = "No antivirus detected"
	ReasonNoDiskEncrypt  = "Disk not encrypted"
	ReasonHighRiskGeo    = "High-risk location"
)

// Decide maps a risk score to a decision.
func Decide(score int) domain.Decision {
	switch {
	case score <= AllowMaxScore:
		return domain.DecisionAllow
	case score <= StepUpMaxScore:
		return domain.DecisionStepUpMFA
	default:
		return domain.DecisionBlock
	}
}

// Reasons lists the advisory reasons for a result. They are for audit and
// display only; the decision comes from the score alone.
func (e *Evaluator) Reasons(score int, s domain.SignalBundle) []string {
	reasons := []string{}
	if score > StepUpMaxScore {
		reasons = append(reasons, ReasonRiskThreshold)
	}
	if !s.DeviceApproved {
		reasons = append(reasons, ReasonDeviceNotOK)
	}
	if s.FailedAttempts > 2 {
		reasons = append(reasons, ReasonFailedAttempts)
	}
	if !s.Posture.AntivirusPresent {
		reasons = append(reasons, ReasonNoAntivirus)
	}
	if !s.Posture.DiskEncrypted {
		reasons = append(reasons, ReasonNoDiskEncrypt)
	}
	if e.IsHighRiskCountry(s.Origin.Country) {
		reasons = append(reasons, ReasonHighRiskGeo)
	}
	return reasons
}

// Evaluate scores the bundle and returns the full policy result.
func (e *Evaluator) Evaluate(s domain.SignalBundle) domain.PolicyResult {
	score := e.Score(s)
	return domain.PolicyResult{
		Decision:  Decide(score),
		RiskScore: score,
		Reasons:   e.Reasons(score, s),
		Signals:   s,
	}
}
