package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zerotrust/platform/internal/domain"
)

func TestDecide_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  domain.Decision
	}{
		{0, domain.DecisionAllow},
		{30, domain.DecisionAllow},
		{31, domain.DecisionStepUpMFA},
		{60, domain.DecisionStepUpMFA},
		{61, domain.DecisionBlock},
		{100, domain.DecisionBlock},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decide(tt.score), "score %d", tt.score)
	}
}

func TestEvaluate_TrustedUserAllowed(t *testing.T) {
	e := NewEvaluator(nil)
	result := e.Evaluate(cleanSignals())

	assert.Equal(t, domain.DecisionAllow, result.Decision)
	assert.Equal(t, 0, result.RiskScore)
	assert.Empty(t, result.Reasons)
	assert.NotNil(t, result.Reasons)
}

func TestEvaluate_HostileLoginBlocked(t *testing.T) {
	e := NewEvaluator(nil)
	s := domain.SignalBundle{
		Origin:         domain.Origin{IP: "198.51.100.7", Country: "Russia", City: "Moscow"},
		LoginTime:      at(2),
		FailedAttempts: 3,
		DeviceApproved: false,
		Posture: domain.Posture{
			OSUpToDate:        true,
			AntivirusPresent:  false,
			DiskEncrypted:     false,
			ScreenLockEnabled: true,
		},
	}

	result := e.Evaluate(s)

	// 30 + 30 + 15 + 10 + 7 + 10 = 102, clamped.
	assert.Equal(t, 100, result.RiskScore)
	assert.Equal(t, domain.DecisionBlock, result.Decision)
	assert.Equal(t, []string{
		ReasonRiskThreshold,
		ReasonDeviceNotOK,
		ReasonFailedAttempts,
		ReasonNoAntivirus,
		ReasonNoDiskEncrypt,
		ReasonHighRiskGeo,
	}, result.Reasons)
	assert.Equal(t, s, result.Signals)
}

func TestEvaluate_StepUpForUnapprovedDevice(t *testing.T) {
	e := NewEvaluator(nil)
	s := cleanSignals()
	s.DeviceApproved = false
	s.Posture.AntivirusPresent = false
	s.Posture.ScreenLockEnabled = false

	result := e.Evaluate(s)

	// 15 + 10 + 5
	assert.Equal(t, 30, result.RiskScore)
	assert.Equal(t, domain.DecisionAllow, result.Decision)
	assert.Equal(t, []string{ReasonDeviceNotOK, ReasonNoAntivirus}, result.Reasons)

	s.Posture.OSUpToDate = false
	result = e.Evaluate(s)
	assert.Equal(t, 38, result.RiskScore)
	assert.Equal(t, domain.DecisionStepUpMFA, result.Decision)
}

func TestReasons_IndependentOfDecision(t *testing.T) {
	e := NewEvaluator(nil)
	s := cleanSignals()
	s.FailedAttempts = 3

	// Score 30 allows, but the failed-attempts reason is still listed.
	result := e.Evaluate(s)
	assert.Equal(t, domain.DecisionAllow, result.Decision)
	assert.Equal(t, []string{ReasonFailedAttempts}, result.Reasons)
}
