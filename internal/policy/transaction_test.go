package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerotrust/platform/internal/domain"
)

func TestRun_AllowProducesDecisionAndLoginEntries(t *testing.T) {
	e := NewEvaluator(nil)
	actor := Actor{UserID: uuid.New(), Email: "user@demo.com"}

	tx := e.Run(actor, "Chrome on Windows", cleanSignals())

	assert.True(t, tx.Granted())
	require.Len(t, tx.Audit, 2)

	decision := tx.Audit[0]
	assert.Equal(t, domain.ActionPolicyDecision, decision.Action)
	assert.Equal(t, domain.OutcomeSuccess, decision.Outcome)
	assert.Equal(t, "Decision: allow | Risk: 0 | Reasons: None", decision.Details)
	assert.Equal(t, "203.0.113.42", decision.IP)
	assert.Equal(t, "Berlin, Germany", decision.Location)
	require.NotNil(t, decision.RiskScore)
	assert.Equal(t, 0, *decision.RiskScore)

	login := tx.Audit[1]
	assert.Equal(t, domain.ActionLoginSuccess, login.Action)
	assert.Equal(t, "Login from Chrome on Windows", login.Details)
	assert.Equal(t, actor.UserID, login.UserID)
	assert.Equal(t, actor.Email, login.UserEmail)
}

func TestRun_BlockMarksEntriesBlocked(t *testing.T) {
	e := NewEvaluator(nil)
	s := domain.SignalBundle{
		Origin:         domain.Origin{Country: "China", City: "Beijing"},
		LoginTime:      at(3),
		FailedAttempts: 5,
	}

	tx := e.Run(Actor{UserID: uuid.New()}, "Firefox on Linux", s)

	assert.False(t, tx.Granted())
	require.Len(t, tx.Audit, 2)
	assert.Equal(t, domain.OutcomeBlocked, tx.Audit[0].Outcome)
	assert.Contains(t, tx.Audit[0].Details, "Decision: block")
	assert.Contains(t, tx.Audit[0].Details, ReasonHighRiskGeo)
	assert.Equal(t, domain.ActionLoginBlocked, tx.Audit[1].Action)
	assert.Equal(t, domain.OutcomeBlocked, tx.Audit[1].Outcome)
}

func TestRun_StepUpIsGranted(t *testing.T) {
	e := NewEvaluator(nil)
	s := cleanSignals()
	s.Origin.Country = "Russia"
	s.FailedAttempts = 1

	tx := e.Run(Actor{UserID: uuid.New()}, "Safari on macOS", s)

	assert.Equal(t, domain.DecisionStepUpMFA, tx.Result.Decision)
	assert.True(t, tx.Granted())
	assert.Equal(t, domain.OutcomeSuccess, tx.Audit[0].Outcome)
}
