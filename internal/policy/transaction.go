package policy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/zerotrust/platform/internal/domain"
)

// Actor identifies the user a decision is made for.
type Actor struct {
	UserID uuid.UUID
	Email  string
}

// Transaction is a policy result together with the audit entries the caller
// must append. The evaluator itself never writes to the audit log.
type Transaction struct {
	Result domain.PolicyResult
	Audit  []domain.AuditDraft
}

// Granted reports whether the decision lets the login proceed to a session.
func (t Transaction) Granted() bool {
	return t.Result.Decision != domain.DecisionBlock
}

// Run evaluates the signals and prepares the decision's audit trail.
func (e *Evaluator) Run(actor Actor, deviceLabel string, s domain.SignalBundle) Transaction {
	result := e.Evaluate(s)

	reasons := "None"
	if len(result.Reasons) > 0 {
		reasons = strings.Join(result.Reasons, ", ")
	}

	decisionOutcome := domain.OutcomeSuccess
	if result.Decision == domain.DecisionBlock {
		decisionOutcome = domain.OutcomeBlocked
	}

	base := domain.AuditDraft{UserID: actor.UserID, UserEmail: actor.Email}.
		WithOrigin(s.Origin).
		WithRisk(result.RiskScore)

	decision := base
	decision.Action = domain.ActionPolicyDecision
	decision.Details = fmt.Sprintf("Decision: %s | Risk: %d | Reasons: %s", result.Decision, result.RiskScore, reasons)
	decision.Outcome = decisionOutcome

	login := base
	if result.Decision == domain.DecisionBlock {
		login.Action = domain.ActionLoginBlocked
		login.Details = fmt.Sprintf("Login blocked from %s", deviceLabel)
		login.Outcome = domain.OutcomeBlocked
	} else {
		login.Action = domain.ActionLoginSuccess
		login.Details = fmt.Sprintf("Login from %s", deviceLabel)
		login.Outcome = domain.OutcomeSuccess
	}

	return Transaction{Result: result, Audit: []domain.AuditDraft{decision, login}}
}
