package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction tags a security-relevant event.
type AuditAction string

const (
	ActionRegister              AuditAction = "REGISTER"
	ActionOTPSent               AuditAction = "OTP_SENT"
	ActionOTPFail               AuditAction = "OTP_FAIL"
	ActionOTPVerified           AuditAction = "OTP_VERIFIED"
	ActionLoginFail             AuditAction = "LOGIN_FAIL"
	ActionLoginSuccess          AuditAction = "LOGIN_SUCCESS"
	ActionLoginBlocked          AuditAction = "LOGIN_BLOCKED"
	ActionPolicyDecision        AuditAction = "POLICY_DECISION"
	ActionLogout                AuditAction = "LOGOUT"
	ActionUserCreated           AuditAction = "USER_CREATED"
	ActionUserUpdated           AuditAction = "USER_UPDATED"
	ActionRoleChanged           AuditAction = "ROLE_CHANGED"
	ActionUserStatusChanged     AuditAction = "USER_STATUS_CHANGED"
	ActionUserDeleted           AuditAction = "USER_DELETED"
	ActionDeviceApproved        AuditAction = "DEVICE_APPROVED"
	ActionDeviceDenied          AuditAction = "DEVICE_DENIED"
	ActionDeviceApprovalRequest AuditAction = "DEVICE_APPROVAL_REQUEST"
)

// AuditOutcome is the result recorded with an audit entry.
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailure AuditOutcome = "failure"
	OutcomeBlocked AuditOutcome = "blocked"
)

// AuditRetention is how many entries the audit log keeps.
const AuditRetention = 500

// AuditDraft is an audit entry before the sink assigns its id and timestamp.
type AuditDraft struct {
	UserID    uuid.UUID    `json:"user_id"`
	UserEmail string       `json:"user_email"`
	Action    AuditAction  `json:"action"`
	Details   string       `json:"details"`
	RiskScore *int         `json:"risk_score,omitempty"`
	IP        string       `json:"ip"`
	Location  string       `json:"location"`
	Outcome   AuditOutcome `json:"outcome"`
}

// AuditEntry is an append-only audit_log row.
type AuditEntry struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	AuditDraft
}

// WithOrigin stamps the draft with the request origin.
func (d AuditDraft) WithOrigin(o Origin) AuditDraft {
	d.IP = o.IP
	d.Location = o.Location()
	return d
}

// WithRisk attaches a risk score.
func (d AuditDraft) WithRisk(score int) AuditDraft {
	d.RiskScore = &score
	return d
}
