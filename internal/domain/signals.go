package domain

import (
	"strings"
	"time"
)

// Origin describes where a request came from.
type Origin struct {
	IP        string  `json:"ip"`
	Country   string  `json:"country"`
	City      string  `json:"city"`
	Region    string  `json:"region,omitempty"`
	ISP       string  `json:"isp,omitempty"`
	Timezone  string  `json:"timezone,omitempty"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Simulated bool    `json:"simulated"`
}

// Location renders "City, Country", skipping empty parts.
func (o Origin) Location() string {
	parts := make([]string, 0, 2)
	if o.City != "" {
		parts = append(parts, o.City)
	}
	if o.Country != "" {
		parts = append(parts, o.Country)
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, ", ")
}

// SignalBundle is the snapshot a policy decision is based on. It is rebuilt for
// every decision.
type SignalBundle struct {
	Origin         Origin    `json:"origin"`
	UserAgent      string    `json:"user_agent"`
	OS             string    `json:"os"`
	Browser        string    `json:"browser"`
	LoginTime      time.Time `json:"login_time"`
	FailedAttempts int       `json:"failed_attempts"`
	DeviceApproved bool      `json:"device_approved"`
	Posture        Posture   `json:"posture"`
}

// Decision is the outcome of a policy evaluation.
type Decision string

const (
	DecisionAllow     Decision = "allow"
	DecisionStepUpMFA Decision = "step_up_mfa"
	DecisionBlock     Decision = "block"
)

// PolicyResult is immutable once produced.
type PolicyResult struct {
	Decision  Decision     `json:"decision"`
	RiskScore int          `json:"risk_score"`
	Reasons   []string     `json:"reasons"`
	Signals   SignalBundle `json:"signals"`
}
