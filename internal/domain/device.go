package domain

import (
	"time"

	"github.com/google/uuid"
)

// Posture holds the health flags of a client device.
type Posture struct {
	OSUpToDate        bool `json:"os_up_to_date"`
	AntivirusPresent  bool `json:"antivirus_present"`
	DiskEncrypted     bool `json:"disk_encrypted"`
	ScreenLockEnabled bool `json:"screen_lock_enabled"`
}

// HealthyPosture returns a posture with every flag set.
func HealthyPosture() Posture {
	return Posture{OSUpToDate: true, AntivirusPresent: true, DiskEncrypted: true, ScreenLockEnabled: true}
}

// Device represents a devices row. The posture snapshot is captured when the
// device is first seen and is not re-measured on later logins.
type Device struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	UserAgent   string     `json:"user_agent"`
	OS          string     `json:"os"`
	Browser     string     `json:"browser"`
	Fingerprint string     `json:"fingerprint"`
	Approved    bool       `json:"approved"`
	RequestedAt time.Time  `json:"requested_at"`
	ApprovedBy  *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	Posture     Posture    `json:"posture"`
}

// Label is the human-readable "<browser> on <os>" form used in audit details.
func (d *Device) Label() string {
	return d.Browser + " on " + d.OS
}
