package signal

import (
	"math/rand/v2"

	"github.com/zerotrust/platform/internal/domain"
)

// PostureSource supplies a device posture snapshot.
type PostureSource interface {
	Sample() domain.Posture
}

// RandomPosture simulates posture telemetry. Each flag is healthy with a fixed
// probability.
type RandomPosture struct{}

// Sample draws a posture snapshot.
func (RandomPosture) Sample() domain.Posture {
	return domain.Posture{
		OSUpToDate:        rand.Float64() > 0.2,
		AntivirusPresent:  rand.Float64() > 0.15,
		DiskEncrypted:     rand.Float64() > 0.3,
		ScreenLockEnabled: rand.Float64() > 0.1,
	}
}

// StaticPosture always returns the same snapshot.
type StaticPosture domain.Posture

// Sample returns the fixed snapshot.
func (p StaticPosture) Sample() domain.Posture {
	return domain.Posture(p)
}
