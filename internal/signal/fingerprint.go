package signal

import (
	"crypto/rand"
	"math/big"
)

const (
	fingerprintPrefix = "dev_"
	fingerprintLength = 10
	base36            = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewFingerprint issues a browser fingerprint for a client that has none yet.
// Clients persist it and send it back on every request.
func NewFingerprint() string {
	buf := make([]byte, fingerprintLength)
	limit := big.NewInt(int64(len(base36)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		buf[i] = base36[n.Int64()]
	}
	return fingerprintPrefix + string(buf)
}
