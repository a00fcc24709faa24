package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	uaChromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	uaSafariMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15"
	uaFirefoxLinux  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	uaEdgeWindows   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0"
	uaAndroid       = "Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36"
)

func TestDetectOS(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"windows", uaChromeWindows, "Windows"},
		{"mac", uaSafariMac, "macOS"},
		{"linux", uaFirefoxLinux, "Linux"},
		{"android reports linux", uaAndroid, "Linux"},
		{"bare android", "Android 14", "Android"},
		{"iphone", "iPhone OS 17", "iOS"},
		{"empty", "", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectOS(tt.ua))
		})
	}
}

func TestDetectBrowser(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"chrome", uaChromeWindows, "Chrome"},
		{"safari", uaSafariMac, "Safari"},
		{"firefox", uaFirefoxLinux, "Firefox"},
		{"edge", uaEdgeWindows, "Edge"},
		{"curl", "curl/8.4.0", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBrowser(tt.ua))
		})
	}
}

func TestNewFingerprint(t *testing.T) {
	a := NewFingerprint()
	b := NewFingerprint()

	assert.Regexp(t, `^dev_[0-9a-z]{10}$`, a)
	assert.NotEqual(t, a, b)
}
