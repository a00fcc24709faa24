package signal

import "strings"

// DetectOS derives an OS label from a user-agent string. The order matters:
// Android agents also contain "Linux" and are reported as Linux.
func DetectOS(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Mac"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "iOS"), strings.Contains(ua, "iPhone"):
		return "iOS"
	default:
		return "Unknown"
	}
}

// DetectBrowser derives a browser label from a user-agent string.
func DetectBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "Chrome") && !strings.Contains(ua, "Edg"):
		return "Chrome"
	case strings.Contains(ua, "Firefox"):
		return "Firefox"
	case strings.Contains(ua, "Safari") && !strings.Contains(ua, "Chrome"):
		return "Safari"
	case strings.Contains(ua, "Edg"):
		return "Edge"
	default:
		return "Unknown"
	}
}
