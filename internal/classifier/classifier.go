// Package classifier derives coarse client attributes from a raw
// User-Agent string. Classification is pure and never fails;
// unrecognized patterns fall back to "unknown".
package classifier

import "strings"

// Client is the parsed classification of one request.
type Client struct {
	Bot     bool
	Device  string // desktop, mobile, tablet
	OS      string // Windows, macOS, Linux, Android, iOS, unknown
	Browser string // Chrome, Safari, Firefox, Edge, unknown
}

// botSignatures covers crawlers, preview fetchers and CLI tools.
// Matching is case-insensitive substring search.
var botSignatures = []string{
	"bot",
	"crawler",
	"spider",
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"go-http-client",
	"java/",
	"okhttp",
	"httpclient",
	"headless",
	"phantomjs",
	"slurp",
	"facebookexternalhit",
	"whatsapp",
	"telegrambot",
	"discordbot",
	"preview",
	"monitor",
	"uptime",
}

// Classify parses a User-Agent string. A missing UA is treated as bot
// traffic.
func Classify(userAgent string) Client {
	if strings.TrimSpace(userAgent) == "" {
		return Client{Bot: true, Device: "unknown", OS: "unknown", Browser: "unknown"}
	}

	ua := strings.ToLower(userAgent)

	return Client{
		Bot:     isBot(ua),
		Device:  detectDevice(ua),
		OS:      detectOS(ua),
		Browser: detectBrowser(ua),
	}
}

func isBot(ua string) bool {
	for _, sig := range botSignatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}

func detectDevice(ua string) string {
	switch {
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		return "tablet"
	// Android tablets omit "mobile" from the UA, so the tablet check
	// above must run first
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "iphone"), strings.Contains(ua, "android"):
		return "mobile"
	default:
		return "desktop"
	}
}

func detectOS(ua string) string {
	switch {
	case strings.Contains(ua, "windows"):
		return "Windows"
	// iOS UAs contain "like Mac OS X", check them before macOS
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return "iOS"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		return "macOS"
	// Android UAs contain "Linux", check Android first
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return "unknown"
	}
}

func detectBrowser(ua string) string {
	switch {
	// Edge UAs contain both "Chrome" and "Safari"
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge"):
		return "Edge"
	// Chrome UAs contain "Safari"
	case strings.Contains(ua, "chrome"), strings.Contains(ua, "crios"):
		return "Chrome"
	case strings.Contains(ua, "firefox"), strings.Contains(ua, "fxios"):
		return "Firefox"
	case strings.Contains(ua, "safari"):
		return "Safari"
	default:
		return "unknown"
	}
}
