package browser

import (
	"fmt"
	"math/rand"
)

// Fingerprint is the identity one session presents to the outside. All
// values come from fixed pools so every combination is one a real machine
// could plausibly report.
type Fingerprint struct {
	UserAgent           string
	Width               int
	Height              int
	DeviceScale         float64
	Timezone            string
	Latitude            float64
	Longitude           float64
	Platform            string
	HardwareConcurrency int
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

var viewports = []struct {
	width, height int
	scale         float64
}{
	{1920, 1080, 1.0},
	{1536, 864, 1.25},
	{1440, 900, 2.0},
	{1366, 768, 1.0},
	{2560, 1440, 1.0},
}

// Timezones with a matching plausible coordinate.
var locales = []struct {
	timezone string
	lat, lon float64
}{
	{"America/New_York", 40.7128, -74.0060},
	{"America/Chicago", 41.8781, -87.6298},
	{"America/Denver", 39.7392, -104.9903},
	{"America/Los_Angeles", 34.0522, -118.2437},
	{"America/Phoenix", 33.4484, -112.0740},
}

var platforms = []string{"Win32", "MacIntel", "Linux x86_64"}

var hardwareConcurrencies = []int{4, 8, 12, 16}

// RandomFingerprint draws one combination from the pools.
func RandomFingerprint() Fingerprint {
	vp := viewports[rand.Intn(len(viewports))]
	loc := locales[rand.Intn(len(locales))]
	return Fingerprint{
		UserAgent:           userAgents[rand.Intn(len(userAgents))],
		Width:               vp.width,
		Height:              vp.height,
		DeviceScale:         vp.scale,
		Timezone:            loc.timezone,
		Latitude:            loc.lat,
		Longitude:           loc.lon,
		Platform:            platforms[rand.Intn(len(platforms))],
		HardwareConcurrency: hardwareConcurrencies[rand.Intn(len(hardwareConcurrencies))],
	}
}

// StealthScript returns the script injected into every new document to
// suppress the properties automation frameworks are detected by.
func (f Fingerprint) StealthScript() string {
	return fmt.Sprintf(`
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', {
	get: () => [
		{ name: 'PDF Viewer' },
		{ name: 'Chrome PDF Viewer' },
		{ name: 'Chromium PDF Viewer' },
	],
});
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'platform', { get: () => %q });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
window.chrome = window.chrome || { runtime: {} };
`, f.Platform, f.HardwareConcurrency)
}
