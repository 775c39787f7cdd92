package webdriver

import (
	"fmt"
	"strings"

	"github.com/blang/semver"
)

// ParseVersion parses the loosely formatted version strings reported by
// drivers and browsers into a semantic version. Only the first
// whitespace-separated field is considered, a leading "v" is dropped and the
// dotted components are truncated or padded to three, so
// "120.0.6099.109 (3419140ab665596f21b385ce136419fde0924272)" becomes
// 120.0.6099.
func ParseVersion(s string) (semver.Version, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return semver.Version{}, fmt.Errorf("empty version string")
	}
	v := strings.TrimPrefix(fields[0], "v")
	parts := strings.Split(v, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return semver.Parse(strings.Join(parts[:3], "."))
}

// DriverVersion extracts the driver version from the capabilities a server
// returned for a new session, looking at the keys ChromeDriver and
// GeckoDriver populate.
func DriverVersion(caps Capabilities) (semver.Version, error) {
	if c, ok := caps["chrome"].(map[string]interface{}); ok {
		if v, ok := c["chromedriverVersion"].(string); ok {
			return ParseVersion(v)
		}
	}
	if v, ok := caps["moz:geckodriverVersion"].(string); ok {
		return ParseVersion(v)
	}
	return semver.Version{}, fmt.Errorf("capabilities carry no driver version")
}
