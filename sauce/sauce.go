// Package sauce interacts with the Sauce Labs hosted browser testing environment.
package sauce

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// CapabilitiesKey is the vendor key under which W3C sessions carry Sauce
// options.
const CapabilitiesKey = "sauce:options"

// DefaultRegion is the data center used when none is given.
const DefaultRegion = "us-west-1"

// Addr returns the URL to use for driving a remote web browser in region.
func Addr(userName, accessKey, region string) string {
	if region == "" {
		region = DefaultRegion
	}
	u := url.URL{
		Scheme: "https",
		User:   url.UserPassword(userName, accessKey),
		Host:   fmt.Sprintf("ondemand.%s.saucelabs.com", region),
		Path:   "/wd/hub",
	}
	return u.String()
}

// Capabilities are the options to provide to the Sauce infrastructure for each
// test.
//
// See https://docs.saucelabs.com/dev/test-configuration-options/ for details.
type Capabilities struct {
	// Used to record test names for jobs.
	TestName string `json:"name,omitempty"`
	// Used to associate jobs with a build number or app version.
	BuildNumber string `json:"build,omitempty"`
	// User-defined tags for grouping and filtering jobs.
	Tags []string `json:"tags,omitempty"`
	// User-defined custom data, limited to 64KB in size.
	CustomData json.RawMessage `json:"customData,omitempty"`

	// TunnelName routes the session through a running Sauce Connect tunnel.
	TunnelName string `json:"tunnelName,omitempty"`

	// The maximum test duration to allow, in seconds. By default, this is 30
	// minutes. The maximum value is 10800 seconds (three hours).
	MaximumDuration int `json:"maxDuration,omitempty"`
	// The maximum amount of time a command can run in a browser, in seconds.
	CommandTimeout int `json:"commandTimeout,omitempty"`
	// The maxmimum amount of time to wait for a new command. By default, this is
	// 90 seconds. The maximum value is 1000 seconds.
	IdleTimeout int `json:"idleTimeout,omitempty"`

	// The screen resolution should be used during the test session.
	ScreenResolution string `json:"screenResolution,omitempty"`
	// The timezone to configure on Desktop Test VMs.
	TimeZone string `json:"timeZone,omitempty"`

	// The visibility of the job.
	Visibility Visibility `json:"public,omitempty"`

	// By default, Sauce records a video of every test run. Set this to false to
	// disable recording video.
	RecordVideo *bool `json:"recordVideo,omitempty"`
	// Set to false to prevent recording of screenshots.
	RecordScreenshots *bool `json:"recordScreenshots,omitempty"`
	// Set to false to disable log recording.
	RecordLogs *bool `json:"recordLogs,omitempty"`
	// Set to false to disable capturing the HTML source at each step.
	CaptureHTML *bool `json:"captureHtml,omitempty"`
}

// Visibility is a visibility level for a test.
type Visibility string

const (
	// Public is the visibility to specify that the result is accessible to everyone.
	Public Visibility = "public"
	// PublicRestricted is the visibility to specify that anonymous users have
	// access to the result page and video, but not the logs.
	PublicRestricted Visibility = "public restricted"
	// Team is the visibility to specify that the results are only accessible to
	// people under the same root account as the executor's.
	Team Visibility = "team"
	// Private is the visibility to specify that only the owner of the test will
	// be able to view assets and test result page.
	Private Visibility = "private"
)

// ToMap returns the capabilities in a key/value structure.
func (c *Capabilities) ToMap() (map[string]interface{}, error) {
	buf, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	m := make(map[string]interface{})
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil, err
	}
	return m, nil
}
