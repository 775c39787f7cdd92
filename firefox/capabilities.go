// Package firefox provides Firefox-specific types for WebDriver.
package firefox

import "fmt"

// CapabilitiesKey is the name of the Firefox-specific key in the WebDriver
// capabilities object.
const CapabilitiesKey = "moz:firefoxOptions"

// Capabilities provides Firefox-specific options to WebDriver.
type Capabilities struct {
	// Binary is the absolute path of the Firefox binary, e.g. /usr/bin/firefox
	// or /Applications/Firefox.app/Contents/MacOS/firefox, to select which
	// custom browser binary to use. If left undefined, geckodriver will attempt
	// to deduce the default location of Firefox on the current system.
	Binary string `json:"binary,omitempty"`
	// Args are the command line arguments to pass to the Firefox binary. These
	// must include the leading -- where required e.g. ["--devtools"].
	Args []string `json:"args,omitempty"`
	// Log specifies the logging options for Gecko.
	Log *Log `json:"log,omitempty"`
	// Map of preference name to preference value, which can be a string, a
	// boolean or an integer.
	Prefs map[string]interface{} `json:"prefs,omitempty"`
}

// Headless adds the arguments that run Firefox without a visible window at a
// fixed viewport size.
func (c *Capabilities) Headless(width, height int) {
	c.Args = append(c.Args,
		"-headless",
		fmt.Sprintf("--width=%d", width),
		fmt.Sprintf("--height=%d", height),
	)
}

// SetPref sets a single about:config preference.
func (c *Capabilities) SetPref(name string, value interface{}) {
	if c.Prefs == nil {
		c.Prefs = make(map[string]interface{})
	}
	c.Prefs[name] = value
}

// LogLevel is an enum that defines logging levels for Firefox.
type LogLevel string

// Levels of logging that can be specified in the Log structure.
const (
	Trace  LogLevel = "trace"
	Debug  LogLevel = "debug"
	Config LogLevel = "config"
	Info   LogLevel = "info"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
	Fatal  LogLevel = "fatal"
)

// Log specifies how Firefox should log debug data.
type Log struct {
	// Level is the verbosity level of logs that Firefox should output.
	Level LogLevel `json:"level"`
}
