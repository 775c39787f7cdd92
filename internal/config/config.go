// Package config gathers the settings of a bankflow run from the
// environment, an optional .env file and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/joho/godotenv"
	"github.com/wanmail/bankflow/webdriver"
)

// EnvPrefix starts the name of every environment variable read by Load.
const EnvPrefix = "BANKFLOW_"

// PublicParaBank is the public ParaBank demo instance.
const PublicParaBank = "https://parabank.parasoft.com"

// Browsers supported by the harness.
const (
	Chrome  = "chrome"
	Firefox = "firefox"
)

// Config describes one run.
type Config struct {
	// BaseURL is the scheme and host of ParaBank. When empty, a local fake
	// bank is started instead.
	BaseURL string
	// Browser is Chrome or Firefox.
	Browser  string
	Headless bool

	// DriverPath is the chromedriver or geckodriver binary started locally
	// when RemoteURL is empty.
	DriverPath string
	// BrowserBinary overrides the browser executable.
	BrowserBinary string
	// RemoteURL is the prefix of an already running WebDriver server.
	RemoteURL string

	SauceUser    string
	SauceKey     string
	SauceRegion  string
	SauceConnect string

	StartFrameBuffer bool

	PageLoadTimeout time.Duration
	ImplicitWait    time.Duration
	ActionTimeout   time.Duration
	ExpectTimeout   time.Duration

	// ArtifactsDir receives screenshots and page sources of failed steps.
	ArtifactsDir string
	// MinDriverVersion, if set, is the lowest acceptable driver version.
	MinDriverVersion string
	// Proxy is a host:port the browser sends its traffic through.
	Proxy        string
	ShareCookies bool
	Debug        bool
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Browser:         Chrome,
		Headless:        true,
		SauceRegion:     "us-west-1",
		PageLoadTimeout: 30 * time.Second,
		ActionTimeout:   10 * time.Second,
		ExpectTimeout:   5 * time.Second,
		ArtifactsDir:    "artifacts",
	}
}

// Load reads the environment on top of Default. The named files are loaded
// into the environment first without overriding variables already set; with
// no names, a .env file in the working directory is loaded if present.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, err
	}

	c := Default()
	e := &envReader{}
	e.str("BASE_URL", &c.BaseURL)
	e.str("BROWSER", &c.Browser)
	e.boolean("HEADLESS", &c.Headless)
	e.str("DRIVER_PATH", &c.DriverPath)
	e.str("BROWSER_BINARY", &c.BrowserBinary)
	e.str("REMOTE_URL", &c.RemoteURL)
	e.str("SAUCE_USER", &c.SauceUser)
	e.str("SAUCE_KEY", &c.SauceKey)
	e.str("SAUCE_REGION", &c.SauceRegion)
	e.str("SAUCE_CONNECT", &c.SauceConnect)
	e.boolean("START_FRAME_BUFFER", &c.StartFrameBuffer)
	e.duration("PAGE_LOAD_TIMEOUT", &c.PageLoadTimeout)
	e.duration("IMPLICIT_WAIT", &c.ImplicitWait)
	e.duration("ACTION_TIMEOUT", &c.ActionTimeout)
	e.duration("EXPECT_TIMEOUT", &c.ExpectTimeout)
	e.str("ARTIFACTS_DIR", &c.ArtifactsDir)
	e.str("MIN_DRIVER_VERSION", &c.MinDriverVersion)
	e.str("PROXY", &c.Proxy)
	e.boolean("SHARE_COOKIES", &c.ShareCookies)
	e.boolean("DEBUG", &c.Debug)
	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	return c, nil
}

type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %q is not a boolean", EnvPrefix, key, v))
		return
	}
	*dst = b
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %q is not a duration", EnvPrefix, key, v))
		return
	}
	*dst = d
}

// BindFlags registers flags on fs that override the fields of c, using the
// current values as defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.BaseURL, "parabank_url", c.BaseURL, "The scheme and host of ParaBank, e.g. "+PublicParaBank+". If empty, a local fake bank is started.")
	fs.StringVar(&c.Browser, "browser", c.Browser, "The browser to drive: chrome or firefox.")
	fs.BoolVar(&c.Headless, "headless", c.Headless, "If true, run the browser without a window.")
	fs.StringVar(&c.DriverPath, "driver_path", c.DriverPath, "The path to the chromedriver or geckodriver binary. If empty and no remote is set, live runs are skipped.")
	fs.StringVar(&c.BrowserBinary, "browser_binary", c.BrowserBinary, "The browser binary to launch instead of the driver's default.")
	fs.StringVar(&c.RemoteURL, "remote_url", c.RemoteURL, "The URL prefix of a running WebDriver server, e.g. http://localhost:4444/wd/hub.")
	fs.StringVar(&c.SauceUser, "sauce_user_name", c.SauceUser, "The username to use for SauceLabs.")
	fs.StringVar(&c.SauceKey, "sauce_access_key", c.SauceKey, "The access key to use for SauceLabs.")
	fs.StringVar(&c.SauceRegion, "sauce_region", c.SauceRegion, "The SauceLabs data center.")
	fs.StringVar(&c.SauceConnect, "sauce_connect_path", c.SauceConnect, "The path to the Sauce Connect binary. If set, a tunnel is opened for the run.")
	fs.BoolVar(&c.StartFrameBuffer, "start_frame_buffer", c.StartFrameBuffer, "If true, start an Xvfb subprocess and run the browser in that X server.")
	fs.DurationVar(&c.PageLoadTimeout, "page_load_timeout", c.PageLoadTimeout, "How long navigation may take.")
	fs.DurationVar(&c.ImplicitWait, "implicit_wait", c.ImplicitWait, "The driver's implicit element wait.")
	fs.DurationVar(&c.ActionTimeout, "action_timeout", c.ActionTimeout, "How long clicks and fills wait for their element.")
	fs.DurationVar(&c.ExpectTimeout, "expect_timeout", c.ExpectTimeout, "How long page expectations poll.")
	fs.StringVar(&c.ArtifactsDir, "artifacts_dir", c.ArtifactsDir, "Where screenshots and page sources of failed steps are written.")
	fs.StringVar(&c.MinDriverVersion, "min_driver_version", c.MinDriverVersion, "If set, refuse drivers older than this version.")
	fs.StringVar(&c.Proxy, "proxy", c.Proxy, "A host:port proxy for the browser's traffic.")
	fs.BoolVar(&c.ShareCookies, "share_cookies", c.ShareCookies, "If true, the API cross-check runs with the browser's session cookies.")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "If true, log the WebDriver wire traffic.")
}

// Sauce reports whether the run targets SauceLabs.
func (c Config) Sauce() bool {
	return c.SauceUser != "" && c.SauceKey != ""
}

// Local reports whether the harness starts the driver itself.
func (c Config) Local() bool {
	return c.RemoteURL == "" && !c.Sauce()
}

// MinVersion parses MinDriverVersion. ok is false when none is set.
func (c Config) MinVersion() (v semver.Version, ok bool, err error) {
	if c.MinDriverVersion == "" {
		return semver.Version{}, false, nil
	}
	v, err = webdriver.ParseVersion(c.MinDriverVersion)
	if err != nil {
		return semver.Version{}, false, fmt.Errorf("min driver version %q: %w", c.MinDriverVersion, err)
	}
	return v, true, nil
}

// Validate reports every inconsistent setting.
func (c Config) Validate() error {
	var errs []error
	switch c.Browser {
	case Chrome, Firefox:
	default:
		errs = append(errs, fmt.Errorf("browser %q: must be %q or %q", c.Browser, Chrome, Firefox))
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("base URL %q must be absolute", c.BaseURL))
		}
	}
	if c.RemoteURL != "" && c.Sauce() {
		errs = append(errs, errors.New("remote URL and SauceLabs credentials are mutually exclusive"))
	}
	if (c.SauceUser == "") != (c.SauceKey == "") {
		errs = append(errs, errors.New("SauceLabs needs both a user name and an access key"))
	}
	if _, _, err := c.MinVersion(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
