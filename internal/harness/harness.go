// Package harness assembles a live bankflow run from a config.Config: the
// application under test, the WebDriver session, the API client and the
// failure diagnostics.
package harness

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/blang/semver"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/wanmail/bankflow/bankapi"
	"github.com/wanmail/bankflow/browser"
	"github.com/wanmail/bankflow/chrome"
	"github.com/wanmail/bankflow/firefox"
	"github.com/wanmail/bankflow/internal/config"
	"github.com/wanmail/bankflow/internal/fakebank"
	"github.com/wanmail/bankflow/log"
	"github.com/wanmail/bankflow/netlog"
	"github.com/wanmail/bankflow/sauce"
	"github.com/wanmail/bankflow/scenario"
	"github.com/wanmail/bankflow/webdriver"
)

// Window size of headless browsers.
const (
	ViewportWidth  = 1280
	ViewportHeight = 1024
)

// Harness owns the resources of one run.
type Harness struct {
	Config config.Config
	// RunID names the artifacts of the run.
	RunID   string
	BaseURL string
	Session *browser.Session
	API     *bankapi.Client
	// Artifacts lists the files written for failed steps.
	Artifacts []string

	started  time.Time
	wd       webdriver.WebDriver
	service  *webdriver.Service
	tunnel   *sauce.Tunnel
	stopBank func(context.Context) error
}

// Start brings up everything cfg describes. On error, whatever was already
// started is torn down.
func Start(cfg config.Config) (_ *Harness, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	webdriver.SetDebug(cfg.Debug)

	h := &Harness{Config: cfg, RunID: uuid.NewString(), BaseURL: cfg.BaseURL, started: time.Now()}
	defer func() {
		if err != nil {
			if cerr := h.Close(); cerr != nil {
				glog.Warningf("cleaning up after failed start: %v", cerr)
			}
		}
	}()

	if h.BaseURL == "" {
		base, stop, err := fakebank.Start("127.0.0.1:0")
		if err != nil {
			return nil, fmt.Errorf("starting fake bank: %w", err)
		}
		h.BaseURL, h.stopBank = base, stop
	}

	caps, err := Capabilities(cfg, h.RunID)
	if err != nil {
		return nil, err
	}
	addr, err := h.driverAddr()
	if err != nil {
		return nil, err
	}
	h.wd, err = webdriver.NewRemote(caps, addr)
	if err != nil {
		return nil, fmt.Errorf("new %s session at %s: %w", cfg.Browser, addr, err)
	}
	glog.Infof("run %s: %s session %s against %s", h.RunID, cfg.Browser, h.wd.SessionID(), h.BaseURL)

	if least, ok, _ := cfg.MinVersion(); ok {
		if err := CheckDriverVersion(h.wd.Capabilities(), least); err != nil {
			return nil, err
		}
	}
	if err := h.wd.SetPageLoadTimeout(cfg.PageLoadTimeout); err != nil {
		return nil, err
	}
	if cfg.ImplicitWait > 0 {
		if err := h.wd.SetImplicitWaitTimeout(cfg.ImplicitWait); err != nil {
			return nil, err
		}
	}

	if h.Session, err = browser.New(h.wd, h.BaseURL, browser.ActionTimeout(cfg.ActionTimeout)); err != nil {
		return nil, err
	}
	if h.API, err = bankapi.New(h.BaseURL); err != nil {
		return nil, err
	}
	return h, nil
}

// driverAddr returns the WebDriver URL prefix, starting a local driver or a
// Sauce Connect tunnel when the config asks for one.
func (h *Harness) driverAddr() (string, error) {
	cfg := h.Config
	switch {
	case cfg.Sauce():
		if cfg.SauceConnect != "" {
			h.tunnel = &sauce.Tunnel{
				Path:      cfg.SauceConnect,
				UserName:  cfg.SauceUser,
				AccessKey: cfg.SauceKey,
				Name:      h.RunID,
				Region:    cfg.SauceRegion,
			}
			if err := h.tunnel.Start(); err != nil {
				h.tunnel = nil
				return "", fmt.Errorf("starting Sauce Connect: %w", err)
			}
		}
		return sauce.Addr(cfg.SauceUser, cfg.SauceKey, cfg.SauceRegion), nil
	case cfg.RemoteURL != "":
		return cfg.RemoteURL, nil
	}

	if cfg.DriverPath == "" {
		return "", errors.New("no driver path, remote URL or SauceLabs credentials configured")
	}
	port, err := PickUnusedPort()
	if err != nil {
		return "", err
	}
	var opts []webdriver.ServiceOption
	if cfg.StartFrameBuffer {
		opts = append(opts, webdriver.StartFrameBufferWithOptions(webdriver.FrameBufferOptions{
			ScreenSize: fmt.Sprintf("%dx%dx24", ViewportWidth, ViewportHeight),
		}))
	}
	if cfg.Debug {
		opts = append(opts, webdriver.Output(os.Stderr))
	}
	if cfg.Browser == config.Firefox {
		h.service, err = webdriver.NewGeckoDriverService(cfg.DriverPath, port, opts...)
	} else {
		h.service, err = webdriver.NewChromeDriverService(cfg.DriverPath, port, opts...)
	}
	if err != nil {
		return "", fmt.Errorf("starting %s: %w", cfg.DriverPath, err)
	}
	return h.service.Addr(), nil
}

// Capabilities returns the session capabilities for cfg. runID labels
// SauceLabs jobs and selects the run's tunnel.
func Capabilities(cfg config.Config, runID string) (webdriver.Capabilities, error) {
	caps := webdriver.Capabilities{"browserName": cfg.Browser}

	switch cfg.Browser {
	case config.Chrome:
		enable, disable := true, false
		ch := chrome.Capabilities{
			Path: cfg.BrowserBinary,
			W3C:  true,
			PerfLoggingPrefs: &chrome.PerfLoggingPreferences{
				EnableNetwork: &enable,
				EnablePage:    &disable,
			},
		}
		if cfg.Headless {
			ch.Headless(ViewportWidth, ViewportHeight)
		}
		if cfg.Proxy != "" {
			// Chrome never proxies loopback traffic unless told to.
			ch.Args = append(ch.Args, "--proxy-bypass-list=<-loopback>")
		}
		caps.AddChrome(ch)
		caps.SetLogLevel(log.Performance, log.All)
		caps.SetLogLevel(log.Browser, log.All)

	case config.Firefox:
		ff := firefox.Capabilities{Binary: cfg.BrowserBinary}
		if cfg.Headless {
			ff.Headless(ViewportWidth, ViewportHeight)
		}
		if cfg.Proxy != "" {
			ff.SetPref("network.proxy.no_proxies_on", "")
			ff.SetPref("network.proxy.allow_hijacking_localhost", true)
		}
		caps.AddFirefox(ff)

	default:
		return nil, fmt.Errorf("unsupported browser %q", cfg.Browser)
	}

	if cfg.Proxy != "" {
		caps.AddProxy(webdriver.Proxy{
			Type:         webdriver.Manual,
			SOCKS:        cfg.Proxy,
			SOCKSVersion: 5,
		})
	}
	if cfg.Sauce() {
		sc := sauce.Capabilities{
			TestName:    "ParaBank end-to-end",
			BuildNumber: runID,
			Tags:        []string{"bankflow"},
		}
		if cfg.SauceConnect != "" {
			sc.TunnelName = runID
		}
		if err := caps.AddSauce(sc); err != nil {
			return nil, err
		}
	}
	return caps, nil
}

// CheckDriverVersion fails when the session's driver is older than least.
func CheckDriverVersion(caps webdriver.Capabilities, least semver.Version) error {
	v, err := webdriver.DriverVersion(caps)
	if err != nil {
		return err
	}
	if v.LT(least) {
		return fmt.Errorf("driver version %v is older than the required %v", v, least)
	}
	glog.V(1).Infof("driver version %v satisfies %v", v, least)
	return nil
}

// PickUnusedPort returns a TCP port that was free a moment ago.
func PickUnusedPort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}

// Env returns the scenario environment of the run.
func (h *Harness) Env(opts ...scenario.EnvOption) *scenario.Env {
	opts = append([]scenario.EnvOption{
		scenario.WithExpectTimeout(h.Config.ExpectTimeout),
		scenario.WithSharedCookies(h.Config.ShareCookies),
	}, opts...)
	return scenario.NewEnv(h.Session, h.API, opts...)
}

// Runner returns a runner of steps that records diagnostics when a step
// fails.
func (h *Harness) Runner(steps []scenario.Step) *scenario.Runner {
	return &scenario.Runner{Steps: steps, OnFailure: h.onFailure}
}

// Run executes the ParaBank workflow.
func (h *Harness) Run(ctx context.Context) (*scenario.Report, error) {
	return h.Runner(scenario.ParaBankSteps()).Run(ctx, h.Env(), scenario.State{})
}

func (h *Harness) onFailure(_ context.Context, _ *scenario.Env, err *scenario.StepError) {
	glog.Errorf("run %s: %v", h.RunID, err)
	if err := h.SaveArtifacts(err.Name); err != nil {
		glog.Warningf("saving artifacts: %v", err)
	}
	h.LogDiagnostics()
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SaveArtifacts writes a screenshot and the page source of the current page
// to <ArtifactsDir>/<RunID>-<step>.{png,html}.
func (h *Harness) SaveArtifacts(step string) error {
	if h.Config.ArtifactsDir == "" {
		return nil
	}
	if err := os.MkdirAll(h.Config.ArtifactsDir, 0755); err != nil {
		return err
	}
	prefix := filepath.Join(h.Config.ArtifactsDir, h.RunID+"-"+unsafeName.ReplaceAllString(step, "_"))

	var errs []error
	if png, err := h.wd.Screenshot(); err != nil {
		errs = append(errs, fmt.Errorf("screenshot: %w", err))
	} else if err := h.write(prefix+".png", png); err != nil {
		errs = append(errs, err)
	}
	if src, err := h.wd.PageSource(); err != nil {
		errs = append(errs, fmt.Errorf("page source: %w", err))
	} else if err := h.write(prefix+".html", []byte(src)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (h *Harness) write(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	glog.Infof("wrote %s", path)
	h.Artifacts = append(h.Artifacts, path)
	return nil
}

// LogDiagnostics logs the failed network requests and the severe console
// messages Chrome recorded since the run started.
func (h *Harness) LogDiagnostics() {
	if h.Config.Browser != config.Chrome {
		return
	}
	if perf, err := h.wd.Log(log.Performance); err != nil {
		glog.Warningf("reading performance log: %v", err)
	} else if failures, err := netlog.Failures(perf); err != nil {
		glog.Warningf("decoding performance log: %v", err)
	} else if len(failures) > 0 {
		glog.Warningf("run %s: %s", h.RunID, netlog.Summary(failures))
	}

	console, err := h.wd.Log(log.Browser)
	if err != nil {
		glog.Warningf("reading browser log: %v", err)
		return
	}
	for _, m := range log.Filter(console, log.Severe, h.started) {
		glog.Warningf("console %s %s: %s", m.Timestamp.Format(time.RFC3339), m.Level, m.Message)
	}
}

// Close ends the browser session and stops everything Start started.
func (h *Harness) Close() error {
	var errs []error
	if h.wd != nil {
		if err := h.wd.Quit(); err != nil {
			errs = append(errs, fmt.Errorf("quit: %w", err))
		}
		h.wd = nil
	}
	if h.service != nil {
		if err := h.service.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping driver: %w", err))
		}
		h.service = nil
	}
	if h.tunnel != nil {
		if err := h.tunnel.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping tunnel: %w", err))
		}
		h.tunnel = nil
	}
	if h.stopBank != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.stopBank(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping fake bank: %w", err))
		}
		h.stopBank = nil
	}
	return errors.Join(errs...)
}
