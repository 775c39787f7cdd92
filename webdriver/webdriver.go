package webdriver

import (
	"time"

	"github.com/wanmail/bankflow/chrome"
	"github.com/wanmail/bankflow/firefox"
	"github.com/wanmail/bankflow/log"
	"github.com/wanmail/bankflow/sauce"
)

// Methods by which to find elements.
const (
	ByID              = "id"
	ByXPATH           = "xpath"
	ByLinkText        = "link text"
	ByPartialLinkText = "partial link text"
	ByName            = "name"
	ByTagName         = "tag name"
	ByClassName       = "class name"
	ByCSSSelector     = "css selector"
)

// Special keyboard keys, for SendKeys.
const (
	NullKey   = string('\ue000')
	TabKey    = string('\ue004')
	ClearKey  = string('\ue005')
	ReturnKey = string('\ue006')
	EnterKey  = string('\ue007')
	EscapeKey = string('\ue00c')
)

// Capabilities configures both the WebDriver process and the target browsers,
// with standard and browser-specific options.
type Capabilities map[string]interface{}

// AddChrome adds Chrome-specific capabilities.
func (c Capabilities) AddChrome(f chrome.Capabilities) {
	c[chrome.CapabilitiesKey] = f
}

// AddFirefox adds Firefox-specific capabilities.
func (c Capabilities) AddFirefox(f firefox.Capabilities) {
	c[firefox.CapabilitiesKey] = f
}

// AddSauce adds Sauce Labs job options.
func (c Capabilities) AddSauce(s sauce.Capabilities) error {
	m, err := s.ToMap()
	if err != nil {
		return err
	}
	c[sauce.CapabilitiesKey] = m
	return nil
}

// AddProxy adds proxy configuration to the capabilities.
func (c Capabilities) AddProxy(p Proxy) {
	c["proxy"] = p
}

// AddLogging adds logging configuration to the capabilities.
func (c Capabilities) AddLogging(l log.Capabilities) {
	c[log.CapabilitiesKey] = l
}

// SetLogLevel sets the logging level of a component. It is a shortcut for
// passing a log.Capabilities instance to AddLogging.
func (c Capabilities) SetLogLevel(typ log.Type, level log.Level) {
	if _, ok := c[log.CapabilitiesKey]; !ok {
		c[log.CapabilitiesKey] = make(log.Capabilities)
	}
	m := c[log.CapabilitiesKey].(log.Capabilities)
	m[typ] = level
}

// Proxy specifies configuration for proxies in the browser. Set the key
// "proxy" in Capabilities to an instance of this type.
type Proxy struct {
	// Type is the type of proxy to use. This is required to be populated.
	Type ProxyType `json:"proxyType"`

	// AutoconfigURL is the URL to be used for proxy auto configuration. This is
	// required if Type is set to PAC.
	AutoconfigURL string `json:"proxyAutoconfigUrl,omitempty"`

	// The following are used when Type is set to Manual.
	HTTP         string   `json:"httpProxy,omitempty"`
	SSL          string   `json:"sslProxy,omitempty"`
	SOCKS        string   `json:"socksProxy,omitempty"`
	SOCKSVersion int      `json:"socksVersion,omitempty"`
	NoProxy      []string `json:"noProxy,omitempty"`
}

// ProxyType is an enumeration of the types of proxies available.
type ProxyType string

const (
	// Direct connection - no proxy in use.
	Direct ProxyType = "direct"
	// Manual proxy settings configured, e.g. setting a proxy for HTTP.
	Manual ProxyType = "manual"
	// Autodetect proxy, probably with WPAD.
	Autodetect ProxyType = "autodetect"
	// System settings used.
	System ProxyType = "system"
	// PAC - Proxy autoconfiguration from a URL.
	PAC ProxyType = "pac"
)

// Status contains information returned by the Status method.
type Status struct {
	Ready   bool
	Message string
	Build   struct {
		Version string
	}
	OS struct {
		Arch, Name, Version string
	}
}

// Cookie represents an HTTP cookie.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path"`
	Domain   string `json:"domain"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
	Expiry   uint   `json:"expiry"`
}

// Condition is an arbitrary function that the Wait methods poll until it
// returns true or an error.
type Condition func(wd WebDriver) (bool, error)

// WebDriver defines the session-level commands the suite drives.
type WebDriver interface {
	// Status returns various pieces of information about the server environment.
	Status() (*Status, error)

	// NewSession starts a new session and returns the session ID.
	NewSession() (string, error)
	// SessionID returns the current session ID.
	SessionID() string
	// Capabilities returns the capabilities the server matched when the
	// session was created.
	Capabilities() Capabilities

	// SetImplicitWaitTimeout sets the amount of time the driver should wait when
	// searching for elements. The timeout will be rounded to nearest millisecond.
	SetImplicitWaitTimeout(timeout time.Duration) error
	// SetPageLoadTimeout sets the amount of time the driver should wait when
	// loading a page. The timeout will be rounded to nearest millisecond.
	SetPageLoadTimeout(timeout time.Duration) error

	// Quit ends the current session. The browser instance will be closed.
	Quit() error

	// CurrentURL returns the browser's current URL.
	CurrentURL() (string, error)
	// Title returns the current page's title.
	Title() (string, error)
	// PageSource returns the current page's source.
	PageSource() (string, error)

	// Get navigates the browser to the provided URL and blocks until the page
	// has loaded or the page load timeout elapses.
	Get(url string) error

	// FindElement finds exactly one element in the current page's DOM.
	FindElement(by, value string) (WebElement, error)
	// FindElements finds potentially many elements in the current page's DOM.
	FindElements(by, value string) ([]WebElement, error)

	// GetCookies returns all of the cookies in the browser's jar.
	GetCookies() ([]Cookie, error)

	// Screenshot takes a screenshot of the browser window.
	Screenshot() ([]byte, error)
	// Log fetches the logs. Log types must be previously configured in the
	// capabilities.
	Log(typ log.Type) ([]log.Message, error)

	// ExecuteScript executes a script.
	ExecuteScript(script string, args []interface{}) (interface{}, error)

	// WaitWithTimeoutAndInterval waits for the condition to evaluate to true.
	WaitWithTimeoutAndInterval(condition Condition, timeout, interval time.Duration) error
	// WaitWithTimeout works like WaitWithTimeoutAndInterval, but with default polling interval.
	WaitWithTimeout(condition Condition, timeout time.Duration) error
	// Wait works like WaitWithTimeoutAndInterval, but using the default timeout and polling interval.
	Wait(condition Condition) error
}

// WebElement defines method supported by web elements.
type WebElement interface {
	// Click clicks on the element.
	Click() error
	// SendKeys types into the element.
	SendKeys(keys string) error
	// Clear clears the element.
	Clear() error

	// FindElement finds a child element.
	FindElement(by, value string) (WebElement, error)
	// FindElements finds multiple children elements.
	FindElements(by, value string) ([]WebElement, error)

	// TagName returns the element's name.
	TagName() (string, error)
	// Text returns the text of the element.
	Text() (string, error)
	// IsSelected returns true if element is selected.
	IsSelected() (bool, error)
	// IsEnabled returns true if the element is enabled.
	IsEnabled() (bool, error)
	// IsDisplayed returns true if the element is displayed.
	IsDisplayed() (bool, error)
	// GetAttribute returns the named attribute of the element.
	GetAttribute(name string) (string, error)
	// GetProperty returns the named DOM property of the element.
	GetProperty(name string) (string, error)
}
