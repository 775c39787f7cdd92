// Package browser implements page.Session over a WebDriver session.
package browser

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/wanmail/bankflow/page"
	"github.com/wanmail/bankflow/webdriver"
)

// DefaultActionTimeout bounds how long an action waits for its element to
// become present and interactable.
const DefaultActionTimeout = 10 * time.Second

// Session drives ParaBank pages through a WebDriver session. Paths passed to
// Navigate are resolved against the base URL.
type Session struct {
	wd       webdriver.WebDriver
	base     *url.URL
	timeout  time.Duration
	interval time.Duration
}

// Option configures a Session.
type Option func(*Session)

// ActionTimeout sets how long actions wait for their element.
func ActionTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// PollInterval sets how often actions re-query a missing element.
func PollInterval(d time.Duration) Option {
	return func(s *Session) { s.interval = d }
}

// New returns a Session over wd rooted at baseURL.
func New(wd webdriver.WebDriver, baseURL string, opts ...Option) (*Session, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	s := &Session{
		wd:       wd,
		base:     base,
		timeout:  DefaultActionTimeout,
		interval: webdriver.DefaultWaitInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// WebDriver returns the underlying WebDriver session.
func (s *Session) WebDriver() webdriver.WebDriver {
	return s.wd
}

// BaseURL returns the URL paths are resolved against.
func (s *Session) BaseURL() *url.URL {
	u := *s.base
	return &u
}

// Resolve turns path into an absolute URL on the base host.
func (s *Session) Resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return s.base.ResolveReference(ref).String(), nil
}

// Navigate loads path and blocks until the page has loaded or the page load
// timeout elapses.
func (s *Session) Navigate(path string) error {
	u, err := s.Resolve(path)
	if err != nil {
		return err
	}
	glog.V(1).Infof("navigate %s", u)
	return s.wd.Get(u)
}

// waitFor polls until an element matching l satisfies ready or the action
// timeout elapses. On timeout the last element error is returned, so a
// missing element surfaces as "no such element" rather than a bare timeout.
func (s *Session) waitFor(l page.Locator, ready func(webdriver.WebElement) (bool, error)) (webdriver.WebElement, error) {
	var (
		found   webdriver.WebElement
		lastErr error
	)
	err := s.wd.WaitWithTimeoutAndInterval(func(wd webdriver.WebDriver) (bool, error) {
		e, err := wd.FindElement(l.By, l.Value)
		if err != nil {
			if transient(err) {
				lastErr = err
				return false, nil
			}
			return false, err
		}
		ok, err := ready(e)
		if err != nil {
			if transient(err) {
				lastErr = err
				return false, nil
			}
			return false, err
		}
		if !ok {
			lastErr = &webdriver.Error{Err: webdriver.ErrElementNotInteractable, Message: fmt.Sprintf("element %s is not ready", l)}
			return false, nil
		}
		found = e
		return true, nil
	}, s.timeout, s.interval)
	if err != nil {
		if webdriver.HasCode(err, webdriver.ErrTimeout) && lastErr != nil {
			return nil, fmt.Errorf("%s: %w", l, lastErr)
		}
		return nil, fmt.Errorf("%s: %w", l, err)
	}
	return found, nil
}

func transient(err error) bool {
	return webdriver.HasCode(err, webdriver.ErrNoSuchElement) ||
		webdriver.HasCode(err, webdriver.ErrStaleElement)
}

func present(webdriver.WebElement) (bool, error) { return true, nil }

func interactable(e webdriver.WebElement) (bool, error) {
	displayed, err := e.IsDisplayed()
	if err != nil || !displayed {
		return false, err
	}
	return e.IsEnabled()
}

// Click clicks the element matching l once it is displayed and enabled.
func (s *Session) Click(l page.Locator) error {
	e, err := s.waitFor(l, interactable)
	if err != nil {
		return err
	}
	glog.V(1).Infof("click %s", l)
	if err := e.Click(); err != nil {
		return fmt.Errorf("click %s: %w", l, err)
	}
	return nil
}

// Fill clears the control matching l and types value into it.
func (s *Session) Fill(l page.Locator, value string) error {
	e, err := s.waitFor(l, interactable)
	if err != nil {
		return err
	}
	glog.V(2).Infof("fill %s", l)
	if err := e.Clear(); err != nil {
		return fmt.Errorf("clear %s: %w", l, err)
	}
	if err := e.SendKeys(value); err != nil {
		return fmt.Errorf("fill %s: %w", l, err)
	}
	return nil
}

// SelectOption picks o in the <select> matching l.
func (s *Session) SelectOption(l page.Locator, o page.Option) error {
	e, err := s.waitFor(l, interactable)
	if err != nil {
		return err
	}
	sel, err := webdriver.Select(e)
	if err != nil {
		return fmt.Errorf("%s: %w", l, err)
	}
	glog.V(1).Infof("select %s in %s", o, l)
	if o.Value != "" {
		err = sel.SelectByValue(o.Value)
	} else {
		err = sel.SelectByVisibleText(o.Label)
	}
	if err != nil {
		return fmt.Errorf("select %s in %s: %w", o, l, err)
	}
	return nil
}

// Text returns the trimmed text of the element matching l. Elements that are
// not rendered, such as the options of a closed <select>, fall back to their
// textContent.
func (s *Session) Text(l page.Locator) (string, error) {
	e, err := s.waitFor(l, present)
	if err != nil {
		return "", err
	}
	text, err := e.Text()
	if err != nil {
		return "", fmt.Errorf("text of %s: %w", l, err)
	}
	if text == "" {
		if content, err := e.GetProperty("textContent"); err == nil {
			text = content
		}
	}
	return strings.TrimSpace(text), nil
}

// Visible reports whether the first element matching l is displayed. A
// missing element is not an error.
func (s *Session) Visible(l page.Locator) (bool, error) {
	elems, err := s.wd.FindElements(l.By, l.Value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", l, err)
	}
	if len(elems) == 0 {
		return false, nil
	}
	displayed, err := elems[0].IsDisplayed()
	if webdriver.HasCode(err, webdriver.ErrStaleElement) {
		return false, nil
	}
	return displayed, err
}

// Cookies returns the browser's cookies as net/http values, for clients that
// share the browser's login.
func (s *Session) Cookies() ([]*http.Cookie, error) {
	cookies, err := s.wd.GetCookies()
	if err != nil {
		return nil, err
	}
	out := make([]*http.Cookie, len(cookies))
	for i, c := range cookies {
		out[i] = &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.Expiry > 0 {
			out[i].Expires = time.Unix(int64(c.Expiry), 0)
		}
	}
	return out, nil
}

// Close ends the WebDriver session.
func (s *Session) Close() error {
	return s.wd.Quit()
}

var _ page.Session = (*Session)(nil)
