// Remote WebDriver client implementation.
// See https://www.w3.org/TR/webdriver for the protocol.

package webdriver

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wanmail/bankflow/log"
)

const (
	// DefaultURLPrefix is the default HTTP endpoint that offers the WebDriver API.
	DefaultURLPrefix = "http://127.0.0.1:4444/wd/hub"
	// JSONType is JSON content type.
	JSONType = "application/json"
	// MaxRedirects is the maximum number of redirects to follow.
	MaxRedirects = 10

	// DefaultWaitInterval is the polling interval used by Wait.
	DefaultWaitInterval = 100 * time.Millisecond
	// DefaultWaitTimeout is the timeout used by Wait.
	DefaultWaitTimeout = 60 * time.Second

	// webElementIdentifier is the key under which W3C drivers encode element
	// references.
	webElementIdentifier = "element-6066-11e4-a52e-4f735466cecf"
	// legacyWebElementIdentifier is the pre-W3C element reference key.
	legacyWebElementIdentifier = "ELEMENT"
)

type remoteWD struct {
	id, urlPrefix string
	capabilities  Capabilities
	// negotiated holds the capabilities the server matched for the session.
	negotiated Capabilities
}

// httpClient is shared by every session; http.Client doesn't copy request
// headers on redirect, and drivers require the Accept header.
var httpClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) > MaxRedirects {
			return fmt.Errorf("too many redirects (%d)", len(via))
		}

		req.Header.Add("Accept", JSONType)
		return nil
	},
}

func newRequest(method string, url string, data []byte) (*http.Request, error) {
	request, err := http.NewRequest(method, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	request.Header.Add("Accept", JSONType)
	if data != nil {
		request.Header.Add("Content-Type", JSONType+"; charset=utf-8")
	}

	return request, nil
}

func cleanNils(buf []byte) {
	for i, b := range buf {
		if b == 0 {
			buf[i] = ' '
		}
	}
}

func (wd *remoteWD) requestURL(template string, args ...interface{}) string {
	return wd.urlPrefix + fmt.Sprintf(template, args...)
}

// serverReply is the envelope of every W3C response.
type serverReply struct {
	Value json.RawMessage
}

func (wd *remoteWD) execute(method, url string, data []byte) (json.RawMessage, error) {
	return executeCommand(method, url, data)
}

func executeCommand(method, url string, data []byte) (json.RawMessage, error) {
	debugLog("-> %s %s\n%s", method, url, data)
	request, err := newRequest(method, url, data)
	if err != nil {
		return nil, err
	}

	response, err := httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	buf, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("reading reply to %s %s: %w", method, url, err)
	}
	if debugEnabled() {
		var prettyBuf bytes.Buffer
		if err := json.Indent(&prettyBuf, buf, "", "    "); err == nil && prettyBuf.Len() > 0 {
			debugLog("<- %s [%s]\n%s", response.Status, response.Header.Get("Content-Type"), prettyBuf.Bytes())
		} else {
			debugLog("<- %s [%s]\n%s", response.Status, response.Header.Get("Content-Type"), buf)
		}
	}

	cleanNils(buf)

	reply := new(serverReply)
	if err := json.Unmarshal(buf, reply); err != nil {
		if response.StatusCode >= 400 {
			return nil, &Error{
				Err:      ErrUnknown,
				Message:  fmt.Sprintf("bad server reply status: %s", response.Status),
				HTTPCode: response.StatusCode,
			}
		}
		return nil, fmt.Errorf("decoding reply to %s %s: %w", method, url, err)
	}

	if len(reply.Value) > 0 && reply.Value[0] == '{' {
		e := new(Error)
		if err := json.Unmarshal(reply.Value, e); err == nil && e.Err != "" {
			e.HTTPCode = response.StatusCode
			return nil, e
		}
	}
	if response.StatusCode >= 400 {
		return nil, &Error{
			Err:      ErrUnknown,
			Message:  fmt.Sprintf("bad server reply status: %s", response.Status),
			HTTPCode: response.StatusCode,
		}
	}

	return reply.Value, nil
}

// NewRemote creates new remote client, this will also start a new session.
// capabilities provides the desired capabilities. urlPrefix is the URL to the
// WebDriver server, must be prefixed with protocol (http, https, ...).
//
// Providing an empty string for urlPrefix causes the DefaultURLPrefix to be
// used.
func NewRemote(capabilities Capabilities, urlPrefix string) (WebDriver, error) {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}

	wd := &remoteWD{urlPrefix: urlPrefix, capabilities: capabilities}
	if _, err := wd.NewSession(); err != nil {
		return nil, err
	}
	return wd, nil
}

// DeleteSession deletes an existing session at the WebDriver instance
// specified by the urlPrefix and the session ID.
func DeleteSession(urlPrefix, id string) error {
	u, err := url.Parse(urlPrefix)
	if err != nil {
		return err
	}
	u.Path += "/session/" + id
	_, err = executeCommand(http.MethodDelete, u.String(), nil)
	return err
}

func (wd *remoteWD) stringCommand(urlTemplate string) (string, error) {
	url := wd.requestURL(urlTemplate, wd.id)
	response, err := wd.execute(http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	var value *string
	if err := json.Unmarshal(response, &value); err != nil {
		return "", err
	}
	if value == nil {
		return "", fmt.Errorf("nil return value")
	}

	return *value, nil
}

func (wd *remoteWD) voidCommand(urlTemplate string, params interface{}) error {
	if params == nil {
		params = struct{}{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	_, err = wd.execute(http.MethodPost, wd.requestURL(urlTemplate, wd.id), data)
	return err
}

func (wd *remoteWD) boolCommand(urlTemplate string) (bool, error) {
	url := wd.requestURL(urlTemplate, wd.id)
	response, err := wd.execute(http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	var value bool
	if err := json.Unmarshal(response, &value); err != nil {
		return false, err
	}

	return value, nil
}

func (wd *remoteWD) Status() (*Status, error) {
	url := wd.requestURL("/status")
	reply, err := wd.execute(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	status := new(Status)
	if err := json.Unmarshal(reply, status); err != nil {
		return nil, err
	}

	return status, nil
}

func (wd *remoteWD) NewSession() (string, error) {
	message := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": wd.capabilities,
		},
	}
	data, err := json.Marshal(message)
	if err != nil {
		return "", err
	}

	response, err := wd.execute(http.MethodPost, wd.requestURL("/session"), data)
	if err != nil {
		return "", err
	}

	reply := new(struct {
		SessionID    string       `json:"sessionId"`
		Capabilities Capabilities `json:"capabilities"`
	})
	if err := json.Unmarshal(response, reply); err != nil {
		return "", err
	}
	if reply.SessionID == "" {
		return "", fmt.Errorf("new session reply has no session ID: %s", response)
	}

	wd.id = reply.SessionID
	wd.negotiated = reply.Capabilities
	return wd.id, nil
}

func (wd *remoteWD) SessionID() string {
	return wd.id
}

func (wd *remoteWD) Capabilities() Capabilities {
	return wd.negotiated
}

func (wd *remoteWD) SetImplicitWaitTimeout(timeout time.Duration) error {
	return wd.voidCommand("/session/%s/timeouts", map[string]uint{
		"implicit": uint(timeout / time.Millisecond),
	})
}

func (wd *remoteWD) SetPageLoadTimeout(timeout time.Duration) error {
	return wd.voidCommand("/session/%s/timeouts", map[string]uint{
		"pageLoad": uint(timeout / time.Millisecond),
	})
}

func (wd *remoteWD) Quit() error {
	if wd.id == "" {
		return nil
	}
	_, err := wd.execute(http.MethodDelete, wd.requestURL("/session/%s", wd.id), nil)
	if err == nil {
		wd.id = ""
	}
	return err
}

func (wd *remoteWD) CurrentURL() (string, error) {
	return wd.stringCommand("/session/%s/url")
}

func (wd *remoteWD) Get(url string) error {
	return wd.voidCommand("/session/%s/url", map[string]string{
		"url": url,
	})
}

func (wd *remoteWD) Title() (string, error) {
	return wd.stringCommand("/session/%s/title")
}

func (wd *remoteWD) PageSource() (string, error) {
	return wd.stringCommand("/session/%s/source")
}

func (wd *remoteWD) find(by, value, suffix, url string) (json.RawMessage, error) {
	// W3C drivers only understand CSS, link text, tag name and XPath; rewrite
	// the legacy strategies into CSS selectors.
	switch by {
	case ByID:
		by = ByCSSSelector
		value = "#" + cssEscape(value)
	case ByName:
		by = ByCSSSelector
		value = fmt.Sprintf("[name=%q]", value)
	case ByClassName:
		by = ByCSSSelector
		value = "." + cssEscape(value)
	}
	params := map[string]string{
		"using": by,
		"value": value,
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	if url == "" {
		url = "/session/%s/element"
	}

	return wd.execute(http.MethodPost, wd.requestURL(url+suffix, wd.id), data)
}

func cssEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '-' || r == '_',
			r >= '0' && r <= '9',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (wd *remoteWD) decodeElement(data []byte) (WebElement, error) {
	reply := make(map[string]string)
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}
	id := elementID(reply)
	if id == "" {
		return nil, fmt.Errorf("invalid element returned: %s", data)
	}
	return &remoteWE{parent: wd, id: id}, nil
}

func elementID(v map[string]string) string {
	if id, ok := v[webElementIdentifier]; ok {
		return id
	}
	return v[legacyWebElementIdentifier]
}

func (wd *remoteWD) decodeElements(data []byte) ([]WebElement, error) {
	var reply []map[string]string
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}

	elems := make([]WebElement, len(reply))
	for i, elem := range reply {
		id := elementID(elem)
		if id == "" {
			return nil, fmt.Errorf("invalid element returned: %+v", elem)
		}
		elems[i] = &remoteWE{parent: wd, id: id}
	}

	return elems, nil
}

func (wd *remoteWD) FindElement(by, value string) (WebElement, error) {
	response, err := wd.find(by, value, "", "")
	if err != nil {
		return nil, err
	}
	return wd.decodeElement(response)
}

func (wd *remoteWD) FindElements(by, value string) ([]WebElement, error) {
	response, err := wd.find(by, value, "s", "")
	if err != nil {
		return nil, err
	}

	return wd.decodeElements(response)
}

func (wd *remoteWD) GetCookies() ([]Cookie, error) {
	url := wd.requestURL("/session/%s/cookie", wd.id)
	data, err := wd.execute(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	// ChromeDriver returns the expiration date as a float. Handle both formats
	// via a type switch.
	type cookie struct {
		Name     string      `json:"name"`
		Value    string      `json:"value"`
		Path     string      `json:"path"`
		Domain   string      `json:"domain"`
		Secure   bool        `json:"secure"`
		HTTPOnly bool        `json:"httpOnly"`
		Expiry   interface{} `json:"expiry"`
	}

	var reply []cookie
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}

	cookies := make([]Cookie, len(reply))
	for i, c := range reply {
		sanitized := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if expiry, ok := c.Expiry.(float64); ok && expiry > 0 {
			sanitized.Expiry = uint(expiry)
		}
		cookies[i] = sanitized
	}

	return cookies, nil
}

func (wd *remoteWD) execScript(script string, args []interface{}) (interface{}, error) {
	if args == nil {
		args = make([]interface{}, 0)
	}

	data, err := json.Marshal(map[string]interface{}{
		"script": script,
		"args":   args,
	})
	if err != nil {
		return nil, err
	}

	response, err := wd.execute(http.MethodPost, wd.requestURL("/session/%s/execute/sync", wd.id), data)
	if err != nil {
		return nil, err
	}

	var value interface{}
	if err = json.Unmarshal(response, &value); err != nil {
		return nil, err
	}

	return value, nil
}

func (wd *remoteWD) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	return wd.execScript(script, args)
}

func (wd *remoteWD) Screenshot() ([]byte, error) {
	data, err := wd.stringCommand("/session/%s/screenshot")
	if err != nil {
		return nil, err
	}

	// Drivers return a base64 encoded image.
	return base64.StdEncoding.DecodeString(data)
}

func (wd *remoteWD) Log(typ log.Type) ([]log.Message, error) {
	url := wd.requestURL("/session/%s/se/log", wd.id)
	data, err := json.Marshal(map[string]log.Type{
		"type": typ,
	})
	if err != nil {
		return nil, err
	}
	response, err := wd.execute(http.MethodPost, url, data)
	if err != nil {
		return nil, err
	}

	var reply []struct {
		Timestamp int64
		Level     log.Level
		Message   string
	}
	if err := json.Unmarshal(response, &reply); err != nil {
		return nil, err
	}

	messages := make([]log.Message, len(reply))
	for i, m := range reply {
		messages[i] = log.Message{
			Timestamp: time.Unix(0, m.Timestamp*int64(time.Millisecond)),
			Level:     m.Level,
			Message:   m.Message,
		}
	}
	return messages, nil
}

func (wd *remoteWD) WaitWithTimeoutAndInterval(condition Condition, timeout, interval time.Duration) error {
	startTime := time.Now()

	for {
		done, err := condition(wd)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if elapsed := time.Since(startTime); elapsed > timeout {
			return &Error{Err: ErrTimeout, Message: fmt.Sprintf("condition not met after %v", elapsed)}
		}
		time.Sleep(interval)
	}
}

func (wd *remoteWD) WaitWithTimeout(condition Condition, timeout time.Duration) error {
	return wd.WaitWithTimeoutAndInterval(condition, timeout, DefaultWaitInterval)
}

func (wd *remoteWD) Wait(condition Condition) error {
	return wd.WaitWithTimeoutAndInterval(condition, DefaultWaitTimeout, DefaultWaitInterval)
}

type remoteWE struct {
	parent *remoteWD
	id     string
}

func (elem *remoteWE) Click() error {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/click", elem.id)
	return elem.parent.voidCommand(urlTemplate, nil)
}

func (elem *remoteWE) SendKeys(keys string) error {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/value", elem.id)
	return elem.parent.voidCommand(urlTemplate, processKeyString(keys))
}

func processKeyString(keys string) interface{} {
	chars := make([]string, 0, len(keys))
	for _, c := range keys {
		chars = append(chars, string(c))
	}
	return map[string]interface{}{
		"text":  keys,
		"value": chars,
	}
}

func (elem *remoteWE) TagName() (string, error) {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/name", elem.id)
	return elem.parent.stringCommand(urlTemplate)
}

func (elem *remoteWE) Text() (string, error) {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/text", elem.id)
	return elem.parent.stringCommand(urlTemplate)
}

func (elem *remoteWE) Clear() error {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/clear", elem.id)
	return elem.parent.voidCommand(urlTemplate, nil)
}

func (elem *remoteWE) FindElement(by, value string) (WebElement, error) {
	url := fmt.Sprintf("/session/%%s/element/%s/element", elem.id)
	response, err := elem.parent.find(by, value, "", url)
	if err != nil {
		return nil, err
	}

	return elem.parent.decodeElement(response)
}

func (elem *remoteWE) FindElements(by, value string) ([]WebElement, error) {
	url := fmt.Sprintf("/session/%%s/element/%s/element", elem.id)
	response, err := elem.parent.find(by, value, "s", url)
	if err != nil {
		return nil, err
	}

	return elem.parent.decodeElements(response)
}

func (elem *remoteWE) boolQuery(urlTemplate string) (bool, error) {
	return elem.parent.boolCommand(fmt.Sprintf(urlTemplate, elem.id))
}

func (elem *remoteWE) IsSelected() (bool, error) {
	return elem.boolQuery("/session/%%s/element/%s/selected")
}

func (elem *remoteWE) IsEnabled() (bool, error) {
	return elem.boolQuery("/session/%%s/element/%s/enabled")
}

func (elem *remoteWE) IsDisplayed() (bool, error) {
	return elem.boolQuery("/session/%%s/element/%s/displayed")
}

func (elem *remoteWE) GetAttribute(name string) (string, error) {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/attribute/%s", elem.id, url.PathEscape(name))
	return elem.parent.stringCommand(urlTemplate)
}

func (elem *remoteWE) GetProperty(name string) (string, error) {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/property/%s", elem.id, url.PathEscape(name))
	return elem.parent.stringCommand(urlTemplate)
}

func (elem *remoteWE) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		legacyWebElementIdentifier: elem.id,
		webElementIdentifier:       elem.id,
	})
}
