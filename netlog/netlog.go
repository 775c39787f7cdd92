// Package netlog turns Chrome performance log entries into a list of failed
// network requests, to explain what the page was doing when a step failed.
//
// Chrome reports DevTools protocol events through the WebDriver performance
// log when the session is created with
//
//	caps.SetLogLevel(log.Performance, log.All)
package netlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/network"
	"github.com/mailru/easyjson"
	"github.com/wanmail/bankflow/log"
)

// Failure is a request that failed at the network level or got an HTTP error
// status.
type Failure struct {
	Time       time.Time
	URL        string
	Method     string
	Status     int64
	StatusText string
	MimeType   string
	// Reason is the network error text when no response was received.
	Reason string
}

func (f Failure) String() string {
	method := f.Method
	if method == "" {
		method = "GET"
	}
	if f.Reason != "" {
		return fmt.Sprintf("%s %s: %s", method, f.URL, f.Reason)
	}
	return fmt.Sprintf("%s %s: %d %s", method, f.URL, f.Status, f.StatusText)
}

// envelope is the shape of one performance log message.
type envelope struct {
	Message json.RawMessage `json:"message"`
}

type request struct {
	url, method string
}

// Failures decodes msgs, which must come from the performance log, and returns
// the requests that failed, in log order. Entries that are not network
// events are skipped; undecodable entries are an error.
func Failures(msgs []log.Message) ([]Failure, error) {
	requests := make(map[network.RequestID]request)
	var failures []Failure
	for _, m := range msgs {
		var env envelope
		if err := json.Unmarshal([]byte(m.Message), &env); err != nil {
			return nil, fmt.Errorf("decoding performance log entry: %w", err)
		}
		if len(env.Message) == 0 {
			continue
		}
		var msg cdproto.Message
		if err := easyjson.Unmarshal(env.Message, &msg); err != nil {
			return nil, fmt.Errorf("decoding DevTools message: %w", err)
		}

		switch msg.Method {
		case cdproto.EventNetworkRequestWillBeSent,
			cdproto.EventNetworkResponseReceived,
			cdproto.EventNetworkLoadingFailed:
		default:
			continue
		}

		ev, err := cdproto.UnmarshalMessage(&msg)
		if err != nil {
			return nil, fmt.Errorf("decoding %s params: %w", msg.Method, err)
		}
		switch ev := ev.(type) {
		case *network.EventRequestWillBeSent:
			if ev.Request != nil {
				requests[ev.RequestID] = request{url: ev.Request.URL, method: ev.Request.Method}
			}
		case *network.EventResponseReceived:
			if ev.Response == nil || ev.Response.Status < 400 {
				continue
			}
			failures = append(failures, Failure{
				Time:       m.Timestamp,
				URL:        ev.Response.URL,
				Method:     requests[ev.RequestID].method,
				Status:     ev.Response.Status,
				StatusText: ev.Response.StatusText,
				MimeType:   ev.Response.MimeType,
			})
		case *network.EventLoadingFailed:
			if ev.Canceled {
				continue
			}
			req := requests[ev.RequestID]
			failures = append(failures, Failure{
				Time:   m.Timestamp,
				URL:    req.url,
				Method: req.method,
				Reason: ev.ErrorText,
			})
		}
	}
	return failures, nil
}

// Summary formats failures one per line.
func Summary(failures []Failure) string {
	lines := make([]string, len(failures))
	for i, f := range failures {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}
