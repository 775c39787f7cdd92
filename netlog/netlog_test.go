package netlog

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/wanmail/bankflow/log"
)

func entry(ts int64, message string) log.Message {
	return log.Message{
		Timestamp: time.Unix(0, ts*int64(time.Millisecond)),
		Level:     log.Info,
		Message:   `{"message":` + message + `,"webview":"4A1B"}`,
	}
}

func TestFailures(t *testing.T) {
	msgs := []log.Message{
		entry(1, `{"method":"Page.frameNavigated","params":{"frame":{"id":"F1","loaderId":"L1","url":"http://localhost/parabank/index.htm","securityOrigin":"http://localhost","mimeType":"text/html"}}}`),
		entry(2, `{"method":"Network.requestWillBeSent","params":{"requestId":"1.1","loaderId":"L1","documentURL":"http://localhost/parabank/index.htm","request":{"url":"http://localhost/parabank/transfer.htm","method":"POST","headers":{},"initialPriority":"VeryHigh","referrerPolicy":"no-referrer"},"timestamp":1.5,"wallTime":1700000000,"initiator":{"type":"other"},"type":"Document"}}`),
		entry(3, `{"method":"Network.responseReceived","params":{"requestId":"1.1","loaderId":"L1","timestamp":2.5,"type":"Document","response":{"url":"http://localhost/parabank/transfer.htm","status":500,"statusText":"Internal Server Error","headers":{},"mimeType":"text/html","connectionReused":false,"connectionId":1,"encodedDataLength":120,"securityState":"neutral"}}}`),
		entry(4, `{"method":"Network.responseReceived","params":{"requestId":"1.2","loaderId":"L1","timestamp":3.5,"type":"Stylesheet","response":{"url":"http://localhost/parabank/style.css","status":200,"statusText":"OK","headers":{},"mimeType":"text/css","connectionReused":true,"connectionId":1,"encodedDataLength":12,"securityState":"neutral"}}}`),
		entry(5, `{"method":"Network.requestWillBeSent","params":{"requestId":"1.3","loaderId":"L1","documentURL":"http://localhost/parabank/index.htm","request":{"url":"http://localhost/parabank/logo.gif","method":"GET","headers":{},"initialPriority":"Low","referrerPolicy":"no-referrer"},"timestamp":4.5,"wallTime":1700000001,"initiator":{"type":"parser"},"type":"Image"}}`),
		entry(6, `{"method":"Network.loadingFailed","params":{"requestId":"1.3","timestamp":5.5,"type":"Image","errorText":"net::ERR_CONNECTION_REFUSED","canceled":false}}`),
		entry(7, `{"method":"Network.loadingFailed","params":{"requestId":"1.4","timestamp":6.5,"type":"XHR","errorText":"net::ERR_ABORTED","canceled":true}}`),
	}

	got, err := Failures(msgs)
	if err != nil {
		t.Fatalf("Failures() returned error: %v", err)
	}
	want := []Failure{
		{
			Time:       time.Unix(0, 3*int64(time.Millisecond)),
			URL:        "http://localhost/parabank/transfer.htm",
			Method:     "POST",
			Status:     500,
			StatusText: "Internal Server Error",
			MimeType:   "text/html",
		},
		{
			Time:   time.Unix(0, 6*int64(time.Millisecond)),
			URL:    "http://localhost/parabank/logo.gif",
			Method: "GET",
			Reason: "net::ERR_CONNECTION_REFUSED",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Failures() diff (-want/+got):\n%s", diff)
	}

	wantSummary := "POST http://localhost/parabank/transfer.htm: 500 Internal Server Error\n" +
		"GET http://localhost/parabank/logo.gif: net::ERR_CONNECTION_REFUSED"
	if got := Summary(got); got != wantSummary {
		t.Errorf("Summary() = %q, want %q", got, wantSummary)
	}
}

func TestFailuresBadEntry(t *testing.T) {
	_, err := Failures([]log.Message{{Message: "not json"}})
	if err == nil {
		t.Fatal("Failures(bad entry) returned nil error")
	}
	var none []Failure
	got, err := Failures(nil)
	if err != nil || !cmp.Equal(none, got) {
		t.Fatalf("Failures(nil) = %v, %v; want empty, nil", got, err)
	}
}
