package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wanmail/bankflow/page"
)

// Expectation polling defaults.
const (
	DefaultExpectTimeout  = 5 * time.Second
	DefaultExpectInterval = 100 * time.Millisecond
)

// AssertionError reports an expected page state that did not materialize.
type AssertionError struct {
	Step string
	What string
	Want string
	Got  string
	// Err is the last session error seen while polling, if any.
	Err error
}

func (e *AssertionError) Error() string {
	msg := fmt.Sprintf("%s: want %s, got %s", e.What, e.Want, e.Got)
	if e.Step != "" {
		msg = e.Step + ": " + msg
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.Err)
	}
	return msg
}

func (e *AssertionError) Unwrap() error { return e.Err }

// Expectations poll the session until a condition holds.
type Expectations struct {
	Session  page.Session
	Timeout  time.Duration
	Interval time.Duration
}

// poll calls check until it reports done, the timeout elapses or ctx ends.
func (x Expectations) poll(ctx context.Context, check func() (bool, error)) error {
	timeout, interval := x.Timeout, x.Interval
	if timeout <= 0 {
		timeout = DefaultExpectTimeout
	}
	if interval <= 0 {
		interval = DefaultExpectInterval
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	var lastErr error
	for {
		done, err := check()
		if done {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if lastErr == nil {
				lastErr = errTimeout
			}
			return lastErr
		case <-tick.C:
		}
	}
}

var errTimeout = errors.New("expectation timed out")

// ContainsText waits for the text of l to contain substr.
func (x Expectations) ContainsText(ctx context.Context, l page.Locator, substr string) error {
	var got string
	err := x.poll(ctx, func() (bool, error) {
		text, err := x.Session.Text(l)
		if err != nil {
			return false, err
		}
		got = text
		return strings.Contains(text, substr), nil
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	return &AssertionError{
		What: fmt.Sprintf("text of %s", l),
		Want: fmt.Sprintf("to contain %q", substr),
		Got:  fmt.Sprintf("%q", got),
		Err:  sessionErr(err),
	}
}

// Visible waits for an element matching l to be displayed.
func (x Expectations) Visible(ctx context.Context, l page.Locator) error {
	err := x.poll(ctx, func() (bool, error) {
		return x.Session.Visible(l)
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	return &AssertionError{
		What: l.String(),
		Want: "visible",
		Got:  "not visible",
		Err:  sessionErr(err),
	}
}

// Text waits for l to have non-empty text and returns it.
func (x Expectations) Text(ctx context.Context, l page.Locator) (string, error) {
	var got string
	err := x.poll(ctx, func() (bool, error) {
		text, err := x.Session.Text(l)
		if err != nil {
			return false, err
		}
		got = strings.TrimSpace(text)
		return got != "", nil
	})
	if err == nil {
		return got, nil
	}
	if ctx.Err() != nil {
		return "", err
	}
	return "", &AssertionError{
		What: fmt.Sprintf("text of %s", l),
		Want: "non-empty",
		Got:  `""`,
		Err:  sessionErr(err),
	}
}

func sessionErr(err error) error {
	if err == errTimeout {
		return nil
	}
	return err
}
