// Package scenario runs ParaBank workflows as an ordered list of named steps.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang/glog"
	"github.com/wanmail/bankflow/bankapi"
	"github.com/wanmail/bankflow/fixture"
	"github.com/wanmail/bankflow/page"
)

// HTTPClient issues GET requests against the application host.
type HTTPClient interface {
	Get(ctx context.Context, path string, query url.Values) (*bankapi.Response, error)
}

// State accumulates what earlier steps learned for later ones.
type State struct {
	Identity     fixture.Identity
	NewAccountID string
	ToAccount    string
	Transactions []bankapi.Transaction
}

// Amounts are the literal values typed into the forms.
type Amounts struct {
	Transfer    string
	BillPay     string
	AccountType string
}

// DefaultAmounts transfers 50, pays a bill of 100 and opens a savings account.
var DefaultAmounts = Amounts{
	Transfer:    "50",
	BillPay:     "100",
	AccountType: "1",
}

// DefaultRootPath is the landing page of ParaBank.
const DefaultRootPath = "/parabank/index.htm"

// Env holds the collaborators of a run.
type Env struct {
	Session   page.Session
	Bank      *page.BankPage
	API       HTTPClient
	Expect    Expectations
	Amounts   Amounts
	Generator *fixture.Generator
	Profile   fixture.UserProfile
	Payee     fixture.PayeeProfile
	RootPath  string
	// ShareCookies makes the API client adopt the browser's cookies before
	// the cross-check, when both sides support it.
	ShareCookies bool
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithGenerator sets the source of usernames and SSNs.
func WithGenerator(g *fixture.Generator) EnvOption {
	return func(e *Env) { e.Generator = g }
}

// WithExpectTimeout sets how long expectations poll.
func WithExpectTimeout(d time.Duration) EnvOption {
	return func(e *Env) { e.Expect.Timeout = d }
}

// WithAmounts replaces DefaultAmounts.
func WithAmounts(a Amounts) EnvOption {
	return func(e *Env) { e.Amounts = a }
}

// WithSharedCookies enables ShareCookies.
func WithSharedCookies(share bool) EnvOption {
	return func(e *Env) { e.ShareCookies = share }
}

// NewEnv returns an Env over session and api with the default fixtures.
func NewEnv(session page.Session, api HTTPClient, opts ...EnvOption) *Env {
	e := &Env{
		Session:   session,
		Bank:      page.NewBankPage(session),
		API:       api,
		Expect:    Expectations{Session: session, Timeout: DefaultExpectTimeout, Interval: DefaultExpectInterval},
		Amounts:   DefaultAmounts,
		Generator: fixture.Default(),
		Profile:   fixture.UserTemplate(),
		Payee:     fixture.Payee(),
		RootPath:  DefaultRootPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step is one named unit of a workflow. Run returns the updated state or the
// error that aborts the workflow.
type Step struct {
	Name string
	Run  func(ctx context.Context, env *Env, st State) (State, error)
}

// StepError reports the step that aborted a run.
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Name, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// StepResult records a completed step.
type StepResult struct {
	Name     string
	Duration time.Duration
}

// Report describes a run.
type Report struct {
	Completed []StepResult
	State     State
}

// Runner executes steps strictly in order. The first failure aborts the
// remaining steps; nothing is retried or rolled back.
type Runner struct {
	Steps []Step
	// OnStep, if set, is called before each step.
	OnStep func(index int, s Step)
	// OnFailure, if set, is called with the aborting error before Run
	// returns, while the session still shows the failing page.
	OnFailure func(ctx context.Context, env *Env, err *StepError)
}

// Run executes the steps from st. The returned Report lists the steps that
// completed even when err is not nil.
func (r *Runner) Run(ctx context.Context, env *Env, st State) (*Report, error) {
	report := &Report{State: st}
	for i, s := range r.Steps {
		if err := ctx.Err(); err != nil {
			return report, r.fail(ctx, env, i, s, err)
		}
		if r.OnStep != nil {
			r.OnStep(i, s)
		}
		glog.Infof("step %d/%d: %s", i+1, len(r.Steps), s.Name)
		start := time.Now()
		next, err := s.Run(ctx, env, report.State)
		if err != nil {
			return report, r.fail(ctx, env, i, s, err)
		}
		report.State = next
		d := time.Since(start)
		report.Completed = append(report.Completed, StepResult{Name: s.Name, Duration: d})
		glog.Infof("step %s passed in %v", s.Name, d.Round(time.Millisecond))
	}
	return report, nil
}

func (r *Runner) fail(ctx context.Context, env *Env, i int, s Step, err error) *StepError {
	var ae *AssertionError
	if errors.As(err, &ae) && ae.Step == "" {
		ae.Step = s.Name
	}
	se := &StepError{Index: i, Name: s.Name, Err: err}
	glog.Errorf("%v", se)
	if r.OnFailure != nil {
		r.OnFailure(ctx, env, se)
	}
	return se
}
