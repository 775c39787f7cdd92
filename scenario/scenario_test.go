package scenario

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wanmail/bankflow/bankapi"
	"github.com/wanmail/bankflow/fixture"
	"github.com/wanmail/bankflow/page"
)

// stubSession answers Text and Visible from tables and records every action.
type stubSession struct {
	texts   map[string]string
	visible map[string]bool
	fail    map[string]error
	calls   []string
	cookies []*http.Cookie
}

func newStubSession() *stubSession {
	return &stubSession{
		texts:   make(map[string]string),
		visible: make(map[string]bool),
		fail:    make(map[string]error),
	}
}

func (s *stubSession) act(call string) error {
	s.calls = append(s.calls, call)
	for prefix, err := range s.fail {
		if strings.HasPrefix(call, prefix) {
			return err
		}
	}
	return nil
}

func (s *stubSession) Navigate(path string) error { return s.act("navigate " + path) }
func (s *stubSession) Click(l page.Locator) error { return s.act("click " + l.Value) }
func (s *stubSession) Fill(l page.Locator, v string) error {
	return s.act(fmt.Sprintf("fill %s=%s", l.Value, v))
}
func (s *stubSession) SelectOption(l page.Locator, o page.Option) error {
	return s.act(fmt.Sprintf("select %s %s", l.Value, o))
}
func (s *stubSession) Text(l page.Locator) (string, error) {
	if err := s.fail["text "+l.Value]; err != nil {
		return "", err
	}
	return s.texts[l.Value], nil
}
func (s *stubSession) Visible(l page.Locator) (bool, error) { return s.visible[l.Value], nil }
func (s *stubSession) Cookies() ([]*http.Cookie, error)     { return s.cookies, nil }

// paraBankStub returns a session whose tables satisfy every expectation of
// ParaBankSteps.
func paraBankStub() *stubSession {
	s := newStubSession()
	s.texts[page.Title.Value] = "Welcome qa_1700000000000 / Transfer Complete! / Bill Payment Complete"
	s.texts[page.OpenAccountForm.NewAccountID.Value] = "13344"
	s.texts[page.ToAccountOption(1).Value] = "13011"
	s.visible[`a[href*="logout.htm"]`] = true
	s.visible[page.AccountRow("13344").Value] = true
	return s
}

func newAPIServer(t *testing.T, body string, status int) *bankapi.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != bankapi.TransactionsByAmountPath || r.URL.Query().Get("amount") != "100" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	c, err := bankapi.New(srv.URL)
	require.NoError(t, err)
	return c
}

func testEnv(s *stubSession, api HTTPClient) *Env {
	return NewEnv(s, api,
		WithGenerator(fixture.NewGenerator(fixture.Sequence(1700000000000))),
		WithExpectTimeout(50*time.Millisecond),
	)
}

func TestParaBankSteps(t *testing.T) {
	s := paraBankStub()
	api := newAPIServer(t, `[{"id":1,"accountId":13344,"type":"Debit","amount":100,"description":"Bill Payment to UtilityCorp"}]`, http.StatusOK)

	var started []string
	r := &Runner{
		Steps:  ParaBankSteps(),
		OnStep: func(_ int, st Step) { started = append(started, st.Name) },
	}
	report, err := r.Run(context.Background(), testEnv(s, api), State{})
	require.NoError(t, err)

	want := []string{"register", "login", "open-account", "verify-overview", "transfer", "pay-bill", "api-cross-check"}
	require.Equal(t, want, started)
	require.Len(t, report.Completed, 7)
	require.Equal(t, "qa_1700000000000", report.State.Identity.Username)
	require.Equal(t, "1700000000001", report.State.Identity.SSN)
	require.Equal(t, "13344", report.State.NewAccountID)
	require.Equal(t, "13011", report.State.ToAccount)
	require.Len(t, report.State.Transactions, 1)

	require.Equal(t, []string{
		"navigate /parabank/index.htm",
		`click a[href*="register.htm"]`,
		`fill input[name="customer.firstName"]=QA`,
		`fill input[name="customer.lastName"]=Engineer`,
		`fill input[name="customer.address.street"]=123 Automation Street`,
		`fill input[name="customer.address.city"]=Bangalore`,
		`fill input[name="customer.address.state"]=KA`,
		`fill input[name="customer.address.zipCode"]=560001`,
		`fill input[name="customer.phoneNumber"]=9876543210`,
		`fill input[name="customer.ssn"]=1700000000001`,
		`fill input[name="customer.username"]=qa_1700000000000`,
		`fill input[name="customer.password"]=Passw0rd123`,
		`fill input[name="repeatedPassword"]=Passw0rd123`,
		`click input[value="Register"]`,
		`fill input[name="username"]=qa_1700000000000`,
		`fill input[name="password"]=Passw0rd123`,
		`click input[value="Log In"]`,
		`click a[href*="openaccount.htm"]`,
		`select #type value="1"`,
		`click input[value="Open New Account"]`,
		`click a[href*="overview.htm"]`,
		`click a[href*="transfer.htm"]`,
		`fill input[name="amount"]=50`,
		`select select[name="fromAccountId"] label="13344"`,
		`select select[name="toAccountId"] label="13011"`,
		`click input[value="Transfer"]`,
		`click a[href*="billpay.htm"]`,
		`fill input[name="payee.name"]=UtilityCorp`,
		`fill input[name="payee.address.street"]=456 Energy Road`,
		`fill input[name="payee.address.city"]=Chennai`,
		`fill input[name="payee.address.state"]=TN`,
		`fill input[name="payee.address.zipCode"]=600001`,
		`fill input[name="payee.phoneNumber"]=9988776655`,
		`fill input[name="payee.accountNumber"]=99999`,
		`fill input[name="verifyAccount"]=99999`,
		`fill input[name="amount"]=100`,
		`select select[name="fromAccountId"] label="13344"`,
		`click input[value="Send Payment"]`,
	}, s.calls)
}

func TestRunnerAbortsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	step := func(name string, err error) Step {
		return Step{Name: name, Run: func(_ context.Context, _ *Env, st State) (State, error) {
			ran = append(ran, name)
			return st, err
		}}
	}
	var failed *StepError
	r := &Runner{
		Steps:     []Step{step("one", nil), step("two", boom), step("three", nil)},
		OnFailure: func(_ context.Context, _ *Env, err *StepError) { failed = err },
	}
	report, err := r.Run(context.Background(), &Env{}, State{})

	require.ErrorIs(t, err, boom)
	var se *StepError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 1, se.Index)
	require.Equal(t, "two", se.Name)
	require.Same(t, se, failed)
	require.Equal(t, []string{"one", "two"}, ran)
	require.Len(t, report.Completed, 1)
	require.Equal(t, "step 2 (two): boom", err.Error())
}

func TestRunnerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Steps: []Step{{Name: "never", Run: func(context.Context, *Env, State) (State, error) {
		t.Fatal("step ran after cancellation")
		return State{}, nil
	}}}}
	_, err := r.Run(ctx, &Env{}, State{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := paraBankStub()
	s.texts[page.Title.Value] = "Signing up is easy!"
	r := &Runner{Steps: ParaBankSteps()[:1]}

	_, err := r.Run(context.Background(), testEnv(s, nil), State{})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, "register", ae.Step)
	require.Contains(t, ae.Want, "Welcome")
	require.Contains(t, ae.Got, "Signing up is easy!")
}

func TestLoginKeepsGivenIdentity(t *testing.T) {
	s := paraBankStub()
	st := State{Identity: fixture.Identity{UserProfile: fixture.UserTemplate(), Username: "qa_given", SSN: "1"}}
	r := &Runner{Steps: ParaBankSteps()[:2]}
	report, err := r.Run(context.Background(), testEnv(s, nil), st)
	require.NoError(t, err)
	require.Equal(t, "qa_given", report.State.Identity.Username)
	require.Contains(t, s.calls, `fill input[name="username"]=qa_given`)
}

func TestLoginWithoutLogoutLink(t *testing.T) {
	s := paraBankStub()
	s.visible[`a[href*="logout.htm"]`] = false
	_, err := Login(context.Background(), testEnv(s, nil), State{})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, "visible", ae.Want)
}

func TestOpenAccountNeedsID(t *testing.T) {
	s := paraBankStub()
	s.texts[page.OpenAccountForm.NewAccountID.Value] = "   "
	_, err := OpenAccount(context.Background(), testEnv(s, nil), State{})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, "non-empty", ae.Want)
}

func TestOverviewMissingAccount(t *testing.T) {
	s := paraBankStub()
	_, err := VerifyOverview(context.Background(), testEnv(s, nil), State{NewAccountID: "99"})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
}

func TestConfirmationNeedsResultPage(t *testing.T) {
	tests := []struct {
		desc  string
		title string
		run   func(context.Context, *Env, State) (State, error)
	}{
		{desc: "transfer form", title: "Transfer Funds", run: TransferFunds},
		{desc: "bill pay form", title: "Bill Payment Service", run: PayBill},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			s := paraBankStub()
			s.texts[page.Title.Value] = tc.title
			_, err := tc.run(context.Background(), testEnv(s, nil), State{NewAccountID: "13344"})
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
		})
	}
}

func TestDefaultEnvsNeverShareUsername(t *testing.T) {
	for i := 0; i < 200; i++ {
		a := NewEnv(nil, nil).Generator.Username()
		b := NewEnv(nil, nil).Generator.Username()
		require.NotEqual(t, a, b)
	}
}

func TestOverviewIsRepeatable(t *testing.T) {
	s := paraBankStub()
	env := testEnv(s, nil)
	st := State{NewAccountID: "13344"}

	first, err := VerifyOverview(context.Background(), env, st)
	require.NoError(t, err)
	calls := append([]string(nil), s.calls...)
	second, err := VerifyOverview(context.Background(), env, first)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, calls, s.calls[len(calls):])
}

func TestElementErrorsPropagate(t *testing.T) {
	notFound := errors.New("no such element: a[href*=\"transfer.htm\"]")
	s := paraBankStub()
	s.fail[`click a[href*="transfer.htm"]`] = notFound
	_, err := TransferFunds(context.Background(), testEnv(s, nil), State{NewAccountID: "13344"})
	require.ErrorIs(t, err, notFound)
}

func TestCrossCheckAPI(t *testing.T) {
	tests := []struct {
		desc    string
		body    string
		status  int
		wantErr func(t *testing.T, err error)
	}{
		{
			desc:   "empty list is fine",
			body:   `[]`,
			status: http.StatusOK,
		},
		{
			desc:   "object is not a list",
			body:   `{"id":1}`,
			status: http.StatusOK,
			wantErr: func(t *testing.T, err error) {
				require.ErrorIs(t, err, bankapi.ErrNotList)
			},
		},
		{
			desc:   "server error",
			body:   `oops`,
			status: http.StatusInternalServerError,
			wantErr: func(t *testing.T, err error) {
				var se *bankapi.StatusError
				require.ErrorAs(t, err, &se)
				require.Equal(t, http.StatusInternalServerError, se.Code)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			api := newAPIServer(t, tc.body, tc.status)
			_, err := CrossCheckAPI(context.Background(), testEnv(paraBankStub(), api), State{})
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			tc.wantErr(t, err)
		})
	}
}

func TestCrossCheckSharesCookies(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("JSESSIONID"); err == nil {
			got = c.Value
		}
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()
	api, err := bankapi.New(srv.URL)
	require.NoError(t, err)

	s := paraBankStub()
	s.cookies = []*http.Cookie{{Name: "JSESSIONID", Value: "F00D", Path: "/"}}
	env := testEnv(s, api)
	env.ShareCookies = true
	_, err = CrossCheckAPI(context.Background(), env, State{})
	require.NoError(t, err)
	require.Equal(t, "F00D", got)
}

// lateSession reports an element visible from the n-th poll on.
type lateSession struct {
	*stubSession
	polls, after int
}

func (s *lateSession) Visible(page.Locator) (bool, error) {
	s.polls++
	return s.polls >= s.after, nil
}

// flakySession fails Text lookups until the n-th poll, then returns text.
type flakySession struct {
	*stubSession
	polls, after int
	text         string
}

func (s *flakySession) Text(page.Locator) (string, error) {
	s.polls++
	if s.polls < s.after {
		return "", errors.New("no such element")
	}
	return s.text, nil
}

func TestExpectationForgetsRecoveredError(t *testing.T) {
	s := &flakySession{stubSession: newStubSession(), after: 2, text: "Accounts Overview"}
	x := Expectations{Session: s, Timeout: 20 * time.Millisecond, Interval: time.Millisecond}
	err := x.ContainsText(context.Background(), page.Title, "Welcome")
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	require.NoError(t, ae.Err)
	require.Equal(t, `"Accounts Overview"`, ae.Got)
	require.NotContains(t, err.Error(), "last error")
}

func TestExpectationsPoll(t *testing.T) {
	s := &lateSession{stubSession: newStubSession(), after: 3}
	x := Expectations{Session: s, Timeout: time.Second, Interval: time.Millisecond}
	require.NoError(t, x.Visible(context.Background(), page.CSS("#late")))
	require.Equal(t, 3, s.polls)
}

func TestExpectationsContextCancel(t *testing.T) {
	s := newStubSession()
	x := Expectations{Session: s, Timeout: time.Minute, Interval: time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := x.ContainsText(ctx, page.Title, "Welcome")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExpectationKeepsSessionError(t *testing.T) {
	s := newStubSession()
	missing := errors.New("no such element")
	s.fail["text .title"] = missing
	x := Expectations{Session: s, Timeout: 10 * time.Millisecond, Interval: time.Millisecond}
	err := x.ContainsText(context.Background(), page.Title, "Welcome")
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	require.ErrorIs(t, err, missing)
}
