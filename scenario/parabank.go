package scenario

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/golang/glog"
	"github.com/wanmail/bankflow/bankapi"
	"github.com/wanmail/bankflow/page"
)

// ParaBankSteps returns the end-to-end ParaBank workflow: register, login,
// open an account, check the overview, transfer funds, pay a bill, and
// cross-check the payment through the REST API.
func ParaBankSteps() []Step {
	return []Step{
		{Name: "register", Run: Register},
		{Name: "login", Run: Login},
		{Name: "open-account", Run: OpenAccount},
		{Name: "verify-overview", Run: VerifyOverview},
		{Name: "transfer", Run: TransferFunds},
		{Name: "pay-bill", Run: PayBill},
		{Name: "api-cross-check", Run: CrossCheckAPI},
	}
}

// Result page titles. The form pages are titled "Transfer Funds" and "Bill
// Payment Service", so a bare "Transfer" would match before submission lands.
const (
	TransferConfirmation = "Transfer Complete"
	BillPayConfirmation  = "Bill Payment Complete"
)

type field struct {
	loc   page.Locator
	value string
}

func fill(s page.Session, fields []field) error {
	for _, f := range fields {
		if err := s.Fill(f.loc, f.value); err != nil {
			return err
		}
	}
	return nil
}

// Register signs up a fresh identity, generating one unless st already has
// a username.
func Register(ctx context.Context, env *Env, st State) (State, error) {
	if st.Identity.Username == "" {
		st.Identity = env.Generator.NewIdentity(env.Profile)
	}
	id := st.Identity
	glog.Infof("registering %s", id.Username)

	if err := env.Bank.NavigateTo(env.RootPath); err != nil {
		return st, err
	}
	if err := env.Bank.GoToRegistration(); err != nil {
		return st, err
	}
	f := page.RegisterForm
	err := fill(env.Session, []field{
		{f.FirstName, id.FirstName},
		{f.LastName, id.LastName},
		{f.Street, id.Address},
		{f.City, id.City},
		{f.State, id.State},
		{f.Zip, id.Zip},
		{f.Phone, id.Phone},
		{f.SSN, id.SSN},
		{f.Username, id.Username},
		{f.Password, id.Password},
		{f.RepeatedPassword, id.Password},
	})
	if err != nil {
		return st, err
	}
	if err := env.Session.Click(f.Submit); err != nil {
		return st, err
	}
	return st, env.Expect.ContainsText(ctx, page.Title, "Welcome")
}

// Login signs in with the registered identity and waits for the logout link.
func Login(ctx context.Context, env *Env, st State) (State, error) {
	f := page.LoginForm
	err := fill(env.Session, []field{
		{f.Username, st.Identity.Username},
		{f.Password, st.Identity.Password},
	})
	if err != nil {
		return st, err
	}
	if err := env.Session.Click(f.Submit); err != nil {
		return st, err
	}
	return st, env.Expect.Visible(ctx, env.Bank.Locator(page.Logout))
}

// OpenAccount opens an account of Amounts.AccountType and records its id.
func OpenAccount(ctx context.Context, env *Env, st State) (State, error) {
	if err := env.Bank.GoToOpenAccount(); err != nil {
		return st, err
	}
	f := page.OpenAccountForm
	if err := env.Session.SelectOption(f.Type, page.ByValue(env.Amounts.AccountType)); err != nil {
		return st, err
	}
	if err := env.Session.Click(f.Submit); err != nil {
		return st, err
	}
	id, err := env.Expect.Text(ctx, f.NewAccountID)
	if err != nil {
		return st, err
	}
	glog.Infof("opened account %s", id)
	st.NewAccountID = id
	return st, nil
}

// VerifyOverview checks that the new account is listed in the overview.
func VerifyOverview(ctx context.Context, env *Env, st State) (State, error) {
	if err := env.Bank.GoToOverview(); err != nil {
		return st, err
	}
	return st, env.Expect.Visible(ctx, page.AccountRow(st.NewAccountID))
}

// TransferFunds moves Amounts.Transfer from the new account to the second
// destination account on offer.
func TransferFunds(ctx context.Context, env *Env, st State) (State, error) {
	if err := env.Bank.GoToTransfer(); err != nil {
		return st, err
	}
	to, err := env.Expect.Text(ctx, page.ToAccountOption(1))
	if err != nil {
		return st, err
	}
	st.ToAccount = to

	f := page.TransferForm
	if err := env.Session.Fill(f.Amount, env.Amounts.Transfer); err != nil {
		return st, err
	}
	if err := env.Session.SelectOption(f.FromAccount, page.ByLabel(st.NewAccountID)); err != nil {
		return st, err
	}
	if err := env.Session.SelectOption(f.ToAccount, page.ByLabel(to)); err != nil {
		return st, err
	}
	if err := env.Session.Click(f.Submit); err != nil {
		return st, err
	}
	return st, env.Expect.ContainsText(ctx, page.Title, TransferConfirmation)
}

// PayBill pays Amounts.BillPay to the payee from the new account.
func PayBill(ctx context.Context, env *Env, st State) (State, error) {
	if err := env.Bank.GoToBillPay(); err != nil {
		return st, err
	}
	f, p := page.BillPayForm, env.Payee
	err := fill(env.Session, []field{
		{f.Name, p.Name},
		{f.Street, p.Address},
		{f.City, p.City},
		{f.State, p.State},
		{f.Zip, p.Zip},
		{f.Phone, p.Phone},
		{f.Account, p.AccountNumber},
		{f.VerifyAccount, p.AccountNumber},
		{f.Amount, env.Amounts.BillPay},
	})
	if err != nil {
		return st, err
	}
	if err := env.Session.SelectOption(f.FromAccount, page.ByLabel(st.NewAccountID)); err != nil {
		return st, err
	}
	if err := env.Session.Click(f.Submit); err != nil {
		return st, err
	}
	return st, env.Expect.ContainsText(ctx, page.Title, BillPayConfirmation)
}

type cookieSource interface {
	Cookies() ([]*http.Cookie, error)
}

type cookieSink interface {
	SetCookies([]*http.Cookie) error
}

// CrossCheckAPI searches transactions by the bill amount and requires a
// successful, list-shaped reply. The list may be empty.
func CrossCheckAPI(ctx context.Context, env *Env, st State) (State, error) {
	if env.ShareCookies {
		src, okSrc := env.Session.(cookieSource)
		dst, okDst := env.API.(cookieSink)
		if okSrc && okDst {
			cookies, err := src.Cookies()
			if err != nil {
				return st, fmt.Errorf("reading browser cookies: %w", err)
			}
			if err := dst.SetCookies(cookies); err != nil {
				return st, err
			}
		}
	}

	resp, err := env.API.Get(ctx, bankapi.TransactionsByAmountPath, url.Values{"amount": {env.Amounts.BillPay}})
	if err != nil {
		return st, err
	}
	if err := resp.Err(); err != nil {
		return st, err
	}
	var txns []bankapi.Transaction
	if err := resp.DecodeList(&txns); err != nil {
		return st, err
	}
	glog.Infof("API returned %d transactions of %s", len(txns), env.Amounts.BillPay)
	st.Transactions = txns
	return st, nil
}
