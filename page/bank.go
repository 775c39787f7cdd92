package page

import "fmt"

// Target is a destination in ParaBank's navigation menu.
type Target int

// The navigation targets, in menu order.
const (
	Registration Target = iota
	Overview
	OpenAccount
	Transfer
	BillPay
	Logout
)

var targetNames = [...]string{
	Registration: "registration",
	Overview:     "overview",
	OpenAccount:  "open account",
	Transfer:     "transfer",
	BillPay:      "bill pay",
	Logout:       "logout",
}

func (t Target) String() string {
	if t < 0 || int(t) >= len(targetNames) {
		return fmt.Sprintf("Target(%d)", int(t))
	}
	return targetNames[t]
}

func hrefContains(page string) Locator {
	return CSS(fmt.Sprintf("a[href*=%q]", page))
}

// BankPage is the ParaBank page object. Every action re-queries the live page.
type BankPage struct {
	*Base
	links map[Target]Locator
}

// NewBankPage returns a BankPage driving s.
func NewBankPage(s Session) *BankPage {
	return &BankPage{
		Base: NewBase(s),
		links: map[Target]Locator{
			Registration: hrefContains("register.htm"),
			Overview:     hrefContains("overview.htm"),
			OpenAccount:  hrefContains("openaccount.htm"),
			Transfer:     hrefContains("transfer.htm"),
			BillPay:      hrefContains("billpay.htm"),
			Logout:       hrefContains("logout.htm"),
		},
	}
}

// Locator returns the menu link locator of t.
func (p *BankPage) Locator(t Target) Locator {
	return p.links[t]
}

// Go clicks the menu link of t.
func (p *BankPage) Go(t Target) error {
	l, ok := p.links[t]
	if !ok {
		return fmt.Errorf("unknown navigation target %v", t)
	}
	if err := p.Session.Click(l); err != nil {
		return fmt.Errorf("go to %v: %w", t, err)
	}
	return nil
}

// GoToRegistration opens the registration form.
func (p *BankPage) GoToRegistration() error { return p.Go(Registration) }

// GoToOverview opens the accounts overview.
func (p *BankPage) GoToOverview() error { return p.Go(Overview) }

// GoToOpenAccount opens the new account form.
func (p *BankPage) GoToOpenAccount() error { return p.Go(OpenAccount) }

// GoToTransfer opens the transfer funds form.
func (p *BankPage) GoToTransfer() error { return p.Go(Transfer) }

// GoToBillPay opens the bill payment form.
func (p *BankPage) GoToBillPay() error { return p.Go(BillPay) }

// Logout ends the ParaBank session.
func (p *BankPage) Logout() error { return p.Go(Logout) }
