package page

import (
	"fmt"
	"strings"
)

// Locators of ParaBank's markup. Field names and ids are fixed by the
// application.

// Title is the heading of the right-hand content panel.
var Title = CSS(".title")

// RegisterForm is the customer registration form.
var RegisterForm = struct {
	FirstName, LastName, Street, City, State, Zip, Phone, SSN Locator
	Username, Password, RepeatedPassword, Submit              Locator
}{
	FirstName:        Input("customer.firstName"),
	LastName:         Input("customer.lastName"),
	Street:           Input("customer.address.street"),
	City:             Input("customer.address.city"),
	State:            Input("customer.address.state"),
	Zip:              Input("customer.address.zipCode"),
	Phone:            Input("customer.phoneNumber"),
	SSN:              Input("customer.ssn"),
	Username:         Input("customer.username"),
	Password:         Input("customer.password"),
	RepeatedPassword: Input("repeatedPassword"),
	Submit:           Button("Register"),
}

// LoginForm is the sign-in panel.
var LoginForm = struct {
	Username, Password, Submit Locator
}{
	Username: Input("username"),
	Password: Input("password"),
	Submit:   Button("Log In"),
}

// OpenAccountForm is the new account form and its result.
var OpenAccountForm = struct {
	Type, FromAccount, Submit, NewAccountID Locator
}{
	Type:         CSS("#type"),
	FromAccount:  CSS("#fromAccountId"),
	Submit:       Button("Open New Account"),
	NewAccountID: CSS("#newAccountId"),
}

// AccountRow locates the overview link of account id.
func AccountRow(id string) Locator {
	return XPath(fmt.Sprintf(`//table[@id="accountTable"]//a[contains(normalize-space(.), %s)]`, xpathLiteral(id)))
}

// TransferForm is the transfer funds form.
var TransferForm = struct {
	Amount, FromAccount, ToAccount, Submit Locator
}{
	Amount:      Input("amount"),
	FromAccount: CSS(`select[name="fromAccountId"]`),
	ToAccount:   CSS(`select[name="toAccountId"]`),
	Submit:      Button("Transfer"),
}

// ToAccountOption locates the n-th (zero based) destination account option.
func ToAccountOption(n int) Locator {
	return CSS(fmt.Sprintf(`select[name="toAccountId"] option:nth-of-type(%d)`, n+1))
}

// BillPayForm is the bill payment form.
var BillPayForm = struct {
	Name, Street, City, State, Zip, Phone, Account, VerifyAccount Locator
	Amount, FromAccount, Submit                                   Locator
}{
	Name:          Input("payee.name"),
	Street:        Input("payee.address.street"),
	City:          Input("payee.address.city"),
	State:         Input("payee.address.state"),
	Zip:           Input("payee.address.zipCode"),
	Phone:         Input("payee.phoneNumber"),
	Account:       Input("payee.accountNumber"),
	VerifyAccount: Input("verifyAccount"),
	Amount:        Input("amount"),
	FromAccount:   CSS(`select[name="fromAccountId"]`),
	Submit:        Button("Send Payment"),
}

// xpathLiteral quotes s for XPath 1.0, which has no escapes.
func xpathLiteral(s string) string {
	switch {
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	}
	return `concat("` + strings.ReplaceAll(s, `"`, `", '"', "`) + `")`
}
