package fakebank

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wanmail/bankflow/bankapi"
)

// Errors returned by Bank.
var (
	ErrUsernameTaken  = errors.New("username already exists")
	ErrBadCredentials = errors.New("username and password could not be verified")
	ErrNoAccount      = errors.New("account not found")
	ErrBadAmount      = errors.New("amount must be a positive number with at most two decimals")
)

// AccountType is the kind of a bank account.
type AccountType int

// Account types, numbered as the open account form submits them.
const (
	Checking AccountType = iota
	Savings
)

func (t AccountType) String() string {
	switch t {
	case Checking:
		return "CHECKING"
	case Savings:
		return "SAVINGS"
	}
	return fmt.Sprintf("AccountType(%d)", int(t))
}

// Customer is a registered user.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	Street    string
	City      string
	State     string
	Zip       string
	Phone     string
	SSN       string
	Username  string
	Password  string
}

// Account is a customer account. Balances are in cents.
type Account struct {
	ID         int64
	CustomerID int64
	Type       AccountType
	Balance    Cents
}

// Cents is an amount of money in hundredths.
type Cents int64

// ParseCents parses a decimal amount such as "50" or "12.5".
func ParseCents(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(frac) > 2 {
		return 0, ErrBadAmount
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, ErrBadAmount
	}
	var f int64
	if frac != "" {
		if f, err = strconv.ParseInt(frac, 10, 64); err != nil || f < 0 {
			return 0, ErrBadAmount
		}
		if len(frac) == 1 {
			f *= 10
		}
	}
	c := Cents(w*100 + f)
	if c <= 0 {
		return 0, ErrBadAmount
	}
	return c, nil
}

func (c Cents) String() string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s$%d.%02d", sign, c/100, c%100)
}

// Float returns c in currency units.
func (c Cents) Float() float64 { return float64(c) / 100 }

// Transaction is an entry in an account history.
type Transaction struct {
	ID          int64
	AccountID   int64
	Debit       bool
	Date        time.Time
	Amount      Cents
	Description string
}

// API converts t to its JSON representation.
func (t Transaction) API() bankapi.Transaction {
	typ := "Credit"
	if t.Debit {
		typ = "Debit"
	}
	return bankapi.Transaction{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Type:        typ,
		Date:        t.Date.UnixMilli(),
		Amount:      t.Amount.Float(),
		Description: t.Description,
	}
}

const (
	firstCustomerID = 12212
	firstAccountID  = 12345
	accountIDStep   = 111
	firstTxnID      = 14476

	// InitialBalance funds the account created at registration.
	InitialBalance Cents = 51550
	// OpeningDeposit moves from the funding account into a new account.
	OpeningDeposit Cents = 10000
)

// Bank is an in-memory ParaBank back end. It is safe for concurrent use.
type Bank struct {
	mu           sync.Mutex
	now          func() time.Time
	customers    map[int64]*Customer
	byUsername   map[string]int64
	accounts     map[int64]*Account
	transactions []Transaction
	sessions     map[string]int64

	nextCustomer, nextAccount, nextTxn int64
}

// NewBank returns an empty Bank.
func NewBank() *Bank {
	return &Bank{
		now:          time.Now,
		customers:    make(map[int64]*Customer),
		byUsername:   make(map[string]int64),
		accounts:     make(map[int64]*Account),
		sessions:     make(map[string]int64),
		nextCustomer: firstCustomerID,
		nextAccount:  firstAccountID,
		nextTxn:      firstTxnID,
	}
}

// Register stores c and opens its first checking account.
func (b *Bank) Register(c Customer) (Customer, Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byUsername[c.Username]; ok {
		return Customer{}, Account{}, ErrUsernameTaken
	}
	c.ID = b.nextCustomer
	b.nextCustomer++
	b.customers[c.ID] = &c
	b.byUsername[c.Username] = c.ID

	a := b.openLocked(c.ID, Checking)
	a.Balance = InitialBalance
	return c, *a, nil
}

func (b *Bank) openLocked(customerID int64, t AccountType) *Account {
	a := &Account{ID: b.nextAccount, CustomerID: customerID, Type: t}
	b.nextAccount += accountIDStep
	b.accounts[a.ID] = a
	return a
}

// Login checks the credentials and starts a session, returning its token.
func (b *Bank) Login(username, password string) (Customer, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.byUsername[username]
	if !ok || b.customers[id].Password != password {
		return Customer{}, "", ErrBadCredentials
	}
	token := uuid.NewString()
	b.sessions[token] = id
	return *b.customers[id], token, nil
}

// Session returns the customer logged in with token.
func (b *Bank) Session(token string) (Customer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.sessions[token]
	if !ok {
		return Customer{}, false
	}
	return *b.customers[id], true
}

// Logout ends the session of token.
func (b *Bank) Logout(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, token)
}

// Accounts lists the accounts of a customer by ascending id.
func (b *Bank) Accounts(customerID int64) []Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Account
	for _, a := range b.accounts {
		if a.CustomerID == customerID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Bank) ownedLocked(customerID, accountID int64) (*Account, error) {
	a, ok := b.accounts[accountID]
	if !ok || a.CustomerID != customerID {
		return nil, fmt.Errorf("%w: %d", ErrNoAccount, accountID)
	}
	return a, nil
}

func (b *Bank) postLocked(a *Account, debit bool, amount Cents, desc string) {
	if debit {
		a.Balance -= amount
	} else {
		a.Balance += amount
	}
	b.transactions = append(b.transactions, Transaction{
		ID:          b.nextTxn,
		AccountID:   a.ID,
		Debit:       debit,
		Date:        b.now(),
		Amount:      amount,
		Description: desc,
	})
	b.nextTxn++
}

// OpenAccount opens an account of type t funded with OpeningDeposit from
// the customer's account fromID.
func (b *Bank) OpenAccount(customerID int64, t AccountType, fromID int64) (Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, err := b.ownedLocked(customerID, fromID)
	if err != nil {
		return Account{}, err
	}
	a := b.openLocked(customerID, t)
	b.postLocked(from, true, OpeningDeposit, "Funds Transfer Sent")
	b.postLocked(a, false, OpeningDeposit, "Funds Transfer Received")
	return *a, nil
}

// Transfer moves amount between two accounts of the customer. Balances may
// go negative.
func (b *Bank) Transfer(customerID, fromID, toID int64, amount Cents) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, err := b.ownedLocked(customerID, fromID)
	if err != nil {
		return err
	}
	to, err := b.ownedLocked(customerID, toID)
	if err != nil {
		return err
	}
	b.postLocked(from, true, amount, "Funds Transfer Sent")
	b.postLocked(to, false, amount, "Funds Transfer Received")
	return nil
}

// PayBill debits amount from fromID for payee.
func (b *Bank) PayBill(customerID, fromID int64, payee string, amount Cents) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, err := b.ownedLocked(customerID, fromID)
	if err != nil {
		return err
	}
	b.postLocked(from, true, amount, "Bill Payment to "+payee)
	return nil
}

// TransactionsByAmount returns the transactions of exactly amount. A zero
// customerID searches every account.
func (b *Bank) TransactionsByAmount(customerID int64, amount Cents) []Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []Transaction{}
	for _, t := range b.transactions {
		if t.Amount != amount {
			continue
		}
		if customerID != 0 && b.accounts[t.AccountID].CustomerID != customerID {
			continue
		}
		out = append(out, t)
	}
	return out
}
