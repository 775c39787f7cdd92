// Package fakebank serves an in-memory lookalike of the ParaBank demo
// application: the pages and form fields the scenario drives, plus the
// transaction search service.
package fakebank

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/wanmail/bankflow/bankapi"
)

// SessionCookie names the cookie carrying the login session.
const SessionCookie = "JSESSIONID"

const (
	basePath    = "/parabank"
	customerKey = "customer"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// view is the data every template renders from.
type view struct {
	Title    string
	Customer *Customer
	Error    string

	Form       map[string]string
	Registered bool

	Accounts     []Account
	ToAccounts   []Account
	Total        Cents
	NewAccountID int64
	Deposit      Cents

	Done   bool
	Amount Cents
	FromID int64
	ToID   int64
	Payee  string
}

// Server is the HTTP front end of a Bank.
type Server struct {
	bank   *Bank
	engine *gin.Engine
}

// New returns a Server for bank, routing everything under /parabank.
func New(bank *Bank) *Server {
	s := &Server{bank: bank, engine: gin.New()}
	s.engine.Use(gin.Recovery(), logRequests())
	s.engine.SetHTMLTemplate(templates)

	r := s.engine.Group(basePath, s.loadSession)
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, basePath+"/index.htm") })
	r.GET("/index.htm", s.index)
	r.GET("/register.htm", s.registerForm)
	r.POST("/register.htm", s.register)
	r.POST("/login.htm", s.login)
	r.GET("/logout.htm", s.logout)
	r.GET("/services/bank/findtransbyamount", s.findTransactionsByAmount)

	auth := r.Group("", requireLogin)
	auth.GET("/overview.htm", s.overview)
	auth.GET("/openaccount.htm", s.openAccountForm)
	auth.POST("/openaccount.htm", s.openAccount)
	auth.GET("/transfer.htm", s.transferForm)
	auth.POST("/transfer.htm", s.transfer)
	auth.GET("/billpay.htm", s.billPayForm)
	auth.POST("/billpay.htm", s.billPay)
	return s
}

// Bank returns the back end of s.
func (s *Server) Bank() *Bank { return s.bank }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Start serves a fresh Bank on addr, e.g. "127.0.0.1:0", in the background.
// It returns the base URL of the server and a function shutting it down.
func Start(addr string) (string, func(context.Context) error, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: New(NewBank()), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Errorf("fake bank: %v", err)
		}
	}()
	base := "http://" + l.Addr().String()
	glog.Infof("fake ParaBank listening on %s%s", base, basePath)
	return base, srv.Shutdown, nil
}

func logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		glog.V(1).Infof("fakebank: %s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) loadSession(c *gin.Context) {
	token, err := c.Cookie(SessionCookie)
	if err != nil {
		return
	}
	if cust, ok := s.bank.Session(token); ok {
		c.Set(customerKey, &cust)
	}
}

func customer(c *gin.Context) *Customer {
	if v, ok := c.Get(customerKey); ok {
		return v.(*Customer)
	}
	return nil
}

func requireLogin(c *gin.Context) {
	if customer(c) == nil {
		render(c, http.StatusUnauthorized, "index", view{
			Title: "Error!",
			Error: "Please log in to access this page.",
		})
		c.Abort()
	}
}

func render(c *gin.Context, code int, name string, v view) {
	v.Customer = customer(c)
	c.HTML(code, name, v)
}

func (s *Server) index(c *gin.Context) {
	render(c, http.StatusOK, "index", view{Title: "Experience the difference"})
}

const registerTitle = "Signing up is easy!"

func (s *Server) registerForm(c *gin.Context) {
	render(c, http.StatusOK, "register", view{Title: registerTitle})
}

var registerFields = []struct {
	key, name, label string
}{
	{"firstName", "customer.firstName", "First name"},
	{"lastName", "customer.lastName", "Last name"},
	{"street", "customer.address.street", "Address"},
	{"city", "customer.address.city", "City"},
	{"state", "customer.address.state", "State"},
	{"zip", "customer.address.zipCode", "Zip Code"},
	{"phone", "customer.phoneNumber", ""},
	{"ssn", "customer.ssn", "Social Security Number"},
	{"username", "customer.username", "Username"},
	{"password", "customer.password", "Password"},
}

func (s *Server) register(c *gin.Context) {
	form := make(map[string]string, len(registerFields))
	var missing []string
	for _, f := range registerFields {
		v := strings.TrimSpace(c.PostForm(f.name))
		form[f.key] = v
		if v == "" && f.label != "" {
			missing = append(missing, f.label+" is required.")
		}
	}
	fail := func(msg string) {
		delete(form, "password")
		render(c, http.StatusOK, "register", view{Title: registerTitle, Form: form, Error: msg})
	}
	if len(missing) > 0 {
		fail(strings.Join(missing, " "))
		return
	}
	if form["password"] != c.PostForm("repeatedPassword") {
		fail("Passwords did not match.")
		return
	}
	cust, _, err := s.bank.Register(Customer{
		FirstName: form["firstName"],
		LastName:  form["lastName"],
		Street:    form["street"],
		City:      form["city"],
		State:     form["state"],
		Zip:       form["zip"],
		Phone:     form["phone"],
		SSN:       form["ssn"],
		Username:  form["username"],
		Password:  form["password"],
	})
	if errors.Is(err, ErrUsernameTaken) {
		fail("This username already exists.")
		return
	}
	if err != nil {
		fail(err.Error())
		return
	}
	render(c, http.StatusOK, "register", view{Title: "Welcome " + cust.Username, Registered: true})
}

func (s *Server) login(c *gin.Context) {
	_, token, err := s.bank.Login(c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		render(c, http.StatusOK, "index", view{
			Title: "Error!",
			Error: "The username and password could not be verified.",
		})
		return
	}
	c.SetCookie(SessionCookie, token, 0, basePath, "", false, true)
	c.Redirect(http.StatusFound, basePath+"/overview.htm")
}

func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil {
		s.bank.Logout(token)
	}
	c.SetCookie(SessionCookie, "", -1, basePath, "", false, true)
	c.Redirect(http.StatusFound, basePath+"/index.htm")
}

func (s *Server) overview(c *gin.Context) {
	accounts := s.bank.Accounts(customer(c).ID)
	var total Cents
	for _, a := range accounts {
		total += a.Balance
	}
	render(c, http.StatusOK, "overview", view{Title: "Accounts Overview", Accounts: accounts, Total: total})
}

func (s *Server) openAccountForm(c *gin.Context) {
	render(c, http.StatusOK, "openaccount", view{
		Title:    "Open New Account",
		Accounts: s.bank.Accounts(customer(c).ID),
		Deposit:  OpeningDeposit,
	})
}

func (s *Server) openAccount(c *gin.Context) {
	cust := customer(c)
	typ, err := strconv.Atoi(c.PostForm("type"))
	if err != nil || (AccountType(typ) != Checking && AccountType(typ) != Savings) {
		s.formError(c, "openaccount", "Please select an account type.")
		return
	}
	from, err := strconv.ParseInt(c.PostForm("fromAccountId"), 10, 64)
	if err != nil {
		s.formError(c, "openaccount", "Please select a funding account.")
		return
	}
	a, err := s.bank.OpenAccount(cust.ID, AccountType(typ), from)
	if err != nil {
		s.formError(c, "openaccount", err.Error())
		return
	}
	render(c, http.StatusOK, "openaccount", view{Title: "Account Opened!", NewAccountID: a.ID})
}

// toAccounts lists destination accounts newest first, so the second entry
// differs from a freshly opened account.
func toAccounts(accounts []Account) []Account {
	out := make([]Account, len(accounts))
	for i, a := range accounts {
		out[len(accounts)-1-i] = a
	}
	return out
}

func (s *Server) transferForm(c *gin.Context) {
	accounts := s.bank.Accounts(customer(c).ID)
	render(c, http.StatusOK, "transfer", view{
		Title:      "Transfer Funds",
		Accounts:   accounts,
		ToAccounts: toAccounts(accounts),
	})
}

func (s *Server) transfer(c *gin.Context) {
	cust := customer(c)
	amount, err := ParseCents(c.PostForm("amount"))
	if err != nil {
		s.formError(c, "transfer", "The amount cannot be empty and must be a positive number.")
		return
	}
	from, err1 := strconv.ParseInt(c.PostForm("fromAccountId"), 10, 64)
	to, err2 := strconv.ParseInt(c.PostForm("toAccountId"), 10, 64)
	if err1 != nil || err2 != nil {
		s.formError(c, "transfer", "Please select both accounts.")
		return
	}
	if err := s.bank.Transfer(cust.ID, from, to, amount); err != nil {
		s.formError(c, "transfer", err.Error())
		return
	}
	render(c, http.StatusOK, "transfer", view{
		Title:  "Transfer Complete!",
		Done:   true,
		Amount: amount,
		FromID: from,
		ToID:   to,
	})
}

func (s *Server) billPayForm(c *gin.Context) {
	render(c, http.StatusOK, "billpay", view{
		Title:    "Bill Payment Service",
		Accounts: s.bank.Accounts(customer(c).ID),
	})
}

func (s *Server) billPay(c *gin.Context) {
	cust := customer(c)
	payee := strings.TrimSpace(c.PostForm("payee.name"))
	if payee == "" {
		s.formError(c, "billpay", "Payee name is required.")
		return
	}
	account := strings.TrimSpace(c.PostForm("payee.accountNumber"))
	if account == "" || account != strings.TrimSpace(c.PostForm("verifyAccount")) {
		s.formError(c, "billpay", "The account numbers do not match.")
		return
	}
	amount, err := ParseCents(c.PostForm("amount"))
	if err != nil {
		s.formError(c, "billpay", "The amount cannot be empty and must be a positive number.")
		return
	}
	from, err := strconv.ParseInt(c.PostForm("fromAccountId"), 10, 64)
	if err != nil {
		s.formError(c, "billpay", "Please select an account.")
		return
	}
	if err := s.bank.PayBill(cust.ID, from, payee, amount); err != nil {
		s.formError(c, "billpay", err.Error())
		return
	}
	render(c, http.StatusOK, "billpay", view{
		Title:  "Bill Payment Complete",
		Done:   true,
		Payee:  payee,
		Amount: amount,
		FromID: from,
	})
}

// formError re-renders a form page under an "Error!" title so that a
// rejected submission never matches a confirmation title.
func (s *Server) formError(c *gin.Context, name, msg string) {
	v := view{Title: "Error!", Error: msg}
	if cust := customer(c); cust != nil {
		v.Accounts = s.bank.Accounts(cust.ID)
		v.ToAccounts = toAccounts(v.Accounts)
		v.Deposit = OpeningDeposit
	}
	render(c, http.StatusBadRequest, name, v)
}

// findTransactionsByAmount lists the transactions of the given amount as
// JSON, restricted to the logged-in customer when there is one.
func (s *Server) findTransactionsByAmount(c *gin.Context) {
	amount, err := ParseCents(c.Query("amount"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var customerID int64
	if cust := customer(c); cust != nil {
		customerID = cust.ID
	}
	txns := s.bank.TransactionsByAmount(customerID, amount)
	out := make([]bankapi.Transaction, 0, len(txns))
	for _, t := range txns {
		out = append(out, t.API())
	}
	c.JSON(http.StatusOK, out)
}
