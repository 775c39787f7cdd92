// Package fixture provides the input data that drives a ParaBank scenario: a
// user profile template, a bill-payment payee, and unique usernames.
package fixture

import (
	"strconv"
	"sync"
	"time"
)

// UserProfile holds the fields of the registration form, minus the values that
// must be unique per run.
type UserProfile struct {
	FirstName string
	LastName  string
	Address   string
	City      string
	State     string
	Zip       string
	Phone     string
	Password  string
}

// Identity is a UserProfile cloned for one run together with its unique
// username and SSN.
type Identity struct {
	UserProfile
	Username string
	SSN      string
}

// PayeeProfile is a bill-payment recipient.
type PayeeProfile struct {
	Name          string
	Address       string
	City          string
	State         string
	Zip           string
	Phone         string
	AccountNumber string
}

var userTemplate = UserProfile{
	FirstName: "QA",
	LastName:  "Engineer",
	Address:   "123 Automation Street",
	City:      "Bangalore",
	State:     "KA",
	Zip:       "560001",
	Phone:     "9876543210",
	Password:  "Passw0rd123",
}

var payee = PayeeProfile{
	Name:          "UtilityCorp",
	Address:       "456 Energy Road",
	City:          "Chennai",
	State:         "TN",
	Zip:           "600001",
	Phone:         "9988776655",
	AccountNumber: "99999",
}

// UserTemplate returns a copy of the profile every run registers with.
func UserTemplate() UserProfile { return userTemplate }

// Payee returns a copy of the bill-payment recipient.
func Payee() PayeeProfile { return payee }

// Source yields the numbers that make generated values unique.
type Source interface {
	Next() int64
}

// SourceFunc adapts a function to Source.
type SourceFunc func() int64

// Next calls f.
func (f SourceFunc) Next() int64 { return f() }

// ClockSource reads the wall clock in milliseconds since the Unix epoch.
var ClockSource Source = SourceFunc(func() int64 {
	return time.Now().UnixMilli()
})

type monotonic struct {
	mu   sync.Mutex
	src  Source
	last int64
}

// Monotonic wraps src so that successive values are strictly increasing. When
// src has not advanced past the last value handed out, the last value plus one
// is returned instead. It is safe for concurrent use.
func Monotonic(src Source) Source {
	return &monotonic{src: src}
}

func (m *monotonic) Next() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.src.Next()
	if n <= m.last {
		n = m.last + 1
	}
	m.last = n
	return n
}

type sequence struct {
	mu sync.Mutex
	n  int64
}

// Sequence returns a deterministic Source yielding start, start+1, ...
func Sequence(start int64) Source {
	return &sequence{n: start}
}

func (s *sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.n
	s.n++
	return n
}

// DefaultPrefix starts every generated username.
const DefaultPrefix = "qa_"

// Generator derives usernames and SSNs from a Source.
type Generator struct {
	Prefix string
	Source Source
}

// NewGenerator returns a Generator with DefaultPrefix over src.
func NewGenerator(src Source) *Generator {
	return &Generator{Prefix: DefaultPrefix, Source: src}
}

// Username returns Prefix followed by the next value of the source.
func (g *Generator) Username() string {
	return g.Prefix + strconv.FormatInt(g.Source.Next(), 10)
}

// SSN returns the next value of the source as a decimal string.
func (g *Generator) SSN() string {
	return strconv.FormatInt(g.Source.Next(), 10)
}

// NewIdentity clones p with a fresh username and SSN.
func (g *Generator) NewIdentity(p UserProfile) Identity {
	return Identity{
		UserProfile: p,
		Username:    g.Username(),
		SSN:         g.SSN(),
	}
}

var defaultGenerator = NewGenerator(Monotonic(ClockSource))

// Default returns the process-wide generator over the clock. Every caller
// shares its same-millisecond bump, so two scenarios started together never
// receive the same username.
func Default() *Generator {
	return defaultGenerator
}

// GenerateUsername returns "qa_" followed by the current time in
// milliseconds, bumped by one when called twice within the same millisecond.
func GenerateUsername() string {
	return defaultGenerator.Username()
}

// NewIdentity clones p with a username and SSN from the default generator.
func NewIdentity(p UserProfile) Identity {
	return defaultGenerator.NewIdentity(p)
}
