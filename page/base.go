package page

import "fmt"

// Navigator loads pages by path.
type Navigator interface {
	NavigateTo(path string) error
}

// Base is the navigation capability shared by page objects.
type Base struct {
	Session Session
}

// NewBase returns a Base driving s.
func NewBase(s Session) *Base {
	return &Base{Session: s}
}

// NavigateTo loads path and waits for the page to finish loading.
func (b *Base) NavigateTo(path string) error {
	if err := b.Session.Navigate(path); err != nil {
		return fmt.Errorf("navigate to %s: %w", path, err)
	}
	return nil
}

var _ Navigator = (*Base)(nil)
