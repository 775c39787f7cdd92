package page

// Session is a live browser session. Every method blocks until the browser
// has settled or the session's default timeout elapses; failures are returned
// as-is and never retried.
type Session interface {
	// Navigate loads path, relative to the session's base URL.
	Navigate(path string) error
	// Click clicks the single element matching l.
	Click(l Locator) error
	// Fill replaces the contents of the form control matching l.
	Fill(l Locator, value string) error
	// SelectOption picks o in the <select> matching l.
	SelectOption(l Locator, o Option) error
	// Text returns the rendered text of the element matching l.
	Text(l Locator) (string, error)
	// Visible reports whether an element matching l is present and displayed.
	Visible(l Locator) (bool, error)
}
