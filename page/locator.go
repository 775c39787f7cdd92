// Package page maps ParaBank user actions onto element locators and drives
// them through a browser Session.
package page

import "fmt"

// Locator strategies, spelled as the W3C WebDriver "using" values.
const (
	ByCSS   = "css selector"
	ByXPath = "xpath"
)

// Locator identifies an element on the current page.
type Locator struct {
	By    string
	Value string
}

// CSS returns a CSS selector locator.
func CSS(selector string) Locator {
	return Locator{By: ByCSS, Value: selector}
}

// XPath returns an XPath locator.
func XPath(expr string) Locator {
	return Locator{By: ByXPath, Value: expr}
}

// Name locates a form control by its name attribute.
func Name(name string) Locator {
	return CSS(fmt.Sprintf("[name=%q]", name))
}

// Input locates an <input> by its name attribute.
func Input(name string) Locator {
	return CSS(fmt.Sprintf("input[name=%q]", name))
}

// Button locates a submit <input> by its value, e.g. "Log In".
func Button(value string) Locator {
	return CSS(fmt.Sprintf("input[value=%q]", value))
}

func (l Locator) String() string {
	return l.By + "=" + l.Value
}

// Option picks an <option> of a <select>, by value when Value is set and by
// visible label otherwise.
type Option struct {
	Value string
	Label string
}

// ByValue picks the option whose value attribute is v.
func ByValue(v string) Option { return Option{Value: v} }

// ByLabel picks the option whose visible text is l.
func ByLabel(l string) Option { return Option{Label: l} }

func (o Option) String() string {
	if o.Value != "" {
		return fmt.Sprintf("value=%q", o.Value)
	}
	return fmt.Sprintf("label=%q", o.Label)
}
