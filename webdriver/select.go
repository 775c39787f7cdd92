package webdriver

import (
	"fmt"
	"strings"
)

// SelectElement wraps a WebElement that is a <select> drop-down.
type SelectElement struct {
	element WebElement
}

// Select creates a SelectElement from el, which must be a <select> element.
func Select(el WebElement) (SelectElement, error) {
	tagName, err := el.TagName()
	if err != nil {
		return SelectElement{}, err
	}
	if strings.ToLower(tagName) != "select" {
		return SelectElement{}, fmt.Errorf(`element should have been "select" but was %q`, tagName)
	}
	return SelectElement{element: el}, nil
}

// Element returns the underlying WebElement.
func (s SelectElement) Element() WebElement {
	return s.element
}

// Options returns all of the <option> children of the select.
func (s SelectElement) Options() ([]WebElement, error) {
	return s.element.FindElements(ByTagName, "option")
}

// FirstSelectedOption returns the first option that is currently selected.
func (s SelectElement) FirstSelectedOption() (WebElement, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		sel, err := o.IsSelected()
		if err != nil {
			return nil, err
		}
		if sel {
			return o, nil
		}
	}
	return nil, &Error{Err: ErrNoSuchElement, Message: "no option is selected"}
}

// SelectByVisibleText selects the option whose whitespace-normalized text
// equals text, e.g. "Bar" for <option value="foo"> Bar </option>.
func (s SelectElement) SelectByVisibleText(text string) error {
	xpath := fmt.Sprintf(".//option[normalize-space(.) = %s]", XPathLiteral(strings.Join(strings.Fields(text), " ")))
	opts, err := s.element.FindElements(ByXPATH, xpath)
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		return &Error{Err: ErrNoSuchElement, Message: fmt.Sprintf("cannot locate option with text: %q", text)}
	}
	return setSelected(opts[0])
}

// SelectByValue selects the option whose value attribute equals value.
func (s SelectElement) SelectByValue(value string) error {
	opts, err := s.element.FindElements(ByXPATH, fmt.Sprintf(".//option[@value = %s]", XPathLiteral(value)))
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		return &Error{Err: ErrNoSuchElement, Message: fmt.Sprintf("cannot locate option with value: %q", value)}
	}
	return setSelected(opts[0])
}

// SelectByIndex selects the option at position idx (zero based) in document
// order.
func (s SelectElement) SelectByIndex(idx int) error {
	opts, err := s.Options()
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(opts) {
		return &Error{Err: ErrNoSuchElement, Message: fmt.Sprintf("cannot locate option with index: %d", idx)}
	}
	return setSelected(opts[idx])
}

func setSelected(option WebElement) error {
	sel, err := option.IsSelected()
	if err != nil {
		return err
	}
	if sel {
		return nil
	}
	return option.Click()
}

// XPathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so strings containing both quote kinds become a concat() call.
func XPathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	args := make([]string, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if p != "" {
			args = append(args, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}
