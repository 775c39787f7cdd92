package webdriver

import (
	"testing"
)

func selectedText(t *testing.T, s SelectElement) string {
	t.Helper()
	o, err := s.FirstSelectedOption()
	if err != nil {
		t.Fatalf("FirstSelectedOption() returned error: %v", err)
	}
	text, err := o.Text()
	if err != nil {
		t.Fatalf("option.Text() returned error: %v", err)
	}
	return text
}

func TestSelect(t *testing.T) {
	_, wd := newTestRemote(t)

	el, err := wd.FindElement(ByCSSSelector, "#fromAccountId")
	if err != nil {
		t.Fatalf("wd.FindElement() returned error: %v", err)
	}
	s, err := Select(el)
	if err != nil {
		t.Fatalf("Select() returned error: %v", err)
	}

	if got := selectedText(t, s); got != "13011" {
		t.Fatalf("initial selection = %q, want 13011", got)
	}

	if err := s.SelectByValue("13344"); err != nil {
		t.Fatalf("SelectByValue(13344) returned error: %v", err)
	}
	if got := selectedText(t, s); got != "13344" {
		t.Errorf("after SelectByValue selection = %q, want 13344", got)
	}

	if err := s.SelectByIndex(0); err != nil {
		t.Fatalf("SelectByIndex(0) returned error: %v", err)
	}
	if got := selectedText(t, s); got != "13011" {
		t.Errorf("after SelectByIndex selection = %q, want 13011", got)
	}

	if err := s.SelectByVisibleText("  13344 "); err != nil {
		t.Fatalf("SelectByVisibleText(13344) returned error: %v", err)
	}
	if got := selectedText(t, s); got != "13344" {
		t.Errorf("after SelectByVisibleText selection = %q, want 13344", got)
	}

	for desc, err := range map[string]error{
		"value": s.SelectByValue("0"),
		"text":  s.SelectByVisibleText("missing"),
		"index": s.SelectByIndex(5),
	} {
		if !HasCode(err, ErrNoSuchElement) {
			t.Errorf("select by unknown %s returned %v, want %q", desc, err, ErrNoSuchElement)
		}
	}
}

func TestSelectRejectsOtherElements(t *testing.T) {
	_, wd := newTestRemote(t)
	el, err := wd.FindElement(ByCSSSelector, ".title")
	if err != nil {
		t.Fatalf("wd.FindElement() returned error: %v", err)
	}
	if _, err := Select(el); err == nil {
		t.Fatal("Select(<h1>) returned nil error")
	}
}

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`13344`, `"13344"`},
		{`O"Brien`, `'O"Brien'`},
		{`it's "quoted"`, `concat("it's ", '"', "quoted", '"')`},
	}
	for _, tc := range tests {
		if got := XPathLiteral(tc.in); got != tc.want {
			t.Errorf("XPathLiteral(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
