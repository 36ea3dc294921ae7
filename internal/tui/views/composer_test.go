package views

import "testing"

func TestComposerSubmitTrims(t *testing.T) {
	c := NewComposer()
	var sent []string
	c.SetOnSend(func(text string) { sent = append(sent, text) })

	c.SetText("  hello there \t")
	c.submit()

	if len(sent) != 1 || sent[0] != "hello there" {
		t.Errorf("sent = %v, want trimmed text", sent)
	}
	if got := c.GetText(); got != "" {
		t.Errorf("field = %q, want cleared", got)
	}
}

func TestComposerSubmitWhitespaceOnlyIsDropped(t *testing.T) {
	c := NewComposer()
	var sent []string
	c.SetOnSend(func(text string) { sent = append(sent, text) })

	c.SetText("   \t ")
	c.submit()

	if len(sent) != 0 {
		t.Errorf("sent = %v, want nothing for whitespace input", sent)
	}
	if got := c.GetText(); got != "" {
		t.Errorf("field = %q, want cleared", got)
	}
}
