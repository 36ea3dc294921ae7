package views

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Composer is the text input for the next user message. Input is trimmed
// before dispatch; whitespace-only submissions clear the field and go
// nowhere.
type Composer struct {
	*tview.InputField
	onSend func(text string)
}

// NewComposer creates the message composer.
func NewComposer() *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)

	c := &Composer{InputField: input}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			c.submit()
		}
	})

	return c
}

func (c *Composer) submit() {
	text := strings.TrimSpace(c.GetText())
	c.SetText("")
	if text != "" && c.onSend != nil {
		c.onSend(text)
	}
}

// SetOnSend sets the callback invoked when the user submits a message.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}
