package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// UploadPrompt asks for one or more local file paths, space separated.
type UploadPrompt struct {
	*tview.InputField
	onSubmit func(paths string)
}

// NewUploadPrompt creates the upload path prompt.
func NewUploadPrompt() *UploadPrompt {
	input := tview.NewInputField().
		SetLabel(" Upload (paths): ").
		SetFieldWidth(0)

	p := &UploadPrompt{InputField: input}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && p.onSubmit != nil {
			text := p.GetText()
			if text != "" {
				p.onSubmit(text)
				p.SetText("")
			}
		}
	})

	return p
}

// SetOnSubmit sets the callback invoked with the raw path line.
func (p *UploadPrompt) SetOnSubmit(fn func(paths string)) {
	p.onSubmit = fn
}
