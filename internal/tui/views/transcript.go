package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/dariusai/darius/internal/chat"
)

// Transcript displays the conversation, oldest message first.
type Transcript struct {
	*tview.TextView
}

// NewTranscript creates the conversation view.
func NewTranscript() *Transcript {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Conversation ")

	return &Transcript{TextView: tv}
}

// Update redraws the transcript from the full message slice.
func (t *Transcript) Update(msgs []chat.Message) {
	t.Clear()

	for _, m := range msgs {
		sender := "Darius"
		color := "green"
		if m.Role == chat.RoleUser {
			sender = "You"
			color = "blue"
		}

		tag := ""
		if m.Type == chat.TypeVoice {
			tag = " [::d]voice[-:-:-]"
		}

		ts := m.Timestamp.Format("15:04")
		_, _ = fmt.Fprintf(t, "[%s::b]%s[-:-:-]%s [::d]%s[-:-:-]\n%s\n",
			color, sender, tag, ts, tview.Escape(m.Content))

		if len(m.Suggestions) > 0 {
			for _, s := range m.Suggestions {
				_, _ = fmt.Fprintf(t, "  [yellow]> %s[-]\n", tview.Escape(s))
			}
		}
		_, _ = fmt.Fprint(t, "\n")
	}

	t.ScrollToEnd()
}
