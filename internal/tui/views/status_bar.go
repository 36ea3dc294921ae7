package views

import (
	"fmt"

	"github.com/rivo/tview"
)

// StatusBar shows the profile, session, connectivity and activity state on
// one line at the bottom of the screen.
type StatusBar struct {
	*tview.TextView
	profile    string
	session    string
	connected  bool
	busy       bool
	listening  bool
	interim    string
	flash      string
	flashError bool
	hints      string
}

// NewStatusBar creates the status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetProfile sets the profile label.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetSession sets the session label, truncated to a short prefix.
func (sb *StatusBar) SetSession(id string) {
	if len(id) > 8 {
		id = id[:8]
	}
	sb.session = id
	sb.render()
}

// SetConnected updates the connectivity indicator.
func (sb *StatusBar) SetConnected(connected bool) {
	sb.connected = connected
	sb.render()
}

// SetBusy updates the in-flight send indicator.
func (sb *StatusBar) SetBusy(busy bool) {
	sb.busy = busy
	sb.render()
}

// SetListening updates the voice capture indicator and interim transcript.
func (sb *StatusBar) SetListening(listening bool, interim string) {
	sb.listening = listening
	sb.interim = interim
	sb.render()
}

// SetHints sets the key hint string for the current page.
func (sb *StatusBar) SetHints(hints string) {
	sb.hints = hints
	sb.render()
}

// SetFlash sets the transient message shown at the end of the line.
func (sb *StatusBar) SetFlash(msg string, isError bool) {
	sb.flash = msg
	sb.flashError = isError
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	conn := "[red]offline[-]"
	if sb.connected {
		conn = "[green]online[-]"
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s | %s", sb.profile, sb.session, conn)
	if sb.busy {
		line += " | [yellow]sending...[-]"
	}
	if sb.listening {
		if sb.interim != "" {
			line += fmt.Sprintf(" | [red]*[-] %s", tview.Escape(sb.interim))
		} else {
			line += " | [red]*[-] listening"
		}
	}
	if sb.flash != "" {
		color := "yellow"
		if sb.flashError {
			color = "red"
		}
		line += fmt.Sprintf(" | [%s]%s[-]", color, tview.Escape(sb.flash))
	}
	if sb.hints != "" {
		line += fmt.Sprintf(" | [::d]%s[-:-:-]", sb.hints)
	}

	_, _ = fmt.Fprint(sb, line)
}
