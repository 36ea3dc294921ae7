package keys

import "github.com/gdamore/tcell/v2"

// Binding ties one key or rune to a handler.
type Binding struct {
	Key     tcell.Key
	Rune    rune
	Help    string
	Handler func()
}

func (b *Binding) matches(ev *tcell.EventKey) bool {
	if b.Key != tcell.KeyRune {
		return ev.Key() == b.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == b.Rune
}

// Registry holds key bindings, global plus per page.
type Registry struct {
	global []*Binding
	pages  map[string][]*Binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Binding)}
}

// Bind registers a binding active on every page.
func (r *Registry) Bind(b *Binding) {
	r.global = append(r.global, b)
}

// BindPage registers a binding active only on the named page.
func (r *Registry) BindPage(page string, b *Binding) {
	r.pages[page] = append(r.pages[page], b)
}

// Hints returns the help strings for the named page, page bindings first.
func (r *Registry) Hints(page string) []string {
	var hints []string
	for _, b := range r.pages[page] {
		if b.Help != "" {
			hints = append(hints, b.Help)
		}
	}
	for _, b := range r.global {
		if b.Help != "" {
			hints = append(hints, b.Help)
		}
	}
	return hints
}

// Handle dispatches the event to the first matching binding on the named
// page, then to globals. It reports whether a handler ran.
func (r *Registry) Handle(page string, ev *tcell.EventKey) bool {
	for _, b := range r.pages[page] {
		if b.matches(ev) {
			b.Handler()
			return true
		}
	}
	for _, b := range r.global {
		if b.matches(ev) {
			b.Handler()
			return true
		}
	}
	return false
}
