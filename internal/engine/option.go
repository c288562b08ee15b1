package engine

import (
	"fmt"
	"sort"
)

// Option is the smallest selectable unit.
//
// Each option owns its own incompatibility set and reason set; nothing is
// shared between instances. Options are created by Build (or NewOption in
// tests) and live for the whole session.
type Option struct {
	Number  int
	Name    string
	GUIName string

	selected bool
	reasons  map[Reason]struct{}

	// peers holds incompatible options in wiring order; peerSet dedupes.
	peers   []*Option
	peerSet map[*Option]struct{}

	limits map[string]*FilterLimit
	choice *Choice
	hub    *hub
}

// FilterLimit is the per-option, per-filter attribute structure: the
// option's value for the filter's attribute and whether the filter's
// current range excludes it.
type FilterLimit struct {
	Limit        float64
	Incompatible bool
}

// NewOption creates a deselected, enabled option. An empty guiName defaults
// to name.
func NewOption(number int, name, guiName string) *Option {
	return &Option{
		Number:  number,
		Name:    name,
		GUIName: guiName,
		reasons: make(map[Reason]struct{}),
		peerSet: make(map[*Option]struct{}),
		limits:  make(map[string]*FilterLimit),
	}
}

// Label returns the display label.
func (o *Option) Label() string {
	if o.GUIName != "" {
		return o.GUIName
	}
	return o.Name
}

// Selected reports whether the option is toggled on.
func (o *Option) Selected() bool { return o.selected }

// Disabled reports whether any incompatibility reason is active.
func (o *Option) Disabled() bool { return len(o.reasons) > 0 }

// IncompatibilityCount returns the number of active reasons.
func (o *Option) IncompatibilityCount() int { return len(o.reasons) }

// Choice returns the owning choice, or nil for a free-standing option.
func (o *Option) Choice() *Choice { return o.choice }

// Reasons returns the active reasons sorted by kind then source.
func (o *Option) Reasons() []Reason {
	out := make([]Reason, 0, len(o.reasons))
	for r := range o.reasons {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// Incompatibilities returns the incompatible options in wiring order.
func (o *Option) Incompatibilities() []*Option {
	out := make([]*Option, len(o.peers))
	copy(out, o.peers)
	return out
}

// IsIncompatibleWith reports whether p is in o's incompatibility set.
func (o *Option) IsIncompatibleWith(p *Option) bool {
	_, ok := o.peerSet[p]
	return ok
}

// SetLimit records the option's value for a filter attribute.
func (o *Option) SetLimit(filter string, limit float64) {
	o.limits[filter] = &FilterLimit{Limit: limit}
}

// Limit returns a copy of the attribute structure for a filter.
func (o *Option) Limit(filter string) (FilterLimit, bool) {
	l, ok := o.limits[filter]
	if !ok {
		return FilterLimit{}, false
	}
	return *l, true
}

// SetSelected toggles the option.
//
// Selecting adds reason {sibling, o.Name} to every incompatible option;
// deselecting releases it. Setting the current value again is a no-op.
// Selecting a disabled option returns ErrOptionDisabled and changes nothing.
func (o *Option) SetSelected(selected bool) error {
	if selected == o.selected {
		return nil
	}
	if selected && o.Disabled() {
		return fmt.Errorf("%w: %s (%d active reasons)", ErrOptionDisabled, o.Name, len(o.reasons))
	}

	o.selected = selected
	o.hub.optionChanged(o)

	r := Reason{Kind: ReasonSibling, Source: o.Name}
	for _, p := range o.peers {
		if selected {
			p.addReason(r)
		} else {
			p.removeReason(r)
		}
	}
	return nil
}

// State returns a presentation snapshot of the option.
func (o *Option) State() OptionState {
	reasons := o.Reasons()
	names := make([]string, len(reasons))
	for i, r := range reasons {
		names[i] = r.String()
	}
	style := StylePrimary
	if o.selected {
		style = StyleSuccess
	}
	return OptionState{
		Name:     o.Name,
		Label:    o.Label(),
		Selected: o.selected,
		Disabled: o.Disabled(),
		Count:    len(o.reasons),
		Reasons:  names,
		Style:    style,
	}
}

// addIncompatibility records p as incompatible. Returns false if p was
// already present, so repeated wiring never duplicates an edge.
func (o *Option) addIncompatibility(p *Option) bool {
	if p == o {
		return false
	}
	if _, ok := o.peerSet[p]; ok {
		return false
	}
	o.peerSet[p] = struct{}{}
	o.peers = append(o.peers, p)
	return true
}

// addReason activates a reason. A selected option is deselected first so
// that it is never selected and disabled at the same time.
func (o *Option) addReason(r Reason) {
	if _, dup := o.reasons[r]; dup {
		panic(&InvariantViolation{
			Option:  o.Name,
			Message: fmt.Sprintf("reason %s activated twice", r),
		})
	}
	if o.selected {
		// Cannot fail: deselecting never returns an error.
		_ = o.SetSelected(false)
	}
	wasDisabled := o.Disabled()
	o.reasons[r] = struct{}{}
	if !wasDisabled {
		o.hub.optionChanged(o)
	}
}

// removeReason releases a reason. Releasing an inactive reason would drive
// the count negative and panics.
func (o *Option) removeReason(r Reason) {
	if _, ok := o.reasons[r]; !ok {
		panic(&InvariantViolation{
			Option:  o.Name,
			Message: fmt.Sprintf("release of inactive reason %s would make the incompatibility count negative", r),
		})
	}
	delete(o.reasons, r)
	if !o.Disabled() {
		o.hub.optionChanged(o)
	}
}
