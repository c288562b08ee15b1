package engine

// Toggle styles mirror the two button looks of the presentation layer.
const (
	StylePrimary = "primary" // deselected
	StyleSuccess = "success" // selected
)

// OptionState is what a presenter needs to draw one option control.
type OptionState struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Selected bool     `json:"selected"`
	Disabled bool     `json:"disabled"`
	Count    int      `json:"incompatibility_count"`
	Reasons  []string `json:"reasons,omitempty"`
	Style    string   `json:"style"`
}

// FilterState is what a presenter needs to draw one range control.
type FilterState struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Step     float64  `json:"step"`
	Low      float64  `json:"low"`
	High     float64  `json:"high"`
	Excluded []string `json:"excluded,omitempty"`
}

// Observer receives state flips as they happen.
//
// OptionChanged fires when an option's selection or enabled/disabled state
// flips; count changes that keep an option disabled are not reported.
// FilterChanged fires when a filter's selected range changes.
// Observers are called synchronously from inside the mutation and must not
// mutate the matrix.
type Observer interface {
	OptionChanged(OptionState)
	FilterChanged(FilterState)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnOption func(OptionState)
	OnFilter func(FilterState)
}

// OptionChanged implements Observer.
func (f ObserverFuncs) OptionChanged(s OptionState) {
	if f.OnOption != nil {
		f.OnOption(s)
	}
}

// FilterChanged implements Observer.
func (f ObserverFuncs) FilterChanged(s FilterState) {
	if f.OnFilter != nil {
		f.OnFilter(s)
	}
}

// hub fans notifications out to the matrix observers. A nil hub is valid
// and drops everything, which is what free-standing entities use.
type hub struct {
	observers []Observer
}

func (h *hub) add(o Observer) {
	h.observers = append(h.observers, o)
}

func (h *hub) optionChanged(o *Option) {
	if h == nil || len(h.observers) == 0 {
		return
	}
	s := o.State()
	for _, obs := range h.observers {
		obs.OptionChanged(s)
	}
}

func (h *hub) filterChanged(f *Filter) {
	if h == nil || len(h.observers) == 0 {
		return
	}
	s := f.State()
	for _, obs := range h.observers {
		obs.FilterChanged(s)
	}
}
