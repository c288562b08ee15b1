package engine

import "math"

// Filter is a numeric range constraint over a set of options.
//
// Each referenced option exposes a FilterLimit under the filter's name. The
// filter keeps every option's Incompatible flag equal to
// !(low <= limit <= high) and adds or releases reason {filter, Name}
// exactly once per flip.
type Filter struct {
	Number  int
	Name    string
	GUIName string

	min, max, step float64
	low, high      float64

	options []*Option
	index   map[string]struct{}
	hub     *hub
}

// NewFilter creates a filter whose selected range starts at the full range.
// A non-positive step defaults to 1. min > max or a non-finite bound is a
// ConfigError.
func NewFilter(number int, name, guiName string, min, max, step float64) (*Filter, error) {
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil, newConfigError(ErrCodeInvalidRange, "filter", name,
			"range bounds must be finite, got [%v, %v]", min, max)
	}
	if min > max {
		return nil, newConfigError(ErrCodeInvalidRange, "filter", name,
			"min %v is greater than max %v", min, max)
	}
	if math.IsNaN(step) || step < 0 {
		return nil, newConfigError(ErrCodeInvalidRange, "filter", name,
			"step must be positive, got %v", step)
	}
	if step == 0 {
		step = 1
	}
	return &Filter{
		Number:  number,
		Name:    name,
		GUIName: guiName,
		min:     min,
		max:     max,
		step:    step,
		low:     min,
		high:    max,
		index:   make(map[string]struct{}),
	}, nil
}

// Label returns the display label.
func (f *Filter) Label() string {
	if f.GUIName != "" {
		return f.GUIName
	}
	return f.Name
}

// FullRange returns the slider's bounds.
func (f *Filter) FullRange() (min, max float64) { return f.min, f.max }

// Range returns the currently selected bounds.
func (f *Filter) Range() (low, high float64) { return f.low, f.high }

// Step returns the slider step.
func (f *Filter) Step() float64 { return f.step }

// Options returns the referenced options in declaration order.
func (f *Filter) Options() []*Option {
	out := make([]*Option, len(f.options))
	copy(out, f.options)
	return out
}

// AddOption references an option and evaluates it against the current
// range. The option must carry a limit for this filter.
func (f *Filter) AddOption(o *Option) error {
	lim, ok := o.limits[f.Name]
	if !ok {
		return newConfigError(ErrCodeMissingLimit, "filter", f.Name,
			"option %q has no %q limit", o.Name, f.Name)
	}
	if _, dup := f.index[o.Name]; dup {
		return newConfigError(ErrCodeDuplicateName, "filter", f.Name,
			"option %q listed twice", o.Name)
	}
	f.index[o.Name] = struct{}{}
	f.options = append(f.options, o)
	f.evaluate(o, lim)
	return nil
}

// SetRange selects a new range.
//
// NaN bounds fall back to the full range, values are clamped into
// [min, max] and reversed bounds are swapped. Repeating the current range
// changes nothing.
func (f *Filter) SetRange(low, high float64) {
	low, high = f.Clamp(low, high)
	if low == f.low && high == f.high {
		return
	}
	f.low, f.high = low, high

	for _, o := range f.options {
		f.evaluate(o, o.limits[f.Name])
	}
	f.hub.filterChanged(f)
}

// Clamp normalizes a requested range the way SetRange does.
func (f *Filter) Clamp(low, high float64) (float64, float64) {
	if math.IsNaN(low) {
		low = f.min
	}
	if math.IsNaN(high) {
		high = f.max
	}
	if low > high {
		low, high = high, low
	}
	return clamp(low, f.min, f.max), clamp(high, f.min, f.max)
}

// Excluded returns the names of options the current range excludes.
func (f *Filter) Excluded() []string {
	var out []string
	for _, o := range f.options {
		if o.limits[f.Name].Incompatible {
			out = append(out, o.Name)
		}
	}
	return out
}

// State returns a presentation snapshot of the filter.
func (f *Filter) State() FilterState {
	return FilterState{
		Name:     f.Name,
		Label:    f.Label(),
		Min:      f.min,
		Max:      f.max,
		Step:     f.step,
		Low:      f.low,
		High:     f.high,
		Excluded: f.Excluded(),
	}
}

// evaluate flips the option's flag and reason when its compatibility with
// the current range changed.
func (f *Filter) evaluate(o *Option, lim *FilterLimit) {
	incompatible := !(f.low <= lim.Limit && lim.Limit <= f.high)
	if incompatible == lim.Incompatible {
		return
	}
	lim.Incompatible = incompatible
	r := Reason{Kind: ReasonFilter, Source: f.Name}
	if incompatible {
		o.addReason(r)
	} else {
		o.removeReason(r)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
