package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/moa/internal/ir"
)

// Reader supplies the four name-keyed mappings a Matrix is built from.
// Each slice is in declaration order, which is also display order.
// ir.Catalog implements Reader.
type Reader interface {
	CategorySpecs() []ir.CategorySpec
	ChoiceSpecs() []ir.ChoiceSpec
	OptionSpecs() []ir.OptionSpec
	FilterSpecs() []ir.FilterSpec
}

// Matrix is the composition root: the Category -> Choice -> Option tree
// plus the filter list. It owns no constraint logic; mutations are
// delegated to Option.SetSelected and Filter.SetRange.
//
// Matrix is not safe for concurrent use. See Engine.
type Matrix struct {
	categories []*Category
	choices    []*Choice
	options    []*Option
	filters    []*Filter

	choiceIndex map[string]*Choice
	optionIndex map[string]*Option
	filterIndex map[string]*Filter

	hub    *hub
	logger *slog.Logger
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	observers []Observer
	logger    *slog.Logger
}

// WithObserver registers an observer for interaction-driven changes.
// State established during Build (initial filter evaluation) is not
// reported; read it from Layout or Snapshot.
func WithObserver(o Observer) BuildOption {
	return func(c *buildConfig) {
		c.observers = append(c.observers, o)
	}
}

// WithBuildLogger sets the logger used during assembly.
// Default: slog.Default().
func WithBuildLogger(l *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		c.logger = l
	}
}

// Build assembles a Matrix from a Reader.
//
// Assembly order: options, choices (wired exactly once each), categories,
// then filters (each evaluated against its full range). Every ConfigError
// found is collected and returned joined; on error the Matrix is nil.
//
// Names and references are indexed in NFC form, matching the by-name
// lookups.
func Build(r Reader, opts ...BuildOption) (*Matrix, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	m := &Matrix{
		choiceIndex: make(map[string]*Choice),
		optionIndex: make(map[string]*Option),
		filterIndex: make(map[string]*Filter),
		logger:      cfg.logger,
	}

	var errs []error

	type limitKey struct {
		option *Option
		filter string
	}
	badLimits := make(map[limitKey]struct{})

	for _, spec := range r.OptionSpecs() {
		name := ir.NormalizeName(spec.Name)
		if _, dup := m.optionIndex[name]; dup {
			errs = append(errs, newConfigError(ErrCodeDuplicateName, "option", name, "declared more than once"))
			continue
		}
		o := NewOption(spec.Number, name, spec.GUIName)
		for _, filter := range spec.LimitNames() {
			limit := spec.Limits[filter]
			filter = ir.NormalizeName(filter)
			if math.IsNaN(limit) || math.IsInf(limit, 0) {
				errs = append(errs, newConfigError(ErrCodeInvalidLimit, "option", name, "%q limit %v is not a finite number", filter, limit))
				badLimits[limitKey{o, filter}] = struct{}{}
				continue
			}
			if _, dup := o.limits[filter]; dup {
				errs = append(errs, newConfigError(ErrCodeDuplicateName, "option", name, "%q limit declared more than once", filter))
				continue
			}
			o.SetLimit(filter, limit)
		}
		m.optionIndex[name] = o
		m.options = append(m.options, o)
	}

	for _, spec := range r.ChoiceSpecs() {
		chName := ir.NormalizeName(spec.Name)
		if _, dup := m.choiceIndex[chName]; dup {
			errs = append(errs, newConfigError(ErrCodeDuplicateName, "choice", chName, "declared more than once"))
			continue
		}
		ch := NewChoice(spec.Number, chName, spec.GUIName)
		if len(spec.Options) == 0 {
			errs = append(errs, newConfigError(ErrCodeEmptyChoice, "choice", chName, "has no options"))
		}
		for _, name := range spec.Options {
			o, ok := m.optionIndex[ir.NormalizeName(name)]
			if !ok {
				errs = append(errs, newConfigError(ErrCodeUnknownReference, "choice", chName, "references unknown option %q", name))
				continue
			}
			if err := ch.AddOption(o); err != nil {
				errs = append(errs, err)
			}
		}
		m.choiceIndex[chName] = ch
		m.choices = append(m.choices, ch)
	}

	categoryNames := make(map[string]struct{})
	owner := make(map[*Choice]*Category)
	for _, spec := range r.CategorySpecs() {
		catName := ir.NormalizeName(spec.Name)
		if _, dup := categoryNames[catName]; dup {
			errs = append(errs, newConfigError(ErrCodeDuplicateName, "category", catName, "declared more than once"))
			continue
		}
		categoryNames[catName] = struct{}{}
		cat := NewCategory(spec.Number, catName, spec.GUIName)
		for _, name := range spec.Choices {
			ch, ok := m.choiceIndex[ir.NormalizeName(name)]
			if !ok {
				errs = append(errs, newConfigError(ErrCodeUnknownReference, "category", catName, "references unknown choice %q", name))
				continue
			}
			if prev, taken := owner[ch]; taken && prev != cat {
				errs = append(errs, newConfigError(ErrCodeSharedMember, "choice", ch.Name,
					"already belongs to category %q, cannot join %q", prev.Name, catName))
				continue
			}
			if err := cat.AddChoice(ch); err != nil {
				errs = append(errs, err)
				continue
			}
			owner[ch] = cat
		}
		m.categories = append(m.categories, cat)
	}

	// Filters are validated before any is attached, so a bad filter never
	// leaves reasons behind on options.
	type pending struct {
		filter  *Filter
		options []*Option
	}
	var filters []pending
	for _, spec := range r.FilterSpecs() {
		fName := ir.NormalizeName(spec.Name)
		if _, dup := m.filterIndex[fName]; dup {
			errs = append(errs, newConfigError(ErrCodeDuplicateName, "filter", fName, "declared more than once"))
			continue
		}
		f, err := NewFilter(spec.Number, fName, spec.GUIName, spec.Min, spec.Max, spec.Step)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.filterIndex[fName] = f
		p := pending{filter: f}
		seen := make(map[string]struct{}, len(spec.Options))
		for _, name := range spec.Options {
			o, ok := m.optionIndex[ir.NormalizeName(name)]
			if !ok {
				errs = append(errs, newConfigError(ErrCodeUnknownReference, "filter", fName, "references unknown option %q", name))
				continue
			}
			if _, ok := o.limits[fName]; !ok {
				if _, reported := badLimits[limitKey{o, fName}]; !reported {
					errs = append(errs, newConfigError(ErrCodeMissingLimit, "filter", fName, "option %q has no %q limit", o.Name, fName))
				}
				continue
			}
			if _, dup := seen[o.Name]; dup {
				errs = append(errs, newConfigError(ErrCodeDuplicateName, "filter", fName, "option %q listed twice", o.Name))
				continue
			}
			seen[o.Name] = struct{}{}
			p.options = append(p.options, o)
		}
		filters = append(filters, p)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, ch := range m.choices {
		ch.WireIncompatibilities()
		if _, ok := owner[ch]; !ok {
			m.logger.Warn("choice belongs to no category and will not be displayed", "choice", ch.Name)
		}
	}
	for _, o := range m.options {
		if o.choice == nil {
			m.logger.Warn("option belongs to no choice and will not be displayed", "option", o.Name)
		}
	}

	for _, p := range filters {
		for _, o := range p.options {
			if err := p.filter.AddOption(o); err != nil {
				// Unreachable: every condition was checked above.
				return nil, fmt.Errorf("attach option %q to filter %q: %w", o.Name, p.filter.Name, err)
			}
		}
		m.filters = append(m.filters, p.filter)
	}

	m.hub = &hub{observers: cfg.observers}
	for _, o := range m.options {
		o.hub = m.hub
	}
	for _, f := range m.filters {
		f.hub = m.hub
	}

	m.logger.Debug("matrix built",
		"categories", len(m.categories),
		"choices", len(m.choices),
		"options", len(m.options),
		"filters", len(m.filters),
	)
	return m, nil
}

// AddObserver registers an observer after construction.
func (m *Matrix) AddObserver(o Observer) {
	m.hub.add(o)
}

// Categories returns the categories in display order.
func (m *Matrix) Categories() []*Category {
	out := make([]*Category, len(m.categories))
	copy(out, m.categories)
	return out
}

// Choices returns every choice in declaration order.
func (m *Matrix) Choices() []*Choice {
	out := make([]*Choice, len(m.choices))
	copy(out, m.choices)
	return out
}

// Options returns every option in declaration order.
func (m *Matrix) Options() []*Option {
	out := make([]*Option, len(m.options))
	copy(out, m.options)
	return out
}

// Filters returns the filters in display order.
func (m *Matrix) Filters() []*Filter {
	out := make([]*Filter, len(m.filters))
	copy(out, m.filters)
	return out
}

// Choice looks up a choice by name.
func (m *Matrix) Choice(name string) (*Choice, bool) {
	ch, ok := m.choiceIndex[ir.NormalizeName(name)]
	return ch, ok
}

// Option looks up an option by name.
func (m *Matrix) Option(name string) (*Option, bool) {
	o, ok := m.optionIndex[ir.NormalizeName(name)]
	return o, ok
}

// Filter looks up a filter by name.
func (m *Matrix) Filter(name string) (*Filter, bool) {
	f, ok := m.filterIndex[ir.NormalizeName(name)]
	return f, ok
}

// Toggle selects or deselects an option by name.
func (m *Matrix) Toggle(name string, selected bool) error {
	o, ok := m.Option(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOption, name)
	}
	return o.SetSelected(selected)
}

// SetRange changes a filter's selected range by name.
func (m *Matrix) SetRange(name string, low, high float64) error {
	f, ok := m.Filter(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
	f.SetRange(low, high)
	return nil
}

// Snapshot is a point-in-time copy of every option and filter state.
type Snapshot struct {
	Options []OptionState `json:"options"`
	Filters []FilterState `json:"filters"`
}

// Snapshot captures the current state in declaration order.
func (m *Matrix) Snapshot() Snapshot {
	s := Snapshot{
		Options: make([]OptionState, len(m.options)),
		Filters: make([]FilterState, len(m.filters)),
	}
	for i, o := range m.options {
		s.Options[i] = o.State()
	}
	for i, f := range m.filters {
		s.Filters[i] = f.State()
	}
	return s
}

// CheckInvariants verifies the reference-counting invariants over the whole
// matrix and returns the first violation found.
func (m *Matrix) CheckInvariants() error {
	for _, o := range m.options {
		if o.selected && o.Disabled() {
			return &InvariantViolation{Option: o.Name, Message: "selected and disabled at the same time"}
		}
		for _, p := range o.peers {
			if !p.IsIncompatibleWith(o) {
				return &InvariantViolation{Option: o.Name, Message: fmt.Sprintf("incompatibility with %q is not symmetric", p.Name)}
			}
		}
		for r := range o.reasons {
			switch r.Kind {
			case ReasonSibling:
				src, ok := m.optionIndex[r.Source]
				if !ok || !src.selected || !src.IsIncompatibleWith(o) {
					return &InvariantViolation{Option: o.Name, Message: fmt.Sprintf("stale reason %s", r)}
				}
			case ReasonFilter:
				lim, ok := o.limits[r.Source]
				if !ok || !lim.Incompatible {
					return &InvariantViolation{Option: o.Name, Message: fmt.Sprintf("stale reason %s", r)}
				}
			}
		}
		for _, p := range o.peers {
			if _, active := o.reasons[Reason{Kind: ReasonSibling, Source: p.Name}]; p.selected && !active {
				return &InvariantViolation{Option: o.Name, Message: fmt.Sprintf("missing reason for selected sibling %q", p.Name)}
			}
		}
	}
	for _, f := range m.filters {
		for _, o := range f.options {
			lim := o.limits[f.Name]
			want := !(f.low <= lim.Limit && lim.Limit <= f.high)
			if lim.Incompatible != want {
				return &InvariantViolation{Option: o.Name, Message: fmt.Sprintf("filter %q flag out of date", f.Name)}
			}
			if _, active := o.reasons[Reason{Kind: ReasonFilter, Source: f.Name}]; active != lim.Incompatible {
				return &InvariantViolation{Option: o.Name, Message: fmt.Sprintf("filter %q reason does not match flag", f.Name)}
			}
		}
	}
	return nil
}
