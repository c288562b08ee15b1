package ir

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Catalog is the compiled form of a configurator definition.
//
// It implements engine.Reader. Each slice keeps declaration order.
type Catalog struct {
	Categories []CategorySpec `json:"categories"`
	Choices    []ChoiceSpec   `json:"choices"`
	Options    []OptionSpec   `json:"options"`
	Filters    []FilterSpec   `json:"filters"`
}

// CategorySpec is a named group of choices.
type CategorySpec struct {
	Number  int      `json:"number"`
	Name    string   `json:"name"`
	GUIName string   `json:"gui_name,omitempty"`
	Choices []string `json:"choices"` // choice names, display order
}

// ChoiceSpec is a named group of mutually exclusive options.
type ChoiceSpec struct {
	Number  int      `json:"number"`
	Name    string   `json:"name"`
	GUIName string   `json:"gui_name,omitempty"`
	Options []string `json:"options"` // option names, display order
}

// OptionSpec is a selectable leaf item.
//
// Limits maps a filter name to the option's value for that filter's
// attribute (e.g. "weight" -> 180).
type OptionSpec struct {
	Number  int                `json:"number"`
	Name    string             `json:"name"`
	GUIName string             `json:"gui_name,omitempty"`
	Limits  map[string]float64 `json:"limits,omitempty"`
}

// FilterSpec is a numeric range constraint over a set of options.
type FilterSpec struct {
	Number  int      `json:"number"`
	Name    string   `json:"name"`
	GUIName string   `json:"gui_name,omitempty"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Step    float64  `json:"step"`
	Options []string `json:"options"`
}

// DefaultStep is used when a filter does not declare a step.
const DefaultStep = 1

// Label returns the display label, falling back to the name.
func (c CategorySpec) Label() string { return labelOf(c.Name, c.GUIName) }

// Label returns the display label, falling back to the name.
func (c ChoiceSpec) Label() string { return labelOf(c.Name, c.GUIName) }

// Label returns the display label, falling back to the name.
func (o OptionSpec) Label() string { return labelOf(o.Name, o.GUIName) }

// Label returns the display label, falling back to the name.
func (f FilterSpec) Label() string { return labelOf(f.Name, f.GUIName) }

func labelOf(name, gui string) string {
	if gui != "" {
		return gui
	}
	return name
}

// CategorySpecs returns the categories in declaration order.
func (c *Catalog) CategorySpecs() []CategorySpec { return c.Categories }

// ChoiceSpecs returns the choices in declaration order.
func (c *Catalog) ChoiceSpecs() []ChoiceSpec { return c.Choices }

// OptionSpecs returns the options in declaration order.
func (c *Catalog) OptionSpecs() []OptionSpec { return c.Options }

// FilterSpecs returns the filters in declaration order.
func (c *Catalog) FilterSpecs() []FilterSpec { return c.Filters }

// Merge appends every mapping of other after the receiver's entries.
func (c *Catalog) Merge(other *Catalog) {
	if other == nil {
		return
	}
	c.Categories = append(c.Categories, other.Categories...)
	c.Choices = append(c.Choices, other.Choices...)
	c.Options = append(c.Options, other.Options...)
	c.Filters = append(c.Filters, other.Filters...)
}

// Normalize rewrites every name and name reference in NFC form so that
// canonically equivalent keys compare equal. Labels are left untouched.
//
// Limit keys of one option that collapse to the same NFC form are reported
// as duplicates; the first key in sorted order keeps its value.
func (c *Catalog) Normalize() error {
	var errs []error
	for i := range c.Categories {
		c.Categories[i].Name = NormalizeName(c.Categories[i].Name)
		normalizeAll(c.Categories[i].Choices)
	}
	for i := range c.Choices {
		c.Choices[i].Name = NormalizeName(c.Choices[i].Name)
		normalizeAll(c.Choices[i].Options)
	}
	for i := range c.Options {
		c.Options[i].Name = NormalizeName(c.Options[i].Name)
		if len(c.Options[i].Limits) > 0 {
			limits := make(map[string]float64, len(c.Options[i].Limits))
			for _, k := range c.Options[i].LimitNames() {
				key := NormalizeName(k)
				if _, dup := limits[key]; dup {
					errs = append(errs, fmt.Errorf("option %q: limit %q declared more than once", c.Options[i].Name, key))
					continue
				}
				limits[key] = c.Options[i].Limits[k]
			}
			c.Options[i].Limits = limits
		}
	}
	for i := range c.Filters {
		c.Filters[i].Name = NormalizeName(c.Filters[i].Name)
		normalizeAll(c.Filters[i].Options)
	}
	return errors.Join(errs...)
}

// NormalizeName returns the NFC form of a catalog key.
func NormalizeName(s string) string {
	return norm.NFC.String(s)
}

func normalizeAll(names []string) {
	for i, n := range names {
		names[i] = NormalizeName(n)
	}
}

// LimitNames returns the filter names an option carries limits for, sorted.
func (o OptionSpec) LimitNames() []string {
	names := make([]string, 0, len(o.Limits))
	for k := range o.Limits {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
