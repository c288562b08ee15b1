package engine

import "fmt"

// ReasonKind distinguishes why an option is disabled.
type ReasonKind int

const (
	// ReasonSibling means an incompatible option is selected.
	ReasonSibling ReasonKind = iota + 1
	// ReasonFilter means a filter range excludes the option.
	ReasonFilter
)

// String returns the lowercase kind name used in traces.
func (k ReasonKind) String() string {
	switch k {
	case ReasonSibling:
		return "sibling"
	case ReasonFilter:
		return "filter"
	default:
		return fmt.Sprintf("ReasonKind(%d)", int(k))
	}
}

// Reason identifies one active cause of disablement.
// Source is the name of the selected option or of the filter.
type Reason struct {
	Kind   ReasonKind
	Source string
}

// String formats the reason as "kind:source".
func (r Reason) String() string {
	return r.Kind.String() + ":" + r.Source
}
