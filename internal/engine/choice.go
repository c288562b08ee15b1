package engine

// Choice is a named group of mutually exclusive options.
type Choice struct {
	Number  int
	Name    string
	GUIName string

	options []*Option
	index   map[string]*Option
	wired   bool
}

// NewChoice creates an empty choice. An empty guiName defaults to name.
func NewChoice(number int, name, guiName string) *Choice {
	return &Choice{
		Number:  number,
		Name:    name,
		GUIName: guiName,
		index:   make(map[string]*Option),
	}
}

// Label returns the display label.
func (c *Choice) Label() string {
	if c.GUIName != "" {
		return c.GUIName
	}
	return c.Name
}

// AddOption appends an option in display order.
//
// Options must all be added before WireIncompatibilities; adding one
// afterwards, adding a duplicate name, or adding an option owned by another
// choice is a ConfigError.
func (c *Choice) AddOption(o *Option) error {
	if c.wired {
		return newConfigError(ErrCodeAlreadyWired, "choice", c.Name,
			"option %q added after incompatibilities were wired", o.Name)
	}
	if _, dup := c.index[o.Name]; dup {
		return newConfigError(ErrCodeDuplicateName, "choice", c.Name,
			"option %q listed twice", o.Name)
	}
	if o.choice != nil && o.choice != c {
		return newConfigError(ErrCodeSharedMember, "option", o.Name,
			"already belongs to choice %q, cannot join %q", o.choice.Name, c.Name)
	}
	o.choice = c
	c.index[o.Name] = o
	c.options = append(c.options, o)
	return nil
}

// WireIncompatibilities makes every pair of distinct options mutually
// incompatible. Only the first call has an effect.
func (c *Choice) WireIncompatibilities() {
	if c.wired {
		return
	}
	for i, a := range c.options {
		for _, b := range c.options[i+1:] {
			a.addIncompatibility(b)
			b.addIncompatibility(a)
		}
	}
	c.wired = true
}

// Wired reports whether WireIncompatibilities has run.
func (c *Choice) Wired() bool { return c.wired }

// Options returns the options in display order.
func (c *Choice) Options() []*Option {
	out := make([]*Option, len(c.options))
	copy(out, c.options)
	return out
}

// Option looks up an option of this choice by name.
func (c *Choice) Option(name string) (*Option, bool) {
	o, ok := c.index[name]
	return o, ok
}

// Selected returns the selected option, or nil when none is.
func (c *Choice) Selected() *Option {
	for _, o := range c.options {
		if o.selected {
			return o
		}
	}
	return nil
}
