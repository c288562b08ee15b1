package engine

// Category is a named group of choices. It carries no constraint logic.
type Category struct {
	Number  int
	Name    string
	GUIName string

	choices []*Choice
	index   map[string]*Choice
}

// NewCategory creates an empty category. An empty guiName defaults to name.
func NewCategory(number int, name, guiName string) *Category {
	return &Category{
		Number:  number,
		Name:    name,
		GUIName: guiName,
		index:   make(map[string]*Choice),
	}
}

// Label returns the display label.
func (c *Category) Label() string {
	if c.GUIName != "" {
		return c.GUIName
	}
	return c.Name
}

// AddChoice appends a choice in display order. A duplicate name is a
// ConfigError.
func (c *Category) AddChoice(ch *Choice) error {
	if _, dup := c.index[ch.Name]; dup {
		return newConfigError(ErrCodeDuplicateName, "category", c.Name,
			"choice %q listed twice", ch.Name)
	}
	c.index[ch.Name] = ch
	c.choices = append(c.choices, ch)
	return nil
}

// Choices returns the choices in display order.
func (c *Category) Choices() []*Choice {
	out := make([]*Choice, len(c.choices))
	copy(out, c.choices)
	return out
}

// Choice looks up a choice of this category by name.
func (c *Category) Choice(name string) (*Choice, bool) {
	ch, ok := c.index[name]
	return ch, ok
}
