package engine

// Layout is the presentable structure handed to a presentation layer:
// category rows, each holding labelled choice rows of option controls,
// followed by the filter controls.
//
// Options and filters are the controls themselves: a presenter reads
// State() and forwards user input to SetSelected / SetRange.
type Layout struct {
	Categories []CategoryRow
	Filters    []*Filter
}

// CategoryRow is a category label followed by its choices.
type CategoryRow struct {
	Label   string
	Choices []ChoiceRow
}

// ChoiceRow is a choice label followed by its option controls.
type ChoiceRow struct {
	Label   string
	Options []*Option
}

// Layout produces the presentable structure in display order. The matrix
// does not keep or inspect the returned value.
func (m *Matrix) Layout() Layout {
	l := Layout{
		Categories: make([]CategoryRow, 0, len(m.categories)),
		Filters:    m.Filters(),
	}
	for _, cat := range m.categories {
		row := CategoryRow{Label: cat.Label()}
		for _, ch := range cat.choices {
			row.Choices = append(row.Choices, ChoiceRow{
				Label:   ch.Label(),
				Options: ch.Options(),
			})
		}
		l.Categories = append(l.Categories, row)
	}
	return l
}
