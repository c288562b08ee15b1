package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/moa/internal/engine"
)

// Option markers used by RenderText.
const (
	markSelected = "[x]"
	markEnabled  = "[ ]"
	markDisabled = "[-]"
)

// LayoutView is the JSON shape of a rendered layout.
type LayoutView struct {
	Categories []CategoryView       `json:"categories"`
	Filters    []engine.FilterState `json:"filters"`
}

// CategoryView is one category row of a LayoutView.
type CategoryView struct {
	Label   string       `json:"label"`
	Choices []ChoiceView `json:"choices"`
}

// ChoiceView is one choice row of a LayoutView.
type ChoiceView struct {
	Label   string               `json:"label"`
	Options []engine.OptionState `json:"options"`
}

// NewLayoutView snapshots a layout for rendering.
func NewLayoutView(l engine.Layout) LayoutView {
	v := LayoutView{
		Categories: make([]CategoryView, 0, len(l.Categories)),
		Filters:    make([]engine.FilterState, 0, len(l.Filters)),
	}
	for _, cat := range l.Categories {
		cv := CategoryView{Label: cat.Label, Choices: make([]ChoiceView, 0, len(cat.Choices))}
		for _, ch := range cat.Choices {
			chv := ChoiceView{Label: ch.Label, Options: make([]engine.OptionState, 0, len(ch.Options))}
			for _, o := range ch.Options {
				chv.Options = append(chv.Options, o.State())
			}
			cv.Choices = append(cv.Choices, chv)
		}
		v.Categories = append(v.Categories, cv)
	}
	for _, f := range l.Filters {
		v.Filters = append(v.Filters, f.State())
	}
	return v
}

// RenderText writes the layout as an indented outline:
// category labels, choice labels, then one line per option with its
// marker and active reasons, followed by the filters.
func RenderText(w io.Writer, l engine.Layout) error {
	var b strings.Builder
	v := NewLayoutView(l)

	for _, cat := range v.Categories {
		fmt.Fprintf(&b, "%s\n", cat.Label)
		for _, ch := range cat.Choices {
			fmt.Fprintf(&b, "  %s\n", ch.Label)
			for _, o := range ch.Options {
				fmt.Fprintf(&b, "    %s %s", optionMark(o), o.Label)
				if len(o.Reasons) > 0 {
					fmt.Fprintf(&b, "  (%s)", strings.Join(o.Reasons, ", "))
				}
				b.WriteByte('\n')
			}
		}
	}

	if len(v.Filters) > 0 {
		b.WriteString("\nFilters\n")
		for _, f := range v.Filters {
			fmt.Fprintf(&b, "  %s: %s .. %s (range %s .. %s, step %s)\n",
				f.Label, num(f.Low), num(f.High), num(f.Min), num(f.Max), num(f.Step))
			if len(f.Excluded) > 0 {
				fmt.Fprintf(&b, "    excluded: %s\n", strings.Join(f.Excluded, ", "))
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderJSON writes the layout as indented JSON.
func RenderJSON(w io.Writer, l engine.Layout) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewLayoutView(l))
}

func optionMark(o engine.OptionState) string {
	switch {
	case o.Selected:
		return markSelected
	case o.Disabled:
		return markDisabled
	default:
		return markEnabled
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
