package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/moa/internal/ir"
)

// yamlCatalog is the on-disk YAML shape: four lists of named entries in
// display order.
type yamlCatalog struct {
	Categories []yamlCategory `yaml:"categories"`
	Choices    []yamlChoice   `yaml:"choices"`
	Options    []yamlOption   `yaml:"options"`
	Filters    []yamlFilter   `yaml:"filters"`
}

type yamlCategory struct {
	Number  *int     `yaml:"number"`
	Name    string   `yaml:"name"`
	GUIName string   `yaml:"gui_name"`
	Choices []string `yaml:"choices"`
}

type yamlChoice struct {
	Number  *int     `yaml:"number"`
	Name    string   `yaml:"name"`
	GUIName string   `yaml:"gui_name"`
	Options []string `yaml:"options"`
}

type yamlOption struct {
	Number  *int               `yaml:"number"`
	Name    string             `yaml:"name"`
	GUIName string             `yaml:"gui_name"`
	Limits  map[string]float64 `yaml:"limits"`
}

type yamlFilter struct {
	Number  *int     `yaml:"number"`
	Name    string   `yaml:"name"`
	GUIName string   `yaml:"gui_name"`
	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
	Step    *float64 `yaml:"step"`
	Options []string `yaml:"options"`
}

// CompileYAML parses a YAML catalog document. Unknown fields are errors.
// filename is only used in error messages.
func CompileYAML(data []byte, filename string) (*ir.Catalog, error) {
	var doc yamlCatalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &CompileError{Field: "yaml", Message: err.Error(), File: filename}
	}

	cat := &ir.Catalog{}
	for i, c := range doc.Categories {
		cat.Categories = append(cat.Categories, ir.CategorySpec{
			Number:  numberOr(c.Number, i+1),
			Name:    c.Name,
			GUIName: c.GUIName,
			Choices: c.Choices,
		})
	}
	for i, c := range doc.Choices {
		cat.Choices = append(cat.Choices, ir.ChoiceSpec{
			Number:  numberOr(c.Number, i+1),
			Name:    c.Name,
			GUIName: c.GUIName,
			Options: c.Options,
		})
	}
	for i, o := range doc.Options {
		cat.Options = append(cat.Options, ir.OptionSpec{
			Number:  numberOr(o.Number, i+1),
			Name:    o.Name,
			GUIName: o.GUIName,
			Limits:  o.Limits,
		})
	}
	for i, f := range doc.Filters {
		if f.Min == nil || f.Max == nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("filters[%d]", i),
				Message: "min and max are required",
				File:    filename,
			}
		}
		step := float64(ir.DefaultStep)
		if f.Step != nil {
			step = *f.Step
		}
		cat.Filters = append(cat.Filters, ir.FilterSpec{
			Number:  numberOr(f.Number, i+1),
			Name:    f.Name,
			GUIName: f.GUIName,
			Min:     *f.Min,
			Max:     *f.Max,
			Step:    step,
			Options: f.Options,
		})
	}
	return cat, nil
}

func numberOr(n *int, def int) int {
	if n != nil {
		return *n
	}
	return def
}
