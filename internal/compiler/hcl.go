package compiler

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/roach88/moa/internal/ir"
)

// hclFile decodes the labelled top-level blocks of an HCL catalog:
//
//	category "drivetrain" { gui_name = "Drivetrain"  choices = ["engine"] }
//	choice "engine" { options = ["petrol", "diesel"] }
//	option "petrol" { limits = { weight = 180 } }
//	filter "weight" { min = 0  max = 400  step = 10  options = ["petrol"] }
type hclFile struct {
	Categories []*hclCategory `hcl:"category,block"`
	Choices    []*hclChoice   `hcl:"choice,block"`
	Options    []*hclOption   `hcl:"option,block"`
	Filters    []*hclFilter   `hcl:"filter,block"`
}

type hclCategory struct {
	Name    string   `hcl:"name,label"`
	Number  *int     `hcl:"number,optional"`
	GUIName string   `hcl:"gui_name,optional"`
	Choices []string `hcl:"choices,optional"`
}

type hclChoice struct {
	Name    string   `hcl:"name,label"`
	Number  *int     `hcl:"number,optional"`
	GUIName string   `hcl:"gui_name,optional"`
	Options []string `hcl:"options"`
}

type hclOption struct {
	Name    string             `hcl:"name,label"`
	Number  *int               `hcl:"number,optional"`
	GUIName string             `hcl:"gui_name,optional"`
	Limits  map[string]float64 `hcl:"limits,optional"`
}

type hclFilter struct {
	Name    string   `hcl:"name,label"`
	Number  *int     `hcl:"number,optional"`
	GUIName string   `hcl:"gui_name,optional"`
	Min     float64  `hcl:"min"`
	Max     float64  `hcl:"max"`
	Step    *float64 `hcl:"step,optional"`
	Options []string `hcl:"options"`
}

// CompileHCL parses an HCL catalog document. filename is used for
// diagnostics positions.
func CompileHCL(src []byte, filename string) (*ir.Catalog, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(diags, filename)
	}

	var doc hclFile
	diags = gohcl.DecodeBody(f.Body, nil, &doc)
	if diags.HasErrors() {
		return nil, diagError(diags, filename)
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
	for i, fl := range doc.Filters {
		step := float64(ir.DefaultStep)
		if fl.Step != nil {
			step = *fl.Step
		}
		cat.Filters = append(cat.Filters, ir.FilterSpec{
			Number:  numberOr(fl.Number, i+1),
			Name:    fl.Name,
			GUIName: fl.GUIName,
			Min:     fl.Min,
			Max:     fl.Max,
			Step:    step,
			Options: fl.Options,
		})
	}
	return cat, nil
}

// diagError converts the first error diagnostic into a CompileError.
func diagError(diags hcl.Diagnostics, filename string) error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		ce := &CompileError{
			Field:   "hcl",
			Message: d.Summary,
			File:    filename,
		}
		if d.Detail != "" {
			ce.Message = fmt.Sprintf("%s; %s", d.Summary, d.Detail)
		}
		if d.Subject != nil {
			ce.File = d.Subject.Filename
			ce.Line = d.Subject.Start.Line
		}
		return ce
	}
	return fmt.Errorf("decode %s: %w", filename, diags)
}
