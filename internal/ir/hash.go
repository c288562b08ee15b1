package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainCatalog is the domain prefix for catalog content hashes.
// The version suffix leaves room for a future algorithm change.
const DomainCatalog = "moa/catalog/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CatalogHash computes a content-addressed identity for a catalog.
//
// Two catalogs hash equal exactly when they declare the same entities in the
// same order with the same attributes, regardless of the source format they
// were read from.
func CatalogHash(c *Catalog) (string, error) {
	canonical, err := MarshalCanonical(c.canonicalValue())
	if err != nil {
		return "", fmt.Errorf("CatalogHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCatalog, canonical), nil
}

// canonicalValue converts the catalog into plain maps and slices.
// GUI names are resolved through Label so that an omitted label and one
// equal to the name hash the same.
func (c *Catalog) canonicalValue() map[string]any {
	categories := make([]any, len(c.Categories))
	for i, cat := range c.Categories {
		categories[i] = map[string]any{
			"number":   cat.Number,
			"name":     cat.Name,
			"gui_name": cat.Label(),
			"choices":  nonNil(cat.Choices),
		}
	}
	choices := make([]any, len(c.Choices))
	for i, ch := range c.Choices {
		choices[i] = map[string]any{
			"number":   ch.Number,
			"name":     ch.Name,
			"gui_name": ch.Label(),
			"options":  nonNil(ch.Options),
		}
	}
	options := make([]any, len(c.Options))
	for i, opt := range c.Options {
		limits := opt.Limits
		if limits == nil {
			limits = map[string]float64{}
		}
		options[i] = map[string]any{
			"number":   opt.Number,
			"name":     opt.Name,
			"gui_name": opt.Label(),
			"limits":   limits,
		}
	}
	filters := make([]any, len(c.Filters))
	for i, f := range c.Filters {
		filters[i] = map[string]any{
			"number":   f.Number,
			"name":     f.Name,
			"gui_name": f.Label(),
			"min":      f.Min,
			"max":      f.Max,
			"step":     f.Step,
			"options":  nonNil(f.Options),
		}
	}
	return map[string]any{
		"ir_version": IRVersion,
		"categories": categories,
		"choices":    choices,
		"options":    options,
		"filters":    filters,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
