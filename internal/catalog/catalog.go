// Package catalog describes the countries, response languages and
// translation targets offered to the user.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Country is one selectable jurisdiction.
type Country struct {
	Name         string   `yaml:"name" json:"name"`
	Languages    []string `yaml:"languages" json:"languages"`
	Instructions string   `yaml:"instructions,omitempty" json:"-"`
}

// Catalog is the parsed catalog file.
type Catalog struct {
	DefaultCountry       string    `yaml:"default_country" json:"defaultCountry"`
	CountryList          []Country `yaml:"countries" json:"countries"`
	TranslationLanguages []string  `yaml:"translation_languages" json:"translationLanguages"`

	byName map[string]*Country
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.index()
	return &c, nil
}

// Load reads a catalog override from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded catalog. It panics if the embedded file is
// broken, which the package tests guard against.
func Default() *Catalog {
	c, err := Parse(embedded)
	if err != nil {
		panic("embedded catalog: " + err.Error())
	}
	return c
}

// Validate checks structural rules: unique non-empty country names, at least
// one country, and a default country that exists.
func (c *Catalog) Validate() error {
	if len(c.CountryList) == 0 {
		return errors.New("catalog has no countries")
	}
	seen := make(map[string]bool, len(c.CountryList))
	for i, country := range c.CountryList {
		name := strings.TrimSpace(country.Name)
		if name == "" {
			return fmt.Errorf("country #%d has no name", i+1)
		}
		if seen[name] {
			return fmt.Errorf("duplicate country %q", name)
		}
		seen[name] = true
	}
	if c.DefaultCountry != "" && !seen[c.DefaultCountry] {
		return fmt.Errorf("default country %q is not listed", c.DefaultCountry)
	}
	return nil
}

func (c *Catalog) index() {
	c.byName = make(map[string]*Country, len(c.CountryList))
	for i := range c.CountryList {
		c.byName[c.CountryList[i].Name] = &c.CountryList[i]
	}
	if c.DefaultCountry == "" {
		c.DefaultCountry = c.CountryList[0].Name
	}
}

// Countries returns the country names in display order.
func (c *Catalog) Countries() []string {
	names := make([]string, len(c.CountryList))
	for i, country := range c.CountryList {
		names[i] = country.Name
	}
	return names
}

// Has reports whether the country is listed.
func (c *Catalog) Has(country string) bool {
	_, ok := c.byName[country]
	return ok
}

// Languages returns the response languages of a country; nil for unknown countries.
func (c *Catalog) Languages(country string) []string {
	if entry, ok := c.byName[country]; ok {
		return entry.Languages
	}
	return nil
}

// DefaultLanguage returns the first language of the country, or "" if it has none.
func (c *Catalog) DefaultLanguage(country string) string {
	langs := c.Languages(country)
	if len(langs) == 0 {
		return ""
	}
	return langs[0]
}

// SupportsLanguage reports whether language is offered for country.
func (c *Catalog) SupportsLanguage(country, language string) bool {
	for _, l := range c.Languages(country) {
		if l == language {
			return true
		}
	}
	return false
}

// Instructions returns jurisdiction-specific prompt instructions, if any.
func (c *Catalog) Instructions(country string) string {
	if entry, ok := c.byName[country]; ok {
		return entry.Instructions
	}
	return ""
}

// IsTranslationLanguage reports whether lang is offered by the translate menu.
func (c *Catalog) IsTranslationLanguage(lang string) bool {
	for _, l := range c.TranslationLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
