// Package directory is the static, embedded list of known councils: their
// department contacts, primary news feed and report-source coverage.
package directory

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"councilwatch/internal/council/models"
)

//go:embed councils.yaml
var embedded []byte

// Council is one directory row.
type Council struct {
	Key         string              `yaml:"key"`
	Name        string              `yaml:"name"`
	Website     string              `yaml:"website"`
	Feed        string              `yaml:"feed"`
	Reports     bool                `yaml:"reports"`
	ReportsAPI  string              `yaml:"reports_api"`
	SearchQuery string              `yaml:"search_query"`
	Departments []models.Department `yaml:"departments"`
}

type file struct {
	Councils []Council `yaml:"councils"`
}

// Directory is safe for concurrent use; it is never modified after Parse.
type Directory struct {
	councils map[string]Council
}

// Default returns the embedded directory. It panics if the embedded file is
// invalid, which only a bad build can cause.
func Default() *Directory {
	d, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded council directory: %v", err))
	}
	return d
}

// Parse reads a directory document. Keys are case-insensitive and must be unique.
func Parse(raw []byte) (*Directory, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var f file
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode council directory: %w", err)
	}
	d := &Directory{councils: make(map[string]Council, len(f.Councils))}
	for _, c := range f.Councils {
		key := normalize(c.Key)
		if key == "" {
			return nil, errors.New("council without key")
		}
		if _, dup := d.councils[key]; dup {
			return nil, fmt.Errorf("duplicate council %q", key)
		}
		c.Key = key
		d.councils[key] = c
	}
	return d, nil
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get returns the row for council.
func (d *Directory) Get(council string) (Council, bool) {
	c, ok := d.councils[normalize(council)]
	return c, ok
}

// Keys returns every council key, sorted.
func (d *Directory) Keys() []string {
	keys := make([]string, 0, len(d.councils))
	for k := range d.councils {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup implements ports.DepartmentDirectory.
func (d *Directory) Lookup(council string) (*models.DepartmentDirectory, bool) {
	c, ok := d.Get(council)
	if !ok || len(c.Departments) == 0 {
		return nil, false
	}
	departments := make([]models.Department, len(c.Departments))
	copy(departments, c.Departments)
	return &models.DepartmentDirectory{
		Council:     c.Name,
		Website:     c.Website,
		Departments: departments,
	}, true
}

// FeedURL returns council's primary news feed.
func (d *Directory) FeedURL(council string) (string, bool) {
	c, ok := d.Get(council)
	if !ok || c.Feed == "" {
		return "", false
	}
	return c.Feed, true
}

// SearchQuery returns the news search terms for council, defaulting to its
// quoted name.
func (d *Directory) SearchQuery(council string) (string, bool) {
	c, ok := d.Get(council)
	if !ok {
		return "", false
	}
	if q := strings.TrimSpace(c.SearchQuery); q != "" {
		return q, true
	}
	if c.Name == "" {
		return "", false
	}
	return `"` + c.Name + `"`, true
}

// ReportsEndpoint returns council's Open311 base URL when reports are enabled.
func (d *Directory) ReportsEndpoint(council string) (string, bool) {
	c, ok := d.Get(council)
	if !ok || !c.Reports || c.ReportsAPI == "" {
		return "", false
	}
	return c.ReportsAPI, true
}

// SupportsReports reports whether the report source covers council.
func (d *Directory) SupportsReports(council string) bool {
	c, ok := d.Get(council)
	return ok && c.Reports
}
