// Package convention documents the column vocabulary datasets and claims
// share: which columns exist, what they mean and, for categorical columns,
// which levels are allowed.
package convention

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/claimspec/internal/ir"
)

// Column kinds.
const (
	KindPlain       = "plain"
	KindCategorical = "categorical"
)

var (
	// ErrUnknownColumn is returned when a convention has no such column.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrNotCategorical is returned when asking a plain column for a level.
	ErrNotCategorical = errors.New("column is not categorical")

	// ErrInvalidLevel is returned for a level outside a column's declared
	// levels.
	ErrInvalidLevel = errors.New("invalid level")
)

// ColumnSpec documents one column. Levels only apply to categorical
// columns; an empty list leaves the categorical open.
type ColumnSpec struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Kind        string   `yaml:"kind,omitempty"`
	Levels      []string `yaml:"levels,omitempty"`
}

// Categorical reports whether the column is categorical.
func (c ColumnSpec) Categorical() bool { return c.Kind == KindCategorical }

// Convention is a named, versioned set of column specs.
type Convention struct {
	Name    string       `yaml:"name"`
	Version string       `yaml:"version,omitempty"`
	Columns []ColumnSpec `yaml:"columns"`
	Notes   []string     `yaml:"notes,omitempty"`
}

// ColumnRef is a resolved column of a convention.
type ColumnRef struct {
	spec ColumnSpec
}

// Name returns the column name, for use in specs and filters.
func (r ColumnRef) Name() string { return r.spec.Name }

func (r ColumnRef) String() string { return r.spec.Name }

// Spec returns the column's documentation.
func (r ColumnRef) Spec() ColumnSpec { return r.spec }

// Level validates x against the column's declared levels. Open
// categoricals accept any level.
func (r ColumnRef) Level(x string) (string, error) {
	if !r.spec.Categorical() {
		return "", fmt.Errorf("%w: %q (kind %s)", ErrNotCategorical, r.spec.Name, r.spec.Kind)
	}
	if len(r.spec.Levels) == 0 || slices.Contains(r.spec.Levels, x) {
		return x, nil
	}
	return "", fmt.Errorf("%w %q for column %q, allowed: %v", ErrInvalidLevel, x, r.spec.Name, r.spec.Levels)
}

// Column resolves name.
func (c *Convention) Column(name string) (ColumnRef, error) {
	for _, col := range c.Columns {
		if col.Name == name {
			return ColumnRef{spec: col}, nil
		}
	}
	return ColumnRef{}, fmt.Errorf("%w: %s has no column %q, known: %v", ErrUnknownColumn, c.Name, name, c.Names())
}

// MustColumn is like Column but panics on error. Use it for conventions
// declared in code.
func (c *Convention) MustColumn(name string) ColumnRef {
	ref, err := c.Column(name)
	if err != nil {
		panic(err)
	}
	return ref
}

// Cat validates level for a categorical column. Levels of plain or
// undocumented columns pass through unchanged.
func (c *Convention) Cat(col, level string) (string, error) {
	ref, err := c.Column(col)
	if err != nil || !ref.spec.Categorical() {
		return level, nil
	}
	return ref.Level(level)
}

// Names returns the documented column names in declaration order.
func (c *Convention) Names() []string {
	names := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		names[i] = col.Name
	}
	return names
}

// Undocumented returns the columns in cols that the convention does not
// document, sorted and deduplicated.
func (c *Convention) Undocumented(cols []string) []string {
	var out []string
	for _, col := range cols {
		if !c.has(col) {
			out = append(out, col)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (c *Convention) has(name string) bool {
	return slices.ContainsFunc(c.Columns, func(col ColumnSpec) bool { return col.Name == name })
}

// Validate checks the convention is well formed: a name, unique non-empty
// column names, known kinds, and levels only on categorical columns.
func (c *Convention) Validate() error {
	if c.Name == "" {
		return errors.New("convention: name is required")
	}
	seen := make(map[string]bool, len(c.Columns))
	for i, col := range c.Columns {
		switch {
		case col.Name == "":
			return fmt.Errorf("convention %s: columns[%d]: name is required", c.Name, i)
		case seen[col.Name]:
			return fmt.Errorf("convention %s: duplicate column %q", c.Name, col.Name)
		case col.Kind != "" && col.Kind != KindPlain && col.Kind != KindCategorical:
			return fmt.Errorf("convention %s: column %q: unknown kind %q", c.Name, col.Name, col.Kind)
		case len(col.Levels) > 0 && !col.Categorical():
			return fmt.Errorf("convention %s: column %q: levels require kind %s", c.Name, col.Name, KindCategorical)
		}
		seen[col.Name] = true
	}
	return nil
}

// Encode returns the IR form.
func (c *Convention) Encode() ir.IRObject {
	cols := make(ir.IRArray, len(c.Columns))
	for i, col := range c.Columns {
		kind := col.Kind
		if kind == "" {
			kind = KindPlain
		}
		obj := ir.Object(
			ir.O("name", ir.IRString(col.Name)),
			ir.O("description", ir.IRString(col.Description)),
			ir.O("kind", ir.IRString(kind)),
		)
		if col.Categorical() {
			obj["levels"] = ir.Strings(nilIfEmpty(col.Levels))
		}
		cols[i] = obj
	}
	notes := c.Notes
	if notes == nil {
		notes = []string{}
	}
	version := c.Version
	if version == "" {
		version = "0"
	}
	return ir.Object(
		ir.O("name", ir.IRString(c.Name)),
		ir.O("version", ir.IRString(version)),
		ir.O("columns", cols),
		ir.O("notes", ir.Strings(notes)),
	)
}

func nilIfEmpty(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	return ss
}

// Parse decodes a YAML convention. Unknown fields are rejected.
func Parse(data []byte) (*Convention, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Convention
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse convention: %w", err)
	}
	if c.Version == "" {
		c.Version = "0"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a YAML convention file.
func Load(path string) (*Convention, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read convention: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
