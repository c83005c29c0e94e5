package frame

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// ErrMissingColumn is returned when an operation names a column the frame
// does not have.
var ErrMissingColumn = errors.New("missing column")

// Type is the inferred type of a column.
type Type int

const (
	TypeFloat Type = iota // also the type of an all-missing column
	TypeInt
	TypeString
	TypeBool
	TypeMixed
)

// String returns the dtype name reported in diagnostics.
func (t Type) String() string {
	switch t {
	case TypeFloat:
		return "float64"
	case TypeInt:
		return "int64"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	default:
		return "object"
	}
}

// Numeric reports whether values of this type can be averaged.
func (t Type) Numeric() bool {
	return t == TypeFloat || t == TypeInt || t == TypeBool
}

// Column is a named list of cells used to construct a Frame.
type Column struct {
	Name  string
	Cells []any
}

// Strings builds a string column.
func Strings(name string, vals ...string) Column {
	cells := make([]any, len(vals))
	for i, v := range vals {
		cells[i] = v
	}
	return Column{Name: name, Cells: cells}
}

// Ints builds an integer column.
func Ints(name string, vals ...int64) Column {
	cells := make([]any, len(vals))
	for i, v := range vals {
		cells[i] = v
	}
	return Column{Name: name, Cells: cells}
}

// Floats builds a float column. NaN entries are missing.
func Floats(name string, vals ...float64) Column {
	cells := make([]any, len(vals))
	for i, v := range vals {
		cells[i] = v
	}
	return Column{Name: name, Cells: cells}
}

// Bools builds a boolean column.
func Bools(name string, vals ...bool) Column {
	cells := make([]any, len(vals))
	for i, v := range vals {
		cells[i] = v
	}
	return Column{Name: name, Cells: cells}
}

// Values builds a column from arbitrary cells; nil marks a missing cell.
func Values(name string, cells ...any) Column {
	return Column{Name: name, Cells: cells}
}

// Frame is an immutable rectangular table with named columns.
type Frame struct {
	names []string
	index map[string]int
	cols  [][]any
	types []Type
	ids   []int
}

// New builds a frame from columns of equal length with unique names.
// Row identities are assigned 0..n-1.
func New(cols ...Column) (*Frame, error) {
	f := &Frame{
		names: make([]string, 0, len(cols)),
		index: make(map[string]int, len(cols)),
		cols:  make([][]any, 0, len(cols)),
		types: make([]Type, 0, len(cols)),
	}

	n := -1
	for _, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column name must not be empty")
		}
		if _, dup := f.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if n >= 0 && len(c.Cells) != n {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, len(c.Cells), n)
		}
		n = len(c.Cells)

		cells := make([]any, len(c.Cells))
		for i, v := range c.Cells {
			norm, err := normalizeCell(v)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", c.Name, i, err)
			}
			cells[i] = norm
		}

		f.index[c.Name] = len(f.names)
		f.names = append(f.names, c.Name)
		f.cols = append(f.cols, cells)
		f.types = append(f.types, inferType(cells))
	}

	if n < 0 {
		n = 0
	}
	f.ids = make([]int, n)
	for i := range f.ids {
		f.ids[i] = i
	}
	return f, nil
}

// MustNew is like New but panics on error. Use only in tests.
func MustNew(cols ...Column) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

func normalizeCell(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case int64, string, bool:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case float32:
		return normalizeFloat(float64(val)), nil
	case float64:
		return normalizeFloat(val), nil
	default:
		return nil, fmt.Errorf("unsupported cell type %T", v)
	}
}

func normalizeFloat(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	return f
}

func inferType(cells []any) Type {
	var ints, floats, strs, bools int
	for _, c := range cells {
		switch c.(type) {
		case int64:
			ints++
		case float64:
			floats++
		case string:
			strs++
		case bool:
			bools++
		}
	}
	switch {
	case strs == 0 && bools == 0 && floats == 0 && ints > 0:
		return TypeInt
	case strs == 0 && bools == 0:
		return TypeFloat
	case strs > 0 && ints+floats+bools == 0:
		return TypeString
	case bools > 0 && ints+floats+strs == 0:
		return TypeBool
	default:
		return TypeMixed
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.ids) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string { return slices.Clone(f.names) }

// Has reports whether the frame has a column called name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Type returns the inferred type of a column.
func (f *Frame) Type(name string) (Type, error) {
	i, ok := f.index[name]
	if !ok {
		return 0, f.missing(name)
	}
	return f.types[i], nil
}

// Column returns a copy of the cells of a column.
func (f *Frame) Column(name string) ([]any, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, f.missing(name)
	}
	return slices.Clone(f.cols[i]), nil
}

// RowIDs returns the stable identities of the rows, in row order.
func (f *Frame) RowIDs() []int { return slices.Clone(f.ids) }

func (f *Frame) missing(name string) error {
	return fmt.Errorf("%w: %q not in columns [%s]", ErrMissingColumn, name, strings.Join(f.names, ", "))
}

// Filter keeps the rows whose mask entry is true. It panics if the mask
// length differs from Len.
func (f *Frame) Filter(keep []bool) *Frame {
	if len(keep) != f.Len() {
		panic(fmt.Sprintf("frame: mask has %d entries for %d rows", len(keep), f.Len()))
	}
	positions := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			positions = append(positions, i)
		}
	}
	return f.Take(positions)
}

// Take returns the rows at the given positions, in that order, keeping
// their identities and the column types.
func (f *Frame) Take(positions []int) *Frame {
	out := &Frame{
		names: f.names,
		index: f.index,
		cols:  make([][]any, len(f.cols)),
		types: f.types,
		ids:   make([]int, len(positions)),
	}
	for c, cells := range f.cols {
		col := make([]any, len(positions))
		for i, p := range positions {
			col[i] = cells[p]
		}
		out.cols[c] = col
	}
	for i, p := range positions {
		out.ids[i] = f.ids[p]
	}
	return out
}

// Select returns a frame holding only the named columns, in that order.
// Repeated names are kept once.
func (f *Frame) Select(cols ...string) (*Frame, error) {
	out := &Frame{
		index: make(map[string]int, len(cols)),
		ids:   f.ids,
	}
	for _, name := range cols {
		if _, seen := out.index[name]; seen {
			continue
		}
		i, ok := f.index[name]
		if !ok {
			return nil, f.missing(name)
		}
		out.index[name] = len(out.names)
		out.names = append(out.names, name)
		out.cols = append(out.cols, f.cols[i])
		out.types = append(out.types, f.types[i])
	}
	return out, nil
}

// Group is one partition of a frame: the key cells (one per grouping
// column) and the positions of its rows.
type Group struct {
	Key  []any
	Rows []int
}

// Partition splits the rows by the values of cols. Groups are returned in
// order of first appearance; missing cells form their own key component.
func (f *Frame) Partition(cols ...string) ([]Group, error) {
	idx := make([]int, len(cols))
	for i, name := range cols {
		c, ok := f.index[name]
		if !ok {
			return nil, f.missing(name)
		}
		idx[i] = c
	}

	var groups []Group
	seen := make(map[string]int)
	var sb strings.Builder
	for row := range f.ids {
		sb.Reset()
		for i, c := range idx {
			if i > 0 {
				sb.WriteByte(0x1f)
			}
			sb.WriteString(CellKey(f.cols[c][row]))
		}
		k := sb.String()
		g, ok := seen[k]
		if !ok {
			key := make([]any, len(idx))
			for i, c := range idx {
				key[i] = f.cols[c][row]
			}
			g = len(groups)
			seen[k] = g
			groups = append(groups, Group{Key: key})
		}
		groups[g].Rows = append(groups[g].Rows, row)
	}
	return groups, nil
}
