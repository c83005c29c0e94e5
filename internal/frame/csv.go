package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// missingTokens are the cell spellings read as missing.
var missingTokens = map[string]bool{
	"": true, "NA": true, "N/A": true, "n/a": true, "NaN": true, "nan": true,
	"-NaN": true, "-nan": true, "NULL": true, "null": true, "None": true,
	"#N/A": true, "<NA>": true,
}

// ReadCSV reads a CSV document with a header row into a frame. Types are
// inferred per column: a column whose non-missing cells all parse as
// integers is an int column, then float, then bool (true/false in any of
// the common spellings); anything else stays string.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	raw := make([][]string, len(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		for i, cell := range rec {
			raw[i] = append(raw[i], cell)
		}
	}

	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = Column{Name: name, Cells: parseColumn(raw[i])}
	}
	f, err := New(cols...)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return f, nil
}

// ReadCSVFile reads a CSV file from disk.
func ReadCSVFile(path string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f, err := ReadCSV(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func parseColumn(raw []string) []any {
	cells := make([]any, len(raw))
	for _, parse := range []func(string) (any, bool){parseInt, parseFloat, parseBool} {
		if parseAll(raw, cells, parse) {
			return cells
		}
	}
	for i, s := range raw {
		if missingTokens[s] {
			cells[i] = nil
		} else {
			cells[i] = s
		}
	}
	return cells
}

func parseAll(raw []string, cells []any, parse func(string) (any, bool)) bool {
	for i, s := range raw {
		if missingTokens[s] {
			cells[i] = nil
			continue
		}
		v, ok := parse(s)
		if !ok {
			return false
		}
		cells[i] = v
	}
	return true
}

func parseInt(s string) (any, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func parseFloat(s string) (any, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func parseBool(s string) (any, bool) {
	switch s {
	case "true", "True", "TRUE":
		return true, true
	case "false", "False", "FALSE":
		return false, true
	}
	return nil, false
}
