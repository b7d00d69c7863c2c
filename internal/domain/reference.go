package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

//go:generate mockgen -destination mocks/mock_sheets_gateway.go -package mocks github.com/mailcadence/sequencer/internal/domain SpreadsheetGateway

// ReferenceKind tags the variant held by a SpreadsheetReference.
type ReferenceKind string

const (
	ReferenceKindColumn      ReferenceKind = "COLUMN"
	ReferenceKindRow         ReferenceKind = "ROW"
	ReferenceKindCell        ReferenceKind = "CELL"
	ReferenceKindColumnRange ReferenceKind = "COLUMN_RANGE"
	ReferenceKindRowRange    ReferenceKind = "ROW_RANGE"
	ReferenceKindRange       ReferenceKind = "RANGE"
)

var (
	columnPattern = regexp.MustCompile(`^[A-Z]+$`)
	cellPattern   = regexp.MustCompile(`^([A-Z]+)([1-9][0-9]*)$`)
)

// SpreadsheetReference is a typed, validated spreadsheet address: a single
// column, a single row, a single cell, or one of three range shapes. It is
// immutable once constructed — every constructor validates eagerly so a
// SpreadsheetReference value is always well-formed (spec.md §3, §4.1).
type SpreadsheetReference struct {
	kind ReferenceKind
	// Column/Row hold the parsed endpoints. For Cell, Column+Row describe
	// the single cell. For the range kinds, start/end hold the two
	// endpoints' raw text.
	column string
	row    int
	start  string
	end    string
}

// NewColumnReference builds a Column reference; column must match [A-Z]+.
func NewColumnReference(column string) (SpreadsheetReference, error) {
	if !columnPattern.MatchString(column) {
		return SpreadsheetReference{}, NewValidationError("invalid column reference: %q", column)
	}
	return SpreadsheetReference{kind: ReferenceKindColumn, column: column}, nil
}

// NewRowReference builds a Row reference; row must be a positive integer.
func NewRowReference(row int) (SpreadsheetReference, error) {
	if row <= 0 {
		return SpreadsheetReference{}, NewValidationError("invalid row reference: %d", row)
	}
	return SpreadsheetReference{kind: ReferenceKindRow, row: row}, nil
}

// NewCellReference builds a Cell reference from a column letter and row number.
func NewCellReference(column string, row int) (SpreadsheetReference, error) {
	if !columnPattern.MatchString(column) {
		return SpreadsheetReference{}, NewValidationError("invalid cell reference: bad column %q", column)
	}
	if row <= 0 {
		return SpreadsheetReference{}, NewValidationError("invalid cell reference: bad row %d", row)
	}
	return SpreadsheetReference{kind: ReferenceKindCell, column: column, row: row}, nil
}

// ParseCellReference parses a cell address such as "B7".
func ParseCellReference(text string) (SpreadsheetReference, error) {
	m := cellPattern.FindStringSubmatch(text)
	if m == nil {
		return SpreadsheetReference{}, NewValidationError("invalid cell reference: %q", text)
	}
	row, err := strconv.Atoi(m[2])
	if err != nil {
		return SpreadsheetReference{}, NewValidationError("invalid cell reference: %q", text)
	}
	return NewCellReference(m[1], row)
}

// NewColumnRange builds a ColumnRange; both endpoints must share a column letter.
func NewColumnRange(startCell, endCell string) (SpreadsheetReference, error) {
	start, err := ParseCellReference(startCell)
	if err != nil {
		return SpreadsheetReference{}, err
	}
	end, err := ParseCellReference(endCell)
	if err != nil {
		return SpreadsheetReference{}, err
	}
	if start.column != end.column {
		return SpreadsheetReference{}, NewValidationError("column range endpoints must share a column: %q vs %q", startCell, endCell)
	}
	return SpreadsheetReference{kind: ReferenceKindColumnRange, start: startCell, end: endCell}, nil
}

// NewRowRange builds a RowRange; both endpoints must share a row number.
func NewRowRange(startCell, endCell string) (SpreadsheetReference, error) {
	start, err := ParseCellReference(startCell)
	if err != nil {
		return SpreadsheetReference{}, err
	}
	end, err := ParseCellReference(endCell)
	if err != nil {
		return SpreadsheetReference{}, err
	}
	if start.row != end.row {
		return SpreadsheetReference{}, NewValidationError("row range endpoints must share a row: %q vs %q", startCell, endCell)
	}
	return SpreadsheetReference{kind: ReferenceKindRowRange, start: startCell, end: endCell}, nil
}

// NewRange builds a generic Range from two well-formed cell endpoints.
func NewRange(startCell, endCell string) (SpreadsheetReference, error) {
	if _, err := ParseCellReference(startCell); err != nil {
		return SpreadsheetReference{}, err
	}
	if _, err := ParseCellReference(endCell); err != nil {
		return SpreadsheetReference{}, err
	}
	return SpreadsheetReference{kind: ReferenceKindRange, start: startCell, end: endCell}, nil
}

// ParseRange parses "A1:B2" style text into the narrowest matching range kind.
func ParseRange(text string) (SpreadsheetReference, error) {
	parts := strings.SplitN(text, ":", 2)
	if len(parts) != 2 {
		return SpreadsheetReference{}, NewValidationError("invalid range reference: %q", text)
	}
	start, err := ParseCellReference(parts[0])
	if err != nil {
		return SpreadsheetReference{}, NewValidationError("invalid range reference: %q", text)
	}
	end, err := ParseCellReference(parts[1])
	if err != nil {
		return SpreadsheetReference{}, NewValidationError("invalid range reference: %q", text)
	}
	switch {
	case start.column == end.column:
		return SpreadsheetReference{kind: ReferenceKindColumnRange, start: parts[0], end: parts[1]}, nil
	case start.row == end.row:
		return SpreadsheetReference{kind: ReferenceKindRowRange, start: parts[0], end: parts[1]}, nil
	default:
		return SpreadsheetReference{kind: ReferenceKindRange, start: parts[0], end: parts[1]}, nil
	}
}

// Kind reports the reference's variant tag.
func (r SpreadsheetReference) Kind() ReferenceKind { return r.kind }

// Column extracts the column letter. For ranges, this is the left endpoint's column.
func (r SpreadsheetReference) Column() (string, error) {
	switch r.kind {
	case ReferenceKindColumn, ReferenceKindCell:
		return r.column, nil
	case ReferenceKindColumnRange, ReferenceKindRowRange, ReferenceKindRange:
		start, err := ParseCellReference(r.start)
		if err != nil {
			return "", err
		}
		return start.column, nil
	default:
		return "", NewValidationError("reference kind %s has no column", r.kind)
	}
}

// Row extracts the row number. For ranges, this is the left endpoint's row.
func (r SpreadsheetReference) Row() (int, error) {
	switch r.kind {
	case ReferenceKindRow, ReferenceKindCell:
		return r.row, nil
	case ReferenceKindColumnRange, ReferenceKindRowRange, ReferenceKindRange:
		start, err := ParseCellReference(r.start)
		if err != nil {
			return 0, err
		}
		return start.row, nil
	default:
		return 0, NewValidationError("reference kind %s has no row", r.kind)
	}
}

// ColumnIndex converts the column letter to a zero-based index (A=0, B=1, …, Z=25, AA=26, …).
func ColumnIndex(column string) (int, error) {
	if !columnPattern.MatchString(column) {
		return 0, NewValidationError("invalid column letter: %q", column)
	}
	idx := 0
	for _, c := range column {
		idx = idx*26 + int(c-'A'+1)
	}
	return idx - 1, nil
}

// RowIndex converts a 1-based row number to a zero-based index.
func RowIndex(row int) int { return row - 1 }

// A1 renders the reference in A1 notation. A single cell or a bare column or
// row is expanded to an `X:X` style selector so a downstream range-capable
// API call always receives a range.
func (r SpreadsheetReference) A1() (string, error) {
	switch r.kind {
	case ReferenceKindColumn:
		return fmt.Sprintf("%s:%s", r.column, r.column), nil
	case ReferenceKindRow:
		return fmt.Sprintf("%d:%d", r.row, r.row), nil
	case ReferenceKindCell:
		cell := fmt.Sprintf("%s%d", r.column, r.row)
		return fmt.Sprintf("%s:%s", cell, cell), nil
	case ReferenceKindColumnRange, ReferenceKindRowRange, ReferenceKindRange:
		return fmt.Sprintf("%s:%s", r.start, r.end), nil
	default:
		return "", NewValidationError("cannot render reference kind %s", r.kind)
	}
}

// String implements fmt.Stringer for debugging/logging.
func (r SpreadsheetReference) String() string {
	a1, err := r.A1()
	if err != nil {
		return fmt.Sprintf("<invalid reference: %v>", err)
	}
	return a1
}
