package tablereport

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyHeader indicates a table without header columns.
	ErrEmptyHeader = errors.New("head columns could not be null or empty")

	// ErrEmptyGroup indicates a group column that declares no children.
	ErrEmptyGroup = errors.New("group column must have at least one child")

	// ErrNilColumn indicates a nil entry in a column list.
	ErrNilColumn = errors.New("column could not be nil")

	// ErrDuplicateColumn indicates the same column value used twice in one header forest.
	ErrDuplicateColumn = errors.New("column appears more than once in header")

	// ErrUnsupportedColumn indicates a Column value that is none of the known variants.
	ErrUnsupportedColumn = errors.New("unsupported column type")

	// ErrEmptyColumnKey indicates a data column without a usable field path.
	ErrEmptyColumnKey = errors.New("data column key could not be empty")

	// ErrEmptySheetList indicates a workbook build without sheets.
	ErrEmptySheetList = errors.New("sheets could not be null or empty")

	// ErrInvalidCascadeValue is matched by every *InvalidCascadeValueError.
	ErrInvalidCascadeValue = errors.New("invalid cascade value")
)

// InvalidCascadeValueError reports a cascade key whose value is not an array of rows.
type InvalidCascadeValueError struct {
	Key   string
	Value interface{}
}

func (e *InvalidCascadeValueError) Error() string {
	return fmt.Sprintf("cascade key %q holds %T, expected an array of rows", e.Key, e.Value)
}

func (e *InvalidCascadeValueError) Is(target error) bool {
	return target == ErrInvalidCascadeValue
}

// ColumnError attaches the column position to a header validation error.
type ColumnError struct {
	Path string // e.g. "columns[3].children[1]"
	Err  error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ColumnError) Unwrap() error {
	return e.Err
}
