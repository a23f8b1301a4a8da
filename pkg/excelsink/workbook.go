// Package excelsink writes tablereport workbooks with excelize.
package excelsink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/locvowork/tablereport/pkg/tablereport"
	"github.com/xuri/excelize/v2"
)

// Document property defaults written when the workbook properties leave them
// empty.
const (
	DefaultCreator     = "NextRJ"
	DefaultDescription = "Power by https://deno.land/x/nextrj_xlsx"
)

// DefaultDateFormat is the number format given to styled date cells whose
// style names none. An unstyled date keeps the excelize default.
const DefaultDateFormat = "yyyy-mm-dd"

// ErrDuplicateSheet is returned when two sheets share a name. Sheet names are
// compared case-insensitively, as Excel does.
var ErrDuplicateSheet = errors.New("duplicate sheet name")

// Workbook is a tablereport.WorkbookSink backed by an excelize file.
type Workbook struct {
	file   *excelize.File
	styles *styleCache
	names  map[string]bool
	sheets []string
}

var _ tablereport.WorkbookSink = (*Workbook)(nil)

// NewWorkbook creates an empty workbook with the given document properties.
func NewWorkbook(props *tablereport.WorkbookProperties) (*Workbook, error) {
	f := excelize.NewFile()
	if err := setDocProps(f, props); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Workbook{
		file:   f,
		styles: newStyleCache(f),
		names:  make(map[string]bool),
	}, nil
}

func setDocProps(f *excelize.File, props *tablereport.WorkbookProperties) error {
	if props == nil {
		props = &tablereport.WorkbookProperties{}
	}
	creator := props.Creator
	if creator == "" {
		creator = DefaultCreator
	}
	description := props.Description
	if description == "" {
		description = DefaultDescription
	}

	doc := &excelize.DocProperties{
		Title:          props.Title,
		Subject:        props.Subject,
		Creator:        creator,
		Description:    description,
		Keywords:       props.Keywords,
		LastModifiedBy: props.LastModifiedBy,
	}
	if !props.Created.IsZero() {
		doc.Created = props.Created.UTC().Format(time.RFC3339)
	}
	if !props.Modified.IsZero() {
		doc.Modified = props.Modified.UTC().Format(time.RFC3339)
	}
	if err := f.SetDocProps(doc); err != nil {
		return fmt.Errorf("setting document properties: %w", err)
	}

	if props.Company != "" {
		if err := f.SetAppProps(&excelize.AppProperties{Company: props.Company}); err != nil {
			return fmt.Errorf("setting app properties: %w", err)
		}
	}
	return nil
}

// File returns the underlying excelize file.
func (w *Workbook) File() *excelize.File { return w.file }

// SheetNames returns the names of the sheets added so far, in order.
func (w *Workbook) SheetNames() []string { return append([]string(nil), w.sheets...) }

// AddSheet creates a worksheet. The first sheet replaces the default "Sheet1".
func (w *Workbook) AddSheet(name string, props *tablereport.SheetProperties) (tablereport.SheetSink, error) {
	key := strings.ToLower(name)
	if w.names[key] {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateSheet, name)
	}

	if len(w.sheets) == 0 {
		if name != "Sheet1" {
			if err := w.file.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("renaming first sheet: %w", err)
			}
		}
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return nil, fmt.Errorf("creating sheet: %w", err)
		}
	}
	w.names[key] = true
	w.sheets = append(w.sheets, name)

	if err := applySheetProperties(w.file, name, props); err != nil {
		return nil, err
	}
	return &Sheet{name: name, file: w.file, styles: w.styles}, nil
}

// Write writes the workbook as xlsx to out.
func (w *Workbook) Write(out io.Writer) error {
	if err := w.file.Write(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// SaveAs writes the workbook to path.
func (w *Workbook) SaveAs(path string) error {
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

// Close releases the temporary files of the workbook.
func (w *Workbook) Close() error { return w.file.Close() }

// Sheet is a tablereport.SheetSink writing into one worksheet.
type Sheet struct {
	name   string
	file   *excelize.File
	styles *styleCache
}

var _ tablereport.SheetSink = (*Sheet)(nil)

// Name returns the worksheet name.
func (s *Sheet) Name() string { return s.name }

// SetCell writes value and style. A nil value leaves the cell blank but still
// applies the style.
func (s *Sheet) SetCell(row, col int, value interface{}, style *tablereport.CellStyle) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if value != nil {
		if err := s.file.SetCellValue(s.name, cell, cellValue(value)); err != nil {
			return fmt.Errorf("setting %s: %w", cell, err)
		}
	}
	if style == nil {
		return nil
	}
	if isTime(value) && style.NumFmt == "" {
		dated := *style
		dated.NumFmt = DefaultDateFormat
		style = &dated
	}
	id, err := s.styles.id(style)
	if err != nil {
		return fmt.Errorf("creating style for %s: %w", cell, err)
	}
	return s.file.SetCellStyle(s.name, cell, cell, id)
}

// MergeRange merges the cells of r.
func (s *Sheet) MergeRange(r tablereport.Rect) error {
	top, err := excelize.CoordinatesToCellName(r.Left, r.Top)
	if err != nil {
		return err
	}
	bottom, err := excelize.CoordinatesToCellName(r.Right, r.Bottom)
	if err != nil {
		return err
	}
	if err := s.file.MergeCell(s.name, top, bottom); err != nil {
		return fmt.Errorf("merging %s:%s: %w", top, bottom, err)
	}
	return nil
}

// SetColumnWidth sets the width of column col.
func (s *Sheet) SetColumnWidth(col int, width float64) error {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return err
	}
	return s.file.SetColWidth(s.name, name, name, width)
}

func isTime(v interface{}) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case *time.Time:
		return t != nil
	}
	return false
}

// cellValue converts decoded JSON numbers so they are stored as numbers and
// dereferences time pointers, which excelize would write as text.
func cellValue(v interface{}) interface{} {
	if t, ok := v.(*time.Time); ok && t != nil {
		return *t
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return v
}
