package tablereport

import (
	"fmt"
	"time"
)

// WorkbookProperties are the document properties of a workbook.
type WorkbookProperties struct {
	Title          string    `yaml:"title,omitempty" json:"title,omitempty"`
	Subject        string    `yaml:"subject,omitempty" json:"subject,omitempty"`
	Creator        string    `yaml:"creator,omitempty" json:"creator,omitempty"`
	Company        string    `yaml:"company,omitempty" json:"company,omitempty"`
	Description    string    `yaml:"description,omitempty" json:"description,omitempty"`
	Keywords       string    `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	LastModifiedBy string    `yaml:"last_modified_by,omitempty" json:"last_modified_by,omitempty"`
	Created        time.Time `yaml:"created,omitempty" json:"created,omitempty"`
	Modified       time.Time `yaml:"modified,omitempty" json:"modified,omitempty"`
}

// SheetProperties configure a worksheet.
type SheetProperties struct {
	DefaultRowHeight float64     `yaml:"default_row_height,omitempty" json:"default_row_height,omitempty"`
	DefaultColWidth  float64     `yaml:"default_col_width,omitempty" json:"default_col_width,omitempty"`
	ShowGridLines    *bool       `yaml:"show_grid_lines,omitempty" json:"show_grid_lines,omitempty"`
	Freeze           *FreezePane `yaml:"freeze,omitempty" json:"freeze,omitempty"`
	PageSetup        *PageSetup  `yaml:"page_setup,omitempty" json:"page_setup,omitempty"`
	TabColor         string      `yaml:"tab_color,omitempty" json:"tab_color,omitempty"`
}

// FreezePane freezes the first XSplit columns and YSplit rows.
type FreezePane struct {
	XSplit      int    `yaml:"x_split,omitempty" json:"x_split,omitempty"`
	YSplit      int    `yaml:"y_split,omitempty" json:"y_split,omitempty"`
	TopLeftCell string `yaml:"top_left_cell,omitempty" json:"top_left_cell,omitempty"`
}

// PageSetup holds print settings.
type PageSetup struct {
	PaperSize   int          `yaml:"paper_size,omitempty" json:"paper_size,omitempty"` // 8 = A3, 9 = A4
	Orientation string       `yaml:"orientation,omitempty" json:"orientation,omitempty"`
	FitToWidth  *int         `yaml:"fit_to_width,omitempty" json:"fit_to_width,omitempty"`
	FitToHeight *int         `yaml:"fit_to_height,omitempty" json:"fit_to_height,omitempty"`
	Margins     *PageMargins `yaml:"margins,omitempty" json:"margins,omitempty"`
	PrintArea   string       `yaml:"print_area,omitempty" json:"print_area,omitempty"` // e.g. "A1:F20"
}

// PageMargins in inches.
type PageMargins struct {
	Top    float64 `yaml:"top" json:"top"`
	Left   float64 `yaml:"left" json:"left"`
	Bottom float64 `yaml:"bottom" json:"bottom"`
	Right  float64 `yaml:"right" json:"right"`
	Header float64 `yaml:"header" json:"header"`
	Footer float64 `yaml:"footer" json:"footer"`
}

// SheetSpec describes one worksheet. A nil Table yields the NO_TABLE placeholder.
type SheetSpec struct {
	Name       string
	Properties *SheetProperties
	Table      *Table
}

// SingleSheet returns the sheet list of a workbook holding one table.
func SingleSheet(name string, table *Table, props *SheetProperties) []SheetSpec {
	return []SheetSpec{{Name: name, Properties: props, Table: table}}
}

// SheetName returns the name of the sheet at index, falling back to NONAME{index+1}.
func SheetName(spec SheetSpec, index int) string {
	if spec.Name != "" {
		return spec.Name
	}
	return fmt.Sprintf("NONAME%d", index+1)
}

// BuildWorkbook adds every sheet to wb and renders its table. Every sheet is
// laid out independently; the first error aborts the build.
func BuildWorkbook(wb WorkbookSink, sheets []SheetSpec) error {
	if len(sheets) == 0 {
		return ErrEmptySheetList
	}

	for i, spec := range sheets {
		name := SheetName(spec, i)
		sink, err := wb.AddSheet(name, spec.Properties)
		if err != nil {
			return fmt.Errorf("add sheet %q: %w", name, err)
		}

		if spec.Table == nil {
			if err := sink.SetCell(1, 1, NoTableText, nil); err != nil {
				return fmt.Errorf("sheet %q: %w", name, err)
			}
			continue
		}
		if _, err := RenderTable(sink, spec.Table); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	return nil
}
