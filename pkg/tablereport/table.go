package tablereport

// Placeholder texts written instead of a table that cannot be rendered.
const (
	NoHeadColumnText = "NO_HEAD_COLUMN"
	NoDataText       = "NO_DATA"
	NoTableText      = "NO_TABLE"
)

// Caption is a single cell line written above the table header.
type Caption struct {
	Value string
	Style *CellStyle
}

// Table is a header forest with its data rows.
type Table struct {
	Columns    []Column
	Rows       []DataRow
	Caption    *Caption
	SubCaption *Caption

	// CellStyle applies to header and data cells, HeadCellStyle and
	// DataCellStyle to one of them only.
	CellStyle     *CellStyle
	HeadCellStyle *CellStyle
	DataCellStyle *CellStyle
}

// HeaderRow returns the row the header starts at: 1, moved down by one row per
// caption.
func (t *Table) HeaderRow() int {
	row := 1
	if t.Caption != nil {
		row++
	}
	if t.SubCaption != nil {
		row++
	}
	return row
}

// TableLayout is the complete layout of a table. DataRect has zero rows when
// the table has no data.
type TableLayout struct {
	Header      *HeaderLayout
	Rows        []*RowLayout
	CascadeKeys CascadeKeyTree
	HeaderRect  Rect
	DataRect    Rect
}

// BuildTableLayout lays out the header of table from startRow and its data
// rows right below it. Nothing is written.
func BuildTableLayout(table *Table, startRow int) (*TableLayout, error) {
	header, err := LayoutHeaders(table.Columns, startRow)
	if err != nil {
		return nil, err
	}

	tree := ExtractCascadeKeys(Leaves(table.Columns))
	top := header.Rect.Bottom + 1
	rows, next, err := LayoutDataRows(table.Rows, tree, top)
	if err != nil {
		return nil, err
	}

	return &TableLayout{
		Header:      header,
		Rows:        rows,
		CascadeKeys: tree,
		HeaderRect:  header.Rect,
		DataRect:    Rect{Top: top, Left: 1, Bottom: next - 1, Right: header.Rect.Right},
	}, nil
}

// RenderTable writes table to sink starting at the first row: captions, then
// the header, then the data. A table without columns gets the NO_HEAD_COLUMN
// placeholder and a nil layout; a table without rows gets NO_DATA merged
// across the header width.
func RenderTable(sink SheetSink, table *Table) (*TableLayout, error) {
	row := 1
	for _, c := range []*Caption{table.Caption, table.SubCaption} {
		if c == nil {
			continue
		}
		if err := sink.SetCell(row, 1, c.Value, c.Style); err != nil {
			return nil, err
		}
		row++
	}
	startRow := table.HeaderRow()

	if len(table.Columns) == 0 {
		return nil, sink.SetCell(startRow, 1, NoHeadColumnText, nil)
	}

	layout, err := BuildTableLayout(table, startRow)
	if err != nil {
		return nil, err
	}

	if err := EmitHeaderCells(sink, layout.Header, Resolve(table.CellStyle, table.HeadCellStyle)); err != nil {
		return nil, err
	}

	if len(table.Rows) == 0 {
		top := layout.DataRect.Top
		if err := sink.SetCell(top, 1, NoDataText, Resolve(table.CellStyle, table.DataCellStyle)); err != nil {
			return nil, err
		}
		if right := layout.HeaderRect.Right; right > 1 {
			if err := sink.MergeRange(Rect{Top: top, Left: 1, Bottom: top, Right: right}); err != nil {
				return nil, err
			}
		}
		return layout, nil
	}

	if err := EmitDataCells(sink, table, layout); err != nil {
		return nil, err
	}
	return layout, nil
}
