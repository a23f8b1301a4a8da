package tablereport

import "fmt"

// SheetSink receives the cells of one worksheet. Coordinates are 1-based.
type SheetSink interface {
	SetCell(row, col int, value interface{}, style *CellStyle) error
	MergeRange(r Rect) error
	SetColumnWidth(col int, width float64) error
}

// WorkbookSink creates worksheets.
type WorkbookSink interface {
	AddSheet(name string, props *SheetProperties) (SheetSink, error)
}

// EmitHeaderCells writes every header cell of layout in pre-order. base is the
// table level header style.
func EmitHeaderCells(sink SheetSink, layout *HeaderLayout, base *CellStyle) error {
	return emitHeaderLevel(sink, layout, layout.Columns, base)
}

func emitHeaderLevel(sink SheetSink, layout *HeaderLayout, columns []Column, parent *CellStyle) error {
	for _, c := range columns {
		n, ok := layout.Node(c)
		if !ok {
			return fmt.Errorf("column %T has no layout", c)
		}
		a := c.attrs()
		style := Resolve(parent, a.CellStyle, a.HeadCellStyle)

		if err := sink.SetCell(n.Row, n.Col, headerText(c), style); err != nil {
			return err
		}
		if a.Width > 0 {
			if err := sink.SetColumnWidth(n.Col, a.Width); err != nil {
				return err
			}
		}

		g, isGroup := c.(*GroupColumn)
		rowSpan := n.RowSpan
		if isGroup {
			rowSpan = 1
		}
		if n.ColSpan > 1 || rowSpan > 1 {
			r := Rect{Top: n.Row, Left: n.Col, Bottom: n.Row + rowSpan - 1, Right: n.Col + n.ColSpan - 1}
			if err := sink.MergeRange(r); err != nil {
				return err
			}
		}

		if isGroup {
			if err := emitHeaderLevel(sink, layout, g.Children, style); err != nil {
				return err
			}
		}
	}
	return nil
}

// EmitDataCells writes the data cells of table, column by column from left to
// right and row by row from top to bottom.
func EmitDataCells(sink SheetSink, table *Table, layout *TableLayout) error {
	styles := dataStyles(table.Columns, Resolve(table.CellStyle, table.DataCellStyle), nil)
	for _, leaf := range Leaves(table.Columns) {
		n, ok := layout.Header.Node(leaf)
		if !ok {
			return fmt.Errorf("column %T has no layout", leaf)
		}
		w := &cellWriter{
			sink:   sink,
			col:    n.Col,
			style:  styles[leaf],
			mapper: leaf.ValueMapper(),
		}
		for i, row := range table.Rows {
			if err := w.write(leaf.Path(), row, i, layout.Rows[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func dataStyles(columns []Column, parent *CellStyle, out map[Column]*CellStyle) map[Column]*CellStyle {
	if out == nil {
		out = make(map[Column]*CellStyle)
	}
	for _, c := range columns {
		a := c.attrs()
		style := Resolve(parent, a.CellStyle, a.DataCellStyle)
		out[c] = style
		if g, ok := c.(*GroupColumn); ok {
			dataStyles(g.Children, style, out)
		}
	}
	return out
}

// cellWriter writes the cells of one data column.
type cellWriter struct {
	sink   SheetSink
	col    int
	style  *CellStyle
	mapper ValueMapper
}

// write walks path through row. At the field level the value is written and
// merged over the row's span. An absent or empty array writes one empty cell
// merged over the row's span; grid rows below a shorter branch get an empty
// styled cell each.
func (w *cellWriter) write(path []string, row DataRow, index int, rl *RowLayout) error {
	if len(path) == 1 {
		value := row[path[0]]
		if w.mapper != nil {
			value = w.mapper(value, index, row)
		}
		if err := w.sink.SetCell(rl.Row, w.col, value, w.style); err != nil {
			return err
		}
		if rl.RowSpan > 1 {
			return w.sink.MergeRange(Rect{Top: rl.Row, Left: w.col, Bottom: rl.End() - 1, Right: w.col})
		}
		return nil
	}

	key := path[0]
	nested, err := NestedRows(row, key)
	if err != nil {
		return err
	}
	if len(nested) == 0 {
		return w.blank(rl)
	}
	layouts := rl.Nested[key]
	if len(layouts) != len(nested) {
		return fmt.Errorf("cascade key %q: %d rows but %d layouts", key, len(nested), len(layouts))
	}

	covered := rl.Row
	for j, sub := range nested {
		if err := w.write(path[1:], sub, j, layouts[j]); err != nil {
			return err
		}
		covered = layouts[j].End()
	}
	return w.fill(covered, rl.End())
}

func (w *cellWriter) blank(rl *RowLayout) error {
	if err := w.sink.SetCell(rl.Row, w.col, nil, w.style); err != nil {
		return err
	}
	if rl.RowSpan > 1 {
		return w.sink.MergeRange(Rect{Top: rl.Row, Left: w.col, Bottom: rl.End() - 1, Right: w.col})
	}
	return nil
}

func (w *cellWriter) fill(from, to int) error {
	for r := from; r < to; r++ {
		if err := w.sink.SetCell(r, w.col, nil, w.style); err != nil {
			return err
		}
	}
	return nil
}
