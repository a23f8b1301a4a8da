package tablereport

import "fmt"

type cellKey struct{ row, col int }

type recordedCell struct {
	Value interface{}
	Style *CellStyle
}

// memorySheet records every call made by the renderer.
type memorySheet struct {
	cells  map[cellKey]recordedCell
	order  []cellKey
	merges []Rect
	widths map[int]float64
}

func newMemorySheet() *memorySheet {
	return &memorySheet{cells: map[cellKey]recordedCell{}, widths: map[int]float64{}}
}

func (s *memorySheet) SetCell(row, col int, value interface{}, style *CellStyle) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell %d,%d", row, col)
	}
	k := cellKey{row, col}
	s.cells[k] = recordedCell{Value: value, Style: style}
	s.order = append(s.order, k)
	return nil
}

func (s *memorySheet) MergeRange(r Rect) error {
	if r.Top > r.Bottom || r.Left > r.Right {
		return fmt.Errorf("invalid range %+v", r)
	}
	s.merges = append(s.merges, r)
	return nil
}

func (s *memorySheet) SetColumnWidth(col int, width float64) error {
	s.widths[col] = width
	return nil
}

func (s *memorySheet) value(row, col int) interface{} {
	return s.cells[cellKey{row, col}].Value
}

func (s *memorySheet) has(row, col int) bool {
	_, ok := s.cells[cellKey{row, col}]
	return ok
}

type memoryWorkbook struct {
	names  []string
	props  []*SheetProperties
	sheets map[string]*memorySheet
}

func newMemoryWorkbook() *memoryWorkbook {
	return &memoryWorkbook{sheets: map[string]*memorySheet{}}
}

func (w *memoryWorkbook) AddSheet(name string, props *SheetProperties) (SheetSink, error) {
	if _, ok := w.sheets[name]; ok {
		return nil, fmt.Errorf("duplicate sheet %q", name)
	}
	s := newMemorySheet()
	w.names = append(w.names, name)
	w.props = append(w.props, props)
	w.sheets[name] = s
	return s, nil
}
