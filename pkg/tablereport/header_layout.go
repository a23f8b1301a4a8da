package tablereport

import "fmt"

// Rect is an inclusive, 1-based cell rectangle.
type Rect struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
	Right  int `json:"right"`
}

// Rows returns the number of rows covered by r.
func (r Rect) Rows() int { return r.Bottom - r.Top + 1 }

// Cols returns the number of columns covered by r.
func (r Rect) Cols() int { return r.Right - r.Left + 1 }

// NodeLayout is the computed position of one header column.
type NodeLayout struct {
	Row     int `json:"row"`
	Col     int `json:"col"`
	RowSpan int `json:"rowspan"`
	ColSpan int `json:"colspan"`
	Depth   int `json:"depth"`
}

// HeaderLayout holds the coordinates of a laid out header forest. The columns
// themselves are not modified; positions are looked up by column identity.
type HeaderLayout struct {
	Columns []Column
	Depth   int
	Rect    Rect

	nodes  map[Column]*NodeLayout
	parent map[Column]Column
}

// Node returns the layout of c.
func (h *HeaderLayout) Node(c Column) (NodeLayout, bool) {
	n, ok := h.nodes[c]
	if !ok {
		return NodeLayout{}, false
	}
	return *n, true
}

// Ancestors returns the chain of columns from the root down to c, c included.
func (h *HeaderLayout) Ancestors(c Column) []Column {
	var chain []Column
	for cur := c; cur != nil; cur = h.parent[cur] {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// LayoutHeaders computes row, column, spans and depth of every column of the
// forest. The first root starts at (startRow, 1). Every leaf ends on the last
// header row: a node at level L gets rowspan Depth-L+1.
func LayoutHeaders(columns []Column, startRow int) (*HeaderLayout, error) {
	if len(columns) == 0 {
		return nil, ErrEmptyHeader
	}

	h := &HeaderLayout{
		Columns: columns,
		nodes:   make(map[Column]*NodeLayout),
		parent:  make(map[Column]Column),
	}

	// pass 1: position, colspan and depth
	nextCol := 1
	for i, c := range columns {
		n, err := h.place(c, nil, startRow, nextCol, fmt.Sprintf("columns[%d]", i))
		if err != nil {
			return nil, err
		}
		nextCol += n.ColSpan
		if n.Depth > h.Depth {
			h.Depth = n.Depth
		}
	}

	// pass 2: rowspan from the forest depth
	for _, c := range columns {
		h.assignRowSpan(c, h.Depth)
	}

	h.Rect = Rect{
		Top:    startRow,
		Left:   1,
		Bottom: startRow + h.Depth - 1,
		Right:  nextCol - 1,
	}
	return h, nil
}

func (h *HeaderLayout) place(c Column, parent Column, row, col int, path string) (*NodeLayout, error) {
	if c == nil {
		return nil, &ColumnError{Path: path, Err: ErrNilColumn}
	}
	if _, seen := h.nodes[c]; seen {
		return nil, &ColumnError{Path: path, Err: ErrDuplicateColumn}
	}

	n := &NodeLayout{Row: row, Col: col, RowSpan: 1, ColSpan: 1, Depth: 1}
	h.nodes[c] = n
	if parent != nil {
		h.parent[c] = parent
	}

	switch v := c.(type) {
	case *GroupColumn:
		if len(v.Children) == 0 {
			return nil, &ColumnError{Path: path, Err: ErrEmptyGroup}
		}
		nextCol := col
		maxDepth := 0
		for i, child := range v.Children {
			cn, err := h.place(child, c, row+1, nextCol, fmt.Sprintf("%s.children[%d]", path, i))
			if err != nil {
				return nil, err
			}
			nextCol += cn.ColSpan
			if cn.Depth > maxDepth {
				maxDepth = cn.Depth
			}
		}
		n.ColSpan = nextCol - col
		n.Depth = 1 + maxDepth
	case *DirectColumn:
		if v.Key == "" {
			return nil, &ColumnError{Path: path, Err: ErrEmptyColumnKey}
		}
	case *CascadeColumn:
		if len(v.Keys) == 0 {
			return nil, &ColumnError{Path: path, Err: ErrEmptyColumnKey}
		}
		for _, k := range v.Keys {
			if k == "" {
				return nil, &ColumnError{Path: path, Err: ErrEmptyColumnKey}
			}
		}
	default:
		return nil, &ColumnError{Path: path, Err: fmt.Errorf("%w: %T", ErrUnsupportedColumn, c)}
	}
	return n, nil
}

func (h *HeaderLayout) assignRowSpan(c Column, rowSpan int) {
	h.nodes[c].RowSpan = rowSpan
	if g, ok := c.(*GroupColumn); ok {
		for _, child := range g.Children {
			h.assignRowSpan(child, rowSpan-1)
		}
	}
}
