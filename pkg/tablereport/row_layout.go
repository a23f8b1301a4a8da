package tablereport

// RowLayout is the vertical extent of one data row. Nested holds the layouts of
// the rows found under each cascade key, in the same order as the data.
type RowLayout struct {
	Row     int                     `json:"row"`
	RowSpan int                     `json:"rowspan"`
	Nested  map[string][]*RowLayout `json:"nested,omitempty"`
}

// End returns the first row below r.
func (r *RowLayout) End() int { return r.Row + r.RowSpan }

// LayoutDataRows lays out rows one below the other starting at startRow and
// returns their layouts together with the next free row.
//
// A row without cascade branches takes one grid row. Otherwise every branch
// is laid out from the row's own start: an absent or empty array reaches one
// row down, a non-empty array reaches as far as its own rows do. The row is as
// tall as its tallest branch.
func LayoutDataRows(rows []DataRow, tree CascadeKeyTree, startRow int) ([]*RowLayout, int, error) {
	layouts := make([]*RowLayout, 0, len(rows))
	next := startRow
	for _, row := range rows {
		rl, err := layoutRow(row, tree, next)
		if err != nil {
			return nil, 0, err
		}
		layouts = append(layouts, rl)
		next = rl.End()
	}
	return layouts, next, nil
}

func layoutRow(row DataRow, tree CascadeKeyTree, startRow int) (*RowLayout, error) {
	rl := &RowLayout{Row: startRow, RowSpan: 1}
	if tree.IsTerminal() {
		return rl, nil
	}

	rl.Nested = make(map[string][]*RowLayout, len(tree))
	reached := startRow + 1
	for _, key := range tree.Keys() {
		nested, err := NestedRows(row, key)
		if err != nil {
			return nil, err
		}
		layouts, next, err := LayoutDataRows(nested, tree[key], startRow)
		if err != nil {
			return nil, err
		}
		rl.Nested[key] = layouts
		if next > reached {
			reached = next
		}
	}
	rl.RowSpan = reached - startRow
	return rl, nil
}

// NestedRows returns the rows held by row[key]. A missing or nil value yields
// no rows. Accepted shapes are []DataRow, []map[string]interface{} and
// []interface{} whose elements are maps or nil.
func NestedRows(row DataRow, key string) ([]DataRow, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return nil, nil
	}

	switch vs := v.(type) {
	case []DataRow:
		return vs, nil
	case []map[string]interface{}:
		out := make([]DataRow, len(vs))
		for i, m := range vs {
			out[i] = m
		}
		return out, nil
	case []interface{}:
		out := make([]DataRow, len(vs))
		for i, e := range vs {
			switch m := e.(type) {
			case nil:
				out[i] = DataRow{}
			case DataRow:
				out[i] = m
			case map[string]interface{}:
				out[i] = m
			default:
				return nil, &InvalidCascadeValueError{Key: key, Value: v}
			}
		}
		return out, nil
	default:
		return nil, &InvalidCascadeValueError{Key: key, Value: v}
	}
}
