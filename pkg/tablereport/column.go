package tablereport

// DataRow is one record of table data. Values addressed by a cascade key hold
// the nested rows ([]DataRow, []map[string]interface{} or []interface{} of maps).
type DataRow map[string]interface{}

// ValueMapper maps the raw value of a data cell to the value written to the sheet.
// index is the position of row inside its immediate array.
type ValueMapper func(value interface{}, index int, row DataRow) interface{}

// ColumnAttrs holds the attributes shared by every header column.
type ColumnAttrs struct {
	Label         string
	Width         float64
	CellStyle     *CellStyle
	HeadCellStyle *CellStyle
	DataCellStyle *CellStyle
}

func (a *ColumnAttrs) attrs() *ColumnAttrs { return a }

// Column is a node of the header tree: *GroupColumn, *DirectColumn or *CascadeColumn.
type Column interface {
	attrs() *ColumnAttrs
}

// DataColumn is a leaf column bound to data.
type DataColumn interface {
	Column
	// Path returns the field path read from a data row. A direct column has a
	// single segment.
	Path() []string
	ValueMapper() ValueMapper
}

// GroupColumn groups child columns under a shared header cell.
type GroupColumn struct {
	ColumnAttrs
	Children []Column
}

// DirectColumn reads a top-level field of each data row.
type DirectColumn struct {
	ColumnAttrs
	Key    string
	Mapper ValueMapper
}

// CascadeColumn reads a field through one or more levels of nested row arrays.
// All segments but the last name nested arrays, the last one names the field.
type CascadeColumn struct {
	ColumnAttrs
	Keys   []string
	Mapper ValueMapper
}

func (c *DirectColumn) Path() []string           { return []string{c.Key} }
func (c *DirectColumn) ValueMapper() ValueMapper { return c.Mapper }

func (c *CascadeColumn) Path() []string           { return c.Keys }
func (c *CascadeColumn) ValueMapper() ValueMapper { return c.Mapper }

// Group creates a group column.
func Group(label string, children ...Column) *GroupColumn {
	return &GroupColumn{ColumnAttrs: ColumnAttrs{Label: label}, Children: children}
}

// Direct creates a direct data column reading key.
func Direct(key string) *DirectColumn {
	return &DirectColumn{Key: key}
}

// Cascade creates a cascade data column reading the path keys.
func Cascade(keys ...string) *CascadeColumn {
	return &CascadeColumn{Keys: keys}
}

// WithLabel sets the header label.
func (c *DirectColumn) WithLabel(label string) *DirectColumn { c.Label = label; return c }

// WithWidth sets the column width.
func (c *DirectColumn) WithWidth(width float64) *DirectColumn { c.Width = width; return c }

// WithMapper sets the value mapper.
func (c *DirectColumn) WithMapper(m ValueMapper) *DirectColumn { c.Mapper = m; return c }

// WithDataStyle sets the data cell style.
func (c *DirectColumn) WithDataStyle(s *CellStyle) *DirectColumn { c.DataCellStyle = s; return c }

// WithLabel sets the header label.
func (c *CascadeColumn) WithLabel(label string) *CascadeColumn { c.Label = label; return c }

// WithWidth sets the column width.
func (c *CascadeColumn) WithWidth(width float64) *CascadeColumn { c.Width = width; return c }

// WithMapper sets the value mapper.
func (c *CascadeColumn) WithMapper(m ValueMapper) *CascadeColumn { c.Mapper = m; return c }

// WithDataStyle sets the data cell style.
func (c *CascadeColumn) WithDataStyle(s *CellStyle) *CascadeColumn { c.DataCellStyle = s; return c }

// Attrs returns the shared attributes of c.
func Attrs(c Column) *ColumnAttrs {
	return c.attrs()
}

// Flatten returns every column of the forest in pre-order.
func Flatten(columns []Column) []Column {
	var out []Column
	var walk func([]Column)
	walk = func(cs []Column) {
		for _, c := range cs {
			out = append(out, c)
			if g, ok := c.(*GroupColumn); ok {
				walk(g.Children)
			}
		}
	}
	walk(columns)
	return out
}

// Leaves returns the data columns of the forest from left to right.
func Leaves(columns []Column) []DataColumn {
	var out []DataColumn
	for _, c := range Flatten(columns) {
		if d, ok := c.(DataColumn); ok {
			out = append(out, d)
		}
	}
	return out
}

// headerText is the value written to a column's header cell.
func headerText(c Column) interface{} {
	if l := c.attrs().Label; l != "" {
		return l
	}
	if d, ok := c.(DataColumn); ok {
		if p := d.Path(); len(p) > 0 {
			return p[len(p)-1]
		}
	}
	return nil
}
