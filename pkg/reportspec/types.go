// Package reportspec loads table report templates from YAML or JSON and turns
// them into tablereport sheets.
package reportspec

import (
	"encoding/json"
	"fmt"

	"github.com/locvowork/tablereport/pkg/tablereport"
	"gopkg.in/yaml.v3"
)

// Source types.
const (
	SourceInline    = "inline"
	SourcePostgres  = "postgres"
	SourceElastic   = "elastic"
	SourceDatastore = "datastore"
)

// ReportTemplate is a complete workbook definition.
type ReportTemplate struct {
	Version     string                          `yaml:"version" json:"version"`
	Name        string                          `yaml:"name" json:"name"`
	Description string                          `yaml:"description,omitempty" json:"description,omitempty"`
	Variables   map[string]string               `yaml:"variables,omitempty" json:"variables,omitempty"`
	Workbook    *tablereport.WorkbookProperties `yaml:"workbook,omitempty" json:"workbook,omitempty"`
	Sheets      []SheetTemplate                 `yaml:"sheets" json:"sheets"`
}

// SheetTemplate defines one worksheet. A sheet without a table renders the
// NO_TABLE placeholder.
type SheetTemplate struct {
	Name       string                       `yaml:"name" json:"name"`
	Properties *tablereport.SheetProperties `yaml:"properties,omitempty" json:"properties,omitempty"`
	Source     *SourceTemplate              `yaml:"source,omitempty" json:"source,omitempty"`
	Table      *TableTemplate               `yaml:"table,omitempty" json:"table,omitempty"`
}

// TableTemplate defines the header forest and table level styles.
type TableTemplate struct {
	Caption       *CaptionTemplate       `yaml:"caption,omitempty" json:"caption,omitempty"`
	SubCaption    *CaptionTemplate       `yaml:"sub_caption,omitempty" json:"sub_caption,omitempty"`
	CellStyle     *tablereport.CellStyle `yaml:"cell_style,omitempty" json:"cell_style,omitempty"`
	HeadCellStyle *tablereport.CellStyle `yaml:"head_cell_style,omitempty" json:"head_cell_style,omitempty"`
	DataCellStyle *tablereport.CellStyle `yaml:"data_cell_style,omitempty" json:"data_cell_style,omitempty"`
	Columns       []ColumnTemplate       `yaml:"columns" json:"columns"`
}

// CaptionTemplate is a caption line. It may be written as a plain string.
type CaptionTemplate struct {
	Value string                 `yaml:"value" json:"value"`
	Style *tablereport.CellStyle `yaml:"style,omitempty" json:"style,omitempty"`
}

// UnmarshalYAML accepts either a string or a {value, style} mapping.
func (c *CaptionTemplate) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&c.Value)
	}
	type plain CaptionTemplate
	return node.Decode((*plain)(c))
}

// UnmarshalJSON accepts either a string or a {value, style} object.
func (c *CaptionTemplate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Value = s
		return nil
	}
	type plain CaptionTemplate
	return json.Unmarshal(data, (*plain)(c))
}

// ColumnTemplate is a header node. Exactly one of Key, Keys and Children is set.
type ColumnTemplate struct {
	Key           string                 `yaml:"key,omitempty" json:"key,omitempty"`
	Keys          []string               `yaml:"keys,omitempty" json:"keys,omitempty"`
	Children      []ColumnTemplate       `yaml:"children,omitempty" json:"children,omitempty"`
	Label         string                 `yaml:"label,omitempty" json:"label,omitempty"`
	Width         float64                `yaml:"width,omitempty" json:"width,omitempty"`
	Mapper        *MapperTemplate        `yaml:"mapper,omitempty" json:"mapper,omitempty"`
	CellStyle     *tablereport.CellStyle `yaml:"cell_style,omitempty" json:"cell_style,omitempty"`
	HeadCellStyle *tablereport.CellStyle `yaml:"head_cell_style,omitempty" json:"head_cell_style,omitempty"`
	DataCellStyle *tablereport.CellStyle `yaml:"data_cell_style,omitempty" json:"data_cell_style,omitempty"`
}

// MapperTemplate names a value mapper and its parameters.
type MapperTemplate struct {
	Name      string      `yaml:"name" json:"name"`
	Fields    []string    `yaml:"fields,omitempty" json:"fields,omitempty"`       // concat
	Separator *string     `yaml:"separator,omitempty" json:"separator,omitempty"` // concat, default " "
	Value     interface{} `yaml:"value,omitempty" json:"value,omitempty"`         // default
	Layout    string      `yaml:"layout,omitempty" json:"layout,omitempty"`       // date, default "2006-01-02"
}

// SourceTemplate tells where the rows of a sheet come from.
type SourceTemplate struct {
	Type string `yaml:"type" json:"type"`

	// inline
	Rows []map[string]interface{} `yaml:"rows,omitempty" json:"rows,omitempty"`

	// postgres: either Query or Table
	Query   string        `yaml:"query,omitempty" json:"query,omitempty"`
	Args    []interface{} `yaml:"args,omitempty" json:"args,omitempty"`
	Table   string        `yaml:"table,omitempty" json:"table,omitempty"`
	Columns []string      `yaml:"columns,omitempty" json:"columns,omitempty"`
	Where   []Condition   `yaml:"where,omitempty" json:"where,omitempty"`
	Offset  int           `yaml:"offset,omitempty" json:"offset,omitempty"`

	// elastic
	Index string `yaml:"index,omitempty" json:"index,omitempty"`
	Size  int    `yaml:"size,omitempty" json:"size,omitempty"` // 0 scrolls through every hit

	// datastore
	Kind    string      `yaml:"kind,omitempty" json:"kind,omitempty"`
	Filters []Condition `yaml:"filters,omitempty" json:"filters,omitempty"`

	// shared by postgres, elastic and datastore
	Sort  []SortField `yaml:"sort,omitempty" json:"sort,omitempty"`
	Limit int         `yaml:"limit,omitempty" json:"limit,omitempty"`
}

// Condition is a field comparison, e.g. {field: grade, op: "=", value: 2}.
type Condition struct {
	Field string      `yaml:"field" json:"field"`
	Op    string      `yaml:"op" json:"op"`
	Value interface{} `yaml:"value" json:"value"`
}

// SortField orders rows by Field.
type SortField struct {
	Field string `yaml:"field" json:"field"`
	Desc  bool   `yaml:"desc,omitempty" json:"desc,omitempty"`
}

// SourceType returns the source type of s; a sheet without a source is inline.
func (s *SheetTemplate) SourceType() string {
	if s.Source == nil || s.Source.Type == "" {
		return SourceInline
	}
	return s.Source.Type
}

// InlineRows returns the rows embedded in the sheet source.
func (s *SheetTemplate) InlineRows() []tablereport.DataRow {
	if s.Source == nil {
		return nil
	}
	rows := make([]tablereport.DataRow, len(s.Source.Rows))
	for i, r := range s.Source.Rows {
		rows[i] = r
	}
	return rows
}

func (c *ColumnTemplate) kind() (string, error) {
	var set []string
	if c.Key != "" {
		set = append(set, "key")
	}
	if len(c.Keys) > 0 {
		set = append(set, "keys")
	}
	if len(c.Children) > 0 {
		set = append(set, "children")
	}
	if len(set) != 1 {
		return "", fmt.Errorf("exactly one of key, keys or children is required, got %v", set)
	}
	return set[0], nil
}
