package reportspec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTemplate wraps every template validation failure.
var ErrInvalidTemplate = errors.New("invalid template")

// LoadTemplate loads a report template from a YAML file.
func LoadTemplate(path string) (*ReportTemplate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening template file: %w", err)
	}
	defer f.Close()

	return LoadTemplateFromReader(f)
}

// LoadTemplateFromReader loads a report template from a reader. JSON input is
// accepted too since YAML is a superset of it.
func LoadTemplateFromReader(r io.Reader) (*ReportTemplate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}

	var tmpl ReportTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("%w: parsing YAML template: %v", ErrInvalidTemplate, err)
	}

	applyDefaults(&tmpl)

	if err := ValidateTemplate(&tmpl); err != nil {
		return nil, fmt.Errorf("validating template: %w", err)
	}

	return &tmpl, nil
}

// LoadTemplateFromString loads a report template from a YAML string.
func LoadTemplateFromString(yamlContent string) (*ReportTemplate, error) {
	return LoadTemplateFromReader(strings.NewReader(yamlContent))
}

func applyDefaults(tmpl *ReportTemplate) {
	if tmpl.Version == "" {
		tmpl.Version = "1.0"
	}
	for i := range tmpl.Sheets {
		if s := tmpl.Sheets[i].Source; s != nil && s.Type == "" {
			s.Type = SourceInline
		}
	}
}

// ValidateTemplate checks the template structure. Mapper names are checked
// against DefaultMappers.
func ValidateTemplate(tmpl *ReportTemplate) error {
	if tmpl == nil {
		return fmt.Errorf("%w: template is nil", ErrInvalidTemplate)
	}
	if len(tmpl.Sheets) == 0 {
		return fmt.Errorf("%w: template must have at least one sheet", ErrInvalidTemplate)
	}

	names := make(map[string]int)
	for i, sheet := range tmpl.Sheets {
		if sheet.Name != "" {
			key := strings.ToLower(sheet.Name)
			if j, dup := names[key]; dup {
				return fmt.Errorf("%w: sheet[%d] '%s': duplicate name of sheet[%d]", ErrInvalidTemplate, i, sheet.Name, j)
			}
			names[key] = i
		}

		if err := validateSource(sheet.Source); err != nil {
			return fmt.Errorf("%w: sheet[%d] '%s': %v", ErrInvalidTemplate, i, sheet.Name, err)
		}

		if sheet.Table == nil {
			continue
		}
		for j := range sheet.Table.Columns {
			path := fmt.Sprintf("columns[%d]", j)
			if err := validateColumn(&sheet.Table.Columns[j], path); err != nil {
				return fmt.Errorf("%w: sheet[%d] '%s': %v", ErrInvalidTemplate, i, sheet.Name, err)
			}
		}
	}

	return nil
}

func validateSource(src *SourceTemplate) error {
	if src == nil {
		return nil
	}
	switch src.Type {
	case "", SourceInline:
	case SourcePostgres:
		if (src.Query == "") == (src.Table == "") {
			return fmt.Errorf("postgres source requires exactly one of query or table")
		}
		if src.Query != "" && (len(src.Where) > 0 || len(src.Columns) > 0 || src.Offset != 0) {
			return fmt.Errorf("postgres source with a query cannot set columns, where or offset")
		}
	case SourceElastic:
		if src.Index == "" {
			return fmt.Errorf("elastic source requires index")
		}
	case SourceDatastore:
		if src.Kind == "" {
			return fmt.Errorf("datastore source requires kind")
		}
	default:
		return fmt.Errorf("unknown source type %q", src.Type)
	}
	if src.Offset != 0 && src.Type != SourcePostgres {
		return fmt.Errorf("offset is only supported by postgres table sources")
	}
	if src.Limit < 0 || src.Size < 0 || src.Offset < 0 {
		return fmt.Errorf("limit, size and offset must not be negative")
	}
	return nil
}

func validateColumn(c *ColumnTemplate, path string) error {
	kind, err := c.kind()
	if err != nil {
		return fmt.Errorf("%s: %v", path, err)
	}
	switch kind {
	case "keys":
		for _, k := range c.Keys {
			if k == "" {
				return fmt.Errorf("%s: keys contain an empty segment", path)
			}
		}
	case "children":
		if c.Mapper != nil {
			return fmt.Errorf("%s: group column cannot have a mapper", path)
		}
		for i := range c.Children {
			if err := validateColumn(&c.Children[i], fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}
	if c.Mapper != nil && !DefaultMappers.Has(c.Mapper.Name) {
		return fmt.Errorf("%s: %v: %q", path, ErrUnknownMapper, c.Mapper.Name)
	}
	return nil
}

// ResolveVariables returns a copy of the template with ${name} placeholders
// replaced. Runtime values override the template's own variables.
func ResolveVariables(tmpl *ReportTemplate, runtimeVars map[string]interface{}) *ReportTemplate {
	vars := make(map[string]string, len(tmpl.Variables)+len(runtimeVars))
	for k, v := range tmpl.Variables {
		vars[k] = v
	}
	for k, v := range runtimeVars {
		vars[k] = fmt.Sprint(v)
	}

	resolved := *tmpl
	if tmpl.Workbook != nil {
		wb := *tmpl.Workbook
		wb.Title = resolveString(wb.Title, vars)
		wb.Subject = resolveString(wb.Subject, vars)
		wb.Description = resolveString(wb.Description, vars)
		resolved.Workbook = &wb
	}

	resolved.Sheets = make([]SheetTemplate, len(tmpl.Sheets))
	for i, sheet := range tmpl.Sheets {
		sheet.Name = resolveString(sheet.Name, vars)
		if sheet.Table != nil {
			table := *sheet.Table
			table.Caption = resolveCaption(table.Caption, vars)
			table.SubCaption = resolveCaption(table.SubCaption, vars)
			sheet.Table = &table
		}
		if sheet.Source != nil {
			src := *sheet.Source
			src.Query = resolveString(src.Query, vars)
			src.Table = resolveString(src.Table, vars)
			src.Index = resolveString(src.Index, vars)
			src.Kind = resolveString(src.Kind, vars)
			src.Args = resolveValues(src.Args, vars)
			src.Where = resolveConditions(src.Where, vars)
			src.Filters = resolveConditions(src.Filters, vars)
			sheet.Source = &src
		}
		resolved.Sheets[i] = sheet
	}

	return &resolved
}

func resolveString(s string, vars map[string]string) string {
	for k, v := range vars {
		s = strings.ReplaceAll(s, "${"+k+"}", v)
	}
	return s
}

func resolveCaption(c *CaptionTemplate, vars map[string]string) *CaptionTemplate {
	if c == nil {
		return nil
	}
	out := *c
	out.Value = resolveString(out.Value, vars)
	return &out
}

func resolveValues(values []interface{}, vars map[string]string) []interface{} {
	if values == nil {
		return nil
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			v = resolveString(s, vars)
		}
		out[i] = v
	}
	return out
}

func resolveConditions(conds []Condition, vars map[string]string) []Condition {
	if conds == nil {
		return nil
	}
	out := make([]Condition, len(conds))
	for i, c := range conds {
		if s, ok := c.Value.(string); ok {
			c.Value = resolveString(s, vars)
		}
		out[i] = c
	}
	return out
}
