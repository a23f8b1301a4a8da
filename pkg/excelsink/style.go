package excelsink

import (
	"encoding/json"
	"strings"

	"github.com/locvowork/tablereport/pkg/tablereport"
	"github.com/xuri/excelize/v2"
)

// borderStyles maps border names to excelize border style ids.
var borderStyles = map[string]int{
	"thin":   1,
	"medium": 2,
	"dashed": 3,
	"dotted": 4,
	"thick":  5,
	"double": 6,
	"hair":   7,
}

// styleCache creates each distinct style once per workbook.
type styleCache struct {
	file *excelize.File
	ids  map[string]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{file: f, ids: make(map[string]int)}
}

// id returns the excelize style id of s. A nil style maps to 0, the default style.
func (c *styleCache) id(s *tablereport.CellStyle) (int, error) {
	if s == nil {
		return 0, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return 0, err
	}
	key := string(raw)
	if id, ok := c.ids[key]; ok {
		return id, nil
	}
	id, err := c.file.NewStyle(ToExcelStyle(s))
	if err != nil {
		return 0, err
	}
	c.ids[key] = id
	return id, nil
}

// ToExcelStyle converts a resolved cell style to an excelize style.
func ToExcelStyle(s *tablereport.CellStyle) *excelize.Style {
	out := &excelize.Style{}

	if f := s.Font; f != nil {
		out.Font = &excelize.Font{
			Family:    f.Name,
			Size:      f.Size,
			Bold:      deref(f.Bold),
			Italic:    deref(f.Italic),
			Underline: f.Underline,
			Color:     color(f.Color),
		}
	}

	if f := s.Fill; f != nil && f.Color != "" {
		pattern := f.Pattern
		if pattern == 0 {
			pattern = 1
		}
		out.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: pattern,
			Color:   []string{color(f.Color)},
		}
	}

	if b := s.Border; b != nil {
		for _, side := range []struct {
			typ string
			def *tablereport.BorderSide
		}{
			{"left", b.Left},
			{"top", b.Top},
			{"right", b.Right},
			{"bottom", b.Bottom},
		} {
			if side.def == nil {
				continue
			}
			style, ok := borderStyles[side.def.Style]
			if !ok {
				continue
			}
			out.Border = append(out.Border, excelize.Border{
				Type:  side.typ,
				Color: color(side.def.Color),
				Style: style,
			})
		}
	}

	if a := s.Alignment; a != nil {
		out.Alignment = &excelize.Alignment{
			Horizontal:   a.Horizontal,
			Vertical:     a.Vertical,
			WrapText:     deref(a.WrapText),
			Indent:       a.Indent,
			TextRotation: a.TextRotation,
		}
	}

	if s.NumFmt != "" {
		numFmt := s.NumFmt
		out.CustomNumFmt = &numFmt
	}

	if s.Locked != nil {
		out.Protection = &excelize.Protection{Locked: *s.Locked}
	}
	return out
}

func deref(b *bool) bool {
	return b != nil && *b
}

func color(c string) string {
	return strings.ToUpper(strings.TrimPrefix(c, "#"))
}
