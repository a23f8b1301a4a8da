package tablereport

// CellStyle is a partial cell style. Unset leaves ("" strings, zero numbers,
// nil pointers) inherit from earlier layers when styles are resolved.
type CellStyle struct {
	Font      *FontStyle      `yaml:"font,omitempty" json:"font,omitempty"`
	Fill      *FillStyle      `yaml:"fill,omitempty" json:"fill,omitempty"`
	Border    *BorderStyle    `yaml:"border,omitempty" json:"border,omitempty"`
	Alignment *AlignmentStyle `yaml:"alignment,omitempty" json:"alignment,omitempty"`
	NumFmt    string          `yaml:"num_fmt,omitempty" json:"num_fmt,omitempty"`
	Locked    *bool           `yaml:"locked,omitempty" json:"locked,omitempty"`
}

// FontStyle defines font properties.
type FontStyle struct {
	Name      string  `yaml:"name,omitempty" json:"name,omitempty"`
	Size      float64 `yaml:"size,omitempty" json:"size,omitempty"`
	Bold      *bool   `yaml:"bold,omitempty" json:"bold,omitempty"`
	Italic    *bool   `yaml:"italic,omitempty" json:"italic,omitempty"`
	Underline string  `yaml:"underline,omitempty" json:"underline,omitempty"` // "single", "double"
	Color     string  `yaml:"color,omitempty" json:"color,omitempty"`         // Hex color e.g. "#FF0000"
}

// FillStyle defines the cell background.
type FillStyle struct {
	Color   string `yaml:"color,omitempty" json:"color,omitempty"`
	Pattern int    `yaml:"pattern,omitempty" json:"pattern,omitempty"` // 1 = solid
}

// BorderStyle defines the four cell borders independently.
type BorderStyle struct {
	Top    *BorderSide `yaml:"top,omitempty" json:"top,omitempty"`
	Left   *BorderSide `yaml:"left,omitempty" json:"left,omitempty"`
	Bottom *BorderSide `yaml:"bottom,omitempty" json:"bottom,omitempty"`
	Right  *BorderSide `yaml:"right,omitempty" json:"right,omitempty"`
}

// BorderSide defines one border line.
type BorderSide struct {
	Style string `yaml:"style,omitempty" json:"style,omitempty"` // "thin", "medium", "thick", "dashed", "dotted", "double", "hair"
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// AlignmentStyle defines text placement.
type AlignmentStyle struct {
	Horizontal   string `yaml:"horizontal,omitempty" json:"horizontal,omitempty"` // "left", "center", "right"
	Vertical     string `yaml:"vertical,omitempty" json:"vertical,omitempty"`     // "top", "center", "bottom"
	WrapText     *bool  `yaml:"wrap_text,omitempty" json:"wrap_text,omitempty"`
	Indent       int    `yaml:"indent,omitempty" json:"indent,omitempty"`
	TextRotation int    `yaml:"text_rotation,omitempty" json:"text_rotation,omitempty"`
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// AllBorders returns a border style with the same line on every side.
func AllBorders(style, color string) *BorderStyle {
	side := func() *BorderSide { return &BorderSide{Style: style, Color: color} }
	return &BorderStyle{Top: side(), Left: side(), Bottom: side(), Right: side()}
}

// Resolve merges style layers from left to right. A set leaf of a later layer
// overrides the same leaf of earlier layers; nil layers are skipped. Resolve
// returns nil when every layer is nil and never aliases its inputs.
func Resolve(layers ...*CellStyle) *CellStyle {
	var out *CellStyle
	for _, l := range layers {
		if l == nil {
			continue
		}
		if out == nil {
			out = &CellStyle{}
		}
		out.merge(l)
	}
	return out
}

func (s *CellStyle) merge(o *CellStyle) {
	if o.Font != nil {
		if s.Font == nil {
			s.Font = &FontStyle{}
		}
		s.Font.merge(o.Font)
	}
	if o.Fill != nil {
		if s.Fill == nil {
			s.Fill = &FillStyle{}
		}
		if o.Fill.Color != "" {
			s.Fill.Color = o.Fill.Color
		}
		if o.Fill.Pattern != 0 {
			s.Fill.Pattern = o.Fill.Pattern
		}
	}
	if o.Border != nil {
		if s.Border == nil {
			s.Border = &BorderStyle{}
		}
		s.Border.Top = mergeSide(s.Border.Top, o.Border.Top)
		s.Border.Left = mergeSide(s.Border.Left, o.Border.Left)
		s.Border.Bottom = mergeSide(s.Border.Bottom, o.Border.Bottom)
		s.Border.Right = mergeSide(s.Border.Right, o.Border.Right)
	}
	if o.Alignment != nil {
		if s.Alignment == nil {
			s.Alignment = &AlignmentStyle{}
		}
		s.Alignment.merge(o.Alignment)
	}
	if o.NumFmt != "" {
		s.NumFmt = o.NumFmt
	}
	if o.Locked != nil {
		s.Locked = Bool(*o.Locked)
	}
}

func (f *FontStyle) merge(o *FontStyle) {
	if o.Name != "" {
		f.Name = o.Name
	}
	if o.Size != 0 {
		f.Size = o.Size
	}
	if o.Bold != nil {
		f.Bold = Bool(*o.Bold)
	}
	if o.Italic != nil {
		f.Italic = Bool(*o.Italic)
	}
	if o.Underline != "" {
		f.Underline = o.Underline
	}
	if o.Color != "" {
		f.Color = o.Color
	}
}

func (a *AlignmentStyle) merge(o *AlignmentStyle) {
	if o.Horizontal != "" {
		a.Horizontal = o.Horizontal
	}
	if o.Vertical != "" {
		a.Vertical = o.Vertical
	}
	if o.WrapText != nil {
		a.WrapText = Bool(*o.WrapText)
	}
	if o.Indent != 0 {
		a.Indent = o.Indent
	}
	if o.TextRotation != 0 {
		a.TextRotation = o.TextRotation
	}
}

func mergeSide(s, o *BorderSide) *BorderSide {
	if o == nil {
		return s
	}
	out := &BorderSide{}
	if s != nil {
		*out = *s
	}
	if o.Style != "" {
		out.Style = o.Style
	}
	if o.Color != "" {
		out.Color = o.Color
	}
	return out
}
