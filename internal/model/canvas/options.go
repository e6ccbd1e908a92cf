package canvas

import "strings"

// Defaults applied to optional request fields.
const (
	DefaultColor      = "#000000"
	DefaultIsFilled   = true
	DefaultFontSize   = 12.0
	DefaultFontFamily = "Arial"
	DefaultAlign      = AlignLeft
)

// Align is the horizontal text alignment relative to the anchor point.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
	AlignStart  Align = "start"
	AlignEnd    Align = "end"
)

// Normalize maps start/end onto left/right and unknown values onto the default.
func (a Align) Normalize() Align {
	switch Align(strings.ToLower(strings.TrimSpace(string(a)))) {
	case AlignLeft, AlignStart:
		return AlignLeft
	case AlignCenter:
		return AlignCenter
	case AlignRight, AlignEnd:
		return AlignRight
	default:
		return DefaultAlign
	}
}

// RectangleOptions is the request record for a rectangle. Nil fields take defaults.
type RectangleOptions struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Color    *string `json:"color,omitempty"`
	IsFilled *bool   `json:"isFilled,omitempty"`
}

// Primitive resolves the options into an immutable rectangle.
func (o RectangleOptions) Primitive() Rectangle {
	return Rectangle{
		X:        o.X,
		Y:        o.Y,
		Width:    o.Width,
		Height:   o.Height,
		Color:    stringOr(o.Color, DefaultColor),
		IsFilled: boolOr(o.IsFilled, DefaultIsFilled),
	}
}

// CircleOptions is the request record for a circle. Nil fields take defaults.
type CircleOptions struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius"`
	Color    *string `json:"color,omitempty"`
	IsFilled *bool   `json:"isFilled,omitempty"`
}

// Primitive resolves the options into an immutable circle.
func (o CircleOptions) Primitive() Circle {
	return Circle{
		X:        o.X,
		Y:        o.Y,
		Radius:   o.Radius,
		Color:    stringOr(o.Color, DefaultColor),
		IsFilled: boolOr(o.IsFilled, DefaultIsFilled),
	}
}

// TextOptions is the request record for text. Nil fields take defaults.
type TextOptions struct {
	Text       string   `json:"text"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	FontSize   *float64 `json:"fontSize,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty"`
	Color      *string  `json:"color,omitempty"`
	Align      *string  `json:"align,omitempty"`
}

// Primitive resolves the options into an immutable text element.
// A non-positive font size is replaced by the default.
func (o TextOptions) Primitive() Text {
	size := DefaultFontSize
	if o.FontSize != nil && *o.FontSize > 0 {
		size = *o.FontSize
	}

	align := DefaultAlign
	if o.Align != nil {
		align = Align(*o.Align).Normalize()
	}

	return Text{
		Content:    o.Text,
		X:          o.X,
		Y:          o.Y,
		FontSize:   size,
		FontFamily: stringOr(o.FontFamily, DefaultFontFamily),
		Color:      stringOr(o.Color, DefaultColor),
		Align:      align,
	}
}

func stringOr(v *string, fallback string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fallback
	}
	return *v
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
