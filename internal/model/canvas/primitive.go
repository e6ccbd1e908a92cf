package canvas

import (
	"encoding/json"
	"fmt"
)

// Kind names a primitive variant in requests, the element log and mirror feeds.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindText      Kind = "text"
)

// Primitive is a drawable element appended to a canvas session.
// Implementations are plain values and are never mutated after construction.
type Primitive interface {
	Kind() Kind
}

// Rectangle is an axis-aligned box anchored at its top-left corner.
type Rectangle struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Color    string  `json:"color"`
	IsFilled bool    `json:"isFilled"`
}

// Circle is a full arc centered at (X, Y).
type Circle struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius"`
	Color    string  `json:"color"`
	IsFilled bool    `json:"isFilled"`
}

// Text is a single line of text whose baseline starts at Y.
type Text struct {
	Content    string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	Color      string  `json:"color"`
	Align      Align   `json:"align"`
}

func (Rectangle) Kind() Kind { return KindRectangle }
func (Circle) Kind() Kind    { return KindCircle }
func (Text) Kind() Kind      { return KindText }

// MarshalJSON tags the rectangle with its kind.
func (r Rectangle) MarshalJSON() ([]byte, error) {
	type plain Rectangle
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindRectangle, plain(r)})
}

// MarshalJSON tags the circle with its kind.
func (c Circle) MarshalJSON() ([]byte, error) {
	type plain Circle
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindCircle, plain(c)})
}

// MarshalJSON tags the text with its kind.
func (t Text) MarshalJSON() ([]byte, error) {
	type plain Text
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindText, plain(t)})
}

// UnmarshalElement decodes a kind-tagged element produced by MarshalJSON.
func UnmarshalElement(data []byte) (Primitive, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode element: %w", err)
	}

	switch head.Type {
	case KindRectangle:
		var r Rectangle
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode rectangle: %w", err)
		}
		return r, nil
	case KindCircle:
		var c Circle
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode circle: %w", err)
		}
		return c, nil
	case KindText:
		var t Text
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode text: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown element type %q", head.Type)
	}
}
