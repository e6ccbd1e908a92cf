package canvas

import (
	"encoding/json"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#000000":               {A: 255},
		"#f00":                  {R: 255, A: 255},
		"#00ff0080":             {G: 255, A: 128},
		"#0000FF":               {B: 255, A: 255},
		"red":                   {R: 255, A: 255},
		"Blue":                  {B: 255, A: 255},
		" green ":               {G: 128, A: 255},
		"rgb(10, 20, 30)":       {R: 10, G: 20, B: 30, A: 255},
		"rgba(255,0,0,0.5)":     {R: 255, A: 128},
		"rgb(100% 0% 0% / 50%)": {R: 255, A: 128},
		"transparent":           {},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseColorRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "#12", "#ggg", "notacolor", "rgb(1,2)", "rgb(1,2,3"} {
		_, err := ParseColor(in)
		assert.Error(t, err, in)
	}
}

func TestResolveColorFallsBackToBlack(t *testing.T) {
	assert.Equal(t, Black, ResolveColor("bogus"))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, ResolveColor("red"))
}

func TestRectangleOptionsDefaults(t *testing.T) {
	var opts RectangleOptions
	require.NoError(t, json.Unmarshal([]byte(`{"x":1,"y":2,"width":3,"height":4}`), &opts))

	rect := opts.Primitive()
	assert.Equal(t, Rectangle{X: 1, Y: 2, Width: 3, Height: 4, Color: "#000000", IsFilled: true}, rect)
}

func TestCircleOptionsExplicitValues(t *testing.T) {
	var opts CircleOptions
	require.NoError(t, json.Unmarshal([]byte(`{"x":5,"y":6,"radius":7,"color":"blue","isFilled":false}`), &opts))

	assert.Equal(t, Circle{X: 5, Y: 6, Radius: 7, Color: "blue", IsFilled: false}, opts.Primitive())
}

func TestTextOptionsDefaults(t *testing.T) {
	var opts TextOptions
	require.NoError(t, json.Unmarshal([]byte(`{"text":"hi","x":1,"y":2}`), &opts))

	txt := opts.Primitive()
	assert.Equal(t, "hi", txt.Content)
	assert.Equal(t, 12.0, txt.FontSize)
	assert.Equal(t, "Arial", txt.FontFamily)
	assert.Equal(t, "#000000", txt.Color)
	assert.Equal(t, AlignLeft, txt.Align)
}

func TestTextOptionsNormalizesAlignAndSize(t *testing.T) {
	size := -3.0
	align := "END"
	txt := TextOptions{Text: "x", FontSize: &size, Align: &align}.Primitive()
	assert.Equal(t, DefaultFontSize, txt.FontSize)
	assert.Equal(t, AlignRight, txt.Align)

	bogus := "justify"
	assert.Equal(t, AlignLeft, TextOptions{Align: &bogus}.Primitive().Align)
}

func TestElementRoundTrip(t *testing.T) {
	elements := []Primitive{
		Rectangle{X: 1, Y: 2, Width: 3, Height: 4, Color: "red", IsFilled: true},
		Circle{X: 1, Y: 2, Radius: 3, Color: "blue"},
		Text{Content: "hello", X: 1, Y: 2, FontSize: 20, FontFamily: "Arial", Color: "green", Align: AlignCenter},
	}
	for _, p := range elements {
		data, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"type":"`+string(p.Kind())+`"`)

		decoded, err := UnmarshalElement(data)
		require.NoError(t, err)
		assert.Equal(t, p, decoded)
	}
}

func TestUnmarshalElementUnknownType(t *testing.T) {
	_, err := UnmarshalElement([]byte(`{"type":"triangle"}`))
	assert.Error(t, err)
}
