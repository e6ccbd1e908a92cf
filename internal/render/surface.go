// Package render rasterizes canvas primitives onto an in-memory RGBA surface,
// by wrapping rasterx for paths and x/image/font for text.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/zhouzirui/z-canvas/backend/internal/model/canvas"
)

// StrokeWidth is the outline width, in pixels, of unfilled shapes.
const StrokeWidth = 1.0

// coordinates beyond this magnitude are clamped before the fixed-point conversion.
const maxCoord = 1 << 20

// Surface is a fixed-size raster the primitives are painted onto.
// It is not safe for concurrent use.
type Surface struct {
	img    *image.RGBA
	filler *rasterx.Filler
	dasher *rasterx.Dasher
	faces  map[faceKey]font.Face
}

// NewSurface returns a fully transparent surface of the given size.
func NewSurface(width, height int) *Surface {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())

	s := &Surface{
		img:    img,
		filler: rasterx.NewFiller(width, height, scanner),
		dasher: rasterx.NewDasher(width, height, scanner),
		faces:  make(map[faceKey]font.Face),
	}
	s.filler.SetWinding(true)
	s.dasher.SetStroke(
		toFixed(StrokeWidth), toFixed(10), rasterx.ButtCap, rasterx.ButtCap,
		rasterx.FlatGap, rasterx.Miter, nil, 0,
	)
	return s
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.img.Bounds().Dx() }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.img.Bounds().Dy() }

// At returns the non-premultiplied color of the pixel at (x, y).
func (s *Surface) At(x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(s.img.RGBAAt(x, y)).(color.NRGBA)
}

// Snapshot copies the current pixels. Later drawing does not affect the copy.
func (s *Surface) Snapshot() *image.RGBA {
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}

// Apply paints p onto the surface. Geometry outside the surface is clipped.
func (s *Surface) Apply(p canvas.Primitive) error {
	switch p := p.(type) {
	case canvas.Rectangle:
		s.drawRectangle(p)
	case canvas.Circle:
		s.drawCircle(p)
	case canvas.Text:
		s.drawText(p)
	default:
		return fmt.Errorf("unsupported primitive %T", p)
	}
	return nil
}

func (s *Surface) drawRectangle(r canvas.Rectangle) {
	if r.Width == 0 && r.Height == 0 {
		return
	}
	minX, maxX := ordered(clamp(r.X), clamp(r.X+r.Width))
	minY, maxY := ordered(clamp(r.Y), clamp(r.Y+r.Height))

	paint := canvas.ResolveColor(r.Color)
	if r.IsFilled {
		s.filler.Clear()
		s.filler.SetColor(paint)
		rasterx.AddRect(minX, minY, maxX, maxY, 0, s.filler)
		s.filler.Draw()
		return
	}

	s.dasher.Clear()
	s.dasher.SetColor(paint)
	rasterx.AddRect(minX, minY, maxX, maxY, 0, s.dasher)
	s.dasher.Draw()
}

// drawCircle ignores non-positive radii.
func (s *Surface) drawCircle(c canvas.Circle) {
	if c.Radius <= 0 {
		return
	}
	cx, cy, radius := clamp(c.X), clamp(c.Y), clamp(c.Radius)

	paint := canvas.ResolveColor(c.Color)
	if c.IsFilled {
		s.filler.Clear()
		s.filler.SetColor(paint)
		rasterx.AddCircle(cx, cy, radius, s.filler)
		s.filler.Draw()
		return
	}

	s.dasher.Clear()
	s.dasher.SetColor(paint)
	rasterx.AddCircle(cx, cy, radius, s.dasher)
	s.dasher.Draw()
}

// drawText renders a single line with its alphabetic baseline at t.Y.
func (s *Surface) drawText(t canvas.Text) {
	content := flattenWhitespace(t.Content)
	if content == "" {
		return
	}

	face, err := s.face(t.FontFamily, t.FontSize)
	if err != nil {
		// the embedded fonts always parse; keep drawing with the fallback face.
		face = fallbackFace
	}

	dot := fixed.Point26_6{X: toFixed(clamp(t.X)), Y: toFixed(clamp(t.Y))}
	switch t.Align.Normalize() {
	case canvas.AlignCenter:
		dot.X -= font.MeasureString(face, content) / 2
	case canvas.AlignRight:
		dot.X -= font.MeasureString(face, content)
	}

	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(canvas.ResolveColor(t.Color)),
		Face: face,
		Dot:  dot,
	}
	d.DrawString(content)
}

func flattenWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', '\f', '\v':
			return ' '
		}
		return r
	}, s)
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func clamp(v float64) float64 {
	return math.Max(-maxCoord, math.Min(maxCoord, v))
}

func ordered(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}
