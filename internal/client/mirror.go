package client

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/zhouzirui/z-canvas/backend/internal/model/canvas"
	"github.com/zhouzirui/z-canvas/backend/internal/render"
)

// Mirror keeps a local surface in step with a remote canvas session. A
// primitive is painted locally only after the server acknowledged it.
type Mirror struct {
	client *Client
	id     string

	mu       sync.Mutex
	surface  *render.Surface
	elements []canvas.Primitive
}

// NewMirror creates a remote session and a blank local surface of the same size.
func NewMirror(ctx context.Context, c *Client, width, height int) (*Mirror, error) {
	id, err := c.Init(ctx, float64(width), float64(height))
	if err != nil {
		return nil, err
	}
	return &Mirror{
		client:  c,
		id:      id,
		surface: render.NewSurface(width, height),
	}, nil
}

// AttachMirror mirrors an existing session by replaying its element log.
func AttachMirror(ctx context.Context, c *Client, id string) (*Mirror, error) {
	info, err := c.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	elements, err := c.Elements(ctx, id)
	if err != nil {
		return nil, err
	}

	m := &Mirror{
		client:  c,
		id:      id,
		surface: render.NewSurface(info.Width, info.Height),
	}
	for _, p := range elements {
		if err := m.applyLocal(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ID returns the remote session id.
func (m *Mirror) ID() string { return m.id }

// AddRectangle draws a rectangle remotely and then locally.
func (m *Mirror) AddRectangle(ctx context.Context, opts canvas.RectangleOptions) error {
	if err := m.client.AddRectangle(ctx, m.id, opts); err != nil {
		return err
	}
	return m.applyLocal(opts.Primitive())
}

// AddCircle draws a circle remotely and then locally.
func (m *Mirror) AddCircle(ctx context.Context, opts canvas.CircleOptions) error {
	if err := m.client.AddCircle(ctx, m.id, opts); err != nil {
		return err
	}
	return m.applyLocal(opts.Primitive())
}

// AddText draws text remotely and then locally.
func (m *Mirror) AddText(ctx context.Context, opts canvas.TextOptions) error {
	if err := m.client.AddText(ctx, m.id, opts); err != nil {
		return err
	}
	return m.applyLocal(opts.Primitive())
}

// Elements returns a copy of the locally applied primitives.
func (m *Mirror) Elements() []canvas.Primitive {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]canvas.Primitive(nil), m.elements...)
}

// Snapshot returns a copy of the local surface.
func (m *Mirror) Snapshot() *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surface.Snapshot()
}

// At reports the local pixel at (x, y).
func (m *Mirror) At(x, y int) color.NRGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surface.At(x, y)
}

func (m *Mirror) applyLocal(p canvas.Primitive) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.surface.Apply(p); err != nil {
		return fmt.Errorf("mirror %s: %w", m.id, err)
	}
	m.elements = append(m.elements, p)
	return nil
}
