package canvas

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-canvas/backend/internal/export"
	"github.com/zhouzirui/z-canvas/backend/internal/model/canvas"
	"github.com/zhouzirui/z-canvas/backend/internal/render"
)

var (
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrSessionNotFound   = errors.New("canvas not found")
)

// Options configures the session store.
type Options struct {
	// MaxDimension caps width and height at creation; zero means unlimited.
	MaxDimension int
	// MirrorBuffer is the per-subscriber event backlog before it is dropped.
	MirrorBuffer int
	PDF          export.Options
}

// DefaultOptions returns an unlimited store with compressed PDF output.
func DefaultOptions() Options {
	return Options{MirrorBuffer: 64, PDF: export.DefaultOptions()}
}

// session owns one surface and its element log. mu serializes drawing,
// exporting and subscriber registration.
type session struct {
	mu          sync.Mutex
	info        canvas.SessionInfo
	surface     *render.Surface
	elements    []canvas.Primitive
	subscribers map[*Subscription]chan Event
}

// Service is the process-scoped canvas session store.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session
	opts     Options
}

// NewService bootstraps an empty in-memory store.
func NewService(opts Options) *Service {
	if opts.MirrorBuffer <= 0 {
		opts.MirrorBuffer = DefaultOptions().MirrorBuffer
	}
	return &Service{
		sessions: make(map[string]*session),
		opts:     opts,
	}
}

// CreateSession allocates a blank surface and an empty element log under a fresh id.
func (s *Service) CreateSession(_ context.Context, width, height int) (canvas.SessionInfo, error) {
	if width <= 0 || height <= 0 {
		return canvas.SessionInfo{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if limit := s.opts.MaxDimension; limit > 0 && (width > limit || height > limit) {
		return canvas.SessionInfo{}, fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidDimensions, width, height, limit)
	}

	sess := &session{
		info: canvas.SessionInfo{
			ID:        uuid.NewString(),
			Width:     width,
			Height:    height,
			CreatedAt: time.Now().UTC(),
		},
		surface:     render.NewSurface(width, height),
		elements:    make([]canvas.Primitive, 0, 16),
		subscribers: make(map[*Subscription]chan Event),
	}

	s.mu.Lock()
	s.sessions[sess.info.ID] = sess
	s.mu.Unlock()

	log.Debug().Str("canvas", sess.info.ID).Int("width", width).Int("height", height).Msg("canvas created")
	return sess.info, nil
}

// GetSession retrieves a session view by identifier.
func (s *Service) GetSession(_ context.Context, id string) (canvas.SessionInfo, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return canvas.SessionInfo{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// Elements returns a copy of the element log in application order.
func (s *Service) Elements(_ context.Context, id string) ([]canvas.Primitive, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]canvas.Primitive(nil), sess.elements...), nil
}

// Apply paints p onto the session surface and appends it to the log.
// Nothing is appended when painting fails.
func (s *Service) Apply(_ context.Context, id string, p canvas.Primitive) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.surface.Apply(p); err != nil {
		return fmt.Errorf("apply %s: %w", p.Kind(), err)
	}
	sess.elements = append(sess.elements, p)
	sess.publish(Event{Seq: len(sess.elements), Element: p}, s.opts.MirrorBuffer)
	return nil
}

// ExportPDF writes a single-page PDF of the surface as of the call.
func (s *Service) ExportPDF(_ context.Context, id string, w io.Writer) error {
	snap, err := s.snapshot(id)
	if err != nil {
		return err
	}
	return export.PDF(w, snap, s.opts.PDF)
}

// ExportPNG writes the surface as of the call as a PNG image.
func (s *Service) ExportPNG(_ context.Context, id string, w io.Writer) error {
	snap, err := s.snapshot(id)
	if err != nil {
		return err
	}
	return export.PNG(w, snap)
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) snapshot(id string) (*image.RGBA, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.surface.Snapshot(), nil
}

func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// view must be called with sess.mu held.
func (sess *session) view() canvas.SessionInfo {
	info := sess.info
	info.ElementCount = len(sess.elements)
	return info
}
