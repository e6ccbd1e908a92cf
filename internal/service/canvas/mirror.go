package canvas

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-canvas/backend/internal/model/canvas"
)

// Event announces a primitive that was applied to a session.
// Seq is its 1-based position in the element log.
type Event struct {
	Seq     int
	Element canvas.Primitive
}

// Subscription delivers a session's primitive stream to a preview client.
// Backlog holds the elements applied before the subscription started; Events
// continues from Seq len(Backlog)+1 without gaps. Events is closed when the
// subscriber falls too far behind or Close is called.
type Subscription struct {
	Info    canvas.SessionInfo
	Backlog []canvas.Primitive
	Events  <-chan Event

	once sync.Once
	sess *session
}

// Subscribe registers a mirror for the session.
func (s *Service) Subscribe(_ context.Context, id string) (*Subscription, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	ch := make(chan Event, s.opts.MirrorBuffer)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sub := &Subscription{
		Info:    sess.view(),
		Backlog: append([]canvas.Primitive(nil), sess.elements...),
		Events:  ch,
		sess:    sess,
	}
	sess.subscribers[sub] = ch
	return sub, nil
}

// Close unregisters the subscription. It is safe to call more than once.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.sess.mu.Lock()
		defer sub.sess.mu.Unlock()

		if ch, ok := sub.sess.subscribers[sub]; ok {
			delete(sub.sess.subscribers, sub)
			close(ch)
		}
	})
}

// publish must be called with sess.mu held. Subscribers whose buffer is full
// are dropped so drawing never waits on a preview.
func (sess *session) publish(ev Event, buffer int) {
	for sub, ch := range sess.subscribers {
		select {
		case ch <- ev:
		default:
			delete(sess.subscribers, sub)
			close(ch)
			log.Warn().Str("canvas", sess.info.ID).Int("buffer", buffer).Msg("mirror subscriber too slow, dropped")
		}
	}
}
