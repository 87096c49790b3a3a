// Package session keeps one form controller per browser session in memory,
// expiring idle sessions.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/Katlearn/cablevision-form/internal/form"
	"github.com/Katlearn/cablevision-form/internal/signature"
)

var ErrNotFound = errors.New("session not found")

// Session pairs a controller with the signature canvas it reads from.
type Session struct {
	ID         string
	Controller *form.Controller
	Canvas     *signature.Canvas
	CreatedAt  time.Time
}

// Factory builds the controller and canvas of a new session.
type Factory func() (*form.Controller, *signature.Canvas, error)

type Store struct {
	cache   *cache.Cache
	ttl     time.Duration
	factory Factory
}

func NewStore(ttl time.Duration, factory Factory) *Store {
	return &Store{
		cache:   cache.New(ttl, 2*ttl),
		ttl:     ttl,
		factory: factory,
	}
}

func (s *Store) Create() (*Session, error) {
	ctrl, canvas, err := s.factory()
	if err != nil {
		return nil, err
	}
	sess := &Session{
		ID:         uuid.NewString(),
		Controller: ctrl,
		Canvas:     canvas,
		CreatedAt:  time.Now().UTC(),
	}
	s.cache.Set(sess.ID, sess, s.ttl)
	return sess, nil
}

// Get returns the session and extends its lifetime.
func (s *Store) Get(id string) (*Session, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	sess := v.(*Session)
	s.cache.Set(id, sess, s.ttl)
	return sess, nil
}

func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

func (s *Store) Count() int {
	return s.cache.ItemCount()
}
