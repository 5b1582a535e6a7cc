// internal/infra/session/memory_store.go
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

const (
	DefaultMaxSessions   = 10_000
	DefaultSweepInterval = time.Minute
)

var ErrStoreClosed = errors.New("session store: closed")

// MemoryStore is a bounded, expiry-aware launch session store. Consume is
// read-and-delete under one lock, so a session can be consumed at most once.
// Sessions do not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]launch.Session
	order   []string // insertion order, for eviction
	max     int
	closed  bool
	now     func() time.Time
	stop    chan struct{}
	stopped sync.WaitGroup

	onEvict func(evicted []launch.Session)
}

var _ launch.SessionStore = (*MemoryStore)(nil)

// NewMemoryStore starts a janitor purging expired sessions every sweep.
// max <= 0 and sweep <= 0 fall back to defaults.
func NewMemoryStore(max int, sweep time.Duration) *MemoryStore {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	if sweep <= 0 {
		sweep = DefaultSweepInterval
	}
	s := &MemoryStore{
		byID: make(map[string]launch.Session),
		max:  max,
		now:  time.Now,
		stop: make(chan struct{}),
	}
	s.stopped.Add(1)
	go s.janitor(sweep)
	return s
}

func (s *MemoryStore) Create(_ context.Context, sess launch.Session) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrStoreClosed
	}

	id := uuid.NewString()
	for {
		if _, dup := s.byID[id]; !dup {
			break
		}
		id = uuid.NewString()
	}
	sess.ID = id

	var evicted []launch.Session
	for len(s.byID) >= s.max && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		if old, ok := s.byID[oldest]; ok {
			delete(s.byID, oldest)
			evicted = append(evicted, old)
		}
	}

	s.byID[id] = sess
	s.order = append(s.order, id)
	fn := s.onEvict
	s.mu.Unlock()

	if len(evicted) > 0 {
		log.Printf("[session] capacity reached, evicted=%d", len(evicted))
		notifyEvict(fn, evicted)
	}
	return id, nil
}

// Consume returns the session and deletes it. Expired sessions are deleted,
// reported absent and handed to the eviction callback.
func (s *MemoryStore) Consume(_ context.Context, id string) (launch.Session, bool) {
	s.mu.Lock()
	sess, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return launch.Session{}, false
	}
	delete(s.byID, id)
	expired := sess.Expired(s.now())
	fn := s.onEvict
	s.mu.Unlock()

	if expired {
		notifyEvict(fn, []launch.Session{sess})
		return launch.Session{}, false
	}
	return sess, true
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	now := s.now()
	var expired []launch.Session
	live := s.order[:0]
	for _, id := range s.order {
		sess, ok := s.byID[id]
		if !ok {
			continue
		}
		if sess.Expired(now) {
			delete(s.byID, id)
			expired = append(expired, sess)
			continue
		}
		live = append(live, id)
	}
	s.order = live
	fn := s.onEvict
	s.mu.Unlock()

	notifyEvict(fn, expired)
	return len(expired)
}

// Close stops the janitor. Further Create calls fail.
func (s *MemoryStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()

	s.stopped.Wait()
}

func (s *MemoryStore) janitor(every time.Duration) {
	defer s.stopped.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("[session] purged expired sessions n=%d", n)
			}
		case <-s.stop:
			return
		}
	}
}

// SetOnEvict registers fn to receive sessions removed unexecuted: by a
// sweep, by capacity eviction, or found expired on Consume. fn runs after the
// store lock is released.
func (s *MemoryStore) SetOnEvict(fn func(evicted []launch.Session)) {
	s.mu.Lock()
	s.onEvict = fn
	s.mu.Unlock()
}

func notifyEvict(fn func([]launch.Session), evicted []launch.Session) {
	if fn != nil && len(evicted) > 0 {
		fn(evicted)
	}
}
