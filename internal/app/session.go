package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"classroom-sim-service/internal/domain"
	"classroom-sim-service/internal/sim"
)

// SessionFactory builds the live session for a classroom id.
type SessionFactory func(classroomID string) *Session

// NewSessionFactory seeds a fresh engine per session. A zero seed uses the clock.
func NewSessionFactory(rules sim.Ruleset, seed int64) SessionFactory {
	return func(classroomID string) *Session {
		src := seed
		if src == 0 {
			src = time.Now().UnixNano()
		}
		return NewSession(classroomID, sim.NewEngine(rules, rand.New(rand.NewSource(src))))
	}
}

// Capture is an in-progress voice capture feeding transcripts into a lesson.
type Capture interface {
	Stop()
}

// Session is the single writer for one classroom. Every mutation of the
// classroom, including passive ticks, happens under mu.
type Session struct {
	engine *sim.Engine

	mu          sync.Mutex
	classroom   *sim.Classroom
	loaded      bool
	subscribers map[chan domain.Snapshot]struct{}
	captures    []Capture

	tickGen    uint64
	tickCancel context.CancelFunc
	tickDone   chan struct{}
}

// NewSession wraps an engine; the classroom is loaded on first Open.
func NewSession(id string, engine *sim.Engine) *Session {
	return &Session{
		engine:      engine,
		classroom:   sim.NewClassroom(id, nil),
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
}

// IsIdle reports whether nobody is watching and no lesson is running.
func (s *Session) IsIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers) == 0 && !s.classroom.Live()
}

// Stop cancels the passive tick and waits for it to exit.
func (s *Session) Stop() {
	s.mu.Lock()
	done := s.stopTickerLocked()
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// subscribe fails until the classroom has been loaded by Open.
func (s *Session) subscribe() (<-chan domain.Snapshot, func(), bool) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return nil, nil, false
	}
	s.subscribers[ch] = struct{}{}
	initial := s.engine.Snapshot(s.classroom)
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, true
}

// apply runs fn under mu; a nil error broadcasts the new snapshot.
func (s *Session) apply(fn func(*Session) error) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return domain.Snapshot{}, domain.ErrClassroomNotFound
	}
	if err := fn(s); err != nil {
		return s.engine.Snapshot(s.classroom), err
	}
	return s.broadcastLocked(), nil
}

func (s *Session) broadcastLocked() domain.Snapshot {
	snap := s.engine.Snapshot(s.classroom)
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the stale update so a slow renderer never blocks the class
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

// startTickerLocked runs the passive tick for the current lesson.
func (s *Session) startTickerLocked(interval time.Duration) {
	s.stopTickerLocked()

	ctx, cancel := context.WithCancel(context.Background())
	gen := s.tickGen
	done := make(chan struct{})
	s.tickCancel = cancel
	s.tickDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(gen)
			}
		}
	}()
}

// stopTickerLocked invalidates any tick already waiting on mu and cancels the loop.
func (s *Session) stopTickerLocked() chan struct{} {
	s.tickGen++
	done := s.tickDone
	if s.tickCancel != nil {
		s.tickCancel()
	}
	s.tickCancel = nil
	s.tickDone = nil
	return done
}

func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.tickGen || !s.classroom.Live() {
		return
	}
	if s.engine.Tick(s.classroom) {
		s.broadcastLocked()
	}
}

func (s *Session) stopCapturesLocked() {
	for _, c := range s.captures {
		c.Stop()
	}
	s.captures = nil
}
