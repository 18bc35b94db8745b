package app

import (
	"context"

	"classroom-sim-service/internal/domain"
	"classroom-sim-service/internal/platform/logger"
)

// SessionRepository abstracts where live classroom sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(classroomID string) *Session
	Get(classroomID string) (*Session, bool)
	DeleteIfIdle(classroomID string)
	// Touch records activity on a classroom so long lessons stay visible as live.
	Touch(classroomID string)
	// Close stops every live session; used on shutdown.
	Close()
}

// ClassroomService contains the teaching use cases.
type ClassroomService struct {
	sessions SessionRepository
	progress progress
	log      *logger.Logger
}

// NewClassroomService wires sessions to a state store. A nil store keeps
// progress in memory for the lifetime of each session.
func NewClassroomService(sessions SessionRepository, store StateStore, log *logger.Logger) *ClassroomService {
	if log == nil {
		log = logger.Nop()
	}
	return &ClassroomService{
		sessions: sessions,
		progress: progress{store: store, log: log},
		log:      log,
	}
}

// Open returns the classroom, loading persisted progress the first time it is seen.
func (s *ClassroomService) Open(ctx context.Context, classroomID string) (domain.Snapshot, error) {
	session := s.sessions.GetOrCreate(classroomID)

	session.mu.Lock()
	defer session.mu.Unlock()
	if !session.loaded {
		session.classroom = s.progress.load(ctx, classroomID, session.engine)
		session.loaded = true
		s.log.Info("classroom opened", "classroom", classroomID, "ruleset", session.engine.Rules.Name,
			"history", len(session.classroom.History), "streak", session.classroom.Streak.Days)
	}
	return session.engine.Snapshot(session.classroom), nil
}

// StartLesson submits a lesson plan and, when the ruleset has one, starts the passive tick.
func (s *ClassroomService) StartLesson(ctx context.Context, classroomID string, plan domain.LessonPlan) (domain.Snapshot, error) {
	return s.mutate(classroomID, func(session *Session) error {
		c := session.classroom
		if err := session.engine.StartLesson(c, plan); err != nil {
			return err
		}
		s.progress.saveStreak(ctx, c)
		if rules := session.engine.Rules; rules.TickEnabled {
			session.startTickerLocked(rules.TickInterval)
		}
		s.log.Info("lesson started", "classroom", classroomID, "lesson", c.Lesson.ID,
			"topic", c.Lesson.Topic, "mode", c.Lesson.Mode, "streak", c.Streak.Days)
		return nil
	})
}

// Teach delivers an explanation typed by the teacher.
func (s *ClassroomService) Teach(ctx context.Context, classroomID, text string) (domain.Snapshot, domain.Evaluation, error) {
	var eval domain.Evaluation
	snap, err := s.mutate(classroomID, func(session *Session) error {
		c := session.classroom
		logged := len(c.History)
		var err error
		eval, err = session.engine.Teach(c, text)
		if err != nil {
			return err
		}
		if len(c.History) != logged {
			s.progress.saveHistory(ctx, c)
		}
		return nil
	})
	return snap, eval, err
}

// SubmitTranscript feeds speech-to-text output into the same channel as Teach.
// Transcripts that arrive after the lesson ended are dropped.
func (s *ClassroomService) SubmitTranscript(ctx context.Context, classroomID, transcript string) (domain.Snapshot, domain.Evaluation, error) {
	return s.Teach(ctx, classroomID, transcript)
}

// MiniCheck runs a quick check for understanding; it reports whether review is needed.
func (s *ClassroomService) MiniCheck(ctx context.Context, classroomID string) (domain.Snapshot, bool, error) {
	var needsReview bool
	snap, err := s.mutate(classroomID, func(session *Session) error {
		c := session.classroom
		logged := len(c.History)
		var err error
		needsReview, err = session.engine.MiniCheck(c)
		if err != nil {
			return err
		}
		if len(c.History) != logged {
			s.progress.saveHistory(ctx, c)
		}
		return nil
	})
	return snap, needsReview, err
}

// Respond answers the oldest raised hand and returns it for text-to-speech playback.
func (s *ClassroomService) Respond(ctx context.Context, classroomID string) (domain.Snapshot, domain.Question, error) {
	var answered domain.Question
	snap, err := s.mutate(classroomID, func(session *Session) error {
		c := session.classroom
		logged := len(c.History)
		var err error
		answered, err = session.engine.Respond(c)
		if err != nil {
			return err
		}
		if len(c.History) != logged {
			s.progress.saveHistory(ctx, c)
		}
		return nil
	})
	return snap, answered, err
}

// EndLesson stops the tick and any voice capture, then folds the lesson into progress.
// No tick or transcript mutates the classroom once EndLesson has returned.
func (s *ClassroomService) EndLesson(ctx context.Context, classroomID string) (domain.Snapshot, *domain.Reflection, error) {
	var reflection *domain.Reflection
	snap, err := s.mutate(classroomID, func(session *Session) error {
		c := session.classroom
		if !c.Live() {
			return domain.ErrNoActiveLesson
		}
		session.stopTickerLocked()
		session.stopCapturesLocked()

		var err error
		reflection, err = session.engine.EndLesson(c)
		if err != nil {
			return err
		}
		s.progress.saveRoster(ctx, c, session.engine.Rules)
		s.progress.saveHistory(ctx, c)
		s.log.Info("lesson ended", "classroom", classroomID, "lesson", reflection.LessonID,
			"mastery", reflection.AverageMastery, "confidence", reflection.AverageConfidence)
		return nil
	})
	return snap, reflection, err
}

// ReturnToLobby dismisses the reflection so the next lesson can be planned.
func (s *ClassroomService) ReturnToLobby(_ context.Context, classroomID string) (domain.Snapshot, error) {
	return s.mutate(classroomID, func(session *Session) error {
		session.engine.ReturnToLobby(session.classroom)
		return nil
	})
}

// AttachCapture registers a voice capture to be stopped when the lesson ends.
func (s *ClassroomService) AttachCapture(_ context.Context, classroomID string, capture Capture) error {
	session, ok := s.sessions.Get(classroomID)
	if !ok {
		return domain.ErrClassroomNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if !session.classroom.Live() {
		capture.Stop()
		return domain.ErrNoActiveLesson
	}
	session.captures = append(session.captures, capture)
	return nil
}

// ReportCaptureError surfaces a voice failure as an advisory notice.
func (s *ClassroomService) ReportCaptureError(_ context.Context, classroomID string, captureErr error) (domain.Snapshot, error) {
	return s.mutate(classroomID, func(session *Session) error {
		session.classroom.Notice = "Voice capture error: " + captureErr.Error()
		s.log.Warn("voice capture failed", "classroom", classroomID, "error", captureErr)
		return nil
	})
}

// Snapshot returns the current classroom without changing it.
func (s *ClassroomService) Snapshot(_ context.Context, classroomID string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(classroomID)
	if !ok {
		return domain.Snapshot{}, domain.ErrClassroomNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.engine.Snapshot(session.classroom), nil
}

// Subscribe returns a channel that receives a snapshot after every mutation.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ClassroomService) Subscribe(_ context.Context, classroomID string) (<-chan domain.Snapshot, func(), error) {
	session, ok := s.sessions.Get(classroomID)
	if !ok {
		return nil, nil, domain.ErrClassroomNotFound
	}
	ch, cancel, ok := session.subscribe()
	if !ok {
		return nil, nil, domain.ErrClassroomNotFound
	}
	return ch, cancel, nil
}

// Leave drops the session once nobody watches it and no lesson is running.
func (s *ClassroomService) Leave(_ context.Context, classroomID string) {
	s.sessions.DeleteIfIdle(classroomID)
}

// mutate runs fn under the session lock and broadcasts on success.
// Failed actions leave the classroom untouched and broadcast nothing.
func (s *ClassroomService) mutate(classroomID string, fn func(*Session) error) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(classroomID)
	if !ok {
		return domain.Snapshot{}, domain.ErrClassroomNotFound
	}
	snap, err := session.apply(fn)
	if err != nil {
		return snap, err
	}
	// outside the session lock: stores take their own lock before a session's
	s.sessions.Touch(classroomID)
	return snap, nil
}
