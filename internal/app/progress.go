package app

import (
	"context"
	"encoding/json"
	"errors"

	"classroom-sim-service/internal/domain"
	"classroom-sim-service/internal/platform/logger"
	"classroom-sim-service/internal/sim"
)

// Keys of the persisted per-classroom blobs.
const (
	KeyHistory  = "history"
	KeyStreak   = "streak"
	KeyStudents = "students"
)

// StateStore persists opaque JSON blobs per classroom.
// Load returns domain.ErrBlobNotFound for keys never saved.
type StateStore interface {
	Load(ctx context.Context, classroomID, key string) ([]byte, error)
	Save(ctx context.Context, classroomID, key string, data []byte) error
}

// progress moves classroom state in and out of a StateStore.
// Reads never fail: missing or malformed blobs fall back to defaults.
type progress struct {
	store StateStore
	log   *logger.Logger
}

func (p progress) load(ctx context.Context, classroomID string, e *sim.Engine) *sim.Classroom {
	var students []domain.Student
	if e.Rules.PersistRoster {
		if raw, ok := p.read(ctx, classroomID, KeyStudents); ok {
			students = decodeRoster(raw, e.Rules)
		}
	}
	if students == nil {
		students = sim.NewRoster(e.Rand, e.Rules)
	}

	c := sim.NewClassroom(classroomID, students)
	if raw, ok := p.read(ctx, classroomID, KeyHistory); ok {
		c.History = decodeHistory(raw, e.Rules.HistoryCap)
	}
	if raw, ok := p.read(ctx, classroomID, KeyStreak); ok {
		c.Streak = decodeStreak(raw)
	}
	return c
}

func (p progress) read(ctx context.Context, classroomID, key string) ([]byte, bool) {
	if p.store == nil {
		return nil, false
	}
	raw, err := p.store.Load(ctx, classroomID, key)
	if err != nil {
		if !errors.Is(err, domain.ErrBlobNotFound) {
			p.log.Warn("load classroom state failed, using defaults", "classroom", classroomID, "key", key, "error", err)
		}
		return nil, false
	}
	return raw, true
}

func (p progress) write(ctx context.Context, classroomID, key string, v any) {
	if p.store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		p.log.Error("encode classroom state failed", "classroom", classroomID, "key", key, "error", err)
		return
	}
	if err := p.store.Save(ctx, classroomID, key, data); err != nil {
		p.log.Error("save classroom state failed", "classroom", classroomID, "key", key, "error", err)
	}
}

func (p progress) saveStreak(ctx context.Context, c *sim.Classroom) {
	p.write(ctx, c.ID, KeyStreak, c.Streak)
}

func (p progress) saveHistory(ctx context.Context, c *sim.Classroom) {
	history := c.History
	if history == nil {
		history = []domain.HistorySummary{}
	}
	p.write(ctx, c.ID, KeyHistory, history)
}

func (p progress) saveRoster(ctx context.Context, c *sim.Classroom, rules sim.Ruleset) {
	if !rules.PersistRoster {
		return
	}
	p.write(ctx, c.ID, KeyStudents, c.Students)
}

func decodeHistory(raw []byte, limit int) []domain.HistorySummary {
	var history []domain.HistorySummary
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil
	}
	return sim.TrimHistory(history, limit)
}

func decodeStreak(raw []byte) domain.Streak {
	var streak domain.Streak
	if err := json.Unmarshal(raw, &streak); err != nil || streak.Days < 0 {
		return domain.Streak{}
	}
	return streak
}

// decodeRoster returns nil when the blob is malformed or no longer matches the seating.
func decodeRoster(raw []byte, rules sim.Ruleset) []domain.Student {
	var students []domain.Student
	if err := json.Unmarshal(raw, &students); err != nil {
		return nil
	}
	if !sim.ValidRoster(students) {
		return nil
	}
	sim.NormalizeRoster(students, rules)
	return students
}
