package sim

import (
	"fmt"
	"strings"
	"time"

	"classroom-sim-service/internal/domain"
	"github.com/google/uuid"
)

// Classroom is the whole mutable state of one simulated class.
type Classroom struct {
	ID         string
	Phase      domain.Phase
	Lesson     *domain.Lesson
	Students   []domain.Student
	Queue      []domain.Question
	History    []domain.HistorySummary
	Streak     domain.Streak
	Notice     string
	Reflection *domain.Reflection

	overtimeNotified bool
}

// NewClassroom returns a classroom waiting in the lobby.
func NewClassroom(id string, students []domain.Student) *Classroom {
	return &Classroom{
		ID:       id,
		Phase:    domain.PhaseLobby,
		Students: students,
	}
}

// Live reports whether a lesson is running.
func (c *Classroom) Live() bool {
	return c.Phase == domain.PhaseLesson && c.Lesson != nil
}

// Engine applies the rules to a classroom. It holds no classroom state;
// callers serialize access to each Classroom.
type Engine struct {
	Rules Ruleset
	Rand  Rand
	Now   func() time.Time
	NewID func() string
}

// NewEngine builds an engine with wall-clock time and uuid lesson ids.
func NewEngine(rules Ruleset, r Rand) *Engine {
	return &Engine{
		Rules: rules,
		Rand:  r,
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// StartLesson moves the classroom from lobby (or reflection) into a lesson.
func (e *Engine) StartLesson(c *Classroom, plan domain.LessonPlan) error {
	topic := strings.TrimSpace(plan.Topic)
	if topic == "" {
		return domain.ErrEmptyTopic
	}
	if c.Live() {
		return domain.ErrLessonInProgress
	}

	if !e.Rules.PersistRoster || !ValidRoster(c.Students) {
		c.Students = NewRoster(e.Rand, e.Rules)
	}
	for i := range c.Students {
		s := &c.Students[i]
		s.SessionMastery = s.Mastery
		s.SessionConfidence = s.Confidence
		s.Mood = MoodReady
	}

	now := e.Now()
	c.Lesson = &domain.Lesson{
		ID:        e.NewID(),
		Topic:     topic,
		Objective: strings.TrimSpace(plan.Objective),
		Mode:      normalizeMode(plan.Mode),
		Materials: strings.TrimSpace(plan.Materials),
		StartAt:   now,
	}
	c.Queue = nil
	c.Reflection = nil
	c.overtimeNotified = false
	c.Streak = UpdateStreak(c.Streak, now)
	c.Phase = domain.PhaseLesson
	c.Notice = fmt.Sprintf("Class live: %s. Objective: %s", c.Lesson.Topic, c.Lesson.Objective)
	return nil
}

// Teach delivers one explanation to every student.
func (e *Engine) Teach(c *Classroom, text string) (domain.Evaluation, error) {
	if !c.Live() {
		return domain.Evaluation{}, domain.ErrNoActiveLesson
	}
	if strings.TrimSpace(text) == "" {
		return domain.Evaluation{}, domain.ErrEmptyExplanation
	}

	c.Lesson.Explanations++
	eval := Evaluate(text)
	c.Lesson.QualityPoints += eval.MasteryDelta + eval.ConfidenceDelta

	for i := range c.Students {
		s := &c.Students[i]
		boost := affinityBoost(*s, eval, e.Rules)
		s.SessionMastery = clampStat(s.SessionMastery + eval.MasteryDelta + boost + e.Rules.MasteryJitter.draw(e.Rand))
		s.SessionConfidence = clampStat(s.SessionConfidence + eval.ConfidenceDelta + e.Rules.ConfidenceJitter.draw(e.Rand))
		s.Mood = MoodFor(s.SessionMastery, s.SessionConfidence, e.Rules)

		if e.Rand.Float64() < QuestionProbability(*s, eval, e.Rules) {
			c.Queue = append(c.Queue, NewQuestion(*s, false, e.Rand, e.Rules))
		}
	}
	e.autoSummary(c)
	return eval, nil
}

// MiniCheck quizzes the whole class. It reports whether the class needs review.
func (e *Engine) MiniCheck(c *Classroom) (bool, error) {
	if !c.Live() {
		return false, domain.ErrNoActiveLesson
	}
	c.Lesson.Checks++

	needsReview := Average(sessionMasteries(c.Students)) < e.Rules.ReviewThreshold
	for i := range c.Students {
		s := &c.Students[i]
		if needsReview {
			s.SessionConfidence = clampStat(s.SessionConfidence - e.Rules.ReviewConfidenceDrop.draw(e.Rand))
			if e.Rand.Float64() < e.Rules.MisconceptionChance {
				c.Queue = append(c.Queue, NewQuestion(*s, true, e.Rand, e.Rules))
			}
			continue
		}
		s.SessionMastery = clampStat(s.SessionMastery + e.Rules.CheckMasteryGain.draw(e.Rand))
		s.SessionConfidence = clampStat(s.SessionConfidence + e.Rules.CheckConfidenceGain.draw(e.Rand))
	}

	if needsReview {
		c.Notice = "Mini check indicates misconceptions. Re-teach with a worked example."
	} else {
		c.Notice = "Mini check looks strong. Move to transfer/edge-case questions."
	}
	e.autoSummary(c)
	return needsReview, nil
}

// Tick applies passive classroom behaviour. It reports whether anything ran.
func (e *Engine) Tick(c *Classroom) bool {
	if !c.Live() {
		return false
	}
	for i := range c.Students {
		s := &c.Students[i]
		if e.Rand.Float64() < TickProbability(*s, e.Rules) {
			c.Queue = append(c.Queue, NewQuestion(*s, false, e.Rand, e.Rules))
		}
		if e.Rand.Float64() < e.Rules.TickDecayChance {
			s.SessionConfidence = clampStat(s.SessionConfidence - e.Rules.TickConfidenceDecay.draw(e.Rand))
		}
	}

	planned := e.Rules.Duration(c.Lesson.Mode)
	if !c.overtimeNotified && e.Now().Sub(c.Lesson.StartAt) > planned {
		c.overtimeNotified = true
		c.Notice = fmt.Sprintf("The %s lesson has passed its planned %d minutes. Consider a mini check or wrapping up.",
			c.Lesson.Mode, int(planned.Minutes()))
	}
	e.autoSummary(c)
	return true
}

// Respond answers the oldest raised hand.
func (e *Engine) Respond(c *Classroom) (domain.Question, error) {
	if !c.Live() {
		return domain.Question{}, domain.ErrNoActiveLesson
	}
	if len(c.Queue) == 0 {
		return domain.Question{}, domain.ErrQueueEmpty
	}

	next := c.Queue[0]
	c.Queue = c.Queue[1:]
	if s := findStudent(c.Students, next.StudentID); s != nil {
		s.SessionConfidence = clampStat(s.SessionConfidence + e.Rules.RespondConfidenceGain.draw(e.Rand))
		s.SessionMastery = clampStat(s.SessionMastery + e.Rules.RespondMasteryGain.draw(e.Rand))
		s.Mood = MoodClarified
		c.Notice = fmt.Sprintf("You responded to %s: %q", s.Name, next.Text)
	}
	e.autoSummary(c)
	return next, nil
}

// EndLesson folds the lesson into long-term stats and moves to reflection.
func (e *Engine) EndLesson(c *Classroom) (*domain.Reflection, error) {
	if !c.Live() {
		return nil, domain.ErrNoActiveLesson
	}
	lesson := c.Lesson

	qualityBonus := roundInt(float64(lesson.QualityPoints) / e.Rules.XPQualityDivisor)
	results := make([]domain.StudentResult, 0, len(c.Students))
	for i := range c.Students {
		s := &c.Students[i]
		growth := roundInt(float64(s.SessionMastery-s.Mastery) * e.Rules.XPGainWeight)
		if growth < 0 {
			growth = 0
		}
		gain := growth + e.Rules.XPBonus.draw(e.Rand) + qualityBonus
		leveled := addXP(s, gain, e.Rules.XPPerLevel)

		s.Mastery = clampStat(fold(s.Mastery, s.SessionMastery, e.Rules.FoldOldWeight))
		s.Confidence = clampStat(fold(s.Confidence, s.SessionConfidence, e.Rules.FoldOldWeight))

		results = append(results, domain.StudentResult{
			StudentID:      s.ID,
			Name:           s.Name,
			SessionMastery: s.SessionMastery,
			XPGained:       gain,
			Level:          s.Level,
			LeveledUp:      leveled,
		})
	}

	avgMastery := roundInt(Average(sessionMasteries(c.Students)))
	avgConfidence := roundInt(Average(sessionConfidences(c.Students)))
	c.History, _ = AppendHistory(c.History, e.summary(lesson, avgMastery, avgConfidence), e.Rules.HistoryCap)

	reflection := &domain.Reflection{
		LessonID:          lesson.ID,
		Topic:             lesson.Topic,
		Mode:              lesson.Mode,
		Explanations:      lesson.Explanations,
		Checks:            lesson.Checks,
		AverageMastery:    avgMastery,
		AverageConfidence: avgConfidence,
		Students:          results,
	}
	reflection.Strongest, reflection.NeedsReinforcement = extremes(results)

	c.Lesson = nil
	c.Queue = nil
	c.Phase = domain.PhaseReflection
	c.Reflection = reflection
	c.Notice = fmt.Sprintf("Lesson on %s complete. Class mastery %d%%.", reflection.Topic, avgMastery)
	return reflection, nil
}

// ReturnToLobby dismisses the reflection panel.
func (e *Engine) ReturnToLobby(c *Classroom) {
	if c.Phase != domain.PhaseReflection {
		return
	}
	c.Phase = domain.PhaseLobby
	c.Reflection = nil
	c.Notice = ""
}

// Snapshot returns a deep copy of the classroom for renderers.
func (e *Engine) Snapshot(c *Classroom) domain.Snapshot {
	snap := domain.Snapshot{
		ClassroomID: c.ID,
		Phase:       c.Phase,
		Students:    append([]domain.Student(nil), c.Students...),
		Queue:       append([]domain.Question(nil), c.Queue...),
		History:     append([]domain.HistorySummary(nil), c.History...),
		Streak:      c.Streak,
		Notice:      c.Notice,
		UpdatedAt:   e.Now(),
		Metrics: domain.Metrics{
			AverageMastery:    roundInt(Average(sessionMasteries(c.Students))),
			AverageConfidence: roundInt(Average(sessionConfidences(c.Students))),
			QueueDepth:        len(c.Queue),
		},
	}
	if c.Lesson != nil {
		lesson := *c.Lesson
		snap.Lesson = &lesson
		snap.Metrics.Explanations = lesson.Explanations
		snap.Metrics.Checks = lesson.Checks
	}
	if c.Reflection != nil {
		reflection := *c.Reflection
		reflection.Students = append([]domain.StudentResult(nil), c.Reflection.Students...)
		snap.Reflection = &reflection
	}
	return snap
}

// autoSummary logs the lesson early once the class is clearly on track.
func (e *Engine) autoSummary(c *Classroom) {
	n := e.Rules.AutoSummaryExplanations
	if n <= 0 || !c.Live() || c.Lesson.Explanations < n {
		return
	}
	avgMastery := roundInt(Average(sessionMasteries(c.Students)))
	if avgMastery <= e.Rules.AutoSummaryMastery {
		return
	}
	avgConfidence := roundInt(Average(sessionConfidences(c.Students)))
	c.History, _ = AppendHistory(c.History, e.summary(c.Lesson, avgMastery, avgConfidence), e.Rules.HistoryCap)
}

func (e *Engine) summary(lesson *domain.Lesson, mastery, confidence int) domain.HistorySummary {
	return domain.HistorySummary{
		LessonID:   lesson.ID,
		Topic:      lesson.Topic,
		Mode:       lesson.Mode,
		Mastery:    mastery,
		Confidence: confidence,
		Date:       e.Now().UTC(),
	}
}

func fold(old, session int, oldWeight float64) int {
	return roundInt(oldWeight*float64(old) + (1-oldWeight)*float64(session))
}

func extremes(results []domain.StudentResult) (*domain.StudentResult, *domain.StudentResult) {
	if len(results) == 0 {
		return nil, nil
	}
	hi, lo := results[0], results[0]
	for _, r := range results[1:] {
		if r.SessionMastery > hi.SessionMastery {
			hi = r
		}
		if r.SessionMastery < lo.SessionMastery {
			lo = r
		}
	}
	return &hi, &lo
}

func findStudent(students []domain.Student, id string) *domain.Student {
	for i := range students {
		if students[i].ID == id {
			return &students[i]
		}
	}
	return nil
}

func sessionMasteries(students []domain.Student) []int {
	out := make([]int, len(students))
	for i, s := range students {
		out[i] = s.SessionMastery
	}
	return out
}

func sessionConfidences(students []domain.Student) []int {
	out := make([]int, len(students))
	for i, s := range students {
		out[i] = s.SessionConfidence
	}
	return out
}

func normalizeMode(mode domain.Mode) domain.Mode {
	switch mode {
	case domain.ModeQuick, domain.ModeDeep:
		return mode
	default:
		return domain.ModeStandard
	}
}
