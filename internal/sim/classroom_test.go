package sim_test

import (
	"math/rand"
	"testing"
	"time"

	"classroom-sim-service/internal/domain"
	"classroom-sim-service/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const photosynthesis = "For example, plants convert light into energy because chlorophyll absorbs photons, therefore producing sugar"

func startedClassroom(t *testing.T, engine *sim.Engine) *sim.Classroom {
	t.Helper()
	c := sim.NewClassroom("room-1", nil)
	require.NoError(t, engine.StartLesson(c, domain.LessonPlan{Topic: "Photosynthesis", Objective: "Explain light reactions", Mode: domain.ModeStandard}))
	return c
}

func assertStatsInRange(t *testing.T, students []domain.Student, perLevel int) {
	t.Helper()
	for _, s := range students {
		for name, v := range map[string]int{
			"mastery":           s.Mastery,
			"confidence":        s.Confidence,
			"sessionMastery":    s.SessionMastery,
			"sessionConfidence": s.SessionConfidence,
		} {
			assert.GreaterOrEqual(t, v, 0, "%s %s", s.ID, name)
			assert.LessOrEqual(t, v, 100, "%s %s", s.ID, name)
		}
		assert.Equal(t, s.XP/perLevel+1, s.Level, s.ID)
	}
}

func TestStartLessonInitializesClassroom(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), lowRand)
	c := startedClassroom(t, engine)

	require.True(t, c.Live())
	assert.Equal(t, domain.PhaseLesson, c.Phase)
	assert.Equal(t, "lesson-1", c.Lesson.ID)
	assert.Equal(t, baseTime, c.Lesson.StartAt)
	assert.Equal(t, domain.Streak{Days: 1, LastDate: "2024-03-11"}, c.Streak)
	require.Len(t, c.Students, 6)
	for _, s := range c.Students {
		assert.Equal(t, s.Mastery, s.SessionMastery)
		assert.Equal(t, s.Confidence, s.SessionConfidence)
		assert.Equal(t, sim.MoodReady, s.Mood)
	}
	assert.Empty(t, c.Queue)
}

func TestStartLessonGuards(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), lowRand)
	c := sim.NewClassroom("room-1", nil)

	assert.ErrorIs(t, engine.StartLesson(c, domain.LessonPlan{Topic: "   "}), domain.ErrEmptyTopic)
	assert.Equal(t, domain.PhaseLobby, c.Phase)

	require.NoError(t, engine.StartLesson(c, domain.LessonPlan{Topic: "Fractions", Mode: "unknown"}))
	assert.Equal(t, domain.ModeStandard, c.Lesson.Mode)
	assert.ErrorIs(t, engine.StartLesson(c, domain.LessonPlan{Topic: "Again"}), domain.ErrLessonInProgress)
	assert.Equal(t, "Fractions", c.Lesson.Topic)
}

func TestStartLessonKeepsPersistedRoster(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), lowRand)
	roster := sim.NewRoster(highRand, engine.Rules)
	roster[0].Mastery = 77
	roster[0].XP = 300
	roster[0].Level = 3

	c := sim.NewClassroom("room-1", roster)
	require.NoError(t, engine.StartLesson(c, domain.LessonPlan{Topic: "Fractions"}))
	assert.Equal(t, 77, c.Students[0].SessionMastery)
	assert.Equal(t, 300, c.Students[0].XP)

	flat, _ := newTestEngine(sim.FlatRules(), lowRand)
	c = sim.NewClassroom("room-2", sim.NewRoster(highRand, flat.Rules))
	require.NoError(t, flat.StartLesson(c, domain.LessonPlan{Topic: "Fractions"}))
	assert.Equal(t, 18, c.Students[0].Mastery, "flat rules seat a fresh class every lesson")
}

func TestTeachScenario(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), rand.New(rand.NewSource(7)))
	c := startedClassroom(t, engine)
	before := append([]domain.Student(nil), c.Students...)

	eval, err := engine.Teach(c, photosynthesis)
	require.NoError(t, err)
	assert.Equal(t, 9, eval.MasteryDelta)

	assert.Equal(t, 1, c.Lesson.Explanations)
	assert.Equal(t, eval.MasteryDelta+eval.ConfidenceDelta, c.Lesson.QualityPoints)
	for i, s := range c.Students {
		assert.Greater(t, s.SessionMastery, before[i].SessionMastery, s.ID)
	}
	for _, s := range c.Students {
		assert.Greater(t, sim.QuestionProbability(s, eval, engine.Rules), 0.0)
	}
	assertStatsInRange(t, c.Students, engine.Rules.XPPerLevel)
}

func TestTeachEnqueuesWhenDrawSucceeds(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), highRand)
	c := startedClassroom(t, engine)

	_, err := engine.Teach(c, "short")
	require.NoError(t, err)
	require.Len(t, c.Queue, 6)
	for i, q := range c.Queue {
		assert.Equal(t, c.Students[i].ID, q.StudentID, "queue keeps roster order")
		assert.False(t, q.Misconception)
	}

	engine.Rand = lowRand
	_, err = engine.Teach(c, "short")
	require.NoError(t, err)
	assert.Len(t, c.Queue, 6, "draws at the top of the range never enqueue")
}

func TestTeachAppliesAffinityBoostAndMood(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), lowRand)
	c := startedClassroom(t, engine)
	start := c.Students[2].SessionMastery // Shy Rabbit, example affinity
	owlStart := c.Students[1].SessionMastery

	_, err := engine.Teach(c, "for example")
	require.NoError(t, err)
	// delta 2+4, boost 2, jitter -2
	assert.Equal(t, start+6, c.Students[2].SessionMastery)
	assert.Equal(t, owlStart+4, c.Students[1].SessionMastery)
	assert.Equal(t, sim.MoodConfused, c.Students[1].Mood)

	c.Students[3].SessionMastery = 90
	_, err = engine.Teach(c, "short")
	require.NoError(t, err)
	assert.Equal(t, sim.MoodGettingIt, c.Students[3].Mood)
}

func TestTeachGuards(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), lowRand)
	c := sim.NewClassroom("room-1", nil)

	_, err := engine.Teach(c, "hello")
	assert.ErrorIs(t, err, domain.ErrNoActiveLesson)

	c = startedClassroom(t, engine)
	_, err = engine.Teach(c, " \n\t ")
	assert.ErrorIs(t, err, domain.ErrEmptyExplanation)
	assert.Equal(t, 0, c.Lesson.Explanations)
}

func TestMiniCheckBelowThresholdDropsConfidence(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), rand.New(rand.NewSource(3)))
	c := startedClassroom(t, engine)
	for i := range c.Students {
		c.Students[i].SessionMastery = 20
		c.Students[i].SessionConfidence = 60
	}

	needsReview, err := engine.MiniCheck(c)
	require.NoError(t, err)
	assert.True(t, needsReview)
	assert.Equal(t, 1, c.Lesson.Checks)
	for _, s := range c.Students {
		assert.Less(t, s.SessionConfidence, 60, s.ID)
		assert.Equal(t, 20, s.SessionMastery, s.ID)
	}
	for _, q := range c.Queue {
		assert.True(t, q.Misconception)
	}
	assert.Contains(t, c.Notice, "Re-teach")
}

func TestMiniCheckEnqueuesMisconceptions(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), highRand)
	c := startedClassroom(t, engine)
	for i := range c.Students {
		c.Students[i].SessionMastery = 10
	}

	_, err := engine.MiniCheck(c)
	require.NoError(t, err)
	require.Len(t, c.Queue, 6)
	assert.True(t, c.Queue[0].Misconception)
}

func TestMiniCheckAboveThresholdBoostsEveryone(t *testing.T) {
	engine, _ := newTestEngine(sim.FlatRules(), lowRand)
	c := startedClassroom(t, engine)
	for i := range c.Students {
		c.Students[i].SessionMastery = 80
		c.Students[i].SessionConfidence = 50
	}

	needsReview, err := engine.MiniCheck(c)
	require.NoError(t, err)
	assert.False(t, needsReview)
	for _, s := range c.Students {
		assert.Equal(t, 82, s.SessionMastery)
		assert.Equal(t, 51, s.SessionConfidence)
	}
	assert.Empty(t, c.Queue)
}

func TestRespondIsStrictFIFO(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), lowRand)
	c := startedClassroom(t, engine)
	c.Queue = []domain.Question{
		{StudentID: "s-3", StudentName: "Jun", Text: "first"},
		{StudentID: "missing", StudentName: "Ghost", Text: "second"},
		{StudentID: "s-0", StudentName: "Milo", Text: "third"},
	}
	jun := c.Students[3]

	q, err := engine.Respond(c)
	require.NoError(t, err)
	assert.Equal(t, "first", q.Text)
	require.Len(t, c.Queue, 2)
	assert.Equal(t, jun.SessionConfidence+5, c.Students[3].SessionConfidence)
	assert.Equal(t, jun.SessionMastery+2, c.Students[3].SessionMastery)
	assert.Equal(t, sim.MoodClarified, c.Students[3].Mood)

	snapshot := append([]domain.Student(nil), c.Students...)
	q, err = engine.Respond(c)
	require.NoError(t, err)
	assert.Equal(t, "second", q.Text)
	assert.Len(t, c.Queue, 1, "entries for unknown students are still consumed")
	assert.Equal(t, snapshot, c.Students)

	_, err = engine.Respond(c)
	require.NoError(t, err)
	assert.Empty(t, c.Queue)

	_, err = engine.Respond(c)
	assert.ErrorIs(t, err, domain.ErrQueueEmpty)
	assert.Empty(t, c.Queue)
}

func TestTickGuardAndOvertimeNotice(t *testing.T) {
	engine, clock := newTestEngine(sim.ArchetypeRules(), lowRand)
	c := sim.NewClassroom("room-1", nil)
	assert.False(t, engine.Tick(c))

	require.NoError(t, engine.StartLesson(c, domain.LessonPlan{Topic: "Tides", Mode: domain.ModeQuick}))
	c.Notice = ""
	assert.True(t, engine.Tick(c))
	assert.Empty(t, c.Notice)

	clock.Advance(11 * time.Minute)
	assert.True(t, engine.Tick(c))
	assert.Contains(t, c.Notice, "planned 10 minutes")

	c.Notice = ""
	engine.Tick(c)
	assert.Empty(t, c.Notice, "the overtime notice fires once per lesson")
}

func TestTickRaisesHandsAndDecaysConfidence(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), highRand)
	c := startedClassroom(t, engine)
	before := append([]domain.Student(nil), c.Students...)

	engine.Tick(c)
	require.Len(t, c.Queue, 6)
	for i, s := range c.Students {
		assert.Equal(t, sim.Clamp(before[i].SessionConfidence-3, 0, 100), s.SessionConfidence)
	}
}

func TestEndLessonProgression(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), lowRand)
	c := startedClassroom(t, engine)
	for i := range c.Students {
		c.Students[i].Mastery = 40
		c.Students[i].Confidence = 30
		c.Students[i].SessionMastery = 60
		c.Students[i].SessionConfidence = 50
	}
	c.Students[4].SessionMastery = 90
	c.Students[1].SessionMastery = 20
	c.Lesson.QualityPoints = 50
	c.Queue = []domain.Question{{StudentID: "s-0", Text: "left over"}}

	reflection, err := engine.EndLesson(c)
	require.NoError(t, err)

	// growth round(20*0.4)=8, bonus 4, quality round(50/20)=3
	assert.Equal(t, 15, c.Students[0].XP)
	assert.Equal(t, 48, c.Students[0].Mastery)
	assert.Equal(t, 38, c.Students[0].Confidence)
	// negative growth clamps to zero
	assert.Equal(t, 7, c.Students[1].XP)
	assertStatsInRange(t, c.Students, engine.Rules.XPPerLevel)

	assert.Equal(t, domain.PhaseReflection, c.Phase)
	assert.Nil(t, c.Lesson)
	assert.Empty(t, c.Queue)
	require.NotNil(t, reflection.Strongest)
	assert.Equal(t, "s-4", reflection.Strongest.StudentID)
	assert.Equal(t, "s-1", reflection.NeedsReinforcement.StudentID)
	require.Len(t, c.History, 1)
	assert.Equal(t, "lesson-1", c.History[0].LessonID)
	assert.Equal(t, reflection.AverageMastery, c.History[0].Mastery)

	_, err = engine.EndLesson(c)
	assert.ErrorIs(t, err, domain.ErrNoActiveLesson)
}

func TestEndLessonLevelsUp(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), highRand)
	c := startedClassroom(t, engine)
	c.Students[0].XP = 115
	c.Students[0].Level = 1

	reflection, err := engine.EndLesson(c)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Students[0].Level)
	assert.True(t, reflection.Students[0].LeveledUp)
}

func TestEndLessonEmptyRoster(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), lowRand)
	c := &sim.Classroom{
		ID:     "empty",
		Phase:  domain.PhaseLesson,
		Lesson: &domain.Lesson{ID: "l-empty", Topic: "Nothing"},
	}

	reflection, err := engine.EndLesson(c)
	require.NoError(t, err)
	assert.Equal(t, 0, reflection.AverageMastery)
	assert.Nil(t, reflection.Strongest)
	assert.Nil(t, reflection.NeedsReinforcement)
	require.Len(t, c.History, 1)
}

func TestReturnToLobbyThenRestart(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), lowRand)
	c := startedClassroom(t, engine)
	_, err := engine.EndLesson(c)
	require.NoError(t, err)

	engine.ReturnToLobby(c)
	assert.Equal(t, domain.PhaseLobby, c.Phase)
	assert.Nil(t, c.Reflection)

	require.NoError(t, engine.StartLesson(c, domain.LessonPlan{Topic: "Respiration"}))
	assert.Equal(t, "lesson-2", c.Lesson.ID)
	assert.Equal(t, 1, c.Streak.Days, "second lesson on the same day keeps the streak")
}

func TestFlatAutoSummary(t *testing.T) {
	engine, _ := newTestEngine(sim.FlatRules(), lowRand)
	c := startedClassroom(t, engine)
	for i := range c.Students {
		c.Students[i].SessionMastery = 80
	}

	for i := 0; i < 2; i++ {
		_, err := engine.Teach(c, "short")
		require.NoError(t, err)
	}
	assert.Empty(t, c.History)

	_, err := engine.Teach(c, "short")
	require.NoError(t, err)
	require.Len(t, c.History, 1)

	_, err = engine.Teach(c, "short")
	require.NoError(t, err)
	_, err = engine.EndLesson(c)
	require.NoError(t, err)
	assert.Len(t, c.History, 1, "end of lesson does not log the same lesson twice")
}

func TestSnapshotIsACopy(t *testing.T) {
	engine, _ := newTestEngine(sim.ArchetypeRules(), highRand)
	c := startedClassroom(t, engine)
	_, err := engine.Teach(c, "short")
	require.NoError(t, err)

	snap := engine.Snapshot(c)
	snap.Students[0].SessionMastery = -1
	snap.Queue[0].Text = "changed"
	snap.Lesson.Explanations = 99

	assert.NotEqual(t, -1, c.Students[0].SessionMastery)
	assert.NotEqual(t, "changed", c.Queue[0].Text)
	assert.Equal(t, 1, c.Lesson.Explanations)
	assert.Equal(t, 6, snap.Metrics.QueueDepth)
}

func TestRandomSessionsKeepInvariants(t *testing.T) {
	texts := []string{photosynthesis, "short", "first, then finally step two", "why?", ""}
	for seed := int64(1); seed <= 20; seed++ {
		rules := sim.ArchetypeRules()
		if seed%2 == 0 {
			rules = sim.FlatRules()
		}
		rnd := rand.New(rand.NewSource(seed))
		engine, clock := newTestEngine(rules, rnd)
		c := sim.NewClassroom("room", nil)

		for lesson := 0; lesson < 5; lesson++ {
			require.NoError(t, engine.StartLesson(c, domain.LessonPlan{Topic: "Loop"}))
			for step := 0; step < 30; step++ {
				switch rnd.Intn(4) {
				case 0:
					_, _ = engine.Teach(c, texts[rnd.Intn(len(texts))])
				case 1:
					_, _ = engine.MiniCheck(c)
				case 2:
					_, _ = engine.Respond(c)
				default:
					engine.Tick(c)
				}
				assertStatsInRange(t, c.Students, rules.XPPerLevel)
			}
			_, err := engine.EndLesson(c)
			require.NoError(t, err)
			assertStatsInRange(t, c.Students, rules.XPPerLevel)
			assert.LessOrEqual(t, len(c.History), rules.HistoryCap)
			clock.Advance(24 * time.Hour)
		}
	}
}
