package domain

import "time"

// Phase is the lifecycle state of a classroom.
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseLesson     Phase = "lesson"
	PhaseReflection Phase = "reflection"
)

// Mode selects the planned lesson length.
type Mode string

const (
	ModeQuick    Mode = "quick"
	ModeStandard Mode = "standard"
	ModeDeep     Mode = "deep"
)

// Affinity is the kind of explanation an archetype responds best to.
type Affinity string

const (
	AffinityExample   Affinity = "example"
	AffinityReasoning Affinity = "reasoning"
	AffinityStructure Affinity = "structure"
)

// Archetype is immutable reference data describing a student personality.
type Archetype struct {
	Label      string   `json:"label"`
	Style      string   `json:"style"`
	Curiosity  float64  `json:"curiosity"`
	Skepticism float64  `json:"skepticism"`
	Affinity   Affinity `json:"affinity"`
}

// Student is one seat in the classroom.
// Mastery and Confidence are long-term; the Session fields live for one lesson.
type Student struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Archetype         string   `json:"archetype"`
	Style             string   `json:"style"`
	Curiosity         float64  `json:"curiosity"`
	Skepticism        float64  `json:"skepticism"`
	Affinity          Affinity `json:"affinity,omitempty"`
	Mastery           int      `json:"mastery"`
	Confidence        int      `json:"confidence"`
	SessionMastery    int      `json:"sessionMastery"`
	SessionConfidence int      `json:"sessionConfidence"`
	XP                int      `json:"xp"`
	Level             int      `json:"level"`
	Mood              string   `json:"mood"`
}

// Lesson is the single live lesson of a classroom.
type Lesson struct {
	ID            string    `json:"id"`
	Topic         string    `json:"topic"`
	Objective     string    `json:"objective"`
	Mode          Mode      `json:"mode"`
	Materials     string    `json:"materials"`
	Explanations  int       `json:"explanations"`
	Checks        int       `json:"checks"`
	QualityPoints int       `json:"qualityPoints"`
	StartAt       time.Time `json:"startAt"`
}

// LessonPlan is what the teacher submits from the lobby.
type LessonPlan struct {
	Topic     string `json:"topic"`
	Objective string `json:"objective"`
	Mode      Mode   `json:"mode"`
	Materials string `json:"materials"`
}

// Question is a raised hand waiting in the FIFO queue.
type Question struct {
	StudentID     string `json:"studentId"`
	StudentName   string `json:"studentName"`
	Text          string `json:"text"`
	Misconception bool   `json:"misconception,omitempty"`
}

// HistorySummary records one completed lesson.
type HistorySummary struct {
	LessonID   string    `json:"lessonId"`
	Topic      string    `json:"topic"`
	Mode       Mode      `json:"mode"`
	Mastery    int       `json:"mastery"`
	Confidence int       `json:"confidence"`
	Date       time.Time `json:"date"`
}

// Streak counts consecutive days with at least one lesson.
// LastDate is "YYYY-MM-DD" or empty when no lesson has been taught yet.
type Streak struct {
	Days     int    `json:"days"`
	LastDate string `json:"lastDate"`
}

// Evaluation is the scored outcome of one explanation.
type Evaluation struct {
	Words           int  `json:"words"`
	MasteryDelta    int  `json:"masteryDelta"`
	ConfidenceDelta int  `json:"confidenceDelta"`
	HasExample      bool `json:"hasExample"`
	HasReasoning    bool `json:"hasReasoning"`
	HasStructure    bool `json:"hasStructure"`
}

// StudentResult is a compact view of a student used in reflections.
type StudentResult struct {
	StudentID      string `json:"studentId"`
	Name           string `json:"name"`
	SessionMastery int    `json:"sessionMastery"`
	XPGained       int    `json:"xpGained"`
	Level          int    `json:"level"`
	LeveledUp      bool   `json:"leveledUp,omitempty"`
}

// Reflection summarizes a lesson that just ended.
type Reflection struct {
	LessonID           string          `json:"lessonId"`
	Topic              string          `json:"topic"`
	Mode               Mode            `json:"mode"`
	Explanations       int             `json:"explanations"`
	Checks             int             `json:"checks"`
	AverageMastery     int             `json:"averageMastery"`
	AverageConfidence  int             `json:"averageConfidence"`
	Strongest          *StudentResult  `json:"strongest,omitempty"`
	NeedsReinforcement *StudentResult  `json:"needsReinforcement,omitempty"`
	Students           []StudentResult `json:"students"`
}

// Metrics are the class-wide numbers a renderer shows next to the room.
type Metrics struct {
	AverageMastery    int `json:"averageMastery"`
	AverageConfidence int `json:"averageConfidence"`
	Explanations      int `json:"explanations"`
	Checks            int `json:"checks"`
	QueueDepth        int `json:"queueDepth"`
}

// Snapshot is a copy of a classroom handed to renderers after every mutation.
type Snapshot struct {
	ClassroomID string           `json:"classroomId"`
	Phase       Phase            `json:"phase"`
	Lesson      *Lesson          `json:"lesson,omitempty"`
	Students    []Student        `json:"students"`
	Queue       []Question       `json:"queue"`
	History     []HistorySummary `json:"history"`
	Streak      Streak           `json:"streak"`
	Metrics     Metrics          `json:"metrics"`
	Notice      string           `json:"notice,omitempty"`
	Reflection  *Reflection      `json:"reflection,omitempty"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
