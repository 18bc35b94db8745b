package domain

import "errors"

var (
	// ErrClassroomNotFound is returned when a classroom has not been opened.
	ErrClassroomNotFound = errors.New("classroom not found")
	// ErrNoActiveLesson is returned when a teaching action arrives outside a lesson.
	ErrNoActiveLesson = errors.New("no active lesson")
	// ErrLessonInProgress is returned when a lesson is started while another is live.
	ErrLessonInProgress = errors.New("lesson already in progress")
	// ErrEmptyTopic indicates a lesson plan without a topic.
	ErrEmptyTopic = errors.New("lesson topic is required")
	// ErrEmptyExplanation indicates blank explanation text.
	ErrEmptyExplanation = errors.New("explanation is empty")
	// ErrQueueEmpty is returned when responding with no raised hands.
	ErrQueueEmpty = errors.New("no questions in queue")
	// ErrBlobNotFound is returned by state stores for keys never written.
	ErrBlobNotFound = errors.New("state blob not found")
)
