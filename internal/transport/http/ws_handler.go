package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"classroom-sim-service/internal/app"
	"classroom-sim-service/internal/domain"
	"classroom-sim-service/internal/platform/logger"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.ClassroomService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ClassroomService, log *logger.Logger) *WSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type textPayload struct {
	Text string `json:"text"`
}

type captureErrorPayload struct {
	Message string `json:"message"`
}

type miniCheckResult struct {
	NeedsReview bool `json:"needsReview"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the classroom use cases.
// Every accepted action is followed by a "snapshot" message from the subscription.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	classroomID := r.URL.Query().Get("classroomId")
	if classroomID == "" {
		http.Error(w, "missing classroomId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if _, err := h.service.Open(ctx, classroomID); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel, err := h.service.Subscribe(ctx, classroomID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer func() {
		cancel()
		h.service.Leave(ctx, classroomID)
	}()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", "classroom", classroomID, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if reply, ok := h.dispatch(r, classroomID, inbound); ok {
			if !enqueue(send, writerDone, reply) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch runs one inbound action. The snapshot itself travels through the
// subscription; the reply only carries the action's own result.
func (h *WSHandler) dispatch(r *http.Request, classroomID string, inbound inboundMessage) (outboundMessage[any], bool) {
	ctx := r.Context()
	switch inbound.Type {
	case "startLesson":
		var plan domain.LessonPlan
		if err := json.Unmarshal(inbound.Payload, &plan); err != nil {
			return errorMessage("invalid lesson plan payload"), true
		}
		if _, err := h.service.StartLesson(ctx, classroomID, plan); err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{}, false
	case "teach", "transcript":
		var payload textPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid " + inbound.Type + " payload"), true
		}
		teach := h.service.Teach
		if inbound.Type == "transcript" {
			teach = h.service.SubmitTranscript
		}
		_, eval, err := teach(ctx, classroomID, payload.Text)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "evaluation", Payload: eval}, true
	case "miniCheck":
		_, needsReview, err := h.service.MiniCheck(ctx, classroomID)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "miniCheck", Payload: miniCheckResult{NeedsReview: needsReview}}, true
	case "respond":
		_, answered, err := h.service.Respond(ctx, classroomID)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "answered", Payload: answered}, true
	case "endLesson":
		_, reflection, err := h.service.EndLesson(ctx, classroomID)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "reflection", Payload: reflection}, true
	case "returnToLobby":
		if _, err := h.service.ReturnToLobby(ctx, classroomID); err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{}, false
	case "captureError":
		var payload captureErrorPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Message == "" {
			return errorMessage("invalid captureError payload"), true
		}
		if _, err := h.service.ReportCaptureError(ctx, classroomID, errors.New(payload.Message)); err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{}, false
	default:
		return errorMessage("unsupported message type"), true
	}
}

// enqueue hands msg to the writer; it reports false once the writer has quit.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
