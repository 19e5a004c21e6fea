package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"placement-exam-service/internal/app"
	"placement-exam-service/internal/domain"
	"placement-exam-service/internal/exam"
)

// WSHandler drives one exam session per WebSocket connection. The client is
// the audio runtime and the renderer; the session state machine lives here.
type WSHandler struct {
	exams    *app.ExamService
	auth     *app.AuthService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(exams *app.ExamService, auth *app.AuthService, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		exams:  exams,
		auth:   auth,
		logger: logger,
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

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
}

type sessionPayload struct {
	SessionID string       `json:"sessionId"`
	Language  string       `json:"language"`
	Remaining int          `json:"remaining"`
	Urgency   exam.Urgency `json:"urgency"`
	Step      exam.Step    `json:"step"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and wires the connection into an exam attempt.
// The bearer credential is optional; anonymous attempts run but their
// persistence is rejected upstream, degrading to the local summary.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	language := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("language")))
	if language == "" {
		http.Error(w, "missing language", http.StatusBadRequest)
		return
	}
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	userID := h.auth.Identify(token)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session, err := h.exams.StartSession(r.Context(), language, userID, exam.NopPlayer{})
	if err != nil {
		msg := "failed to load questions"
		if errors.Is(err, domain.ErrNoQuestions) {
			msg = "no questions found"
		}
		h.logger.Warn("exam start failed", zap.String("language", language), zap.Error(err))
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: msg}})
		return
	}
	defer h.exams.EndSession(session.ID())

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
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
				case send <- outboundMessage[any]{Type: string(update.Type), Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	step, remaining, urgency := session.Snapshot()
	send <- outboundMessage[any]{Type: "session", Payload: sessionPayload{
		SessionID: session.ID(),
		Language:  language,
		Remaining: remaining,
		Urgency:   urgency,
		Step:      step,
	}}

	h.readLoop(r, conn, session, send)

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) readLoop(r *http.Request, conn *websocket.Conn, session *exam.Session, send chan outboundMessage[any]) {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if err := session.Select(payload.QuestionID, payload.Option); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "advance":
			session.Advance(r.Context())
		case "replayAudio":
			session.ReplayAudio()
			step, remaining, urgency := session.Snapshot()
			send <- outboundMessage[any]{Type: "step", Payload: exam.Event{
				Type: exam.EventStep, Step: &step, Remaining: remaining, Urgency: urgency,
			}}
		case "audioFailed":
			session.ReportAudioFailure()
		case "finish":
			session.Finish(r.Context())
		case "quit":
			// Client confirmed leaving mid-exam; no submission happens.
			return
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
