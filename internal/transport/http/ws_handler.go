package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"escape-trail/internal/app"
	"escape-trail/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type WSHandler struct {
	service        *app.GameService
	defaultCatalog string
	upgrader       websocket.Upgrader
}

func NewWSHandler(service *app.GameService, defaultCatalog string) *WSHandler {
	return &WSHandler{
		service:        service,
		defaultCatalog: defaultCatalog,
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

type editPayload struct {
	Op        string `json:"op"`
	Text      string `json:"text"`
	ChoiceID  string `json:"choiceId"`
	Index     int    `json:"index"`
	Direction string `json:"direction"`
	LeftID    string `json:"leftId"`
	RightID   string `json:"rightId"`
}

type navigatePayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs one trail session per
// connection. The session ends when the connection closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	catalogID := r.URL.Query().Get("catalog")
	if catalogID == "" {
		catalogID = h.defaultCatalog
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	// The request context ends with the handler; session work must not.
	ctx := context.WithoutCancel(r.Context())

	started, err := h.service.Start(ctx, catalogID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := started.SessionID
	logger := log.With().Str("session", sessionID).Str("catalog", catalogID).Logger()
	defer h.service.End(ctx, sessionID)

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	// Hint requests stop with the connection; auto-advance timers use ctx.
	hintCtx, cancelHints := context.WithCancel(ctx)
	defer cancelHints()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	var (
		timersMu sync.Mutex
		timers   []*time.Timer
	)
	defer func() {
		timersMu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		timersMu.Unlock()
	}()

	// A single writer keeps websocket writes serialized.
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				// keep draining so senders never block on a dead connection
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("ws write error")
				failed = true
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
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	sendErr := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "edit":
			var payload editPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(errors.New("invalid edit payload"))
				continue
			}
			op, err := decodeEdit(payload)
			if err != nil {
				sendErr(err)
				continue
			}
			if _, err := h.service.Edit(ctx, sessionID, op); err != nil {
				sendErr(err)
			}
		case "submit":
			out, _, err := h.service.Submit(ctx, sessionID)
			if err != nil {
				sendErr(err)
				continue
			}
			send <- outboundMessage[any]{Type: "outcome", Payload: out}
			if out.Correct {
				timersMu.Lock()
				timers = append(timers, time.AfterFunc(out.AdvanceAfter, func() {
					// The client may already have advanced by itself.
					if _, err := h.service.Advance(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrNoTransition) && !errors.Is(err, domain.ErrSessionNotFound) {
						logger.Warn().Err(err).Msg("auto advance failed")
					}
				}))
				timersMu.Unlock()
			}
		case "advance":
			if _, err := h.service.Advance(ctx, sessionID); err != nil {
				sendErr(err)
			}
		case "navigate":
			var payload navigatePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(errors.New("invalid navigate payload"))
				continue
			}
			if _, err := h.service.Navigate(ctx, sessionID, payload.Index); err != nil {
				sendErr(err)
			}
		case "hint":
			// Resolved in the background; the result arrives with the next state frame.
			go func() {
				if _, _, err := h.service.RequestHint(hintCtx, sessionID); err != nil {
					logger.Debug().Err(err).Msg("hint request dropped")
				}
			}()
		case "draft":
			snap, err := h.service.Snapshot(ctx, sessionID)
			if err != nil {
				sendErr(err)
				continue
			}
			send <- outboundMessage[any]{Type: "state", Payload: snap}
		default:
			sendErr(errors.New("unsupported message type"))
		}
	}

	cancelHints()
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func decodeEdit(p editPayload) (domain.Edit, error) {
	switch p.Op {
	case "setText":
		return domain.SetText{Text: p.Text}, nil
	case "select":
		return domain.Select{ChoiceID: p.ChoiceID}, nil
	case "move":
		dir := domain.Direction(p.Direction)
		if dir != domain.DirectionUp && dir != domain.DirectionDown {
			return nil, fmt.Errorf("invalid move direction %q", p.Direction)
		}
		return domain.Move{Index: p.Index, Direction: dir}, nil
	case "assign":
		return domain.Assign{LeftID: p.LeftID, RightID: p.RightID}, nil
	default:
		return nil, fmt.Errorf("unsupported edit op %q", p.Op)
	}
}
