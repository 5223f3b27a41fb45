package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"trivia-party-service/internal/app"
)

type WSHandler struct {
	orch     *app.Orchestrator
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(orch *app.Orchestrator, hub *Hub) *WSHandler {
	return &WSHandler{
		orch: orch,
		hub:  hub,
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

type createRoomPayload struct {
	DisplayName string `json:"displayName"`
}

type joinRoomPayload struct {
	RoomCode    string `json:"roomCode"`
	DisplayName string `json:"displayName"`
}

type submitAnswerPayload struct {
	OptionIndex int `json:"optionIndex"`
}

// ackPayload is the single acknowledgement every inbound request receives.
type ackPayload struct {
	Event         string `json:"event"`
	Success       bool   `json:"success"`
	RoomCode      string `json:"roomCode,omitempty"`
	ParticipantID string `json:"participantId,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ServeWS upgrades the connection and pumps inbound events into the
// orchestrator. Each connection is bound to at most one participant, set by
// its create-room or join-room request.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan outboundMessage, 32)}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	var participantID, roomCode string

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "create-room":
			var payload createRoomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.DisplayName == "" {
				c.ack(ackPayload{Event: inbound.Type, Error: "invalid create-room payload"})
				continue
			}
			if participantID != "" {
				c.ack(ackPayload{Event: inbound.Type, Error: "connection already bound to a room"})
				continue
			}
			code, hostID, err := h.orch.CreateRoom(r.Context(), payload.DisplayName)
			if err != nil {
				c.ack(ackPayload{Event: inbound.Type, Error: err.Error()})
				continue
			}
			participantID, roomCode = hostID, code
			h.hub.Register(code, hostID, c)
			c.ack(ackPayload{Event: inbound.Type, Success: true, RoomCode: code, ParticipantID: hostID})
			h.orch.AnnounceRoomCreated(code, hostID)

		case "join-room":
			var payload joinRoomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.RoomCode == "" || payload.DisplayName == "" {
				c.ack(ackPayload{Event: inbound.Type, Error: "invalid join-room payload"})
				continue
			}
			if participantID != "" {
				c.ack(ackPayload{Event: inbound.Type, Error: "connection already bound to a room"})
				continue
			}
			id, err := h.orch.JoinRoom(payload.RoomCode, payload.DisplayName)
			if err != nil {
				c.ack(ackPayload{Event: inbound.Type, Error: err.Error()})
				continue
			}
			participantID, roomCode = id, payload.RoomCode
			h.hub.Register(roomCode, id, c)
			c.ack(ackPayload{Event: inbound.Type, Success: true, RoomCode: roomCode, ParticipantID: id})
			h.orch.AnnounceJoined(roomCode, id)

		case "start-game":
			if participantID == "" {
				c.ack(ackPayload{Event: inbound.Type, Error: "not in a room"})
				continue
			}
			if err := h.orch.StartGame(participantID); err != nil {
				c.ack(ackPayload{Event: inbound.Type, Error: err.Error()})
				continue
			}
			c.ack(ackPayload{Event: inbound.Type, Success: true})

		case "submit-answer":
			var payload submitAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				c.ack(ackPayload{Event: inbound.Type, Error: "invalid submit-answer payload"})
				continue
			}
			if participantID == "" {
				c.ack(ackPayload{Event: inbound.Type, Error: "not in a room"})
				continue
			}
			if err := h.orch.SubmitAnswer(participantID, payload.OptionIndex); err != nil {
				c.ack(ackPayload{Event: inbound.Type, Error: err.Error()})
				continue
			}
			c.ack(ackPayload{Event: inbound.Type, Success: true})

		case "next-question":
			if participantID == "" {
				c.ack(ackPayload{Event: inbound.Type, Error: "not in a room"})
				continue
			}
			if err := h.orch.NextQuestion(participantID); err != nil {
				c.ack(ackPayload{Event: inbound.Type, Error: err.Error()})
				continue
			}
			c.ack(ackPayload{Event: inbound.Type, Success: true})

		default:
			c.ack(ackPayload{Event: inbound.Type, Error: "unsupported message type"})
		}
	}

	if participantID != "" {
		h.hub.Unregister(roomCode, participantID)
		h.orch.Disconnect(participantID)
	}
	close(c.send)
	<-writerDone
}

func (c *client) ack(payload ackPayload) {
	deliver(c, outboundMessage{Type: "ack", Payload: payload})
}
