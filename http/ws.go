package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"heartrisk/report"
)

const (
	defaultWriteWait = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 30 * time.Second
	maxMessageSize   = 8 << 10
)

// MessageType live socket message type
type MessageType string

const (
	MessagePredict    MessageType = "predict"
	MessagePrediction MessageType = "prediction"
	MessageError      MessageType = "error"
	MessagePing       MessageType = "ping"
	MessagePong       MessageType = "pong"
)

// ClientMessage is one inbound socket message. Record holds field values
// the same way the JSON predict endpoint accepts them.
type ClientMessage struct {
	Type   MessageType     `json:"type"`
	ID     string          `json:"id,omitempty"`
	Record json.RawMessage `json:"record,omitempty"`
}

// ServerMessage is one outbound socket message.
type ServerMessage struct {
	Type       MessageType        `json:"type"`
	ID         string             `json:"id,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Prediction *report.Prediction `json:"prediction,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// handlePredictSocket answers each predict message with one prediction, so a
// form can update its verdict while sliders move.
func (h *handlers) handlePredictSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	send := make(chan ServerMessage, 16)
	done := make(chan struct{})
	go h.writePump(conn, send, done)
	h.readPump(conn, r, send, done)
}

// readPump owns reads and closes send when the client goes away. It stops as
// soon as writePump has given up, so a client that never reads replies cannot
// park it on a full send buffer.
func (h *handlers) readPump(conn *websocket.Conn, r *http.Request, send chan<- ServerMessage, done <-chan struct{}) {
	defer close(send)

	deliver := func(msg ServerMessage) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var reply ServerMessage
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			reply = errorMessage("", err)
		} else {
			switch msg.Type {
			case MessagePing:
				reply = ServerMessage{Type: MessagePong, ID: msg.ID, Timestamp: time.Now()}
			case MessagePredict:
				reply = h.predictMessage(r, msg)
			default:
				reply = ServerMessage{Type: MessageError, ID: msg.ID, Timestamp: time.Now(), Error: "unknown message type " + string(msg.Type)}
			}
		}
		if !deliver(reply) {
			return
		}
	}
}

func (h *handlers) predictMessage(r *http.Request, msg ClientMessage) ServerMessage {
	rc := h.provider.Current()
	payload := []byte(msg.Record)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	record, err := rc.Collector.CollectJSON(payload)
	if err != nil {
		return errorMessage(msg.ID, err)
	}
	prediction, err := h.predict(r.Context(), rc, record, "socket")
	if err != nil {
		h.logger.Error("live prediction failed", zap.Error(err))
		return errorMessage(msg.ID, err)
	}
	return ServerMessage{Type: MessagePrediction, ID: msg.ID, Timestamp: time.Now(), Prediction: &prediction}
}

// writePump owns writes: queued replies plus periodic pings. It closes done
// and the connection on exit.
func (h *handlers) writePump(conn *websocket.Conn, send <-chan ServerMessage, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("websocket write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func errorMessage(id string, err error) ServerMessage {
	return ServerMessage{Type: MessageError, ID: id, Timestamp: time.Now(), Error: err.Error()}
}
