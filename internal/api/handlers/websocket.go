package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	ws "github.com/console-zone/rental/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// staff screens are served from other origins
		return true
	},
}

// WebSocketUpgrade returns a handler that upgrades HTTP connections to WebSocket.
func WebSocketUpgrade(hub *ws.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := ws.NewClient(hub)
		hub.Register(client)

		go writePump(conn, client)
		go readPump(conn, client, hub, log)
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func writePump(conn *websocket.Conn, client *ws.Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub.
func readPump(conn *websocket.Conn, client *ws.Client, hub *ws.Hub, log *zap.Logger) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(65536)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug("websocket read error", zap.Error(err))
			}
			break
		}

		handleClientMessage(message, client)
	}
}

// handleClientMessage processes subscribe and ping commands. Replies are queued
// on the client's send channel so only writePump writes to the connection.
func handleClientMessage(message []byte, client *ws.Client) {
	var cmd ws.Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		reply(client, ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: "bad_message", Message: "message is not valid JSON"}))
		return
	}

	switch cmd.Type {
	case ws.TypePing:
		reply(client, ws.NewMessage(ws.TypePong, nil))

	case ws.TypeSubscribe:
		var p ws.SubscribePayload
		if len(cmd.Payload) > 0 {
			if err := json.Unmarshal(cmd.Payload, &p); err != nil {
				reply(client, ws.NewMessage(ws.TypeError, ws.ErrorPayload{
					Code: "bad_payload", Message: err.Error(), OriginalType: string(cmd.Type),
				}))
				return
			}
		}
		client.Subscribe(p.Categories)
		reply(client, ws.NewMessage(ws.TypeSubscribeAck, p))

	default:
		reply(client, ws.NewMessage(ws.TypeError, ws.ErrorPayload{
			Code: "unknown_type", Message: "unsupported command", OriginalType: string(cmd.Type),
		}))
	}
}

func reply(client *ws.Client, msg ws.Message) {
	data, err := msg.JSON()
	if err != nil {
		return
	}
	client.Reply(data)
}
